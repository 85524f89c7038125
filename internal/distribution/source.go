package distribution

import (
	"strings"

	"github.com/p-n-ai/gradeview/internal/grades"
)

// Source selects which per-student score is binned.
type Source int

const (
	// SourceAssignment bins a single assignment's score.
	SourceAssignment Source = iota
	// SourceCategorySummary bins the sum of a category's valid scores.
	SourceCategorySummary
)

func (s Source) String() string {
	switch s {
	case SourceAssignment:
		return "assignment"
	case SourceCategorySummary:
		return "summary"
	default:
		return "unknown"
	}
}

// SourceFor derives the mode from a requested name: the dashboard asks for
// a category summary with names such as "Labs Summary".
func SourceFor(name string) Source {
	if strings.Contains(name, "Summary") {
		return SourceCategorySummary
	}
	return SourceAssignment
}

// Member is one roster student with their score record.
type Member struct {
	Name   string
	Email  string
	Scores grades.ScoreRecord
}

// SummaryScore sums the valid scores of one category. It is invalid when the
// category is missing or holds no valid score.
func SummaryScore(rec grades.ScoreRecord, category string) grades.Score {
	topics, ok := rec[category]
	if !ok {
		return grades.Score{}
	}
	var total float64
	count := 0
	for _, sc := range topics {
		if sc.Valid {
			total += sc.Value
			count++
		}
	}
	if count == 0 {
		return grades.Score{}
	}
	return grades.NewScore(total)
}

// Collect builds histogram entries for every roster member in order.
func Collect(src Source, category, assignment string, roster []Member) []Entry {
	entries := make([]Entry, 0, len(roster))
	for _, m := range roster {
		var sc grades.Score
		switch src {
		case SourceCategorySummary:
			sc = SummaryScore(m.Scores, category)
		default:
			sc = m.Scores[category][assignment]
		}
		entries = append(entries, Entry{Name: m.Name, Email: m.Email, Score: sc})
	}
	return entries
}
