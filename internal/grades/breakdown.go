package grades

import (
	"maps"
	"slices"
)

// Pair is one assignment's student score next to its maximum.
type Pair struct {
	Student Score `json:"student"`
	Max     Score `json:"max"`
}

// Breakdown maps category -> assignment -> Pair.
type Breakdown map[string]map[string]Pair

// WithMax pairs every score in the student's record with the matching entry
// of the max record. Assignments the max record lacks get an invalid max.
func WithMax(student, maxRec ScoreRecord) Breakdown {
	out := make(Breakdown, len(student))
	for category, topics := range student {
		row := make(map[string]Pair, len(topics))
		for topic, score := range topics {
			row[topic] = Pair{Student: score, Max: maxRec[category][topic]}
		}
		out[category] = row
	}
	return out
}

// AssignmentScore is one graded assignment in a Summary.
type AssignmentScore struct {
	Category   string  `json:"category"`
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
	MaxPoints  float64 `json:"maxPoints"`
	Percentage float64 `json:"percentage"`
}

// CategorySummary aggregates the graded assignments of one category.
type CategorySummary struct {
	Scores     []AssignmentScore `json:"scores"`
	Total      float64           `json:"total"`
	MaxPoints  float64           `json:"maxPoints"`
	Percentage float64           `json:"percentage"`
	Count      int               `json:"count"`
	Average    float64           `json:"average"`
}

// Summary is the grade-breakdown view of a single student.
type Summary struct {
	TotalScore        float64                    `json:"totalScore"`
	TotalMaxPoints    float64                    `json:"totalMaxPoints"`
	OverallPercentage float64                    `json:"overallPercentage"`
	CategoryAverage   float64                    `json:"categoryAverage"`
	Categories        map[string]CategorySummary `json:"categoriesData"`
	Assignments       []AssignmentScore          `json:"assignmentsList"`
}

// Summarize turns a Breakdown into per-category and overall totals.
// Assignments without a positive max are not graded yet and are left out;
// a category with nothing graded is left out entirely.
func Summarize(b Breakdown) Summary {
	sum := Summary{Categories: make(map[string]CategorySummary)}

	for _, category := range slices.Sorted(maps.Keys(b)) {
		row := b[category]
		var cs CategorySummary
		for _, name := range slices.Sorted(maps.Keys(row)) {
			p := row[name]
			maxPts := p.Max.Float()
			if maxPts <= 0 {
				continue
			}
			a := AssignmentScore{
				Category:   category,
				Name:       name,
				Score:      p.Student.Float(),
				MaxPoints:  maxPts,
				Percentage: p.Student.Float() / maxPts * 100,
			}
			cs.Scores = append(cs.Scores, a)
			cs.Total += a.Score
			cs.MaxPoints += maxPts
			cs.Count++
			sum.Assignments = append(sum.Assignments, a)
		}
		if cs.MaxPoints <= 0 {
			continue
		}
		cs.Percentage = cs.Total / cs.MaxPoints * 100
		cs.Average = cs.Total / float64(cs.Count)
		sum.Categories[category] = cs
		sum.TotalScore += cs.Total
		sum.TotalMaxPoints += cs.MaxPoints
	}

	if sum.TotalMaxPoints > 0 {
		sum.OverallPercentage = sum.TotalScore / sum.TotalMaxPoints * 100
	}
	if n := len(sum.Categories); n > 0 {
		var pct float64
		for _, cs := range sum.Categories {
			pct += cs.Percentage
		}
		sum.CategoryAverage = pct / float64(n)
	}
	return sum
}
