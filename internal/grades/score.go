// Package grades holds the gradebook score model and the pure aggregations
// over it: per-topic sums, category and overall totals, student-versus-max
// breakdowns, projections and letter-grade cut-offs.
package grades

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Score is a single gradebook cell. Spreadsheet exports mix numbers, numeric
// strings and blanks, so a Score remembers whether it held a usable number.
type Score struct {
	Value float64
	Valid bool
}

// NewScore returns a valid score holding v.
func NewScore(v float64) Score {
	return Score{Value: v, Valid: true}
}

// ParseScore converts a raw cell string. Blank, non-numeric, NaN and
// infinite values yield an invalid score.
func ParseScore(raw string) Score {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Score{}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Score{}
	}
	return NewScore(v)
}

// Float returns the numeric value, or 0 for an invalid score.
func (s Score) Float() float64 {
	if !s.Valid {
		return 0
	}
	return s.Value
}

func (s Score) String() string {
	if !s.Valid {
		return ""
	}
	return strconv.FormatFloat(s.Value, 'f', -1, 64)
}

// UnmarshalJSON accepts numbers, numeric strings, blanks and null. Anything
// else decodes to an invalid score rather than failing the whole record.
func (s *Score) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*s = Score{}
		return nil
	}

	switch b[0] {
	case '"':
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			*s = Score{}
			return nil
		}
		*s = ParseScore(raw)
	case 't', 'f', '[', '{':
		*s = Score{}
	default:
		*s = ParseScore(string(b))
	}
	return nil
}

// MarshalJSON writes a number for valid scores and an empty string otherwise,
// matching what the spreadsheet sync stores for blank cells.
func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte(`""`), nil
	}
	return []byte(strconv.FormatFloat(s.Value, 'f', -1, 64)), nil
}
