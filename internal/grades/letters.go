package grades

import (
	"cmp"
	"slices"
)

// LetterBin is a letter grade and the upper point bound of its range.
type LetterBin struct {
	Letter string  `json:"letter"`
	Points float64 `json:"points"`
}

// LetterRange is a letter grade with both of its bounds.
type LetterRange struct {
	Letter string  `json:"grade"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
}

// DefaultLetterBins is used when the gradebook carries no cut-offs.
var DefaultLetterBins = []LetterBin{
	{Letter: "F", Points: 240},
	{Letter: "D", Points: 280},
	{Letter: "C-", Points: 290},
	{Letter: "C", Points: 310},
	{Letter: "C+", Points: 320},
	{Letter: "B-", Points: 330},
	{Letter: "B", Points: 350},
	{Letter: "B+", Points: 360},
	{Letter: "A-", Points: 370},
	{Letter: "A", Points: 390},
	{Letter: "A+", Points: 400},
}

// Ranges sorts bins by points and returns them highest grade first. Each
// range's lower bound is the next lower bin's points, 0 for the lowest.
// Bins without a letter are skipped.
func Ranges(bins []LetterBin) []LetterRange {
	sorted := make([]LetterBin, 0, len(bins))
	for _, b := range bins {
		if b.Letter != "" {
			sorted = append(sorted, b)
		}
	}
	slices.SortStableFunc(sorted, func(a, b LetterBin) int {
		return cmp.Compare(a.Points, b.Points)
	})

	out := make([]LetterRange, 0, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		lower := 0.0
		if i > 0 {
			lower = sorted[i-1].Points
		}
		out = append(out, LetterRange{Letter: sorted[i].Letter, Lower: lower, Upper: sorted[i].Points})
	}
	return out
}

// LetterFor returns the letter whose range contains total. Lower bounds are
// inclusive; totals below every range get the lowest letter.
func LetterFor(ranges []LetterRange, total float64) string {
	if len(ranges) == 0 {
		return ""
	}
	for _, r := range ranges {
		if total >= r.Lower {
			return r.Letter
		}
	}
	return ranges[len(ranges)-1].Letter
}
