// Package distribution bins per-student scores into a bounded-cardinality
// histogram and keeps each bucket's members for drill-down.
package distribution

import (
	"math"
	"strconv"

	"github.com/p-n-ai/gradeview/internal/grades"
)

// MaxBuckets caps histogram cardinality regardless of score spread.
const MaxBuckets = 25

// Entry is one student's candidate score. Invalid scores are ignored.
type Entry struct {
	Name  string
	Email string
	Score grades.Score
}

// Student is a bucket member.
type Student struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Score float64 `json:"score"`
}

// Bucket is a contiguous score range and the students inside it.
type Bucket struct {
	RangeStart float64   `json:"rangeStart"`
	RangeEnd   float64   `json:"rangeEnd"`
	Label      string    `json:"range"`
	Count      int       `json:"count"`
	Students   []Student `json:"students"`
}

// Histogram is the binned distribution of one assignment or category.
type Histogram struct {
	Freq         []int    `json:"freq"`
	MinScore     float64  `json:"minScore"`
	MaxScore     float64  `json:"maxScore"`
	BinWidth     float64  `json:"binWidth"`
	Distribution []Bucket `json:"distribution"`
}

// Empty is the canonical result when no valid score was observed.
func Empty() Histogram {
	return Histogram{Freq: []int{}, BinWidth: 1, Distribution: []Bucket{}}
}

// Bin builds the histogram. With a score range (max - min + 1) of at most
// MaxBuckets there is one bucket per integer score; wider ranges always get
// exactly MaxBuckets buckets of width ceil(range / MaxBuckets). Rounding the
// width up can leave trailing buckets that start above the max score; those
// stay empty and keep their full width. Scores past the last bucket edge
// are clamped into it.
func Bin(entries []Entry) Histogram {
	valid := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.Score.Valid {
			valid = append(valid, e)
		}
	}
	if len(valid) == 0 {
		return Empty()
	}

	lo, hi := valid[0].Score.Value, valid[0].Score.Value
	for _, e := range valid[1:] {
		lo = math.Min(lo, e.Score.Value)
		hi = math.Max(hi, e.Score.Value)
	}

	span := hi - lo + 1
	numBuckets := int(math.Ceil(span))
	width := 1.0
	if span > MaxBuckets {
		width = math.Ceil(span / MaxBuckets)
		numBuckets = MaxBuckets
	}

	h := Histogram{
		Freq:         make([]int, numBuckets),
		MinScore:     lo,
		MaxScore:     hi,
		BinWidth:     width,
		Distribution: make([]Bucket, numBuckets),
	}
	for i := range h.Distribution {
		start := lo + float64(i)*width
		end := start + width - 1
		if start <= hi {
			end = math.Min(end, hi)
		}
		h.Distribution[i] = Bucket{
			RangeStart: start,
			RangeEnd:   end,
			Label:      label(start, end, width),
			Students:   []Student{},
		}
	}

	for _, e := range valid {
		idx := int(math.Floor((e.Score.Value - lo) / width))
		if idx >= numBuckets {
			idx = numBuckets - 1
		}
		h.Freq[idx]++
		b := &h.Distribution[idx]
		b.Count++
		b.Students = append(b.Students, Student{Name: e.Name, Email: e.Email, Score: e.Score.Value})
	}
	return h
}

// Bucket returns the bucket with the given range label.
func (h Histogram) Bucket(label string) (Bucket, bool) {
	for _, b := range h.Distribution {
		if b.Label == label {
			return b, true
		}
	}
	return Bucket{}, false
}

// Total returns the number of binned scores.
func (h Histogram) Total() int {
	n := 0
	for _, c := range h.Freq {
		n += c
	}
	return n
}

func label(start, end, width float64) string {
	if width == 1 {
		return formatScore(start)
	}
	return formatScore(start) + "-" + formatScore(end)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
