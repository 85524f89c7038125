package mastery

import (
	"errors"
	"math"
	"testing"

	"github.com/p-n-ai/gradeview/internal/grades"
)

var fiveLevels = []string{"First Steps", "Needs Practice", "In Progress", "Almost There", "Mastered"}

func newTestScale(t *testing.T) Scale {
	t.Helper()
	s, err := NewScale(fiveLevels)
	if err != nil {
		t.Fatalf("NewScale() error = %v", err)
	}
	return s
}

func TestNewScale(t *testing.T) {
	s := newTestScale(t)
	if s.Thresholds() != 3 {
		t.Errorf("Thresholds() = %d, want 3", s.Thresholds())
	}
	if s.Ceiling() != 4 {
		t.Errorf("Ceiling() = %d, want 4", s.Ceiling())
	}
	if s.Name(4) != "Mastered" || s.Name(0) != "First Steps" {
		t.Errorf("Name() = %q/%q, want Mastered/First Steps", s.Name(4), s.Name(0))
	}
	if s.Name(9) != "" || s.Name(-1) != "" {
		t.Error("Name() out of range should be empty")
	}

	_, err := NewScale([]string{"Low", "High"})
	var inv *grades.InvalidInputError
	if !errors.As(err, &inv) {
		t.Errorf("NewScale(2 names) error = %v, want *InvalidInputError", err)
	}
}

func TestScale_Level(t *testing.T) {
	s := newTestScale(t)

	tests := []struct {
		name   string
		user   float64
		max    float64
		want   Level
		wantOK bool
	}{
		{"ratio-1.5-ceils-to-2", 50, 100, 2, true},
		{"exact-boundary-pushes-up", 50, 150, 2, true},
		{"exact-boundary-two-thirds", 100, 150, 3, true},
		{"just-above-zero", 1, 100, 1, true},
		{"just-below-max", 99, 100, 3, true},
		{"full-marks-ceiling", 100, 100, 4, true},
		{"over-max-ceiling", 120, 100, 4, true},
		{"unattempted-skipped", 0, 100, 0, false},
		{"zero-max-skipped", 5, 0, 0, false},
		{"negative-max-skipped", 5, -10, 0, false},
		{"nan-skipped", math.NaN(), 10, 0, false},
		{"inf-max-skipped", 5, math.Inf(1), 0, false},
		{"negative-points-no-credit", -5, 10, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.Level(tt.user, tt.max)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Level(%v, %v) = %d, %v; want %d, %v", tt.user, tt.max, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestScale_Map(t *testing.T) {
	s := newTestScale(t)

	user := grades.TopicPoints{"recursion": 50, "lists": 0, "loops": 30, "extra": 5}
	possible := grades.TopicPoints{"recursion": 100, "lists": 10, "loops": 30, "trees": 10, "empty": 0}

	got := s.Map(user, possible)

	if _, ok := got["lists"]; ok {
		t.Error("unattempted topic should be absent, not level 0")
	}
	if _, ok := got["trees"]; ok {
		t.Error("topic missing from user points should be absent")
	}
	if _, ok := got["empty"]; ok {
		t.Error("topic with zero max should be absent")
	}
	if _, ok := got["extra"]; ok {
		t.Error("topic missing from max points should be absent")
	}
	if got["recursion"] != 2 {
		t.Errorf("recursion = %d, want 2", got["recursion"])
	}
	if got["loops"] != 4 {
		t.Errorf("loops = %d, want 4", got["loops"])
	}
	if len(got) != 2 {
		t.Errorf("len(Map()) = %d, want 2", len(got))
	}
}

func TestScale_String(t *testing.T) {
	s := newTestScale(t)
	levels := map[string]Level{"recursion": 2, "loops": 4}

	got := s.String(levels, []string{"Loops", "Lists", " Recursion"})
	if got != "402" {
		t.Errorf("String() = %q, want 402", got)
	}
	if got := s.String(nil, nil); got != "" {
		t.Errorf("String(nil) = %q, want empty", got)
	}
}
