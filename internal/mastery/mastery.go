// Package mastery discretizes a student's achieved-versus-possible points per
// topic into ordinal mastery levels.
package mastery

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/p-n-ai/gradeview/internal/grades"
)

// Level is an ordinal mastery level in [0, N+1]. 0 is "no credit" and N+1 is
// the ceiling reached only by full marks.
type Level int

// Scale maps point ratios onto a fixed, named list of levels.
type Scale struct {
	names []string
}

// NewScale builds a scale from display names ordered lowest to highest.
// The first and last names are the floor and ceiling; the N names between
// them correspond to the numeric thresholds, so at least three are required.
func NewScale(levelNames []string) (Scale, error) {
	if len(levelNames) < 3 {
		return Scale{}, &grades.InvalidInputError{
			Field:  "student_levels",
			Reason: fmt.Sprintf("need at least 3 level names, got %d", len(levelNames)),
		}
	}
	return Scale{names: append([]string(nil), levelNames...)}, nil
}

// Thresholds returns N, the number of levels strictly between floor and
// ceiling.
func (s Scale) Thresholds() int {
	return len(s.names) - 2
}

// Ceiling returns the level awarded for full marks.
func (s Scale) Ceiling() Level {
	return Level(s.Thresholds() + 1)
}

// Names returns a copy of the level display names.
func (s Scale) Names() []string {
	return append([]string(nil), s.names...)
}

// Name returns the display name for a level, or "" when out of range.
func (s Scale) Name(l Level) string {
	if l < 0 || int(l) >= len(s.names) {
		return ""
	}
	return s.names[l]
}

// Level computes one topic's mastery level. ok is false when the topic has
// not been attempted (user == 0) or not yet assessed (possible <= 0), and for
// non-finite input; such topics carry no level at all.
//
// A ratio landing exactly on an interior threshold is pushed up to the next
// level.
func (s Scale) Level(user, possible float64) (Level, bool) {
	if !finite(user) || !finite(possible) || user == 0 || possible <= 0 {
		return 0, false
	}
	n := s.Thresholds()
	if user >= possible {
		return s.Ceiling(), true
	}

	r := user * float64(n) / possible
	var lvl int
	switch {
	case r == float64(n):
		lvl = n
	case r == math.Trunc(r):
		lvl = int(r) + 1
	default:
		lvl = int(math.Ceil(r))
	}
	return s.clamp(lvl), true
}

// Map computes levels for every topic present in possible. Topics that are
// unattempted or unassessed are omitted from the result.
func (s Scale) Map(user, possible grades.TopicPoints) map[string]Level {
	out := make(map[string]Level, len(possible))
	for topic, maxPts := range possible {
		if lvl, ok := s.Level(user[topic], maxPts); ok {
			out[topic] = lvl
		}
	}
	return out
}

// String renders levels as a digit string in the given topic order. Topics
// without a level render as 0. Order entries are display names and are
// canonicalized before lookup.
func (s Scale) String(levels map[string]Level, order []string) string {
	var b strings.Builder
	for _, topic := range order {
		b.WriteString(strconv.Itoa(int(levels[grades.MergeKey(topic)])))
	}
	return b.String()
}

func (s Scale) clamp(lvl int) Level {
	if lvl < 0 {
		return 0
	}
	if c := int(s.Ceiling()); lvl > c {
		return Level(c)
	}
	return Level(lvl)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
