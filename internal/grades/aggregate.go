package grades

import (
	"maps"
	"slices"

	"github.com/p-n-ai/gradeview/internal/names"
)

// ScoreRecord maps category -> topic -> score. A student's record and the
// maximum-possible record share this shape.
type ScoreRecord map[string]map[string]Score

// TopicPoints maps a canonical topic key to accumulated points.
type TopicPoints map[string]float64

// MergeKey is the key under which a topic's points accumulate. Topics with
// the same canonical name in different categories merge into one total.
func MergeKey(topic string) string {
	return names.Canonical(topic)
}

// Get returns the points for a topic given by display name.
func (p TopicPoints) Get(topic string) (float64, bool) {
	v, ok := p[MergeKey(topic)]
	return v, ok
}

// AggregateByTopic sums every topic's score across all categories.
// Invalid scores contribute 0. Categories and topics are visited in sorted
// order so repeated calls produce bit-identical float sums.
func AggregateByTopic(rec ScoreRecord) TopicPoints {
	points := make(TopicPoints)
	for _, category := range slices.Sorted(maps.Keys(rec)) {
		topics := rec[category]
		for _, topic := range slices.Sorted(maps.Keys(topics)) {
			points[MergeKey(topic)] += topics[topic].Float()
		}
	}
	return points
}

// CategoryTotal sums one category's scores. A missing category totals 0.
func CategoryTotal(rec ScoreRecord, category string) float64 {
	topics := rec[category]
	var total float64
	for _, topic := range slices.Sorted(maps.Keys(topics)) {
		total += topics[topic].Float()
	}
	return total
}

// Total sums every score in the record.
func Total(rec ScoreRecord) float64 {
	var total float64
	for _, category := range slices.Sorted(maps.Keys(rec)) {
		total += CategoryTotal(rec, category)
	}
	return total
}

// Categories returns the record's category names in sorted order.
func (r ScoreRecord) Categories() []string {
	return slices.Sorted(maps.Keys(r))
}
