package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-n-ai/gradeview/internal/analytics"
	"github.com/p-n-ai/gradeview/internal/distribution"
	"github.com/p-n-ai/gradeview/internal/gradebook"
	"github.com/p-n-ai/gradeview/internal/grades"
	"github.com/p-n-ai/gradeview/internal/outline"
)

// ConceptMap is the annotated, rolled-up outline for one student plus the
// course context the dashboard renders around it.
type ConceptMap struct {
	Name          string          `json:"name"`
	Term          string          `json:"term"`
	StudentLevels []string        `json:"student_levels"`
	CurrentWeek   int             `json:"currentWeek"`
	LastSync      string          `json:"lastSync"`
	MasteryString string          `json:"masteryString"`
	Nodes         []*outline.Node `json:"nodes"`
}

// MasteryString renders the student's per-topic levels in outline leaf order.
func (s *Service) MasteryString(ctx context.Context, email string) (str string, err error) {
	defer func() { observe("mastery_string", err) }()

	student, maxRec, err := s.studentAndMax(ctx, email)
	if err != nil {
		return "", err
	}
	shape, err := s.outline(ctx)
	if err != nil {
		return "", err
	}
	levels := s.scale.Map(grades.AggregateByTopic(student), grades.AggregateByTopic(maxRec))
	return s.scale.String(levels, leafNames(shape.Roots)), nil
}

// ConceptMap annotates the outline with the student's mastery and the class
// mastery, then rolls both up to every internal node. Class mastery is the
// level of the roster's mean points per topic.
func (s *Service) ConceptMap(ctx context.Context, email string) (cm ConceptMap, err error) {
	defer func() { observe("concept_map", err) }()

	student, maxRec, err := s.studentAndMax(ctx, email)
	if err != nil {
		return ConceptMap{}, err
	}
	shape, err := s.outline(ctx)
	if err != nil {
		return ConceptMap{}, err
	}
	members, err := s.roster(ctx)
	if err != nil {
		return ConceptMap{}, err
	}

	possible := grades.AggregateByTopic(maxRec)
	studentLevels := s.scale.Map(grades.AggregateByTopic(student), possible)
	classLevels := s.scale.Map(meanPoints(members), possible)

	lookup := make(map[string]outline.Mastery, len(possible))
	for topic := range possible {
		lookup[topic] = outline.Mastery{
			StudentMastery: int(studentLevels[topic]),
			ClassMastery:   int(classLevels[topic]),
		}
	}

	annotated, misses := outline.Annotate(shape.Roots, lookup)
	if len(misses) > 0 {
		slog.Warn("outline leaves without a matching topic", "count", len(misses), "names", misses)
		outlineLookupMisses.Add(float64(len(misses)))
	}

	synced, err := s.store.LastSync(ctx)
	if err != nil {
		return ConceptMap{}, fmt.Errorf("load last sync: %w", err)
	}

	s.record(ctx, analytics.TypeConceptMapViewed, email, nil)
	return ConceptMap{
		Name:          s.course.Name,
		Term:          s.course.Term,
		StudentLevels: s.scale.Names(),
		CurrentWeek:   s.course.CurrentWeek,
		LastSync:      formatSync(synced),
		MasteryString: s.scale.String(studentLevels, leafNames(shape.Roots)),
		Nodes:         outline.RollupAll(annotated),
	}, nil
}

// Grades pairs each of the student's scores with its max points.
func (s *Service) Grades(ctx context.Context, email string) (b grades.Breakdown, err error) {
	defer func() { observe("grades", err) }()

	student, maxRec, err := s.studentAndMax(ctx, email)
	if err != nil {
		return nil, err
	}
	s.record(ctx, analytics.TypeGradesViewed, email, nil)
	return grades.WithMax(student, maxRec), nil
}

// Summary is the per-category breakdown with the student's letter grade.
type Summary struct {
	grades.Summary
	Letter string `json:"letter"`
}

// Summary totals the student's grades per category and overall.
func (s *Service) Summary(ctx context.Context, email string) (sum Summary, err error) {
	defer func() { observe("summary", err) }()

	student, maxRec, err := s.studentAndMax(ctx, email)
	if err != nil {
		return Summary{}, err
	}
	ranges, err := s.letterRanges(ctx)
	if err != nil {
		return Summary{}, err
	}
	base := grades.Summarize(grades.WithMax(student, maxRec))
	s.record(ctx, analytics.TypeSummaryViewed, email, nil)
	return Summary{Summary: base, Letter: grades.LetterFor(ranges, base.TotalScore)}, nil
}

// Projection estimates the student's final points three ways.
func (s *Service) Projection(ctx context.Context, email string) (p grades.Projection, err error) {
	defer func() { observe("projection", err) }()

	student, maxRec, err := s.studentAndMax(ctx, email)
	if err != nil {
		return grades.Projection{}, err
	}
	s.record(ctx, analytics.TypeProjectionViewed, email, nil)
	return grades.Project(student, maxRec), nil
}

// Distribution bins the roster's scores for one assignment of a category, or
// the category total when name asks for a summary.
func (s *Service) Distribution(ctx context.Context, category, name string) (h distribution.Histogram, err error) {
	defer func() { observe("distribution", err) }()

	members, err := s.roster(ctx)
	if err != nil {
		return distribution.Histogram{}, err
	}
	src := distribution.SourceFor(name)
	h = distribution.Bin(distribution.Collect(src, category, name, members))
	s.record(ctx, analytics.TypeDistributionViewed, "", map[string]any{
		"category": category,
		"name":     name,
		"source":   src.String(),
	})
	return h, nil
}

// StudentsInBucket returns the members of one histogram bucket. An unknown
// label wraps gradebook.ErrNotFound.
func (s *Service) StudentsInBucket(ctx context.Context, category, name, label string) (distribution.Bucket, error) {
	h, err := s.Distribution(ctx, category, name)
	if err != nil {
		return distribution.Bucket{}, err
	}
	b, ok := h.Bucket(label)
	if !ok {
		return distribution.Bucket{}, fmt.Errorf("bucket %q: %w", label, gradebook.ErrNotFound)
	}
	return b, nil
}

// LetterRanges returns the letter-grade ranges from the gradebook's bins,
// falling back to the course file and then to the built-in bins.
func (s *Service) LetterRanges(ctx context.Context) (ranges []grades.LetterRange, err error) {
	defer func() { observe("bins", err) }()

	ranges, err = s.letterRanges(ctx)
	if err != nil {
		return nil, err
	}
	s.record(ctx, analytics.TypeBinsViewed, "", nil)
	return ranges, nil
}

func (s *Service) letterRanges(ctx context.Context) ([]grades.LetterRange, error) {
	bins, err := s.store.LetterBins(ctx)
	if err != nil {
		return nil, fmt.Errorf("load letter bins: %w", err)
	}
	if len(bins) == 0 {
		bins = s.course.LetterBins
	}
	if len(bins) == 0 {
		bins = grades.DefaultLetterBins
	}
	return grades.Ranges(bins), nil
}

func leafNames(roots []*outline.Node) []string {
	leaves := outline.Leaves(roots)
	out := make([]string, 0, len(leaves))
	for _, l := range leaves {
		out = append(out, l.Name)
	}
	return out
}

// meanPoints averages each topic's points over the roster.
func meanPoints(members []distribution.Member) grades.TopicPoints {
	mean := grades.TopicPoints{}
	if len(members) == 0 {
		return mean
	}
	for _, m := range members {
		for topic, pts := range grades.AggregateByTopic(m.Scores) {
			mean[topic] += pts
		}
	}
	n := float64(len(members))
	for topic := range mean {
		mean[topic] /= n
	}
	return mean
}

func formatSync(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
