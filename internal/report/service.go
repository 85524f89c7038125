// Package report answers dashboard requests: it fetches gradebook data from
// the store and runs it through the grade, mastery, outline and distribution
// engines.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/p-n-ai/gradeview/internal/analytics"
	"github.com/p-n-ai/gradeview/internal/course"
	"github.com/p-n-ai/gradeview/internal/distribution"
	"github.com/p-n-ai/gradeview/internal/gradebook"
	"github.com/p-n-ai/gradeview/internal/grades"
	"github.com/p-n-ai/gradeview/internal/mastery"
	"github.com/p-n-ai/gradeview/internal/outline"
)

const defaultConcurrency = 8

// ServiceConfig holds dependencies for the report service.
type ServiceConfig struct {
	Store       gradebook.Store
	Course      course.Course
	Events      analytics.EventLogger
	EventKey    []byte // key for pseudonymizing event subjects
	Concurrency int    // parallel student fetches (default 8)
}

// Service computes every dashboard view.
type Service struct {
	store       gradebook.Store
	course      course.Course
	scale       mastery.Scale
	events      analytics.EventLogger
	eventKey    []byte
	concurrency int

	mu    sync.RWMutex
	shape *outline.Result
	gen   uint64 // bumped by InvalidateOutline
}

// NewService creates a report service. It fails when the course level names
// cannot form a mastery scale or the event key is too long to use.
func NewService(cfg ServiceConfig) (*Service, error) {
	if len(cfg.EventKey) > analytics.MaxKeySize {
		return nil, fmt.Errorf("event key is %d bytes, max %d", len(cfg.EventKey), analytics.MaxKeySize)
	}
	store := cfg.Store
	if store == nil {
		store = gradebook.NewMemoryStore()
	}
	c := cfg.Course
	if c.Name == "" && len(c.StudentLevels) == 0 {
		c = course.Default()
	}
	scale, err := c.Scale()
	if err != nil {
		return nil, fmt.Errorf("course levels: %w", err)
	}
	events := cfg.Events
	if events == nil {
		events = analytics.NopEventLogger{}
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Service{
		store:       store,
		course:      c,
		scale:       scale,
		events:      events,
		eventKey:    cfg.EventKey,
		concurrency: concurrency,
	}, nil
}

// Course returns the course settings the service was built with.
func (s *Service) Course() course.Course {
	return s.course
}

// InvalidateOutline drops the memoized outline so the next request rebuilds
// it from the store.
func (s *Service) InvalidateOutline() {
	s.mu.Lock()
	s.shape = nil
	s.gen++
	s.mu.Unlock()
}

func (s *Service) outline(ctx context.Context) (outline.Result, error) {
	s.mu.RLock()
	shape, gen := s.shape, s.gen
	s.mu.RUnlock()
	if shape != nil {
		return *shape, nil
	}

	rows, err := s.store.Outline(ctx)
	if err != nil {
		return outline.Result{}, fmt.Errorf("load outline: %w", err)
	}
	res := outline.Build(rows)
	for _, o := range res.Orphans {
		slog.Warn("outline row dropped: parent not found", "id", o.ID, "name", o.Name, "parent_id", *o.ParentID)
	}
	outlineOrphans.Add(float64(len(res.Orphans)))

	// An invalidation during the fetch means rows may predate the latest
	// sync; serve them once but do not memoize.
	s.mu.Lock()
	if s.gen == gen {
		s.shape = &res
	}
	s.mu.Unlock()
	return res, nil
}

// maxScores treats a missing max record as an empty gradebook.
func (s *Service) maxScores(ctx context.Context) (grades.ScoreRecord, error) {
	rec, err := s.store.MaxScores(ctx)
	if errors.Is(err, gradebook.ErrNotFound) {
		return grades.ScoreRecord{}, nil
	}
	return rec, err
}

func (s *Service) studentAndMax(ctx context.Context, email string) (student, maxRec grades.ScoreRecord, err error) {
	student, err = s.store.StudentScores(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	maxRec, err = s.maxScores(ctx)
	if err != nil {
		return nil, nil, err
	}
	return student, maxRec, nil
}

// roster fetches every listed student's record. Students without a record
// are skipped.
func (s *Service) roster(ctx context.Context) ([]distribution.Member, error) {
	start := time.Now()
	defer func() { rosterFetchDuration.Observe(time.Since(start).Seconds()) }()

	students, err := s.store.Students(ctx)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}

	found := make([]*distribution.Member, len(students))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, st := range students {
		g.Go(func() error {
			rec, err := s.store.StudentScores(gctx, st.Email)
			if errors.Is(err, gradebook.ErrNotFound) {
				slog.Warn("roster student has no record", "email", st.Email)
				return nil
			}
			if err != nil {
				return err
			}
			found[i] = &distribution.Member{Name: st.Name, Email: st.Email, Scores: rec}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch roster records: %w", err)
	}

	members := make([]distribution.Member, 0, len(found))
	for _, m := range found {
		if m != nil {
			members = append(members, *m)
		}
	}
	return members, nil
}

func (s *Service) record(ctx context.Context, typ, email string, data map[string]any) {
	subject, err := analytics.Pseudonymize(s.eventKey, gradebook.NormalizeEmail(email))
	if err != nil {
		slog.Warn("dropping usage event", "type", typ, "error", err)
		return
	}
	err = s.events.LogEvent(ctx, analytics.Event{
		Type:    typ,
		Subject: subject,
		Data:    data,
	})
	if err != nil {
		slog.Warn("failed to log usage event", "type", typ, "error", err)
	}
}

// Usage returns view counts per event type since the given time.
func (s *Service) Usage(ctx context.Context, since time.Time) (map[string]int, error) {
	return s.events.Counts(ctx, since)
}
