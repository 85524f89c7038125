// Package gradebook stores the gradebook snapshot that the dashboard reads:
// the maximum-points record, per-student score records, the roster, the
// concept outline and letter-grade cut-offs.
package gradebook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/p-n-ai/gradeview/internal/grades"
	"github.com/p-n-ai/gradeview/internal/outline"
)

// ErrNotFound is returned for unknown students and for a missing max record.
var ErrNotFound = errors.New("gradebook: not found")

// Student is one roster entry.
type Student struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Snapshot is a complete gradebook as produced by one sync.
type Snapshot struct {
	Max      grades.ScoreRecord
	Students []Student
	Records  map[string]grades.ScoreRecord // keyed by email
	Outline  []outline.Row
	Bins     []grades.LetterBin
	SyncedAt time.Time
}

// Store reads and replaces gradebook snapshots.
type Store interface {
	MaxScores(ctx context.Context) (grades.ScoreRecord, error)
	StudentScores(ctx context.Context, email string) (grades.ScoreRecord, error)
	Students(ctx context.Context) ([]Student, error)
	Outline(ctx context.Context) ([]outline.Row, error)
	LetterBins(ctx context.Context) ([]grades.LetterBin, error)
	LastSync(ctx context.Context) (time.Time, error)
	Save(ctx context.Context, snap Snapshot) error
}

// NormalizeEmail is the key form of a student email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MemoryStore is an in-memory Store for tests and local runs.
type MemoryStore struct {
	mu   sync.RWMutex
	snap Snapshot
	has  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) MaxScores(_ context.Context) (grades.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.has || s.snap.Max == nil {
		return nil, fmt.Errorf("max scores: %w", ErrNotFound)
	}
	return s.snap.Max, nil
}

func (s *MemoryStore) StudentScores(_ context.Context, email string) (grades.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.snap.Records[NormalizeEmail(email)]
	if !ok {
		return nil, fmt.Errorf("student %s: %w", email, ErrNotFound)
	}
	return rec, nil
}

func (s *MemoryStore) Students(_ context.Context) ([]Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Student(nil), s.snap.Students...), nil
}

func (s *MemoryStore) Outline(_ context.Context) ([]outline.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]outline.Row(nil), s.snap.Outline...), nil
}

func (s *MemoryStore) LetterBins(_ context.Context) ([]grades.LetterBin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]grades.LetterBin(nil), s.snap.Bins...), nil
}

func (s *MemoryStore) LastSync(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.SyncedAt, nil
}

func (s *MemoryStore) Save(_ context.Context, snap Snapshot) error {
	records := make(map[string]grades.ScoreRecord, len(snap.Records))
	for email, rec := range snap.Records {
		records[NormalizeEmail(email)] = rec
	}
	snap.Records = records

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	s.has = true
	return nil
}
