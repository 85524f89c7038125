// Package analytics records dashboard usage events: which views were opened
// and by whom, with the subject pseudonymized before it is stored.
package analytics

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/blake2b"
)

const dbTimeout = 5 * time.Second

// Event types logged by the report service.
const (
	TypeGradesViewed       = "grades_viewed"
	TypeSummaryViewed      = "summary_viewed"
	TypeProjectionViewed   = "projection_viewed"
	TypeConceptMapViewed   = "concept_map_viewed"
	TypeDistributionViewed = "distribution_viewed"
	TypeBinsViewed         = "bins_viewed"
)

// Schema creates the usage_events table.
const Schema = `CREATE TABLE IF NOT EXISTS usage_events (
	id         BIGSERIAL PRIMARY KEY,
	event_type TEXT NOT NULL,
	subject    TEXT NOT NULL DEFAULT '',
	data       JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS usage_events_type_created_idx ON usage_events (event_type, created_at);`

// Event is one usage record. Subject is already pseudonymized.
type Event struct {
	Type      string
	Subject   string
	Data      map[string]any
	CreatedAt time.Time
}

// EventLogger defines event logging behavior.
type EventLogger interface {
	LogEvent(ctx context.Context, event Event) error
	Counts(ctx context.Context, since time.Time) (map[string]int, error)
}

// MaxKeySize is the longest pseudonym key BLAKE2b accepts.
const MaxKeySize = blake2b.Size

// Pseudonymize returns a stable, non-reversible token for an email or user
// id under the given key. Keys longer than MaxKeySize are rejected.
func Pseudonymize(key []byte, subject string) (string, error) {
	if len(key) > MaxKeySize {
		return "", fmt.Errorf("pseudonym key is %d bytes, max %d", len(key), MaxKeySize)
	}
	if subject == "" {
		return "", nil
	}
	h, err := blake2b.New(16, key)
	if err != nil {
		return "", fmt.Errorf("keying pseudonym hash: %w", err)
	}
	h.Write([]byte(subject))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// NopEventLogger ignores all events.
type NopEventLogger struct{}

func (NopEventLogger) LogEvent(context.Context, Event) error {
	return nil
}

func (NopEventLogger) Counts(context.Context, time.Time) (map[string]int, error) {
	return map[string]int{}, nil
}

// MemoryEventLogger stores events in memory for tests.
type MemoryEventLogger struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryEventLogger() *MemoryEventLogger {
	return &MemoryEventLogger{
		events: []Event{},
	}
}

func (l *MemoryEventLogger) LogEvent(_ context.Context, event Event) error {
	if event.Type == "" {
		return fmt.Errorf("event type is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	return nil
}

func (l *MemoryEventLogger) Counts(_ context.Context, since time.Time) (map[string]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	counts := map[string]int{}
	for _, e := range l.events {
		if !e.CreatedAt.Before(since) {
			counts[e.Type]++
		}
	}
	return counts, nil
}

func (l *MemoryEventLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

// PostgresEventLogger inserts events into the usage_events table.
type PostgresEventLogger struct {
	pool *pgxpool.Pool
}

func NewPostgresEventLogger(pool *pgxpool.Pool) *PostgresEventLogger {
	return &PostgresEventLogger{pool: pool}
}

// EnsureSchema creates the usage_events table when it does not exist.
func (l *PostgresEventLogger) EnsureSchema(ctx context.Context) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("event logger pool is nil")
	}
	if _, err := l.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create usage_events: %w", err)
	}
	return nil
}

func (l *PostgresEventLogger) LogEvent(ctx context.Context, event Event) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("event logger pool is nil")
	}
	if event.Type == "" {
		return fmt.Errorf("event type is required")
	}

	payload := event.Data
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := l.pool.Exec(ctx,
		`INSERT INTO usage_events (event_type, subject, data, created_at)
		 VALUES ($1, $2, $3::jsonb, $4)`,
		event.Type,
		event.Subject,
		string(data),
		createdAt,
	); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	slog.Debug("event logged", "type", event.Type, "subject", event.Subject)
	return nil
}

func (l *PostgresEventLogger) Counts(ctx context.Context, since time.Time) (map[string]int, error) {
	if l == nil || l.pool == nil {
		return nil, fmt.Errorf("event logger pool is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := l.pool.Query(ctx,
		`SELECT event_type, count(*) FROM usage_events
		 WHERE created_at >= $1
		 GROUP BY event_type`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("scan event count: %w", err)
		}
		counts[typ] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	return counts, nil
}
