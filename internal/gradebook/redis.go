package gradebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/p-n-ai/gradeview/internal/grades"
	"github.com/p-n-ai/gradeview/internal/outline"
)

// Redis keys written by the gradebook sync. Student records live under the
// student's normalized email.
const (
	KeyMaxScores = "Categories"
	KeyStudents  = "Students"
	KeyOutline   = "outline:v1"
	KeyBins      = "bins"
	KeyLastSync  = "lastSync"

	// UpdatesChannel receives the sync time after every Save.
	UpdatesChannel = "gradebook_updated"
)

// studentDoc is the stored shape of one student's record.
type studentDoc struct {
	LegalName   string          `json:"Legal Name"`
	Assignments json.RawMessage `json:"Assignments"`
}

type binsDoc struct {
	Bins []grades.LetterBin `json:"bins"`
}

// RedisStore is a Redis/Dragonfly-backed Store.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a store on an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

func (s *RedisStore) MaxScores(ctx context.Context) (grades.ScoreRecord, error) {
	data, err := s.get(ctx, KeyMaxScores)
	if err != nil {
		return nil, fmt.Errorf("max scores: %w", err)
	}
	return grades.ParseRecord(data)
}

func (s *RedisStore) StudentScores(ctx context.Context, email string) (grades.ScoreRecord, error) {
	data, err := s.get(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("student %s: %w", email, err)
	}
	return decodeStudent(data)
}

func decodeStudent(data []byte) (grades.ScoreRecord, error) {
	var doc studentDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &grades.InvalidInputError{Field: "student", Reason: err.Error()}
	}
	if len(doc.Assignments) == 0 || string(doc.Assignments) == "null" {
		return grades.ScoreRecord{}, nil
	}
	return grades.ParseRecord(doc.Assignments)
}

func (s *RedisStore) Students(ctx context.Context) ([]Student, error) {
	data, err := s.get(ctx, KeyStudents)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeStudents(data)
}

// decodeStudents reads the roster, stored as [name, email] pairs.
func decodeStudents(data []byte) ([]Student, error) {
	var pairs [][]string
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, &grades.InvalidInputError{Field: KeyStudents, Reason: err.Error()}
	}
	out := make([]Student, 0, len(pairs))
	for _, p := range pairs {
		if len(p) < 2 || p[1] == "" {
			continue
		}
		out = append(out, Student{Name: p[0], Email: p[1]})
	}
	return out, nil
}

func (s *RedisStore) Outline(ctx context.Context) ([]outline.Row, error) {
	data, err := s.get(ctx, KeyOutline)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return outline.ParseRows(data)
}

func (s *RedisStore) LetterBins(ctx context.Context) ([]grades.LetterBin, error) {
	data, err := s.get(ctx, KeyBins)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeBins(data)
}

// decodeBins accepts both the bare array and the {"bins": [...]} shape.
func decodeBins(data []byte) ([]grades.LetterBin, error) {
	var list []grades.LetterBin
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var doc binsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &grades.InvalidInputError{Field: KeyBins, Reason: err.Error()}
	}
	return doc.Bins, nil
}

func (s *RedisStore) LastSync(ctx context.Context) (time.Time, error) {
	data, err := s.get(ctx, KeyLastSync)
	if errors.Is(err, ErrNotFound) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse(time.RFC3339, string(data))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s: %w", KeyLastSync, err)
	}
	return t, nil
}

// Save writes the whole snapshot in one transaction and announces it on
// UpdatesChannel.
func (s *RedisStore) Save(ctx context.Context, snap Snapshot) error {
	values, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}

	synced := snap.SyncedAt.UTC().Format(time.RFC3339)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, v := range values {
			pipe.Set(ctx, key, v, 0)
		}
		pipe.Set(ctx, KeyLastSync, synced, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	if err := s.client.Publish(ctx, UpdatesChannel, synced).Err(); err != nil {
		return fmt.Errorf("publish update: %w", err)
	}
	return nil
}

// encodeSnapshot renders every key of a snapshot.
func encodeSnapshot(snap Snapshot) (map[string][]byte, error) {
	values := make(map[string][]byte, len(snap.Records)+4)

	put := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		values[key] = b
		return nil
	}

	maxRec := snap.Max
	if maxRec == nil {
		maxRec = grades.ScoreRecord{}
	}
	if err := put(KeyMaxScores, maxRec); err != nil {
		return nil, err
	}

	pairs := make([][]string, 0, len(snap.Students))
	names := make(map[string]string, len(snap.Students))
	for _, st := range snap.Students {
		pairs = append(pairs, []string{st.Name, st.Email})
		names[NormalizeEmail(st.Email)] = st.Name
	}
	if err := put(KeyStudents, pairs); err != nil {
		return nil, err
	}

	rows := snap.Outline
	if rows == nil {
		rows = []outline.Row{}
	}
	if err := put(KeyOutline, rows); err != nil {
		return nil, err
	}
	if err := put(KeyBins, binsDoc{Bins: snap.Bins}); err != nil {
		return nil, err
	}

	for email, rec := range snap.Records {
		key := NormalizeEmail(email)
		assignments, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("encode student %s: %w", email, err)
		}
		if err := put(key, studentDoc{LegalName: names[key], Assignments: assignments}); err != nil {
			return nil, err
		}
	}
	return values, nil
}
