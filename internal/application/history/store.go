// Package history owns the durable interaction log. The whole log lives
// under one key of a KeyValue backend and is re-persisted on every mutation.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	domain "github.com/bryanwahyu/interaction-log/internal/domain/interactions"
)

// DefaultKey is the key that holds the serialized log.
const DefaultKey = "community_sentinel_history"

// timestampLayout is the portable textual form persisted for every record.
const timestampLayout = time.RFC3339Nano

// storedRecord is the persisted shape. Timestamp is kept as text and parsed
// explicitly on load.
type storedRecord struct {
	ID        string          `json:"id"`
	Timestamp string          `json:"timestamp"`
	InputText string          `json:"input_text"`
	Analysis  domain.Analysis `json:"analysis"`
}

// Store is the append-only interaction log, newest-first by insertion.
// Store is safe for concurrent use.
type Store struct {
	kv  domain.KeyValue
	key string
	log *slog.Logger

	mu      sync.RWMutex
	records []domain.Record
	ids     map[domain.RecordID]struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithLogger sets the logger used for corruption diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

func New(kv domain.KeyValue, opts ...Option) *Store {
	s := &Store{
		kv:  kv,
		key: DefaultKey,
		log: slog.Default(),
		ids: make(map[domain.RecordID]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the persisted log and replaces the in-memory state with it.
// A missing, unreadable or corrupt payload yields an empty log; the problem
// is logged and never returned, so a broken cache cannot block startup.
func (s *Store) Load(ctx context.Context) []domain.Record {
	records := s.read(ctx)

	s.mu.Lock()
	s.records = records
	s.ids = make(map[domain.RecordID]struct{}, len(records))
	for _, r := range records {
		s.ids[r.ID] = struct{}{}
	}
	s.mu.Unlock()

	return s.Snapshot()
}

func (s *Store) read(ctx context.Context) []domain.Record {
	raw, found, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.log.Error("history load failed", "key", s.key, "err", fmt.Errorf("%w: %v", domain.ErrStorageCorruption, err))
		return []domain.Record{}
	}
	if !found || len(raw) == 0 {
		return []domain.Record{}
	}
	records, err := decode(raw, s.log)
	if err != nil {
		s.log.Error("history payload corrupt, starting with an empty log", "key", s.key, "bytes", len(raw), "err", err)
		return []domain.Record{}
	}
	return records
}

// decode parses the payload, rebuilds each timestamp and revalidates each
// analysis. Entries without an id, with an unparseable timestamp, with an
// analysis outside the schema or with a duplicate id are skipped.
func decode(raw []byte, log *slog.Logger) ([]domain.Record, error) {
	var stored []storedRecord
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageCorruption, err)
	}
	out := make([]domain.Record, 0, len(stored))
	seen := make(map[domain.RecordID]struct{}, len(stored))
	for i, sr := range stored {
		if sr.ID == "" {
			log.Warn("skipping stored record without id", "index", i)
			continue
		}
		ts, err := time.Parse(timestampLayout, sr.Timestamp)
		if err != nil {
			log.Warn("skipping stored record with invalid timestamp", "id", sr.ID, "timestamp", sr.Timestamp, "err", err)
			continue
		}
		if err := domain.Validate(&sr.Analysis); err != nil {
			log.Warn("skipping stored record with malformed analysis", "id", sr.ID, "err", err)
			continue
		}
		id := domain.RecordID(sr.ID)
		if _, dup := seen[id]; dup {
			log.Warn("skipping duplicate stored record", "id", sr.ID)
			continue
		}
		seen[id] = struct{}{}
		out = append(out, domain.Record{
			ID:        id,
			Timestamp: ts,
			InputText: sr.InputText,
			Analysis:  sr.Analysis,
		})
	}
	return out, nil
}

func encode(records []domain.Record) ([]byte, error) {
	stored := make([]storedRecord, len(records))
	for i, r := range records {
		stored[i] = storedRecord{
			ID:        string(r.ID),
			Timestamp: r.Timestamp.Format(timestampLayout),
			InputText: r.InputText,
			Analysis:  r.Analysis,
		}
	}
	return json.Marshal(stored)
}

// Append inserts r at the head and re-persists the whole log before
// returning. If persistence fails the insert is rolled back. Appending an id
// that is already present is a no-op.
func (s *Store) Append(ctx context.Context, r domain.Record) error {
	if r.ID == "" {
		return fmt.Errorf("%w: record id is required", domain.ErrInvalidInput)
	}
	if r.Timestamp.IsZero() {
		return fmt.Errorf("%w: record timestamp is required", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[r.ID]; exists {
		s.log.Warn("record already in history, ignoring repeated append", "id", r.ID)
		return nil
	}

	next := make([]domain.Record, 0, len(s.records)+1)
	next = append(next, r.Clone())
	next = append(next, s.records...)

	data, err := encode(next)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("persist history: %w", err)
	}

	s.records = next
	s.ids[r.ID] = struct{}{}
	return nil
}

// Clear empties the log and removes the persisted payload. Confirmation is
// the caller's responsibility.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Remove(ctx, s.key); err != nil {
		return fmt.Errorf("remove history: %w", err)
	}
	s.records = nil
	s.ids = make(map[domain.RecordID]struct{})
	return nil
}

// Snapshot returns a deep copy of the log in insertion order (newest first).
func (s *Store) Snapshot() []domain.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out
}

// Get returns a copy of the record with id.
func (s *Store) Get(id domain.RecordID) (domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.records {
		if r.ID == id {
			return r.Clone(), nil
		}
	}
	return domain.Record{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
}

// Len reports the number of records in the log.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
