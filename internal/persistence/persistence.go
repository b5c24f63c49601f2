// Package persistence stores named project snapshots in a durable key-value store.
package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/lehigh-university-libraries/studio/internal/apperrors"
	"github.com/lehigh-university-libraries/studio/internal/ids"
	"github.com/lehigh-university-libraries/studio/internal/models"
	"github.com/lehigh-university-libraries/studio/internal/storage"
)

// StorageKey is the single key all project records live under.
const StorageKey = "gemini-creative-suite-projects"

// Record is one saved project. Records are never modified after creation.
type Record struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Timestamp int64               `json:"timestamp"`
	State     models.ProjectState `json:"state"`
}

func (r Record) clone() Record {
	r.State = r.State.Clone()
	return r
}

// Store keeps an in-memory mirror of the stored records. Every change is
// written as a whole new list and the mirror is updated only once the write
// succeeded.
type Store struct {
	kv      storage.KV
	ids     *ids.Generator
	records []Record
	mu      sync.RWMutex
}

// Open reads the stored records. Contents that cannot be parsed are logged
// and removed so the studio starts with an empty list.
func Open(kv storage.KV, gen *ids.Generator) (*Store, error) {
	s := &Store{kv: kv, ids: gen, records: []Record{}}

	data, err := kv.Get(StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read saved projects: %w", err)
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.Error("Failed to parse saved projects, clearing them", "error", err)
		if err := kv.Delete(StorageKey); err != nil {
			return nil, fmt.Errorf("failed to clear corrupt projects: %w", err)
		}
		return s, nil
	}

	for i, r := range raw {
		var rec Record
		if err := json.Unmarshal(r, &rec); err != nil || rec.ID == "" {
			slog.Error("Skipping unreadable saved project", "index", i, "error", err)
			continue
		}
		s.records = append(s.records, rec)
	}

	slog.Info("Loaded saved projects", "count", len(s.records))
	return s, nil
}

// List returns copies of all records in stored order.
func (s *Store) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.clone()
	}
	return out
}

// Save stores state under name as a new record.
func (s *Store) Save(name string, state models.ProjectState) (Record, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Record{}, apperrors.Validation("name", "project name is required")
	}

	rec := Record{
		ID:        s.ids.WithPrefix(ids.ProjectPrefix),
		Name:      name,
		Timestamp: s.ids.Now().UnixMilli(),
		State:     state.WithoutTransient(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := append(slices.Clone(s.records), rec)
	if err := s.write(next); err != nil {
		return Record{}, err
	}
	s.records = next

	slog.Info("Project saved", "id", rec.ID, "name", rec.Name)
	return rec.clone(), nil
}

// Load returns a copy of the record with id.
func (s *Store) Load(id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOf(id)
	if i < 0 {
		return Record{}, apperrors.NotFound("project", id)
	}
	rec := s.records[i].clone()
	rec.State.VideoStudio.GeneratedVideoURL = ""
	return rec, nil
}

// Delete removes the record with id. Deleting an unknown id does nothing.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return nil
	}
	next := slices.Delete(slices.Clone(s.records), i, i+1)
	if err := s.write(next); err != nil {
		return err
	}
	s.records = next

	slog.Info("Project deleted", "id", id)
	return nil
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.records, func(r Record) bool { return r.ID == id })
}

func (s *Store) write(records []Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode projects: %w", err)
	}
	err = s.kv.Set(StorageKey, data)
	if errors.Is(err, storage.ErrQuotaExceeded) {
		slog.Error("Project storage is full", "bytes", len(data))
		return &apperrors.QuotaExceededError{Err: err}
	}
	if err != nil {
		return fmt.Errorf("failed to write projects: %w", err)
	}
	return nil
}

// SortNewestFirst orders records by descending timestamp in place. Records
// saved in the same millisecond keep their save order, newest first.
func SortNewestFirst(records []Record) {
	slices.SortFunc(records, func(a, b Record) int {
		switch {
		case a.Timestamp > b.Timestamp:
			return -1
		case a.Timestamp < b.Timestamp:
			return 1
		}
		return strings.Compare(b.ID, a.ID)
	})
}
