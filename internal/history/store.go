// Package history keeps a branching undo/redo history of immutable values.
package history

import (
	"encoding/json"

	"github.com/lehigh-university-libraries/studio/internal/apperrors"
)

// Store is an ordered list of entries with a cursor on the current one.
// Appending after an undo prunes the redo branch. The zero value is empty.
type Store[T any] struct {
	entries []T
	index   int
}

// New returns a store holding entries with the cursor at index.
func New[T any](entries []T, index int) (*Store[T], error) {
	s := &Store[T]{}
	if err := s.Reset(entries, index); err != nil {
		return nil, err
	}
	return s, nil
}

// Cursor returns the position of the current entry, or -1 when empty.
func (s Store[T]) Cursor() int {
	if len(s.entries) == 0 {
		return -1
	}
	return s.index
}

func (s Store[T]) Len() int {
	return len(s.entries)
}

// Entries returns a copy of the entries.
func (s Store[T]) Entries() []T {
	out := make([]T, len(s.entries))
	copy(out, s.entries)
	return out
}

// Current returns the entry at the cursor.
func (s Store[T]) Current() (T, bool) {
	var zero T
	if len(s.entries) == 0 {
		return zero, false
	}
	return s.entries[s.index], true
}

// First returns the oldest entry still held.
func (s Store[T]) First() (T, bool) {
	var zero T
	if len(s.entries) == 0 {
		return zero, false
	}
	return s.entries[0], true
}

// Append discards everything after the cursor, then adds v as the new current entry.
func (s *Store[T]) Append(v T) {
	if len(s.entries) > 0 && s.index < len(s.entries)-1 {
		// clear the pruned tail so the backing array releases it
		clear(s.entries[s.index+1:])
		s.entries = s.entries[:s.index+1]
	}
	s.entries = append(s.entries, v)
	s.index = len(s.entries) - 1
}

func (s Store[T]) CanUndo() bool {
	return s.Cursor() > 0
}

func (s Store[T]) CanRedo() bool {
	return s.Cursor() < len(s.entries)-1
}

// Undo moves the cursor one entry back. It reports whether anything moved.
func (s *Store[T]) Undo() bool {
	if !s.CanUndo() {
		return false
	}
	s.index--
	return true
}

// Redo moves the cursor one entry forward. It reports whether anything moved.
func (s *Store[T]) Redo() bool {
	if !s.CanRedo() {
		return false
	}
	s.index++
	return true
}

// Reset replaces the entries and cursor wholesale.
func (s *Store[T]) Reset(entries []T, index int) error {
	if err := checkCursor(len(entries), index); err != nil {
		return err
	}
	s.entries = make([]T, len(entries))
	copy(s.entries, entries)
	s.index = max(index, 0)
	return nil
}

// Cap evicts the oldest entries until at most n remain and returns how many
// were dropped. The cursor keeps pointing at the same entry unless that entry
// was evicted, in which case it moves to the oldest survivor. n <= 0 means no limit.
func (s *Store[T]) Cap(n int) int {
	if n <= 0 || len(s.entries) <= n {
		return 0
	}
	drop := len(s.entries) - n
	kept := make([]T, n)
	copy(kept, s.entries[drop:])
	s.entries = kept
	s.index = max(s.index-drop, 0)
	return drop
}

// Clone returns an independent copy.
func (s Store[T]) Clone() Store[T] {
	return Store[T]{entries: s.Entries(), index: s.index}
}

type wireStore[T any] struct {
	Entries []T `json:"entries"`
	Cursor  int `json:"cursor"`
}

func (s Store[T]) MarshalJSON() ([]byte, error) {
	entries := s.entries
	if entries == nil {
		entries = []T{}
	}
	return json.Marshal(wireStore[T]{Entries: entries, Cursor: s.Cursor()})
}

func (s *Store[T]) UnmarshalJSON(data []byte) error {
	var w wireStore[T]
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if len(w.Entries) == 0 && w.Cursor == 0 {
		w.Cursor = -1
	}
	return s.Reset(w.Entries, w.Cursor)
}

func checkCursor(length, index int) error {
	if length == 0 {
		if index != -1 {
			return apperrors.Validation("historyIndex", "must be -1 for an empty history, got %d", index)
		}
		return nil
	}
	if index < 0 || index >= length {
		return apperrors.Validation("historyIndex", "%d out of range [0, %d]", index, length-1)
	}
	return nil
}
