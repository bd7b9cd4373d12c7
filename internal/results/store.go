package results

import (
	"fmt"
	"sync"

	"github.com/namecard-ai/namecard-scanner/internal/entity"
)

// Store holds the latest batch's ContactRecords plus the originating image
// bytes for display. Field edits are last-write-wins; the error field is
// immutable after a record is created.
type Store struct {
	mu      sync.RWMutex
	records []entity.ContactRecord
	images  map[string][]byte // keyed by file name
}

func NewStore() *Store {
	return &Store{images: make(map[string][]byte)}
}

// ReplaceAll swaps in the records of a freshly completed run, discarding the
// previous set. This is the default re-run policy.
func (s *Store) ReplaceAll(records []entity.ContactRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make([]entity.ContactRecord, len(records))
	copy(s.records, records)
}

// Append accumulates a run's records onto the existing set, skipping any
// file name already present. The explicit alternative to ReplaceAll.
func (s *Store) Append(records []entity.ContactRecord) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{}, len(s.records))
	for _, r := range s.records {
		seen[r.FileName] = struct{}{}
	}
	added := 0
	for _, r := range records {
		if _, ok := seen[r.FileName]; ok {
			continue
		}
		seen[r.FileName] = struct{}{}
		s.records = append(s.records, r)
		added++
	}
	return added
}

// SetField applies a user correction to record index. Only the named field
// changes; the record's error field is untouched.
func (s *Store) SetField(index int, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.records) {
		return fmt.Errorf("record index %d out of range [0,%d)", index, len(s.records))
	}
	return s.records[index].SetField(field, value)
}

// Records returns a copy of the current record set in run order.
func (s *Store) Records() []entity.ContactRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.ContactRecord, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// PutImage retains source image bytes for later preview.
func (s *Store) PutImage(fileName string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[fileName] = data
}

// Image returns the retained bytes for a file name, if any.
func (s *Store) Image(fileName string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.images[fileName]
	return b, ok
}

// Clear drops records and retained images.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	s.images = make(map[string][]byte)
}
