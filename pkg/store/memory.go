package store

import (
	"fmt"
	"sync"

	"github.com/corralhq/corral/pkg/errors"
	"github.com/corralhq/corral/pkg/records"
)

// Memory is an in-memory Store used by tests and the reconciliation wizard.
// All records are deep-copied on the way in and out, so callers cannot
// mutate stored state by accident.
type Memory struct {
	mu      sync.Mutex
	corpora map[string][]*records.Record
	backups map[string][]*records.Record
	seq     int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		corpora: make(map[string][]*records.Record),
		backups: make(map[string][]*records.Record),
	}
}

// Load reads the entire corpus.
func (s *Memory) Load(corpusID string) ([]*records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, ok := s.corpora[corpusID]
	if !ok {
		return nil, errors.NewNotFoundError("corpus", corpusID)
	}
	return records.CloneAll(recs), nil
}

// Save replaces the entire corpus.
func (s *Memory) Save(recs []*records.Record, corpusID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corpora[corpusID] = records.CloneAll(recs)
	return nil
}

// Backup snapshots the corpus under a generated handle.
func (s *Memory) Backup(corpusID, suffix string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, ok := s.corpora[corpusID]
	if !ok {
		return "", errors.NewNotFoundError("corpus", corpusID)
	}
	s.seq++
	handle := fmt.Sprintf("%s.%s.%d", corpusID, suffix, s.seq)
	s.backups[handle] = records.CloneAll(recs)
	return handle, nil
}

// Restore replaces the corpus with a previously taken backup.
func (s *Memory) Restore(handle, corpusID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, ok := s.backups[handle]
	if !ok {
		return errors.NewNotFoundError("backup", handle)
	}
	s.corpora[corpusID] = records.CloneAll(recs)
	return nil
}

// DiscardBackup removes a backup.
func (s *Memory) DiscardBackup(handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.backups, handle)
	return nil
}
