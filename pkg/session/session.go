// Package session holds transient reconciliation-wizard state between API
// calls. Sessions live in an injectable in-memory store keyed by opaque id
// and expire after a fixed TTL, so abandoned wizards clean themselves up.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/corralhq/corral/pkg/errors"
	"github.com/corralhq/corral/pkg/reconcile"
	"github.com/corralhq/corral/pkg/records"
)

// DefaultTTL is how long a session survives after creation.
const DefaultTTL = 30 * time.Minute

// Session is the accumulated state of one reconciliation wizard run. Steps
// fill it in order: parse, map, split, preview, commit.
type Session struct {
	ID        string
	CreatedAt time.Time

	// Parse step.
	RawHeaders  []string
	RawRecords  []*records.Record
	InputMethod string
	Filename    string

	// Column-mapping step.
	ColumnMapping   map[string]string
	AutoMappings    []reconcile.ColumnMapping
	ComputedColumns []string
	MappedRecords   []*records.Record

	// Bucket split and duplicate detection, keyed by bucket ID.
	BucketSplits     map[string][]*records.Record
	Duplicates       map[string][]reconcile.Duplicate
	NewRecords       map[string][]*records.Record
	UnmatchedBuckets []string

	// Merge preview and commit, keyed by bucket ID.
	MergeStrategies map[string]map[string]reconcile.Strategy
	MergePreviews   map[string]*reconcile.MergePreview
	CommitOutcomes  map[string]reconcile.MergeOutcome
}

// Store is a thread-safe in-memory session store with TTL eviction.
// Construct with NewStore; the zero value is not usable.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithTTL overrides the session lifetime.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty session store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create makes a new session, sweeping out expired ones first.
func (s *Store) Create() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	sess := &Session{
		ID:        strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		CreatedAt: s.now(),
	}
	s.sessions[sess.ID] = sess
	return sess
}

// Get returns the session with the given id. An expired session is removed
// and reported as ErrSessionExpired; an unknown id is ErrNotFound.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, errors.NewNotFoundError("session", id)
	}
	if s.expiredLocked(sess) {
		delete(s.sessions, id)
		return nil, errors.ErrSessionExpired
	}
	return sess, nil
}

// Update applies fn to the session under the store lock. Returns the same
// errors as Get for missing or expired sessions.
func (s *Store) Update(id string, fn func(*Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return errors.NewNotFoundError("session", id)
	}
	if s.expiredLocked(sess) {
		delete(s.sessions, id)
		return errors.ErrSessionExpired
	}
	fn(sess)
	return nil
}

// Delete removes a session. Deleting an unknown id is a no-op.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len reports the number of live sessions, sweeping expired ones first.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	return len(s.sessions)
}

func (s *Store) expiredLocked(sess *Session) bool {
	return s.now().Sub(sess.CreatedAt) > s.ttl
}

func (s *Store) sweepLocked() {
	for id, sess := range s.sessions {
		if s.expiredLocked(sess) {
			delete(s.sessions, id)
		}
	}
}
