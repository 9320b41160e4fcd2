package sessionstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/yanqian/stylecast/internal/domain/session"
	"github.com/yanqian/stylecast/pkg/util"
)

// MemoryStore keeps sessions in process memory. Useful for tests and local dev.
// Expired sessions stay until the service lists and deletes them, so their
// images are released too.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
	expires  map[string]time.Time
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]byte),
		expires:  make(map[string]time.Time),
	}
}

// Get implements session.Store.
func (s *MemoryStore) Get(_ context.Context, id string) (session.Session, bool, error) {
	s.mu.RLock()
	payload, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return session.Session{}, false, nil
	}
	var sess session.Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return session.Session{}, false, err
	}
	return sess, true, nil
}

// Save stores a copy of sess until sess.ExpiresAt.
func (s *MemoryStore) Save(_ context.Context, sess session.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = payload
	s.expires[sess.ID] = sess.ExpiresAt
	return nil
}

// Delete implements session.Store.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	delete(s.expires, id)
	return nil
}

// ListExpired returns up to limit ids that expired before now, oldest first.
func (s *MemoryStore) ListExpired(_ context.Context, now time.Time, limit int) ([]string, error) {
	type expired struct {
		id  string
		exp time.Time
	}
	s.mu.RLock()
	var found []expired
	for id, exp := range s.expires {
		if util.Expired(exp, now) {
			found = append(found, expired{id: id, exp: exp})
		}
	}
	s.mu.RUnlock()
	sort.Slice(found, func(i, j int) bool { return found[i].exp.Before(found[j].exp) })
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	ids := make([]string, 0, len(found))
	for _, e := range found {
		ids = append(ids, e.id)
	}
	return ids, nil
}

var (
	_ session.Store         = (*MemoryStore)(nil)
	_ session.ExpiredLister = (*MemoryStore)(nil)
)
