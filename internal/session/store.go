package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/MimeLyc/srt-editor/internal/subtitle"
	"github.com/MimeLyc/srt-editor/pkg/log"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

var ErrNotFound = errors.New("session not found")

// Summary describes a session without its cues.
type Summary struct {
	ID         string    `json:"id"`
	FileName   string    `json:"fileName"`
	CueCount   int       `json:"cueCount"`
	CreatedAt  time.Time `json:"createdAt"`
	LastAccess time.Time `json:"lastAccess"`
}

// Store keeps sessions in memory. A zero or negative ttl disables expiry.
type Store struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

func (s *Store) Create(fileName string, doc *subtitle.Document) *Session {
	sess := newSession(uuid.NewString(), fileName, doc, s.now())

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	log.Info("Created session %s (%s, %d cues)", sess.ID, sess.FileName, len(sess.doc.Cues))
	return sess
}

// Get returns the session and marks it as used.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	sess.touch(s.now())
	return sess, nil
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// List returns summaries ordered by creation time.
func (s *Store) List() []Summary {
	s.mu.RLock()
	ret := make([]Summary, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sess.mu.RLock()
		ret = append(ret, Summary{
			ID:         sess.ID,
			FileName:   sess.FileName,
			CueCount:   len(sess.doc.Cues),
			CreatedAt:  sess.CreatedAt,
			LastAccess: sess.lastAccess,
		})
		sess.mu.RUnlock()
	}
	s.mu.RUnlock()

	sort.Slice(ret, func(i, j int) bool {
		return ret[i].CreatedAt.Before(ret[j].CreatedAt)
	})
	return ret
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep removes sessions idle for longer than the ttl and returns how many it removed.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if sess.idleSince().Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		log.Info("Expired %d idle sessions", removed)
	}
	return removed
}

// ScheduleSweep registers Sweep on c using the given cron spec.
func (s *Store) ScheduleSweep(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() { s.Sweep() })
}
