package state

import (
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultMaxSessions = 10000
	defaultSessionTTL  = 24 * time.Hour
)

// Store is the session lifecycle contract used by the orchestrator:
// create-on-first-contact, mutate every turn, expire by policy.
type Store interface {
	GetOrCreate(userID string) (*Session, error)
	Delete(userID string)
	Len() int
}

type Config struct {
	MaxSessions int           `envconfig:"MAX_SESSIONS" split_words:"true" default:"10000"`
	TTL         time.Duration `envconfig:"TTL" split_words:"true" default:"24h"`
}

// MemoryStore keeps sessions in process memory behind an expirable LRU,
// so idle conversations age out instead of growing without bound.
// MaxSessions 0 disables the size cap, TTL 0 disables expiry.
type MemoryStore struct {
	mu       sync.Mutex
	sessions *expirable.LRU[string, *Session]
	now      func() time.Time
}

type StoreOption func(*MemoryStore)

// WithClock overrides session timestamps, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewMemoryStore(cfg Config, opts ...StoreOption) *MemoryStore {
	maxSessions := cfg.MaxSessions
	if maxSessions < 0 {
		maxSessions = defaultMaxSessions
	}
	ttl := cfg.TTL
	if ttl < 0 {
		ttl = defaultSessionTTL
	}

	store := &MemoryStore{
		sessions: expirable.NewLRU[string, *Session](maxSessions, nil, ttl),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

// GetOrCreate returns the user's session, creating it lazily on first
// contact. A session evicted while a turn still holds its lock finishes
// that turn on the detached value; the next contact starts fresh.
func (s *MemoryStore) GetOrCreate(userID string) (*Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions.Get(userID); ok {
		return sess, nil
	}
	sess := NewSession(userID, s.now())
	s.sessions.Add(userID, sess)
	return sess, nil
}

func (s *MemoryStore) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions.Remove(userID)
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions.Len()
}
