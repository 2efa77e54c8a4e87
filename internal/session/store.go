package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoSession is returned when an operation is attempted without a session id.
var ErrNoSession = errors.New("session: id is required")

// Keys used for remembered selections.
const (
	KeyCartScheme = "cart_scheme"
	itemPrefix    = "item_scheme:"
)

// ItemKey returns the session key holding the remembered scheme of a cart item.
func ItemKey(itemKey string) string {
	return itemPrefix + itemKey
}

// Store keeps per-shopper values that live as long as the shopper session. Concurrent
// writes to the same key are last-write-wins.
type Store interface {
	Get(ctx context.Context, sid, key, def string) (string, error)
	Set(ctx context.Context, sid, key, value string) error
}

// RedisStore keeps one hash per session and refreshes its TTL on every write.
type RedisStore struct {
	R      *redis.Client
	TTL    time.Duration
	Prefix string
}

func (s *RedisStore) key(sid string) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = "session:"
	}
	return prefix + sid
}

// Get returns the stored value, or def when the session or key does not exist.
func (s *RedisStore) Get(ctx context.Context, sid, key, def string) (string, error) {
	if strings.TrimSpace(sid) == "" {
		return def, ErrNoSession
	}
	if s == nil || s.R == nil {
		return def, errors.New("session: redis client not configured")
	}
	v, err := s.R.HGet(ctx, s.key(sid), key).Result()
	if errors.Is(err, redis.Nil) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	return v, nil
}

// Set stores value and extends the session lifetime.
func (s *RedisStore) Set(ctx context.Context, sid, key, value string) error {
	if strings.TrimSpace(sid) == "" {
		return ErrNoSession
	}
	if s == nil || s.R == nil {
		return errors.New("session: redis client not configured")
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	pipe := s.R.TxPipeline()
	pipe.HSet(ctx, s.key(sid), key, value)
	pipe.Expire(ctx, s.key(sid), ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Memory is an in-process Store for tests and tools.
type Memory struct {
	TTL time.Duration
	Now func() time.Time

	mu       sync.Mutex
	sessions map[string]*memorySession
}

type memorySession struct {
	values  map[string]string
	expires time.Time
}

func (m *Memory) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, sid, key, def string) (string, error) {
	if strings.TrimSpace(sid) == "" {
		return def, ErrNoSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sid]
	if !ok {
		return def, nil
	}
	if !sess.expires.IsZero() && !m.now().Before(sess.expires) {
		delete(m.sessions, sid)
		return def, nil
	}
	v, ok := sess.values[key]
	if !ok {
		return def, nil
	}
	return v, nil
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, sid, key, value string) error {
	if strings.TrimSpace(sid) == "" {
		return ErrNoSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions == nil {
		m.sessions = make(map[string]*memorySession)
	}
	sess, ok := m.sessions[sid]
	if !ok {
		sess = &memorySession{values: make(map[string]string)}
		m.sessions[sid] = sess
	}
	sess.values[key] = value
	if m.TTL > 0 {
		sess.expires = m.now().Add(m.TTL)
	}
	return nil
}
