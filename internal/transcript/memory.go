package transcript

import (
	"context"
	"sync"
	"time"
)

// sweepInterval 两次过期清理之间的最短间隔
const sweepInterval = time.Minute

type memorySession struct {
	exchanges []Exchange
	updatedAt time.Time
}

// MemoryStore 是 Store 接口的一个简单内存实现。
// 注意：此实现不是持久化的，未配置 Redis 时使用。
// 会话在最后一次写入 ttl 之后过期；会话数超过 maxSessions 时淘汰最久未写入的会话。
type MemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string]*memorySession
	maxEntries  int
	ttl         time.Duration
	maxSessions int
	lastSweep   time.Time
	now         func() time.Time
}

// MemoryOption 内存存储选项
type MemoryOption func(*MemoryStore)

// WithSessionTTL 会话过期时间，<=0 表示不过期
func WithSessionTTL(ttl time.Duration) MemoryOption {
	return func(m *MemoryStore) { m.ttl = ttl }
}

// WithMaxSessions 最多保留的会话数，<=0 表示不限制
func WithMaxSessions(n int) MemoryOption {
	return func(m *MemoryStore) { m.maxSessions = n }
}

// NewMemoryStore 创建内存存储，maxEntries<=0 表示单个会话不限制条数
func NewMemoryStore(maxEntries int, opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		sessions:   make(map[string]*memorySession),
		maxEntries: maxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Append 实现 Store 接口
func (m *MemoryStore) Append(_ context.Context, e Exchange) error {
	if e.SessionID == "" {
		return ErrEmptySession
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweepLocked(now)

	sess, ok := m.sessions[e.SessionID]
	if !ok || m.expired(sess, now) {
		sess = &memorySession{}
		m.sessions[e.SessionID] = sess
	}
	list := append(sess.exchanges, e)
	if m.maxEntries > 0 && len(list) > m.maxEntries {
		list = append([]Exchange(nil), list[len(list)-m.maxEntries:]...)
	}
	sess.exchanges = list
	sess.updatedAt = now

	if m.maxSessions > 0 && len(m.sessions) > m.maxSessions {
		m.evictOldestLocked(e.SessionID)
	}
	return nil
}

// History 实现 Store 接口，过期会话视为不存在
func (m *MemoryStore) History(_ context.Context, sessionID string, limit int) ([]Exchange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[sessionID]
	if !ok || m.expired(sess, m.now()) {
		return []Exchange{}, nil
	}
	list := tail(sess.exchanges, limit)
	// 返回副本，防止外部修改内部存储
	cpy := make([]Exchange, len(list))
	copy(cpy, list)
	return cpy, nil
}

// Clear 实现 Store 接口
func (m *MemoryStore) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// Len 当前保留的会话数
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *MemoryStore) expired(sess *memorySession, now time.Time) bool {
	return m.ttl > 0 && now.Sub(sess.updatedAt) >= m.ttl
}

// sweepLocked 删除过期会话，调用方持有写锁
func (m *MemoryStore) sweepLocked(now time.Time) {
	if m.ttl <= 0 {
		return
	}
	interval := sweepInterval
	if m.ttl < interval {
		interval = m.ttl
	}
	if now.Sub(m.lastSweep) < interval {
		return
	}
	m.lastSweep = now
	for id, sess := range m.sessions {
		if m.expired(sess, now) {
			delete(m.sessions, id)
		}
	}
}

// evictOldestLocked 淘汰最久未写入的会话，keep 是刚写入的会话
func (m *MemoryStore) evictOldestLocked(keep string) {
	for len(m.sessions) > m.maxSessions {
		oldestID := ""
		var oldest time.Time
		for id, sess := range m.sessions {
			if id == keep {
				continue
			}
			if oldestID == "" || sess.updatedAt.Before(oldest) {
				oldestID, oldest = id, sess.updatedAt
			}
		}
		if oldestID == "" {
			return
		}
		delete(m.sessions, oldestID)
	}
}
