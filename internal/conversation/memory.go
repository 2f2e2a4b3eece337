package conversation

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/ashureev/rommaana-agents/internal/domain"
	"github.com/ashureev/rommaana-agents/internal/metrics"
)

// Options bound a MemoryStore. Zero values mean: DefaultHistoryLimit,
// unlimited conversations, no idle expiry.
type Options struct {
	HistoryLimit     int
	MaxConversations int
	IdleTTL          time.Duration
	Now              func() time.Time
}

type entry struct {
	id       string
	messages []domain.Message
	lastUsed time.Time
}

// MemoryStore is an in-process Store. Conversations are kept in LRU order
// and the least recently used one is evicted once MaxConversations is reached.
// The mutex protects map integrity only; two turns racing on the same id
// may interleave their appends.
type MemoryStore struct {
	mu    sync.Mutex
	opts  Options
	items map[string]*list.Element
	lru   *list.List // front = least recently used
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore(opts Options) *MemoryStore {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &MemoryStore{
		opts:  opts,
		items: make(map[string]*list.Element),
		lru:   list.New(),
	}
}

// History implements Store.
func (s *MemoryStore) History(_ context.Context, id string) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.touch(id)
	out := make([]domain.Message, len(e.messages))
	copy(out, e.messages)
	return out, nil
}

// Append implements Store.
func (s *MemoryStore) Append(_ context.Context, id string, msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.touch(id)
	e.messages = append(e.messages, msg)
	if over := len(e.messages) - s.opts.HistoryLimit; over > 0 {
		trimmed := make([]domain.Message, s.opts.HistoryLimit)
		copy(trimmed, e.messages[over:])
		e.messages = trimmed
	}
	return nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[id]; ok {
		s.remove(el)
	}
	return nil
}

// Len returns the number of conversations held.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// SweepIdle drops conversations idle for longer than IdleTTL.
func (s *MemoryStore) SweepIdle(_ context.Context) (int64, error) {
	if s.opts.IdleTTL <= 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.opts.Now().Add(-s.opts.IdleTTL)
	var removed int64
	for el := s.lru.Front(); el != nil; {
		e := el.Value.(*entry)
		if !e.lastUsed.Before(cutoff) {
			// Later elements were used more recently.
			break
		}
		next := el.Next()
		s.remove(el)
		removed++
		el = next
	}
	return removed, nil
}

// touch returns the entry for id, creating it, and marks it most recently used.
func (s *MemoryStore) touch(id string) *entry {
	now := s.opts.Now()
	if el, ok := s.items[id]; ok {
		e := el.Value.(*entry)
		e.lastUsed = now
		s.lru.MoveToBack(el)
		return e
	}

	if s.opts.MaxConversations > 0 {
		for len(s.items) >= s.opts.MaxConversations {
			s.remove(s.lru.Front())
		}
	}
	e := &entry{id: id, lastUsed: now}
	s.items[id] = s.lru.PushBack(e)
	metrics.ConversationsActive.Inc()
	return e
}

func (s *MemoryStore) remove(el *list.Element) {
	e := el.Value.(*entry)
	s.lru.Remove(el)
	delete(s.items, e.id)
	metrics.ConversationsActive.Dec()
}
