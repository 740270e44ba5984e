package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Clock 返回当前时间，测试中替换以跨越 TTL
type Clock func() time.Time

// Clearer 刷新时需要重置的对象
type Clearer interface {
	Clear(ctx context.Context)
}

// Backing 跨进程共享的二级缓存（Redis）
type Backing interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration)
	Clear(ctx context.Context)
}

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// backed 是写入二级缓存的格式，携带原始写入时间
type backed[V any] struct {
	Value    V         `json:"v"`
	StoredAt time.Time `json:"at"`
}

// TTL 按写入时间过期的内存缓存；无容量上限，过期即视为不存在
type TTL[V any] struct {
	name    string
	ttl     time.Duration
	now     Clock
	backing Backing

	mu      sync.Mutex
	entries map[string]entry[V]
}

type settings struct {
	now     Clock
	backing Backing
}

type Option func(*settings)

func WithClock(c Clock) Option {
	return func(s *settings) { s.now = c }
}

// WithBacking 增加二级缓存，值以 JSON 存储；nil 忽略
func WithBacking(b Backing) Option {
	return func(s *settings) {
		if b != nil {
			s.backing = b
		}
	}
}

func New[V any](name string, ttl time.Duration, opts ...Option) *TTL[V] {
	s := settings{now: time.Now}
	for _, o := range opts {
		o(&s)
	}
	return &TTL[V]{
		name:    name,
		ttl:     ttl,
		now:     s.now,
		backing: s.backing,
		entries: make(map[string]entry[V]),
	}
}

func (t *TTL[V]) Name() string { return t.name }

func (t *TTL[V]) fresh(storedAt time.Time) bool {
	return t.now().Sub(storedAt) < t.ttl
}

// Get 先查内存，再查二级缓存；二级缓存的值保留原始写入时间
func (t *TTL[V]) Get(ctx context.Context, key string) (V, bool) {
	t.mu.Lock()
	e, ok := t.entries[key]
	if ok && t.fresh(e.storedAt) {
		t.mu.Unlock()
		return e.value, true
	}
	if ok {
		delete(t.entries, key)
	}
	t.mu.Unlock()

	var zero V
	if t.backing == nil {
		return zero, false
	}
	data, ok := t.backing.Get(ctx, t.name+":"+key)
	if !ok {
		return zero, false
	}
	var b backed[V]
	if err := json.Unmarshal(data, &b); err != nil {
		slog.Warn("cache: decode backing value", "cache", t.name, "key", key, "error", err)
		return zero, false
	}
	if b.StoredAt.IsZero() || !t.fresh(b.StoredAt) {
		return zero, false
	}
	t.storeAt(key, b.Value, b.StoredAt)
	return b.Value, true
}

func (t *TTL[V]) Set(ctx context.Context, key string, v V) {
	at := t.now()
	t.storeAt(key, v, at)
	if t.backing == nil {
		return
	}
	data, err := json.Marshal(backed[V]{Value: v, StoredAt: at})
	if err != nil {
		slog.Warn("cache: encode backing value", "cache", t.name, "key", key, "error", err)
		return
	}
	t.backing.Set(ctx, t.name+":"+key, data, t.ttl)
}

func (t *TTL[V]) storeAt(key string, v V, at time.Time) {
	t.mu.Lock()
	t.entries[key] = entry[V]{value: v, storedAt: at}
	t.mu.Unlock()
}

// GetOrLoad 命中则返回缓存，否则调用 load；只缓存成功结果
func (t *TTL[V]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (V, error)) (V, error) {
	if v, ok := t.Get(ctx, key); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	t.Set(ctx, key, v)
	return v, nil
}

// Len 内存中的条目数，含已过期未清理的
func (t *TTL[V]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *TTL[V]) Clear(ctx context.Context) {
	t.mu.Lock()
	t.entries = make(map[string]entry[V])
	t.mu.Unlock()
	if t.backing != nil {
		t.backing.Clear(ctx)
	}
}

// Registry 汇总所有缓存（及翻译模型），供刷新时统一清空
type Registry struct {
	mu       sync.Mutex
	clearers []Clearer
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Register(c ...Clearer) {
	r.mu.Lock()
	r.clearers = append(r.clearers, c...)
	r.mu.Unlock()
}

func (r *Registry) ClearAll(ctx context.Context) {
	r.mu.Lock()
	clearers := make([]Clearer, len(r.clearers))
	copy(clearers, r.clearers)
	r.mu.Unlock()

	for _, c := range clearers {
		c.Clear(ctx)
	}
	slog.Info("cache: cleared", "count", len(clearers))
}
