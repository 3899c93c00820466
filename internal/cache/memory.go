package cache

import (
	"context"
	"sync"
	"time"
)

// janitorInterval is how often expired entries are swept
const janitorInterval = time.Minute

// MemoryCache keeps entries in process memory. A background janitor drops
// expired entries until Close is called.
type MemoryCache struct {
	data   sync.Map
	config Config
	cancel context.CancelFunc
	done   chan struct{}
}

type entry struct {
	value   []byte
	expires time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// NewMemoryCache creates an in-memory cache and starts its janitor
func NewMemoryCache(config Config) *MemoryCache {
	ctx, cancel := context.WithCancel(context.Background())
	m := &MemoryCache{config: config, cancel: cancel, done: make(chan struct{})}
	go m.janitor(ctx)
	return m
}

func (m *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full := m.config.Prefix + key
	v, ok := m.data.Load(full)
	if !ok {
		return nil, ErrMiss{Key: key}
	}
	e := v.(entry)
	if e.expired(time.Now()) {
		m.data.Delete(full)
		return nil, ErrMiss{Key: key}
	}
	return e.value, nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ttl == 0 {
		ttl = m.config.DefaultTTL
	}
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = time.Now().Add(ttl)
	}
	m.data.Store(m.config.Prefix+key, e)
	return nil
}

func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.data.Delete(m.config.Prefix + key)
	return nil
}

func (m *MemoryCache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.data.Range(func(key, _ interface{}) bool {
		m.data.Delete(key)
		return true
	})
	return nil
}

// Close stops the janitor and waits for it to exit
func (m *MemoryCache) Close() error {
	if m.cancel != nil {
		m.cancel()
		<-m.done
		m.cancel = nil
	}
	return nil
}

func (m *MemoryCache) janitor(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.data.Range(func(key, v interface{}) bool {
				if v.(entry).expired(now) {
					m.data.Delete(key)
				}
				return true
			})
		}
	}
}
