package infra_memory_session

import (
	"sync"
	"time"
)

type item struct {
	value    string
	expireAt time.Time
}

// Driver is a TTL map standing in for redis when no cache is configured.
// Expired entries are dropped lazily on read.
type Driver struct {
	mu    sync.Mutex
	items map[string]item
}

func New() *Driver {
	return &Driver{items: make(map[string]item)}
}

func (d *Driver) Set(key string, value string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.items[key] = item{
		value:    value,
		expireAt: time.Now().Add(ttl),
	}
	return nil
}

func (d *Driver) Get(key string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	it, ok := d.items[key]
	if !ok {
		return "", nil
	}
	if time.Now().After(it.expireAt) {
		delete(d.items, key)
		return "", nil
	}
	return it.value, nil
}

func (d *Driver) Delete(key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.items, key)
	return nil
}
