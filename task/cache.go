package task

import (
	"fmt"
	"reflect"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/slok/gorchestrator/log"
)

// DefaultCacheSize is the number of tasks kept by the cache when not set.
const DefaultCacheSize = 1024

// CacheConfig is the configuration of the Cache.
type CacheConfig struct {
	// Size is the max number of cached tasks, the least recently used ones
	// are evicted.
	Size int
	// Logger is the logger.
	Logger log.Logger
}

func (c *CacheConfig) defaults() {
	if c.Size <= 0 {
		c.Size = DefaultCacheSize
	}

	if c.Logger == nil {
		c.Logger = log.Dummy
	}
}

// Key is the structural key of an invocation.
type Key struct {
	Operation string
	Target    string
	Args      string
}

// KeyOf returns the key of the invocation. The target is identified by its
// address when it's a reference and by its value otherwise.
//
// Building the key formats the target and the arguments, a lookup allocates
// more than wrapping a new task.
func KeyOf(inv Invocation) Key {
	return Key{
		Operation: inv.Operation,
		Target:    identity(inv.Target),
		Args:      fmt.Sprintf("%#v", inv.Args),
	}
}

func identity(v interface{}) string {
	if v == nil {
		return "nil"
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.Slice, reflect.UnsafePointer:
		return fmt.Sprintf("%T@%x", v, rv.Pointer())
	}
	return fmt.Sprintf("%#v", v)
}

// Cache is a size bounded cache of tasks so the repeated invocations reuse the
// wrapper. The cached tasks retain the target and the arguments until evicted.
type Cache struct {
	tasks  *lru.Cache[Key, *Task]
	logger log.Logger
}

// NewCache returns a new task cache.
func NewCache(cfg CacheConfig) (*Cache, error) {
	cfg.defaults()

	tasks, err := lru.New[Key, *Task](cfg.Size)
	if err != nil {
		return nil, fmt.Errorf("could not create task cache: %w", err)
	}

	return &Cache{
		tasks:  tasks,
		logger: cfg.Logger,
	}, nil
}

// Get returns the cached task of the invocation or wraps and caches it on a miss.
func (c *Cache) Get(inv Invocation) *Task {
	key := KeyOf(inv)
	if t, ok := c.tasks.Get(key); ok {
		return t
	}

	t := Wrap(inv)
	if evicted := c.tasks.Add(key, t); evicted {
		c.logger.Debugf("task cache is full, least used task evicted")
	}

	return t
}

// Len returns the number of cached tasks.
func (c *Cache) Len() int {
	return c.tasks.Len()
}

// Purge removes all the cached tasks.
func (c *Cache) Purge() {
	c.tasks.Purge()
}
