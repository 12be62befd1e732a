// File path: internal/checklist/cache.go
package checklist

import (
	"container/list"
	"sync"
)

type cacheEntry struct {
	key    string
	answer bool
}

// answerCache memoizes checklist answers keyed by the trimmed question so a
// question shared by several variables is asked at most once per case.
type answerCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	ll       *list.List
}

func newAnswerCache(size int) *answerCache {
	if size <= 0 {
		size = 64
	}
	return &answerCache{
		capacity: size,
		items:    make(map[string]*list.Element, size),
		ll:       list.New(),
	}
}

func (c *answerCache) Get(key string) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.ll.MoveToFront(elem)
		if entry, ok := elem.Value.(cacheEntry); ok {
			return entry.answer, true
		}
	}
	return false, false
}

func (c *answerCache) Set(key string, answer bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		elem.Value = cacheEntry{key: key, answer: answer}
		c.ll.MoveToFront(elem)
		return
	}
	elem := c.ll.PushFront(cacheEntry{key: key, answer: answer})
	c.items[key] = elem
	if c.ll.Len() > c.capacity {
		tail := c.ll.Back()
		if tail != nil {
			c.ll.Remove(tail)
			if entry, ok := tail.Value.(cacheEntry); ok {
				delete(c.items, entry.key)
			}
		}
	}
}
