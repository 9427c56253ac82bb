// Package mru tracks the K most-recently-touched keys, most-recent first,
// with no duplicates.
package mru

import (
	"container/list"
	"strings"
	"sync"
)

// Index is a bounded, deduplicating, most-recently-used key list.
type Index struct {
	mu       sync.Mutex
	capacity int
	order    *list.List               // front = most recent
	pos      map[string]*list.Element // key -> its node in order
}

// New constructs an Index holding at most capacity keys.
func New(capacity int) *Index {
	return &Index{
		capacity: capacity,
		order:    list.New(),
		pos:      make(map[string]*list.Element),
	}
}

// Insert moves key to the most-recent position, inserting it if absent. If
// the index then holds more than capacity keys, the least-recently-used
// key is evicted.
func (idx *Index) Insert(key string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if el, ok := idx.pos[key]; ok {
		idx.order.Remove(el)
	}
	idx.pos[key] = idx.order.PushFront(key)

	for idx.order.Len() > idx.capacity {
		back := idx.order.Back()
		if back == nil {
			break
		}
		idx.order.Remove(back)
		delete(idx.pos, back.Value.(string))
	}
}

// Remove drops key from the index if present. It is safe to call on a key
// that was never inserted.
func (idx *Index) Remove(key string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if el, ok := idx.pos[key]; ok {
		idx.order.Remove(el)
		delete(idx.pos, key)
	}
}

// Clear empties the index.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.order.Init()
	idx.pos = make(map[string]*list.Element)
}

// Keys returns the tracked keys, most-recent first. It returns an empty,
// non-nil slice when the index is empty (resolving the open question in
// spec.md §9: the reference implementation's get() dereferences end() on an
// empty index, which this explicitly avoids).
func (idx *Index) Keys() []string {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	keys := make([]string, 0, idx.order.Len())
	for el := idx.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(string))
	}
	return keys
}

// Get returns the tracked keys as a newline-delimited string, most-recent
// first, matching the wire format spec.md §4.3 specifies for KVT.
func (idx *Index) Get() string {
	return strings.Join(idx.Keys(), "\n")
}
