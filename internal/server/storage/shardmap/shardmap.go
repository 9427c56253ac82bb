// Package shardmap implements a fixed-size, bucketed concurrent map with a
// disciplined per-bucket reader/writer locking protocol and a strict
// two-phase-locking global scan.
//
// The table does not resize: the bucket count is fixed at construction, so
// a single unrelated key's mutation never blocks on any other bucket's
// lock, at the cost of O(n/B) degradation within a bucket as load grows.
package shardmap

import (
	"hash/maphash"
	"sort"
	"sync"
)

type bucket[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]V
}

// Map is a fixed-bucket-count concurrent map keyed by any comparable K.
type Map[K comparable, V any] struct {
	buckets []*bucket[K, V]
	seed    maphash.Seed
	keyFn   func(maphash.Seed, K) uint64
}

// New constructs a Map with the given number of buckets. keyFn hashes a key
// to a uint64 under the given seed; callers typically wrap maphash.String
// or maphash.Bytes.
func New[K comparable, V any](numBuckets int, keyFn func(maphash.Seed, K) uint64) *Map[K, V] {
	if numBuckets < 1 {
		numBuckets = 1
	}
	m := &Map[K, V]{
		buckets: make([]*bucket[K, V], numBuckets),
		seed:    maphash.MakeSeed(),
		keyFn:   keyFn,
	}
	for i := range m.buckets {
		m.buckets[i] = &bucket[K, V]{data: make(map[K]V)}
	}
	return m
}

// NewStringKeyed is a convenience constructor for string-keyed maps, the
// common case for usernames and KV keys throughout the storage facade.
func NewStringKeyed[V any](numBuckets int) *Map[string, V] {
	return New[string, V](numBuckets, func(seed maphash.Seed, k string) uint64 {
		return maphash.String(seed, k)
	})
}

func (m *Map[K, V]) bucketFor(key K) *bucket[K, V] {
	idx := int(m.keyFn(m.seed, key) % uint64(len(m.buckets)))
	return m.buckets[idx]
}

// Insert inserts (key, val) only if key is absent. onSuccess runs while the
// bucket's exclusive lock is still held, so a durability record can be
// written before any reader can observe the new value.
//
// Returns true if the key was inserted, false if it already existed (in
// which case no mutation happens and onSuccess does not run).
func (m *Map[K, V]) Insert(key K, val V, onSuccess func()) bool {
	b := m.bucketFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.data[key]; exists {
		return false
	}
	b.data[key] = val
	if onSuccess != nil {
		onSuccess()
	}
	return true
}

// Upsert inserts key/val if key is absent, or overwrites the existing value
// if present. Exactly one of onInsert/onUpdate runs, while the bucket's
// exclusive lock is held.
//
// Returns true if the key was inserted (as opposed to updated).
func (m *Map[K, V]) Upsert(key K, val V, onInsert, onUpdate func()) bool {
	b := m.bucketFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	_, exists := b.data[key]
	b.data[key] = val
	if exists {
		if onUpdate != nil {
			onUpdate()
		}
		return false
	}
	if onInsert != nil {
		onInsert()
	}
	return true
}

// Remove deletes key's mapping if present. onSuccess runs while the
// bucket's exclusive lock is held.
//
// Returns true if the key was found and removed.
func (m *Map[K, V]) Remove(key K, onSuccess func()) bool {
	b := m.bucketFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.data[key]; !exists {
		return false
	}
	delete(b.data, key)
	if onSuccess != nil {
		onSuccess()
	}
	return true
}

// With takes the bucket's exclusive lock and applies f to the value
// associated with key, allowing f to mutate it in place via the pointer.
// Returns false if key is absent, in which case f does not run.
func (m *Map[K, V]) With(key K, f func(*V)) bool {
	b := m.bucketFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	v, exists := b.data[key]
	if !exists {
		return false
	}
	f(&v)
	b.data[key] = v
	return true
}

// WithReadonly takes the bucket's shared lock and applies f to a read-only
// view of the value associated with key. Returns false if key is absent.
func (m *Map[K, V]) WithReadonly(key K, f func(V)) bool {
	b := m.bucketFor(key)
	b.mu.RLock()
	defer b.mu.RUnlock()

	v, exists := b.data[key]
	if !exists {
		return false
	}
	f(v)
	return true
}

// Clear empties every bucket. Uses strict two-phase locking: every bucket
// lock is acquired (in a fixed, deterministic order) before any mutation,
// and released only after all buckets have been cleared.
func (m *Map[K, V]) Clear() {
	for _, b := range m.buckets {
		b.mu.Lock()
	}
	for _, b := range m.buckets {
		b.data = make(map[K]V)
	}
	for i := len(m.buckets) - 1; i >= 0; i-- {
		m.buckets[i].mu.Unlock()
	}
}

// ForEachReadonly acquires every bucket's shared lock (strict 2PL), applies
// f to each key/value pair in an unspecified order, then runs then while
// every lock is still held, before releasing them all. This gives the scan
// point-in-time snapshot semantics despite the table being sharded: it is
// the serialization point used by the storage facade's SAV operation.
func (m *Map[K, V]) ForEachReadonly(f func(K, V), then func()) {
	for _, b := range m.buckets {
		b.mu.RLock()
	}
	for _, b := range m.buckets {
		for k, v := range b.data {
			f(k, v)
		}
	}
	if then != nil {
		then()
	}
	for i := len(m.buckets) - 1; i >= 0; i-- {
		m.buckets[i].mu.RUnlock()
	}
}

// Len returns the total number of entries across all buckets. It takes
// every bucket's shared lock in turn (not a single atomic snapshot across
// buckets), which is sufficient for reporting/metrics use.
func (m *Map[K, V]) Len() int {
	total := 0
	for _, b := range m.buckets {
		b.mu.RLock()
		total += len(b.data)
		b.mu.RUnlock()
	}
	return total
}

// Keys returns a point-in-time, sorted snapshot of every key in the table.
func (m *Map[K, V]) Keys(less func(a, b K) bool) []K {
	var keys []K
	m.ForEachReadonly(func(k K, _ V) {
		keys = append(keys, k)
	}, nil)
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })
	return keys
}
