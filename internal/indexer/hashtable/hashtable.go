// Package hashtable is the chaining hash table the index builder fills before
// the tables are serialized. Bucket placement (key mod bucket count) is shared
// with the on-disk readers, so a chain written from bucket i is looked up from
// bucket i again.
package hashtable

import (
	"hash/fnv"
	"iter"
)

const (
	DefaultBuckets = 2
	maxLoadFactor  = 3
	growthFactor   = 9
)

type KeyValue[V any] struct {
	Key   uint64
	Value V
}

type Table[V any] struct {
	buckets [][]KeyValue[V]
	count   int
}

func New[V any](numBuckets int) *Table[V] {
	if numBuckets < 1 {
		numBuckets = 1
	}
	return &Table[V]{buckets: make([][]KeyValue[V], numBuckets)}
}

func (t *Table[V]) bucketFor(key uint64) int {
	return int(key % uint64(len(t.buckets)))
}

// Insert stores value under key and returns the value it replaced, if any.
func (t *Table[V]) Insert(key uint64, value V) (V, bool) {
	t.maybeGrow()

	b := t.bucketFor(key)
	chain := t.buckets[b]
	for i := range chain {
		if chain[i].Key == key {
			old := chain[i].Value
			chain[i].Value = value
			return old, true
		}
	}
	t.buckets[b] = append(chain, KeyValue[V]{Key: key, Value: value})
	t.count++
	var zero V
	return zero, false
}

func (t *Table[V]) Lookup(key uint64) (V, bool) {
	for _, kv := range t.buckets[t.bucketFor(key)] {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	var zero V
	return zero, false
}

func (t *Table[V]) Remove(key uint64) (V, bool) {
	b := t.bucketFor(key)
	chain := t.buckets[b]
	for i := range chain {
		if chain[i].Key == key {
			old := chain[i].Value
			t.buckets[b] = append(chain[:i:i], chain[i+1:]...)
			t.count--
			return old, true
		}
	}
	var zero V
	return zero, false
}

func (t *Table[V]) Len() int {
	return t.count
}

func (t *Table[V]) NumBuckets() int {
	return len(t.buckets)
}

// Bucket returns the chain for bucket i in insertion order. Callers must not
// modify the returned slice.
func (t *Table[V]) Bucket(i int) []KeyValue[V] {
	return t.buckets[i]
}

// All yields every entry in bucket order, then chain order.
func (t *Table[V]) All() iter.Seq2[uint64, V] {
	return func(yield func(uint64, V) bool) {
		for _, chain := range t.buckets {
			for _, kv := range chain {
				if !yield(kv.Key, kv.Value) {
					return
				}
			}
		}
	}
}

func (t *Table[V]) maybeGrow() {
	if t.count/len(t.buckets) <= maxLoadFactor {
		return
	}
	grown := make([][]KeyValue[V], len(t.buckets)*growthFactor)
	for _, chain := range t.buckets {
		for _, kv := range chain {
			b := kv.Key % uint64(len(grown))
			grown[b] = append(grown[b], kv)
		}
	}
	t.buckets = grown
}

// FNVHash64 is the 64-bit FNV-1a hash of b.
func FNVHash64(b []byte) uint64 {
	h := fnv.New64a()
	h.Write(b)
	return h.Sum64()
}

func HashString(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
