package index

import (
	"sync"

	"github.com/Adithya-Monish-Kumar-K/filesearch/internal/indexer/hashtable"
)

// DocTable assigns document IDs to filenames. IDs start at 1 and are never
// reused; registering a known name returns its existing ID.
type DocTable struct {
	mu     sync.RWMutex
	byID   *hashtable.Table[string]
	byName map[string]uint64
	nextID uint64
}

func NewDocTable() *DocTable {
	return &DocTable{
		byID:   hashtable.New[string](hashtable.DefaultBuckets),
		byName: make(map[string]uint64),
		nextID: 1,
	}
}

func (d *DocTable) Register(name string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if id, ok := d.byName[name]; ok {
		return id
	}
	id := d.nextID
	d.nextID++
	d.byID.Insert(id, name)
	d.byName[name] = id
	return id
}

func (d *DocTable) LookupName(name string) (uint64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byName[name]
	return id, ok
}

func (d *DocTable) LookupID(id uint64) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.byID.Lookup(id)
}

func (d *DocTable) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.byID.Len()
}

// Table exposes the ID-keyed table for serialization. It must not be used
// while documents are still being registered.
func (d *DocTable) Table() *hashtable.Table[string] {
	return d.byID
}
