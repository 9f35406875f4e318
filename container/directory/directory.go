// Package directory implements a hash-mapped key-to-value container with
// O(1) expected add/get/remove and full-table visitor iteration. It backs
// the post office's port table and every mailbox's correspondent table.
package directory

import "fmt"

// initialCapacity is the number of buckets a new Directory starts with.
const initialCapacity = 128

// maxLoadFactor triggers a doubling resize once exceeded at the end of Add.
const maxLoadFactor = 0.75

// entry is one chained key/value pair within a bucket.
type entry struct {
	key   uint32
	value any
	next  *entry
}

// Directory maps uint32 keys to opaque values. The zero value is not usable;
// construct with New. Keys are unique: Add on an existing key replaces the
// stored value. Directory is not safe for concurrent use without external
// synchronization (callers hold the scheduler's critical section or a
// mutex around the calls that need it, same as the teacher's MessagesFIFO
// and LastTimestamp guards).
type Directory struct {
	buckets []*entry
	count   int
}

// New returns an empty Directory with the default initial capacity.
func New() *Directory {
	return &Directory{buckets: make([]*entry, initialCapacity)}
}

// Len returns the number of distinct keys currently stored.
func (d *Directory) Len() int {
	return d.count
}

func (d *Directory) indexFor(key uint32, n int) int {
	return int(key % uint32(n))
}

// Add inserts value under key, replacing any previously stored value for
// that key, and resizes the table if the load factor would exceed 3/4.
func (d *Directory) Add(key uint32, value any) {
	idx := d.indexFor(key, len(d.buckets))
	for e := d.buckets[idx]; e != nil; e = e.next {
		if e.key == key {
			e.value = value
			return
		}
	}
	d.buckets[idx] = &entry{key: key, value: value, next: d.buckets[idx]}
	d.count++

	if float64(d.count)/float64(len(d.buckets)) > maxLoadFactor {
		d.grow()
	}
}

// grow doubles the bucket table and rehashes every entry into it.
func (d *Directory) grow() {
	old := d.buckets
	d.buckets = make([]*entry, len(old)*2)
	for _, head := range old {
		for e := head; e != nil; {
			next := e.next
			idx := d.indexFor(e.key, len(d.buckets))
			e.next = d.buckets[idx]
			d.buckets[idx] = e
			e = next
		}
	}
}

// Get returns the value stored under key and true, or (nil, false) if the
// key is not present.
func (d *Directory) Get(key uint32) (any, bool) {
	idx := d.indexFor(key, len(d.buckets))
	for e := d.buckets[idx]; e != nil; e = e.next {
		if e.key == key {
			return e.value, true
		}
	}
	return nil, false
}

// Remove deletes key from the directory, returning true if it was present.
func (d *Directory) Remove(key uint32) bool {
	idx := d.indexFor(key, len(d.buckets))
	var prev *entry
	for e := d.buckets[idx]; e != nil; prev, e = e, e.next {
		if e.key != key {
			continue
		}
		if prev == nil {
			d.buckets[idx] = e.next
		} else {
			prev.next = e.next
		}
		d.count--
		return true
	}
	return false
}

// Visitor is called once per stored entry during Iterate, along with a
// caller-supplied context key/value pair threaded through every call.
// Returning -1 aborts iteration; any other return value continues it.
type Visitor func(key uint32, value any, ctxKey uint32, ctxValue any) int

// Iterate calls visit once for every stored key/value pair in unspecified
// order, passing (ctxKey, ctxValue) through unchanged on every call.
// Iteration stops early if visit returns -1.
func (d *Directory) Iterate(visit Visitor, ctxKey uint32, ctxValue any) {
	for _, head := range d.buckets {
		for e := head; e != nil; e = e.next {
			if visit(e.key, e.value, ctxKey, ctxValue) == -1 {
				return
			}
		}
	}
}

// String renders basic occupancy stats, useful in debug logging.
func (d *Directory) String() string {
	return fmt.Sprintf("directory{buckets=%d entries=%d}", len(d.buckets), d.count)
}
