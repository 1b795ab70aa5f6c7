package app

import "impact_chat/internal/chat/domain"

// DefaultDedupCapacity recent keys remembered per room
const DefaultDedupCapacity = 256

// DedupSet bounded FIFO set of recently seen keys
type DedupSet struct {
	ring  []domain.DedupKey
	next  int
	size  int
	index map[domain.DedupKey]struct{}
}

// NewDedupSet create a DedupSet; capacity is raised to minCapacity when smaller
func NewDedupSet(capacity, minCapacity int) *DedupSet {
	if capacity <= 0 {
		capacity = DefaultDedupCapacity
	}
	if capacity < minCapacity {
		capacity = minCapacity
	}
	return &DedupSet{
		ring:  make([]domain.DedupKey, capacity),
		index: make(map[domain.DedupKey]struct{}, capacity),
	}
}

// Add insert key, false when it was already present.
// When full the oldest key is evicted.
func (d *DedupSet) Add(key domain.DedupKey) bool {
	if _, ok := d.index[key]; ok {
		return false
	}
	if d.size == len(d.ring) {
		delete(d.index, d.ring[d.next])
	} else {
		d.size++
	}
	d.ring[d.next] = key
	d.index[key] = struct{}{}
	d.next = (d.next + 1) % len(d.ring)
	return true
}

// AddEntry remember e under its key and, when it has an id, its fallback
// key too. False when either was already present, so an id-less echo and
// the id-keyed copy of the same entry count as one.
func (d *DedupSet) AddEntry(e domain.Entry) bool {
	key, fallback := e.Key(), e.FallbackKey()
	if d.Contains(key) || d.Contains(fallback) {
		return false
	}
	d.Add(key)
	if fallback != key {
		d.Add(fallback)
	}
	return true
}

// Contains check key
func (d *DedupSet) Contains(key domain.DedupKey) bool {
	_, ok := d.index[key]
	return ok
}

// Len keys held
func (d *DedupSet) Len() int {
	return d.size
}

// Capacity max keys held
func (d *DedupSet) Capacity() int {
	return len(d.ring)
}

// Reset forget everything (room switch)
func (d *DedupSet) Reset() {
	for i := range d.ring {
		d.ring[i] = ""
	}
	d.next = 0
	d.size = 0
	d.index = make(map[domain.DedupKey]struct{}, len(d.ring))
}
