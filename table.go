// Copyright 2024 The Cockroach Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// package lptable is a fixed-capacity, open-addressed hash table that
// resolves collisions with linear probing and deletes lazily through
// tombstones.
//
// # Layout
//
// An LPTable is sized once, at construction, from the maximum number of
// records the caller expects to store and an "open" fraction:
//
//	capacity = ceil(maxExpected * (1 + percentOpen))
//
// The table never grows. Insertion of a new key is refused once the table
// holds maxExpected live records, even if physical slots remain, so the open
// fraction bounds the load factor and therefore the average search length.
//
// # Probing
//
// Every key has a home position, hash(key) % capacity. Lookups scan forward
// from the home position, wrapping at the end of the slots, until they find
// the key, hit an empty slot, or have looked at every slot. An empty slot
// terminates the scan because insertion always places a key at or before the
// first empty slot on its search path.
//
// # Deletion
//
// Removing a record converts its slot into a tombstone rather than an empty
// slot. Converting it to empty would cut the collision chain of any key that was
// placed after it. Tombstones are skipped by lookups and reused by
// insertions: the first tombstone seen on the search path is preferred over
// the first empty slot. Tombstones are never compacted, so a table with heavy
// churn slowly accumulates them; lookups for absent keys then degrade towards
// a full scan of the table, which the search bound keeps finite.
package lptable

import (
	"fmt"
	"math"
	"strings"
)

const debug = false

// capacityTolerance is the relative distance from an integer within which
// the capacity product is treated as that integer instead of being rounded
// up, so that e.g. 10*(1+0.1) gives 11 slots rather than 12.
const capacityTolerance = 1e-12

// maxCapacity is the largest slot count. Every integer up to 2^53 is exact
// in float64, so the capacity product is never truncated below it.
const maxCapacity = 1 << 53

// slotState is the occupancy of a single slot.
//
//	  empty: never written since the table was created or cleared
//	deleted: previously live, now a tombstone
//	   full: holds a live record
type slotState uint8

const (
	slotEmpty slotState = iota
	slotDeleted
	slotFull
)

func (s slotState) String() string {
	switch s {
	case slotEmpty:
		return "empty"
	case slotDeleted:
		return "deleted"
	case slotFull:
		return "full"
	}
	return fmt.Sprintf("slotState(%d)", uint8(s))
}

// Slot holds a key, a value and the slot's occupancy.
type Slot[V any] struct {
	key   string
	value V
	state slotState
}

// Table is the contract shared by string-keyed record tables.
type Table[V any] interface {
	// Update inserts the record or overwrites the value of an existing one.
	// It returns false if the key is new and the table cannot accept it.
	Update(key string, value V) bool
	// Remove deletes the record for key, returning false if there is none.
	Remove(key string) bool
	// Find returns the value stored for key.
	Find(key string) (V, bool)
	// IsEmpty reports whether the table holds no live records.
	IsEmpty() bool
	// NumRecords returns the number of live records.
	NumRecords() int
}

var _ Table[int] = (*LPTable[int])(nil)

// LPTable is a linear-probing hash table with string keys and a fixed
// capacity. The zero value is a closed table: it accepts no records until
// Init is called. An LPTable is not safe for concurrent use.
type LPTable[V any] struct {
	hash      hashFn
	allocator Allocator[V]
	slots     []Slot[V]
	// capacity is the number of physical slots, len(slots).
	capacity int
	// maxRecords caps the number of live records.
	maxRecords int
	// size is the number of live records. Tombstones are not counted.
	size int
	// deleted is the number of tombstones.
	deleted int
}

// New constructs a table able to hold maxExpected records in
// ceil(maxExpected*(1+percentOpen)) slots. A negative percentOpen gives a
// table with fewer slots than records; once those slots hold live records,
// Update of a new key fails even though NumRecords is below MaxRecords. It
// returns an error if maxExpected is not positive, percentOpen is not finite,
// or the slot count is not positive.
func New[V any](maxExpected int, percentOpen float64, options ...Option[V]) (*LPTable[V], error) {
	t := &LPTable[V]{}
	if err := t.Init(maxExpected, percentOpen, options...); err != nil {
		return nil, err
	}
	return t, nil
}

// MustNew is like New but panics if the configuration is invalid.
func MustNew[V any](maxExpected int, percentOpen float64, options ...Option[V]) *LPTable[V] {
	t, err := New[V](maxExpected, percentOpen, options...)
	if err != nil {
		panic(err)
	}
	return t
}

// Init initializes (or reinitializes) a table, releasing any storage it
// already owns. On error the table is left closed.
func (t *LPTable[V]) Init(maxExpected int, percentOpen float64, options ...Option[V]) error {
	t.Close()

	capacity, err := tableCapacity(maxExpected, percentOpen)
	if err != nil {
		return err
	}

	*t = LPTable[V]{
		hash:      defaultHash,
		allocator: defaultAllocator[V]{},
	}
	for _, op := range options {
		op.apply(t)
	}

	t.slots = t.allocator.AllocSlots(capacity)
	t.capacity = capacity
	t.maxRecords = maxExpected
	t.checkInvariants()
	return nil
}

// tableCapacity computes the physical slot count for the given
// configuration.
func tableCapacity(maxExpected int, percentOpen float64) (int, error) {
	if maxExpected <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidMaxExpected, maxExpected)
	}
	if math.IsNaN(percentOpen) || math.IsInf(percentOpen, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPercentOpen, percentOpen)
	}
	c := float64(maxExpected) * (1 + percentOpen)
	if r := math.Round(c); math.Abs(c-r) <= r*capacityTolerance {
		c = r
	} else {
		c = math.Ceil(c)
	}
	if c <= 0 || c > maxCapacity || c > float64(math.MaxInt) {
		return 0, fmt.Errorf("%w: maxExpected=%d percentOpen=%v gives %v slots",
			ErrInvalidCapacity, maxExpected, percentOpen, c)
	}
	return int(c), nil
}

// locateResult classifies the outcome of a search. If found, index is the
// slot holding the key. Otherwise insertAt is the slot an insertion of the
// key should use, or -1 if the search saw neither a tombstone nor an empty
// slot.
type locateResult struct {
	found    bool
	index    int
	insertAt int
}

// home returns the slot index key hashes to.
func (t *LPTable[V]) home(key string) int {
	return int(t.hash(key) % uint64(t.capacity))
}

// locate walks the search sequence for key. It looks at no more than
// capacity slots, so it terminates even when the table is saturated with
// tombstones and live records that do not match.
func (t *LPTable[V]) locate(key string) locateResult {
	res := locateResult{index: -1, insertAt: -1}
	if t.capacity == 0 {
		return res
	}

	i := t.home(key)
	if debug {
		fmt.Printf("locate(%q): home=%d capacity=%d\n", key, i, t.capacity)
	}

	for steps := 0; steps < t.capacity; steps++ {
		s := &t.slots[i]
		switch s.state {
		case slotEmpty:
			if res.insertAt < 0 {
				res.insertAt = i
			}
			if debug {
				fmt.Printf("locate(not-found): index=%d insert-at=%d steps=%d\n", i, res.insertAt, steps+1)
			}
			return res
		case slotDeleted:
			if res.insertAt < 0 {
				res.insertAt = i
			}
		case slotFull:
			if s.key == key {
				res.found = true
				res.index = i
				if debug {
					fmt.Printf("locate(found): index=%d steps=%d\n", i, steps+1)
				}
				return res
			}
		}

		if i++; i == t.capacity {
			i = 0
		}
	}

	if debug {
		fmt.Printf("locate(exhausted): insert-at=%d\n", res.insertAt)
	}
	return res
}

// Update inserts a record for key, or overwrites the value if key is already
// present. Inserting a new key fails, returning false, once the table holds
// MaxRecords live records or if no empty or deleted slot is available.
func (t *LPTable[V]) Update(key string, value V) bool {
	res := t.locate(key)
	if res.found {
		t.slots[res.index].value = value
		if debug {
			fmt.Printf("update(overwrite): key=%q index=%d\n", key, res.index)
		}
		return true
	}

	if res.insertAt < 0 || t.size >= t.maxRecords {
		if debug {
			fmt.Printf("update(full): key=%q size=%d max=%d insert-at=%d\n",
				key, t.size, t.maxRecords, res.insertAt)
		}
		return false
	}

	s := &t.slots[res.insertAt]
	if s.state == slotDeleted {
		t.deleted--
	}
	*s = Slot[V]{key: key, value: value, state: slotFull}
	t.size++
	if debug {
		fmt.Printf("update(insert): key=%q index=%d size=%d\n", key, res.insertAt, t.size)
	}
	t.checkInvariants()
	return true
}

// Remove deletes the record for key, leaving a tombstone in its slot. It
// returns false if key is not present.
func (t *LPTable[V]) Remove(key string) bool {
	res := t.locate(key)
	if !res.found {
		return false
	}

	// Tombstones hold no key or value.
	t.slots[res.index] = Slot[V]{state: slotDeleted}
	t.size--
	t.deleted++
	if debug {
		fmt.Printf("remove: key=%q index=%d size=%d\n", key, res.index, t.size)
	}
	t.checkInvariants()
	return true
}

// Find retrieves the value stored for key, returning ok=false if key is not
// present.
func (t *LPTable[V]) Find(key string) (value V, ok bool) {
	res := t.locate(key)
	if !res.found {
		return value, false
	}
	return t.slots[res.index].value, true
}

// IsEmpty returns true if the table holds no live records.
func (t *LPTable[V]) IsEmpty() bool {
	return t.size == 0
}

// NumRecords returns the number of live records.
func (t *LPTable[V]) NumRecords() int {
	return t.size
}

// Capacity returns the number of physical slots.
func (t *LPTable[V]) Capacity() int {
	return t.capacity
}

// MaxRecords returns the maximum number of live records.
func (t *LPTable[V]) MaxRecords() int {
	return t.maxRecords
}

// Tombstones returns the number of deleted slots.
func (t *LPTable[V]) Tombstones() int {
	return t.deleted
}

// All calls yield sequentially for each live record in slot order. If yield
// returns false, iteration stops. Mutating the table during iteration is
// permitted, but the mutations may or may not be observed.
func (t *LPTable[V]) All(yield func(key string, value V) bool) {
	slots := t.slots
	for i := range slots {
		if s := &slots[i]; s.state == slotFull {
			if !yield(s.key, s.value) {
				return
			}
		}
	}
}

// Clear deletes every record, tombstones included, keeping the storage.
func (t *LPTable[V]) Clear() {
	for i := range t.slots {
		t.slots[i] = Slot[V]{}
	}
	t.size = 0
	t.deleted = 0
	t.checkInvariants()
}

// Clone returns a deep copy of the table. The copy has the same capacity,
// the same slot layout (tombstones included) and its own storage, allocated
// from the same allocator. Values are copied by assignment.
func (t *LPTable[V]) Clone() *LPTable[V] {
	c := &LPTable[V]{}
	c.copyFrom(t)
	return c
}

// CopyFrom replaces the contents of t with a deep copy of src, releasing any
// storage t owns first. Copying a table onto itself is a no-op.
func (t *LPTable[V]) CopyFrom(src *LPTable[V]) {
	if t == src {
		return
	}
	t.Close()
	t.copyFrom(src)
}

// copyFrom copies src into t, which must own no storage.
func (t *LPTable[V]) copyFrom(src *LPTable[V]) {
	*t = LPTable[V]{
		hash:       src.hash,
		allocator:  src.allocator,
		capacity:   src.capacity,
		maxRecords: src.maxRecords,
		size:       src.size,
		deleted:    src.deleted,
	}
	if src.capacity > 0 {
		t.slots = t.allocator.AllocSlots(src.capacity)
		copy(t.slots, src.slots)
	}
	t.checkInvariants()
}

// Move transfers the contents of t to a new table in constant time. t is
// left closed: it may be closed again or reinitialized via Init, CopyFrom or
// MoveFrom, but holds no records.
func (t *LPTable[V]) Move() *LPTable[V] {
	m := &LPTable[V]{}
	m.moveFrom(t)
	return m
}

// MoveFrom replaces the contents of t with those of src, releasing any
// storage t owns first. src is left closed. Moving a table onto itself is a
// no-op.
func (t *LPTable[V]) MoveFrom(src *LPTable[V]) {
	if t == src {
		return
	}
	t.Close()
	t.moveFrom(src)
}

// moveFrom takes over the storage of src, which t must not own any of.
func (t *LPTable[V]) moveFrom(src *LPTable[V]) {
	*t = *src
	*src = LPTable[V]{}
	t.checkInvariants()
}

// Close releases the table's storage back to its allocator. It is
// unnecessary to close a table using the default allocator. A closed table
// holds no records and rejects every Update; Close itself is idempotent.
func (t *LPTable[V]) Close() {
	if t.slots != nil && t.allocator != nil {
		for i := range t.slots {
			t.slots[i] = Slot[V]{}
		}
		t.allocator.FreeSlots(t.slots)
	}
	*t = LPTable[V]{}
}

// Stats describes the occupancy of a table.
type Stats struct {
	Size       int
	Tombstones int
	Empty      int
	Capacity   int
	MaxRecords int
	// LoadFactor is Size/Capacity.
	LoadFactor float64
	// MaxSearchLength is the greatest number of slots examined to find any
	// live record.
	MaxSearchLength int
}

// Stats returns occupancy statistics for the table. It walks every slot and
// so is O(capacity).
func (t *LPTable[V]) Stats() Stats {
	s := Stats{
		Capacity:   t.capacity,
		MaxRecords: t.maxRecords,
	}
	for i := range t.slots {
		switch t.slots[i].state {
		case slotEmpty:
			s.Empty++
		case slotDeleted:
			s.Tombstones++
		case slotFull:
			s.Size++
			if n := t.searchLength(i); n > s.MaxSearchLength {
				s.MaxSearchLength = n
			}
		}
	}
	if t.capacity > 0 {
		s.LoadFactor = float64(s.Size) / float64(t.capacity)
	}
	return s
}

// searchLength returns the number of slots a lookup examines to reach the
// live record at index i.
func (t *LPTable[V]) searchLength(i int) int {
	h := t.home(t.slots[i].key)
	if i >= h {
		return i - h + 1
	}
	return t.capacity - h + i + 1
}

func (t *LPTable[V]) checkInvariants() {
	if invariants {
		if len(t.slots) != t.capacity {
			panic(fmt.Sprintf("invariant failed: %d slots, but capacity is %d\n%s",
				len(t.slots), t.capacity, t.debugString()))
		}
		if t.size < 0 || t.size > t.maxRecords {
			panic(fmt.Sprintf("invariant failed: size %d outside [0, %d]\n%s",
				t.size, t.maxRecords, t.debugString()))
		}

		// Every live key must be reachable from its home position without
		// crossing an empty slot, and must appear only once.
		seen := make(map[string]int, t.size)
		var used, deleted int
		for i := range t.slots {
			s := &t.slots[i]
			switch s.state {
			case slotDeleted:
				deleted++
			case slotFull:
				if j, ok := seen[s.key]; ok {
					panic(fmt.Sprintf("invariant failed: key %q in slots %d and %d\n%s",
						s.key, j, i, t.debugString()))
				}
				seen[s.key] = i
				for j := t.home(s.key); j != i; {
					if t.slots[j].state == slotEmpty {
						panic(fmt.Sprintf("invariant failed: slot(%d): %q unreachable, empty slot %d on search path\n%s",
							i, s.key, j, t.debugString()))
					}
					if j++; j == t.capacity {
						j = 0
					}
				}
				if res := t.locate(s.key); !res.found || res.index != i {
					panic(fmt.Sprintf("invariant failed: slot(%d): %q not found\n%s",
						i, s.key, t.debugString()))
				}
				used++
			}
		}

		if used != t.size {
			panic(fmt.Sprintf("invariant failed: found %d live slots, but size is %d\n%s",
				used, t.size, t.debugString()))
		}
		if deleted != t.deleted {
			panic(fmt.Sprintf("invariant failed: found %d deleted slots, but tombstone count is %d\n%s",
				deleted, t.deleted, t.debugString()))
		}
	}
}

func (t *LPTable[V]) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "capacity=%d  max-records=%d  size=%d  deleted=%d\n",
		t.capacity, t.maxRecords, t.size, t.deleted)
	for i := range t.slots {
		switch s := &t.slots[i]; s.state {
		case slotEmpty:
			fmt.Fprintf(&buf, "  %4d: empty\n", i)
		case slotDeleted:
			fmt.Fprintf(&buf, "  %4d: deleted\n", i)
		default:
			fmt.Fprintf(&buf, "  %4d: %q [home=%d]\n", i, s.key, t.home(s.key))
		}
	}
	return buf.String()
}
