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

package lptable

// Option provides an interface to do work on an LPTable while it is being
// initialized.
type Option[V any] interface {
	apply(t *LPTable[V])
}

type hashOption[V any] struct {
	hash hashFn
}

func (op hashOption[V]) apply(t *LPTable[V]) {
	if op.hash != nil {
		t.hash = op.hash
	}
}

// WithHash is an option to specify the hash function to use for an
// LPTable[V]. A key's home slot is hash(key) modulo the table capacity, so
// the low bits of the hash should be well distributed. A nil hash leaves the
// default in place.
func WithHash[V any](hash func(key string) uint64) Option[V] {
	return hashOption[V]{hash}
}

// Allocator specifies an interface for allocating and releasing the slot
// storage used by an LPTable. The default allocator utilizes Go's builtin
// make() and allows the GC to reclaim memory.
//
// If the allocator is manually managing memory and requires that slots be
// freed then LPTable.Close must be called in order to ensure FreeSlots is
// called. CopyFrom, MoveFrom and Init also free the storage a table owns
// before replacing it.
type Allocator[V any] interface {
	// AllocSlots should return a slice equivalent to make([]Slot[V], n).
	AllocSlots(n int) []Slot[V]

	// FreeSlots can optionally release the memory associated with the
	// supplied slice that is guaranteed to have been allocated by AllocSlots.
	// The slots have been reset to their zero value.
	FreeSlots(v []Slot[V])
}

type defaultAllocator[V any] struct{}

func (defaultAllocator[V]) AllocSlots(n int) []Slot[V] {
	return make([]Slot[V], n)
}

func (defaultAllocator[V]) FreeSlots(v []Slot[V]) {
}

type allocatorOption[V any] struct {
	allocator Allocator[V]
}

func (op allocatorOption[V]) apply(t *LPTable[V]) {
	if op.allocator != nil {
		t.allocator = op.allocator
	}
}

// WithAllocator is an option for specifying the Allocator to use for an
// LPTable[V].
func WithAllocator[V any](allocator Allocator[V]) Option[V] {
	return allocatorOption[V]{allocator}
}
