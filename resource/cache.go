// Copyright (c) 2020 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package resource manages GPU-side objects keyed by logical
// descriptors, with reference-counted lifetimes tied to in-flight
// frames. Objects live in an indexed table owned solely by the Cache;
// everything else holds handles, never the objects themselves.
package resource

import (
	"fmt"
	"sync"
)

// Descriptor identifies a resource logically. Implementations must be
// comparable value types, two equal descriptors describe the same
// resource.
type Descriptor interface{}

// Object is a realized GPU resource.
type Object interface {

	// Release destroys the underlying GPU object. Called by the
	// Cache only, and never while the object may still be
	// referenced by an in-flight frame.
	Release()
}

// Factory realizes descriptors into GPU objects. A memory-exhausted
// factory returns an error wrapping core.AllocationError, which the
// Cache propagates without retrying.
type Factory interface {
	Realize(desc Descriptor) (Object, error)
}

// Frame is the part of the frame scheduler the Cache needs: a hook
// that fires when the frame's fence is observed signaled.
type Frame interface {
	OnRetire(func())
}

// Handle is an opaque reference into the cache table. The zero Handle
// is invalid.
type Handle struct {
	index uint32
	gen   uint32
}

// Valid reports whether the handle ever pointed at an entry.
func (h Handle) Valid() bool {
	return h.gen != 0
}

type entry struct {
	desc     Descriptor
	obj      Object
	gen      uint32
	refs     int
	inflight int
	dead     bool
}

// NewCache creates an empty cache backed by the given factory.
func NewCache(factory Factory) *Cache {
	return &Cache{
		factory: factory,
		lookup:  make(map[Descriptor]uint32),
	}
}

// Cache memoizes realized resources by descriptor. Loader goroutines
// may hand resources over concurrently, all state is guarded by one
// mutex.
type Cache struct {
	mu      sync.Mutex
	factory Factory

	entries   []entry
	free      []uint32
	lookup    map[Descriptor]uint32
	graveyard []uint32
	epoch     uint64
}

// Acquire returns the handle for desc, realizing and memoizing the
// resource on first use. Repeated calls with an identical descriptor
// within the same epoch return the identical handle. Each call adds
// one user reference.
func (c *Cache) Acquire(desc Descriptor) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if idx, ok := c.lookup[desc]; ok {
		e := &c.entries[idx]
		e.refs++
		return Handle{index: idx, gen: e.gen}, nil
	}

	obj, err := c.factory.Realize(desc)
	if err != nil {
		return Handle{}, fmt.Errorf("realize %v: %w", desc, err)
	}

	idx := c.alloc()
	e := &c.entries[idx]
	e.desc = desc
	e.obj = obj
	e.refs = 1
	e.inflight = 0
	e.dead = false

	c.lookup[desc] = idx
	return Handle{index: idx, gen: e.gen}, nil
}

// Get returns the realized object behind h, or false when the handle
// is stale.
func (c *Cache) Get(h Handle) (Object, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.at(h)
	if e == nil {
		return nil, false
	}
	return e.obj, true
}

// Release drops one user reference. When the count reaches zero and
// no in-flight frame references the resource, destruction is deferred
// to the next completed frame boundary.
func (c *Cache) Release(h Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.at(h)
	if e == nil {
		return
	}
	if e.refs > 0 {
		e.refs--
	}
	if e.refs == 0 && !e.dead {
		c.bury(h.index)
	}
}

// Use marks h as referenced by frame's pending submission. The
// in-flight count drops when the frame's fence is observed signaled.
func (c *Cache) Use(h Handle, frame Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.at(h)
	if e == nil {
		return
	}
	e.inflight++
	frame.OnRetire(func() { c.retire(h) })
}

// Evict schedules destruction of every resource whose descriptor
// matches pred, such as extent-dependent attachments on resize. The
// actual free is deferred past any in-flight frame. Evict starts a new
// cache epoch.
func (c *Cache) Evict(pred func(Descriptor) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for desc, idx := range c.lookup {
		if pred(desc) {
			c.bury(idx)
		}
	}
	c.epoch++
}

// Collect frees buried resources that no in-flight frame references
// anymore. Call once per frame boundary and after shutdown drains.
func (c *Cache) Collect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.graveyard[:0]
	for _, idx := range c.graveyard {
		e := &c.entries[idx]
		if e.inflight > 0 {
			kept = append(kept, idx)
			continue
		}
		c.destroy(idx)
	}
	c.graveyard = kept
}

// Epoch returns the current cache epoch. Memoization is only
// guaranteed within one epoch.
func (c *Cache) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// Len returns the number of live entries, buried ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int
	for i := range c.entries {
		if c.entries[i].obj != nil {
			n++
		}
	}
	return n
}

// retire drops one in-flight reference, fired from a frame retirement
// hook. A buried entry with no remaining references is freed right
// here: the fence observation is exactly the completed frame boundary.
func (c *Cache) retire(h Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.at(h)
	if e == nil {
		return
	}
	if e.inflight > 0 {
		e.inflight--
	}
	if e.dead && e.refs == 0 && e.inflight == 0 {
		c.destroy(h.index)
		c.unbury(h.index)
	}
}

// bury removes the entry from lookup and queues destruction. Callers
// hold the mutex.
func (c *Cache) bury(idx uint32) {
	e := &c.entries[idx]
	if e.dead || e.obj == nil {
		return
	}
	e.dead = true
	delete(c.lookup, e.desc)
	c.graveyard = append(c.graveyard, idx)
}

func (c *Cache) unbury(idx uint32) {
	for i, g := range c.graveyard {
		if g == idx {
			c.graveyard = append(c.graveyard[:i], c.graveyard[i+1:]...)
			return
		}
	}
}

// destroy releases the object and recycles the table slot. Callers
// hold the mutex and have checked the in-flight count.
func (c *Cache) destroy(idx uint32) {
	e := &c.entries[idx]
	if e.obj == nil {
		return
	}
	e.obj.Release()
	e.obj = nil
	e.desc = nil
	e.dead = false
	e.gen++
	c.free = append(c.free, idx)
}

func (c *Cache) alloc() uint32 {
	if n := len(c.free); n > 0 {
		idx := c.free[n-1]
		c.free = c.free[:n-1]
		return idx
	}
	c.entries = append(c.entries, entry{gen: 1})
	return uint32(len(c.entries) - 1)
}

func (c *Cache) at(h Handle) *entry {
	if !h.Valid() || h.index >= uint32(len(c.entries)) {
		return nil
	}
	e := &c.entries[h.index]
	if e.gen != h.gen || e.obj == nil {
		return nil
	}
	return e
}
