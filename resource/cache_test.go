// Copyright (c) 2020 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devblok/maru/core"
	"github.com/devblok/maru/resource"
)

type fakeObject struct {
	released bool
}

func (o *fakeObject) Release() {
	o.released = true
}

type fakeFactory struct {
	realized int
	fail     error
	objects  []*fakeObject
}

func (f *fakeFactory) Realize(desc resource.Descriptor) (resource.Object, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	f.realized++
	obj := &fakeObject{}
	f.objects = append(f.objects, obj)
	return obj, nil
}

// fakeFrame collects retirement hooks the way a frame slot does and
// fires them when the fake fence is observed.
type fakeFrame struct {
	hooks []func()
}

func (f *fakeFrame) OnRetire(fn func()) {
	f.hooks = append(f.hooks, fn)
}

func (f *fakeFrame) observeFence() {
	for _, fn := range f.hooks {
		fn()
	}
	f.hooks = nil
}

func TestAcquireMemoizes(t *testing.T) {
	factory := &fakeFactory{}
	cache := resource.NewCache(factory)

	desc := resource.BufferDescriptor{Label: "vertices", Size: 1024, Usage: resource.BufferUsageVertex}

	first, err := cache.Acquire(desc)
	require.NoError(t, err)
	second, err := cache.Acquire(desc)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, factory.realized)
	assert.Equal(t, 1, cache.Len())

	obj1, ok := cache.Get(first)
	require.True(t, ok)
	obj2, ok := cache.Get(second)
	require.True(t, ok)
	assert.Same(t, obj1, obj2)
}

func TestDistinctDescriptorsDistinctObjects(t *testing.T) {
	factory := &fakeFactory{}
	cache := resource.NewCache(factory)

	a, err := cache.Acquire(resource.BufferDescriptor{Label: "a", Size: 64})
	require.NoError(t, err)
	b, err := cache.Acquire(resource.BufferDescriptor{Label: "b", Size: 64})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, factory.realized)
}

func TestReleaseDefersDestructionToCollect(t *testing.T) {
	factory := &fakeFactory{}
	cache := resource.NewCache(factory)

	h, err := cache.Acquire(resource.BufferDescriptor{Label: "transient", Size: 16})
	require.NoError(t, err)

	cache.Release(h)
	assert.False(t, factory.objects[0].released, "free must wait for the frame boundary")

	cache.Collect()
	assert.True(t, factory.objects[0].released)

	_, ok := cache.Get(h)
	assert.False(t, ok, "handle must be stale after destruction")
}

func TestInFlightFramesDelayFree(t *testing.T) {
	factory := &fakeFactory{}
	cache := resource.NewCache(factory)

	h, err := cache.Acquire(resource.BufferDescriptor{Label: "uniforms", Size: 256})
	require.NoError(t, err)

	frames := []*fakeFrame{{}, {}, {}}
	for _, frame := range frames {
		cache.Use(h, frame)
	}

	cache.Release(h)
	cache.Collect()
	assert.False(t, factory.objects[0].released, "three frames still reference the object")

	frames[0].observeFence()
	frames[1].observeFence()
	assert.False(t, factory.objects[0].released, "one frame still references the object")

	frames[2].observeFence()
	assert.True(t, factory.objects[0].released, "last fence observation is the free point")
}

func TestUseAfterReleaseKeepsObjectAlive(t *testing.T) {
	factory := &fakeFactory{}
	cache := resource.NewCache(factory)

	h, err := cache.Acquire(resource.BufferDescriptor{Label: "mesh", Size: 4096})
	require.NoError(t, err)

	frame := &fakeFrame{}
	cache.Use(h, frame)
	cache.Release(h)

	obj, ok := cache.Get(h)
	assert.True(t, ok)
	assert.False(t, obj.(*fakeObject).released)

	frame.observeFence()
	assert.True(t, factory.objects[0].released)
}

func TestEvictStartsNewEpoch(t *testing.T) {
	factory := &fakeFactory{}
	cache := resource.NewCache(factory)

	small := resource.ImageDescriptor{Label: "color", Width: 800, Height: 600, Usage: resource.ImageUsageColorAttachment}
	texture := resource.ImageDescriptor{Label: "albedo", Width: 512, Height: 512, Usage: resource.ImageUsageSampled}

	first, err := cache.Acquire(small)
	require.NoError(t, err)
	tex, err := cache.Acquire(texture)
	require.NoError(t, err)

	epoch := cache.Epoch()
	cache.Evict(func(desc resource.Descriptor) bool {
		img, ok := desc.(resource.ImageDescriptor)
		return ok && img.Usage == resource.ImageUsageColorAttachment
	})
	assert.Equal(t, epoch+1, cache.Epoch())

	// The attachment realizes anew, the texture stays memoized.
	second, err := cache.Acquire(small)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	texAgain, err := cache.Acquire(texture)
	require.NoError(t, err)
	assert.Equal(t, tex, texAgain)

	cache.Collect()
	assert.True(t, factory.objects[0].released)
	assert.False(t, factory.objects[1].released)
}

func TestEvictedButInFlightSurvivesCollect(t *testing.T) {
	factory := &fakeFactory{}
	cache := resource.NewCache(factory)

	h, err := cache.Acquire(resource.ImageDescriptor{Label: "depth", Width: 800, Height: 600, Usage: resource.ImageUsageDepthAttachment})
	require.NoError(t, err)

	frame := &fakeFrame{}
	cache.Use(h, frame)
	cache.Release(h)
	cache.Evict(func(resource.Descriptor) bool { return true })

	cache.Collect()
	assert.False(t, factory.objects[0].released)

	frame.observeFence()
	assert.True(t, factory.objects[0].released)
}

func TestAllocationFailurePropagates(t *testing.T) {
	allocErr := &core.AllocationError{Size: 1 << 30, Err: errors.New("device heap exhausted")}
	factory := &fakeFactory{fail: fmt.Errorf("realize buffer: %w", allocErr)}
	cache := resource.NewCache(factory)

	_, err := cache.Acquire(resource.BufferDescriptor{Label: "huge", Size: 1 << 30})
	require.Error(t, err)

	var target *core.AllocationError
	assert.ErrorAs(t, err, &target)
	assert.Equal(t, 0, cache.Len())
}

func TestStaleHandleAfterSlotReuse(t *testing.T) {
	factory := &fakeFactory{}
	cache := resource.NewCache(factory)

	old, err := cache.Acquire(resource.BufferDescriptor{Label: "first", Size: 8})
	require.NoError(t, err)
	cache.Release(old)
	cache.Collect()

	// The freed table slot gets recycled for the next resource.
	fresh, err := cache.Acquire(resource.BufferDescriptor{Label: "second", Size: 8})
	require.NoError(t, err)

	_, ok := cache.Get(old)
	assert.False(t, ok, "stale handle must not resolve to the new occupant")
	_, ok = cache.Get(fresh)
	assert.True(t, ok)
}

func TestZeroHandleInvalid(t *testing.T) {
	cache := resource.NewCache(&fakeFactory{})

	var h resource.Handle
	assert.False(t, h.Valid())
	_, ok := cache.Get(h)
	assert.False(t, ok)

	// No-ops, must not panic.
	cache.Release(h)
	cache.Use(h, &fakeFrame{})
}
