// Copyright (c) 2020 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx_test

import (
	"fmt"
	"time"

	"github.com/devblok/maru/gfx"
)

// The fakes model an instantly-completing GPU: submitted work signals
// its fence right away. Every lifecycle action lands in the shared
// event log so tests can assert ordering.

type eventLog struct {
	events []string
}

func (l *eventLog) add(format string, args ...interface{}) {
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

type fakeFence struct {
	log      *eventLog
	id       int
	signaled bool
	released bool
}

func (f *fakeFence) Wait(timeout time.Duration) error {
	f.log.add("wait fence %d", f.id)
	return nil
}

func (f *fakeFence) Signaled() bool { return f.signaled }

func (f *fakeFence) Reset() error {
	f.signaled = false
	return nil
}

func (f *fakeFence) Release() { f.released = true }

type fakeSemaphore struct {
	released bool
}

func (s *fakeSemaphore) Release() { s.released = true }

type fakeCommandBuffer struct {
	resets int
}

func (c *fakeCommandBuffer) Reset() error {
	c.resets++
	return nil
}

func (c *fakeCommandBuffer) Inner() interface{} { return c }

type fakeSwapchain struct {
	log        *eventLog
	id         int
	extent     gfx.Extent2D
	imageCount int
	released   bool

	// acquireErrs scripts errors for successive Acquire calls, nil
	// meaning success. Past the end every call succeeds.
	acquireErrs []error
	acquires    int
}

func (s *fakeSwapchain) Acquire(timeout time.Duration, sem gfx.Semaphore) (uint32, error) {
	call := s.acquires
	s.acquires++
	if call < len(s.acquireErrs) && s.acquireErrs[call] != nil {
		return 0, s.acquireErrs[call]
	}
	return uint32(call % s.imageCount), nil
}

func (s *fakeSwapchain) ImageCount() int      { return s.imageCount }
func (s *fakeSwapchain) Extent() gfx.Extent2D { return s.extent }

func (s *fakeSwapchain) Release() {
	s.released = true
	s.log.add("release chain %d", s.id)
}

type fakeChainFactory struct {
	log    *eventLog
	built  []*fakeSwapchain
	script []*fakeSwapchain
}

func (f *fakeChainFactory) Build(extent gfx.Extent2D, old gfx.Swapchain) (gfx.Swapchain, error) {
	var chain *fakeSwapchain
	if len(f.script) > 0 {
		chain = f.script[0]
		f.script = f.script[1:]
	} else {
		chain = &fakeSwapchain{imageCount: 3}
	}
	chain.log = f.log
	chain.id = len(f.built)
	chain.extent = extent
	f.built = append(f.built, chain)
	f.log.add("build chain %d", chain.id)
	return chain, nil
}

type fakeDevice struct {
	log *eventLog

	fences     []*fakeFence
	semaphores []*fakeSemaphore
	buffers    []*fakeCommandBuffer

	submits int
	idles   int

	// presentErrs scripts errors for successive Present calls.
	presentErrs []error
	presents    int
}

func (d *fakeDevice) NewFence(signaled bool) (gfx.Fence, error) {
	f := &fakeFence{log: d.log, id: len(d.fences), signaled: signaled}
	d.fences = append(d.fences, f)
	return f, nil
}

func (d *fakeDevice) NewSemaphore() (gfx.Semaphore, error) {
	s := &fakeSemaphore{}
	d.semaphores = append(d.semaphores, s)
	return s, nil
}

func (d *fakeDevice) NewCommandBuffer() (gfx.CommandBuffer, error) {
	c := &fakeCommandBuffer{}
	d.buffers = append(d.buffers, c)
	return c, nil
}

func (d *fakeDevice) Submit(cmds []gfx.CommandBuffer, waits, signals []gfx.Semaphore, fence gfx.Fence) error {
	d.submits++
	d.log.add("submit %d", d.submits)
	if fence != nil {
		fence.(*fakeFence).signaled = true
	}
	return nil
}

func (d *fakeDevice) Present(chain gfx.Swapchain, image uint32, wait gfx.Semaphore) error {
	call := d.presents
	d.presents++
	d.log.add("present image %d", image)
	if call < len(d.presentErrs) {
		return d.presentErrs[call]
	}
	return nil
}

func (d *fakeDevice) WaitIdle() error {
	d.idles++
	d.log.add("wait idle")
	return nil
}

func extentFunc(w, h uint32) gfx.ExtentFunc {
	return func() (gfx.Extent2D, error) {
		return gfx.Extent2D{Width: w, Height: h}, nil
	}
}
