// Copyright (c) 2020 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/devblok/maru/core"
)

// ErrFrameSkipped is returned by Begin when no frame can be produced
// right now, such as after a swapchain rebuild, an acquisition timeout
// or a minimized window. The caller should simply try again on the
// next tick.
var ErrFrameSkipped = errors.New("frame skipped")

// SlotState tracks a frame slot through its lifecycle.
type SlotState int

// Frame slot states. A slot moves strictly
// Idle → Acquiring → Recording → Submitted → Presenting and back to
// Idle once its fence is observed on the next reuse.
const (
	SlotIdle SlotState = iota
	SlotAcquiring
	SlotRecording
	SlotSubmitted
	SlotPresenting
)

type frameSlot struct {
	imageAvailable Semaphore
	renderFinished Semaphore
	fence          Fence
	commands       CommandBuffer

	state   SlotState
	pending bool
	retire  []func()
}

// SchedulerOptions tune the frame scheduler.
type SchedulerOptions struct {
	// FramesInFlight is the ring size, 2 or 3. Values below 2 are
	// raised to 2.
	FramesInFlight int

	// AcquireTimeout bounds the wait for the next swapchain image.
	AcquireTimeout time.Duration

	// FenceTimeout bounds the wait on a slot fence at reuse and
	// during drains.
	FenceTimeout time.Duration
}

func (o *SchedulerOptions) defaults() {
	if o.FramesInFlight < 2 {
		o.FramesInFlight = 2
	}
	if o.AcquireTimeout == 0 {
		o.AcquireTimeout = 100 * time.Millisecond
	}
	if o.FenceTimeout == 0 {
		o.FenceTimeout = 2 * time.Second
	}
}

// NewFrameScheduler creates the per-frame synchronization ring. Each
// slot owns an image-available and render-finished semaphore pair, a
// fence and a command buffer, reused cyclically until Shutdown.
func NewFrameScheduler(dev Device, chain *SwapchainManager, opts SchedulerOptions) (*FrameScheduler, error) {
	opts.defaults()

	s := &FrameScheduler{
		device: dev,
		chain:  chain,
		opts:   opts,
	}

	for i := 0; i < opts.FramesInFlight; i++ {
		slot := &frameSlot{}

		var err error
		if slot.imageAvailable, err = dev.NewSemaphore(); err != nil {
			return nil, fmt.Errorf("frame slot %d: %w", i, err)
		}
		if slot.renderFinished, err = dev.NewSemaphore(); err != nil {
			return nil, fmt.Errorf("frame slot %d: %w", i, err)
		}
		if slot.fence, err = dev.NewFence(false); err != nil {
			return nil, fmt.Errorf("frame slot %d: %w", i, err)
		}
		if slot.commands, err = dev.NewCommandBuffer(); err != nil {
			return nil, fmt.Errorf("frame slot %d: %w", i, err)
		}
		s.slots = append(s.slots, slot)
	}

	return s, nil
}

// FrameScheduler coordinates acquire, record, submit and present
// across a small ring of in-flight frames. A single rendering thread
// drives it; the GPU works asynchronously behind the semaphore and
// fence pairs of each slot.
type FrameScheduler struct {
	device Device
	chain  *SwapchainManager
	opts   SchedulerOptions

	slots []*frameSlot
	next  int

	// inflight mirrors the pending slot count for readers outside the
	// rendering goroutine, such as stats reporting.
	inflight atomic.Int32

	wantRebuild bool
	skipStreak  int
}

// RequestRebuild marks the swapchain stale, typically from a window
// resize notification. The rebuild happens before the next acquire.
func (s *FrameScheduler) RequestRebuild() {
	s.wantRebuild = true
}

// Begin starts the next frame: it waits for the slot's previous fence,
// runs the slot's retirement callbacks, then acquires a swapchain
// image. Returns ErrFrameSkipped when frame production must pause.
func (s *FrameScheduler) Begin() (*Frame, error) {
	chain, _ := s.chain.Chain()
	if chain == nil || s.wantRebuild {
		if err := s.rebuild(); err != nil {
			if errors.Is(err, core.ErrZeroExtent) {
				return nil, ErrFrameSkipped
			}
			return nil, err
		}
	}
	chain, _ = s.chain.Chain()

	slot := s.slots[s.next]
	if slot.pending {
		if err := slot.fence.Wait(s.opts.FenceTimeout); err != nil {
			return nil, fmt.Errorf("slot %d fence: %w", s.next, err)
		}
		s.retireSlot(slot)
	}

	slot.state = SlotAcquiring
	image, err := chain.Acquire(s.opts.AcquireTimeout, slot.imageAvailable)
	switch {
	case errors.Is(err, core.ErrOutOfDate):
		slot.state = SlotIdle
		if err := s.rebuild(); err != nil && !errors.Is(err, core.ErrZeroExtent) {
			return nil, err
		}
		return nil, ErrFrameSkipped
	case errors.Is(err, core.ErrTimeout):
		// A minimized window stalls acquisition indefinitely.
		// Skip frame production instead of spinning on empty
		// submissions.
		slot.state = SlotIdle
		s.skipStreak++
		if s.skipStreak == 1 || s.skipStreak%100 == 0 {
			log.WithField("streak", s.skipStreak).Debug("Frame acquisition timed out, skipping")
		}
		return nil, ErrFrameSkipped
	case errors.Is(err, core.ErrSuboptimal):
		// The image is still usable, rebuild before the next frame.
		s.wantRebuild = true
	case err != nil:
		slot.state = SlotIdle
		return nil, fmt.Errorf("acquire image: %w", err)
	}

	s.skipStreak = 0
	slot.state = SlotRecording
	if err := slot.commands.Reset(); err != nil {
		slot.state = SlotIdle
		return nil, err
	}

	s.next = (s.next + 1) % len(s.slots)

	return &Frame{
		ImageIndex: image,
		scheduler:  s,
		slot:       slot,
		chain:      chain,
	}, nil
}

// InFlight returns the number of slots whose fences have not yet been
// observed signaled. Safe to call from any goroutine.
func (s *FrameScheduler) InFlight() int {
	return int(s.inflight.Load())
}

// SlotStates returns the current state of every slot in ring order.
func (s *FrameScheduler) SlotStates() []SlotState {
	states := make([]SlotState, len(s.slots))
	for i, slot := range s.slots {
		states[i] = slot.state
	}
	return states
}

// Shutdown drains every in-flight frame, waits for the device queues
// to idle and destroys the slot primitives. No resource is freed
// before all fences are observed signaled.
func (s *FrameScheduler) Shutdown() error {
	if err := s.drain(); err != nil {
		return err
	}
	if err := s.device.WaitIdle(); err != nil {
		return err
	}
	for _, slot := range s.slots {
		slot.imageAvailable.Release()
		slot.renderFinished.Release()
		slot.fence.Release()
	}
	s.slots = nil
	s.chain.Release()
	return nil
}

// rebuild asks the swapchain manager for a fresh chain, draining all
// in-flight frames first so none of them can reference the old one.
func (s *FrameScheduler) rebuild() error {
	if err := s.chain.Rebuild(s.drain); err != nil {
		return err
	}
	s.wantRebuild = false
	return nil
}

func (s *FrameScheduler) drain() error {
	for i, slot := range s.slots {
		if !slot.pending {
			continue
		}
		if err := slot.fence.Wait(s.opts.FenceTimeout); err != nil {
			return fmt.Errorf("drain slot %d: %w", i, err)
		}
		s.retireSlot(slot)
	}
	return nil
}

func (s *FrameScheduler) retireSlot(slot *frameSlot) {
	for _, fn := range slot.retire {
		fn()
	}
	slot.retire = nil
	if slot.pending {
		slot.pending = false
		s.inflight.Add(-1)
	}
	slot.fence.Reset()
	slot.state = SlotIdle
}

// Frame is a single frame in the Recording state. The caller records
// commands into Commands, registers referenced resources through
// OnRetire, then calls Submit exactly once.
type Frame struct {
	// ImageIndex is the acquired swapchain image.
	ImageIndex uint32

	scheduler *FrameScheduler
	slot      *frameSlot
	chain     Swapchain
	done      bool
}

// Commands returns the slot's command buffer for recording.
func (f *Frame) Commands() CommandBuffer {
	return f.slot.commands
}

// Extent returns the extent of the swapchain this frame draws into.
func (f *Frame) Extent() Extent2D {
	return f.chain.Extent()
}

// Chain returns the swapchain the frame's image was acquired from.
func (f *Frame) Chain() Swapchain {
	return f.chain
}

// OnRetire registers fn to run when this frame's fence is observed
// signaled. Resource in-flight counts are dropped through this hook.
func (f *Frame) OnRetire(fn func()) {
	f.slot.retire = append(f.slot.retire, fn)
}

// Submit hands the recorded commands to the device queue, waiting on
// image-available, signaling render-finished and the slot fence, then
// queues presentation. An out of date or suboptimal present result
// rebuilds the swapchain and retires the slot without presenting.
func (f *Frame) Submit() error {
	if f.done {
		return errors.New("frame already submitted")
	}
	f.done = true

	slot := f.slot
	slot.state = SlotSubmitted
	if err := f.scheduler.device.Submit(
		[]CommandBuffer{slot.commands},
		[]Semaphore{slot.imageAvailable},
		[]Semaphore{slot.renderFinished},
		slot.fence,
	); err != nil {
		slot.state = SlotIdle
		return fmt.Errorf("submit: %w", err)
	}
	slot.pending = true
	f.scheduler.inflight.Add(1)

	slot.state = SlotPresenting
	err := f.scheduler.device.Present(f.chain, f.ImageIndex, slot.renderFinished)
	switch {
	case errors.Is(err, core.ErrOutOfDate), errors.Is(err, core.ErrSuboptimal):
		log.WithField("image", f.ImageIndex).Debug("Present invalidated swapchain")
		if rerr := f.scheduler.rebuild(); rerr != nil && !errors.Is(rerr, core.ErrZeroExtent) {
			return rerr
		}
		return nil
	case err != nil:
		return fmt.Errorf("present: %w", err)
	}

	// The slot stays in the Presenting state until its fence is
	// observed by the next cycle reusing it. That wait is what bounds
	// the in-flight frame count to the ring size.
	return nil
}
