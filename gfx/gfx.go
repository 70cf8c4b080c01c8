// Copyright (c) 2020 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gfx defines the driver-neutral device, swapchain and frame
// lifecycle interfaces that concrete backends must implement.
package gfx

import (
	"time"
)

// Extent2D is a drawable surface size in pixels.
type Extent2D struct {
	Width  uint32
	Height uint32
}

// Zero reports whether the extent has no drawable area.
func (e Extent2D) Zero() bool {
	return e.Width == 0 || e.Height == 0
}

// Releasable defines any memory-occupying item that can be freed.
type Releasable interface {

	// Release releases memory occupied by the implementing structure.
	Release()
}

// Fence is a device-signaled synchronization primitive that the CPU
// can observe and wait on.
type Fence interface {
	Releasable

	// Wait blocks until the fence signals or the timeout elapses,
	// in which case core.ErrTimeout is returned.
	Wait(timeout time.Duration) error

	// Signaled reports the fence status without blocking.
	Signaled() bool

	// Reset returns the fence to the unsignaled state.
	Reset() error
}

// Semaphore orders queue operations on the device. It has no CPU
// visibility beyond its lifetime.
type Semaphore interface {
	Releasable
}

// CommandBuffer records device commands for a single submission.
type CommandBuffer interface {

	// Reset discards previously recorded commands.
	Reset() error

	// Inner returns the inner handle of the underlying API
	Inner() interface{}
}

// Swapchain is an ordered set of presentable images tied to a surface.
type Swapchain interface {
	Releasable

	// Acquire requests the next presentable image, signaling sem once
	// the image is usable. Returns the image index, or one of
	// core.ErrOutOfDate, core.ErrSuboptimal, core.ErrTimeout.
	Acquire(timeout time.Duration, sem Semaphore) (uint32, error)

	// ImageCount returns the number of presentable images in the chain.
	ImageCount() int

	// Extent returns the size the chain was built with.
	Extent() Extent2D
}

// SwapchainFactory builds swapchains for the surface it was created
// against. The old chain, when not nil, may be consumed by the build.
type SwapchainFactory interface {
	Build(extent Extent2D, old Swapchain) (Swapchain, error)
}

// Device is a logical GPU device with its queues. Queues are allocated
// once at creation and never reallocated.
type Device interface {

	// NewFence creates a fence, optionally in the signaled state.
	NewFence(signaled bool) (Fence, error)

	// NewSemaphore creates an unsignaled semaphore.
	NewSemaphore() (Semaphore, error)

	// NewCommandBuffer allocates a resettable primary command buffer.
	NewCommandBuffer() (CommandBuffer, error)

	// Submit queues recorded commands, waiting on waits, signaling
	// signals, and signaling fence on completion.
	Submit(cmds []CommandBuffer, waits, signals []Semaphore, fence Fence) error

	// Present queues presentation of image index on the chain after
	// wait signals. Returns core.ErrOutOfDate or core.ErrSuboptimal
	// when the chain no longer matches the surface.
	Present(chain Swapchain, image uint32, wait Semaphore) error

	// WaitIdle drains all queues. Used for shutdown only.
	WaitIdle() error
}
