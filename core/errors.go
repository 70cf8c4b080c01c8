// Copyright (c) 2020 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"errors"
	"fmt"
)

// Transient presentation-path conditions. These are recovered locally
// by the frame scheduler, either by rebuilding the swapchain or by
// skipping a frame. They must never bubble up to the application.
var (
	// ErrOutOfDate means the swapchain no longer matches the surface
	// and has to be rebuilt before the next acquire.
	ErrOutOfDate = errors.New("swapchain out of date")

	// ErrSuboptimal means presentation still works but the swapchain
	// settings are stale. A rebuild should be scheduled.
	ErrSuboptimal = errors.New("swapchain suboptimal")

	// ErrTimeout means a bounded wait on the device elapsed.
	ErrTimeout = errors.New("timed out waiting on device")

	// ErrZeroExtent means the surface currently has no drawable area,
	// usually because the window is minimized.
	ErrZeroExtent = errors.New("surface extent is zero")
)

// ErrDeviceLost is fatal. The caller owns shutdown or restart.
var ErrDeviceLost = errors.New("device lost")

// PlatformError reports a failure of the windowing platform,
// most commonly the inability to produce a drawable surface.
type PlatformError struct {
	Op  string
	Err error
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform: %s: %v", e.Op, e.Err)
}

func (e *PlatformError) Unwrap() error { return e.Err }

// NoSuitableDeviceError is returned when no physical adapter satisfies
// the required capabilities.
type NoSuitableDeviceError struct {
	Reason string
}

func (e *NoSuitableDeviceError) Error() string {
	return "no suitable device: " + e.Reason
}

// SwapchainError reports a failed swapchain build or rebuild, such as
// an unsupported format and extent combination.
type SwapchainError struct {
	Op  string
	Err error
}

func (e *SwapchainError) Error() string {
	return fmt.Sprintf("swapchain: %s: %v", e.Op, e.Err)
}

func (e *SwapchainError) Unwrap() error { return e.Err }

// AllocationError means device memory was exhausted while realizing a
// resource. It is propagated to the caller and never silently retried.
type AllocationError struct {
	Size uint64
	Err  error
}

func (e *AllocationError) Error() string {
	if e.Size != 0 {
		return fmt.Sprintf("allocation of %d bytes failed: %v", e.Size, e.Err)
	}
	return fmt.Sprintf("allocation failed: %v", e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }
