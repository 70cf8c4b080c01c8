// Copyright (c) 2020 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package surface wraps platform windows behind a stable drawable
// surface handle. The backend (Wayland or X11) is picked by the
// platform layer at window creation, not per frame.
package surface

import (
	"unsafe"

	"github.com/devblok/maru/gfx"
)

// Surface is a drawable platform surface. It owns nothing about
// rendering, only the platform handles.
type Surface interface {

	// Extent returns the current drawable size in pixels. It is
	// queried before every swapchain build. A minimized window
	// reports a zero extent.
	Extent() (gfx.Extent2D, error)

	// InstanceExtensions lists the instance extensions the platform
	// needs for presentation.
	InstanceExtensions() []string

	// CreateVulkanSurface makes the platform produce a drawable
	// Vulkan surface for the given instance handle.
	CreateVulkanSurface(instance interface{}) (unsafe.Pointer, error)

	// Destroy releases the platform window.
	Destroy()
}
