// Copyright (c) 2020 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package surface

import (
	"unsafe"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/devblok/maru/core"
	"github.com/devblok/maru/gfx"
)

// NewSDL creates a Vulkan-capable SDL window. SDL selects the
// windowing backend (Wayland or X11) for the running session.
func NewSDL(title string, width, height uint32) (*SDL, error) {
	window, err := sdl.CreateWindow(title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(width),
		int32(height),
		sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return nil, &core.PlatformError{Op: "create window", Err: err}
	}
	return &SDL{window: window}, nil
}

// SDL adapts an SDL window to the Surface interface.
type SDL struct {
	window *sdl.Window
}

// Window exposes the wrapped SDL window for event handling.
func (s *SDL) Window() *sdl.Window {
	return s.window
}

// Extent implements interface
func (s *SDL) Extent() (gfx.Extent2D, error) {
	width, height := s.window.VulkanGetDrawableSize()
	if width < 0 || height < 0 {
		return gfx.Extent2D{}, &core.PlatformError{Op: "query drawable size", Err: sdl.GetError()}
	}
	return gfx.Extent2D{Width: uint32(width), Height: uint32(height)}, nil
}

// InstanceExtensions implements interface
func (s *SDL) InstanceExtensions() []string {
	return s.window.VulkanGetInstanceExtensions()
}

// CreateVulkanSurface implements interface
func (s *SDL) CreateVulkanSurface(instance interface{}) (unsafe.Pointer, error) {
	srf, err := s.window.VulkanCreateSurface(instance)
	if err != nil {
		return nil, &core.PlatformError{Op: "create surface", Err: err}
	}
	return srf, nil
}

// Destroy implements interface
func (s *SDL) Destroy() {
	if s.window != nil {
		s.window.Destroy()
		s.window = nil
	}
}
