// Copyright (c) 2020 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gfx

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/devblok/maru/core"
)

// ExtentFunc queries the current drawable extent of the surface.
// It is called before every swapchain build.
type ExtentFunc func() (Extent2D, error)

// NewSwapchainManager creates a manager without a chain. The first
// Rebuild call builds the initial chain.
func NewSwapchainManager(factory SwapchainFactory, extent ExtentFunc) *SwapchainManager {
	return &SwapchainManager{
		factory: factory,
		extent:  extent,
	}
}

// SwapchainManager owns the presentable image chain. The chain is
// invalidated and rebuilt whenever the surface extent changes or
// presentation reports an out of date result.
type SwapchainManager struct {
	factory SwapchainFactory
	extent  ExtentFunc

	chain      Swapchain
	generation uint64
}

// Chain returns the current swapchain and its generation. The
// generation increments on every rebuild, so a frame holding a stale
// generation knows its chain is gone.
func (m *SwapchainManager) Chain() (Swapchain, uint64) {
	return m.chain, m.generation
}

// Generation returns the current chain generation.
func (m *SwapchainManager) Generation() uint64 {
	return m.generation
}

// Rebuild replaces the chain with one matching the current surface
// extent. The drain callback runs before the old chain is destroyed,
// so no in-flight frame may still reference it afterwards. Returns
// core.ErrZeroExtent when the surface has no drawable area, in which
// case the old chain is kept untouched.
func (m *SwapchainManager) Rebuild(drain func() error) error {
	ext, err := m.extent()
	if err != nil {
		return &core.SwapchainError{Op: "query extent", Err: err}
	}
	if ext.Zero() {
		return core.ErrZeroExtent
	}

	if drain != nil {
		if err := drain(); err != nil {
			return fmt.Errorf("drain before rebuild: %w", err)
		}
	}

	old := m.chain
	chain, err := m.factory.Build(ext, old)
	if err != nil {
		return &core.SwapchainError{Op: "build", Err: err}
	}

	if old != nil {
		old.Release()
	}
	m.chain = chain
	m.generation++

	log.WithFields(log.Fields{
		"width":      ext.Width,
		"height":     ext.Height,
		"generation": m.generation,
	}).Debug("Swapchain rebuilt")

	return nil
}

// Release destroys the current chain. The caller must have drained
// all in-flight frames beforehand.
func (m *SwapchainManager) Release() {
	if m.chain != nil {
		m.chain.Release()
		m.chain = nil
	}
}
