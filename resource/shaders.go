// Copyright (c) 2020 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ShaderModule is a compiled shader living on the device.
type ShaderModule interface {
	Release()
}

// ShaderCompiler turns SPIR-V bytes into a device shader module.
type ShaderCompiler interface {
	Compile(name string, code []byte) (ShaderModule, error)
}

// ShaderSource provides compiled shader binaries by name, typically a
// spak archive or an embedded box.
type ShaderSource interface {
	ReadAll(name string) ([]byte, error)
}

// NewShaderCache creates a bounded shader module cache. Evicted
// modules are not destroyed immediately, they are parked until
// Collect runs at a completed frame boundary.
func NewShaderCache(size int, source ShaderSource, compiler ShaderCompiler) (*ShaderCache, error) {
	if size <= 0 {
		size = 64
	}

	c := &ShaderCache{
		source:   source,
		compiler: compiler,
	}

	inner, err := lru.NewWithEvict[string, ShaderModule](size, c.park)
	if err != nil {
		return nil, err
	}
	c.modules = inner
	return c, nil
}

// ShaderCache memoizes compiled shader modules by name with a bounded
// LRU policy.
type ShaderCache struct {
	source   ShaderSource
	compiler ShaderCompiler
	modules  *lru.Cache[string, ShaderModule]

	mu      sync.Mutex
	retired []ShaderModule
}

// Get returns the module for name, loading and compiling it on first
// use.
func (c *ShaderCache) Get(name string) (ShaderModule, error) {
	if module, ok := c.modules.Get(name); ok {
		return module, nil
	}

	code, err := c.source.ReadAll(name)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", name, err)
	}

	module, err := c.compiler.Compile(name, code)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", name, err)
	}

	c.modules.Add(name, module)
	return module, nil
}

// Collect destroys modules evicted since the last call. Run it only
// at a completed frame boundary, after in-flight fences are observed.
func (c *ShaderCache) Collect() {
	c.mu.Lock()
	retired := c.retired
	c.retired = nil
	c.mu.Unlock()

	for _, module := range retired {
		module.Release()
	}
}

// Purge evicts everything and destroys it immediately. Only valid
// after a full device drain.
func (c *ShaderCache) Purge() {
	c.modules.Purge()
	c.Collect()
}

func (c *ShaderCache) park(_ string, module ShaderModule) {
	c.mu.Lock()
	c.retired = append(c.retired, module)
	c.mu.Unlock()
}
