// Copyright (c) 2020 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devblok/maru/resource"
)

type fakeModule struct {
	name     string
	released bool
}

func (m *fakeModule) Release() {
	m.released = true
}

type fakeCompiler struct {
	compiled []*fakeModule
}

func (c *fakeCompiler) Compile(name string, code []byte) (resource.ShaderModule, error) {
	if len(code) == 0 {
		return nil, fmt.Errorf("empty SPIR-V for %s", name)
	}
	module := &fakeModule{name: name}
	c.compiled = append(c.compiled, module)
	return module, nil
}

type fakeSource map[string][]byte

func (s fakeSource) ReadAll(name string) ([]byte, error) {
	code, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("no shader %s", name)
	}
	return code, nil
}

func TestShaderCacheMemoizes(t *testing.T) {
	compiler := &fakeCompiler{}
	source := fakeSource{"default.vert": {0x03, 0x02, 0x23, 0x07}}

	cache, err := resource.NewShaderCache(4, source, compiler)
	require.NoError(t, err)

	first, err := cache.Get("default.vert")
	require.NoError(t, err)
	second, err := cache.Get("default.vert")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Len(t, compiler.compiled, 1)
}

func TestShaderCacheMissingSource(t *testing.T) {
	cache, err := resource.NewShaderCache(4, fakeSource{}, &fakeCompiler{})
	require.NoError(t, err)

	_, err = cache.Get("missing.frag")
	assert.ErrorContains(t, err, "missing.frag")
}

func TestEvictionDefersReleaseToCollect(t *testing.T) {
	compiler := &fakeCompiler{}
	source := fakeSource{
		"a.vert": {1, 2, 3, 4},
		"b.vert": {5, 6, 7, 8},
		"c.vert": {9, 10, 11, 12},
	}

	cache, err := resource.NewShaderCache(2, source, compiler)
	require.NoError(t, err)

	_, err = cache.Get("a.vert")
	require.NoError(t, err)
	_, err = cache.Get("b.vert")
	require.NoError(t, err)
	_, err = cache.Get("c.vert")
	require.NoError(t, err)

	// a.vert fell out of the LRU but its module may still be bound
	// by an in-flight frame, so it only parks.
	assert.False(t, compiler.compiled[0].released)

	cache.Collect()
	assert.True(t, compiler.compiled[0].released)
	assert.False(t, compiler.compiled[1].released)
	assert.False(t, compiler.compiled[2].released)
}

func TestPurgeReleasesEverything(t *testing.T) {
	compiler := &fakeCompiler{}
	source := fakeSource{
		"a.vert": {1, 2, 3, 4},
		"b.frag": {5, 6, 7, 8},
	}

	cache, err := resource.NewShaderCache(4, source, compiler)
	require.NoError(t, err)

	_, err = cache.Get("a.vert")
	require.NoError(t, err)
	_, err = cache.Get("b.frag")
	require.NoError(t, err)

	cache.Purge()
	for _, module := range compiler.compiled {
		assert.True(t, module.released, module.name)
	}
}
