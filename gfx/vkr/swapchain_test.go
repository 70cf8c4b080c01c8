// Copyright (c) 2020 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/maru/core"
)

func TestPickSurfaceFormatPrefersBGRA(t *testing.T) {
	format, colorSpace, err := pickSurfaceFormat([]vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	})
	require.NoError(t, err)
	assert.Equal(t, vk.FormatB8g8r8a8Unorm, format)
	assert.Equal(t, vk.ColorSpaceSrgbNonlinear, colorSpace)
}

func TestPickSurfaceFormatFallsBackToFirst(t *testing.T) {
	format, _, err := pickSurfaceFormat([]vk.SurfaceFormat{
		{Format: vk.FormatR16g16b16a16Sfloat, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	})
	require.NoError(t, err)
	assert.Equal(t, vk.FormatR16g16b16a16Sfloat, format)
}

func TestPickSurfaceFormatEmpty(t *testing.T) {
	_, _, err := pickSurfaceFormat(nil)
	require.Error(t, err)

	var scErr *core.SwapchainError
	assert.ErrorAs(t, err, &scErr)
}
