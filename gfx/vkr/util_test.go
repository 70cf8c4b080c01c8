// Copyright (c) 2020 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSliceUint32(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data, 0x07230203)
	binary.LittleEndian.PutUint32(data[4:], 0xdeadbeef)

	words := sliceUint32(data)
	assert.Len(t, words, 2)
	assert.Equal(t, uint32(0x07230203), words[0])
	assert.Equal(t, uint32(0xdeadbeef), words[1])
}

func TestSafeStrings(t *testing.T) {
	safe := safeStrings([]string{"VK_KHR_surface", "VK_KHR_swapchain"})
	assert.Equal(t, []string{"VK_KHR_surface\x00", "VK_KHR_swapchain\x00"}, safe)
	assert.Equal(t, "VK_KHR_surface\x00", safeString("VK_KHR_surface"))
}

func BenchmarkSliceUint32Small(b *testing.B) {
	data := make([]byte, 100)
	for idx := 0; idx < b.N; idx++ {
		sliceUint32(data)
	}
}

func BenchmarkSliceUint32Medium(b *testing.B) {
	data := make([]byte, 1000)
	for idx := 0; idx < b.N; idx++ {
		sliceUint32(data)
	}
}

func BenchmarkSliceUint32Big(b *testing.B) {
	data := make([]byte, 100000)
	for idx := 0; idx < b.N; idx++ {
		sliceUint32(data)
	}
}
