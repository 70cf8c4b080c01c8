// Copyright (c) 2020 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package model_test

import (
	"sync"
	"testing"
	"unsafe"

	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"

	"github.com/devblok/maru/model"
)

var _ model.Object = (*model.Static)(nil)

func TestNewStaticDefaults(t *testing.T) {
	vertices := []model.Vertex{
		{Pos: glm.Vec3{0, -0.5, 0}, Color: glm.Vec4{1, 0, 0, 1}},
		{Pos: glm.Vec3{0.5, 0.5, 0}, Color: glm.Vec4{0, 1, 0, 1}},
		{Pos: glm.Vec3{-0.5, 0.5, 0}, Color: glm.Vec4{0, 0, 1, 1}},
	}

	obj := model.NewStatic(vertices)
	assert.Equal(t, glm.Ident4(), obj.Position())
	assert.Equal(t, glm.Ident4(), obj.Rotation())
	assert.Equal(t, vertices, obj.Vertices())
}

func TestStaticSetters(t *testing.T) {
	obj := model.NewStatic(nil)

	position := glm.Translate3D(1, 2, 3)
	rotation := glm.HomogRotate3D(0.5, glm.Vec3{0, 0, 1})

	obj.SetPosition(position)
	obj.SetRotation(rotation)
	assert.Equal(t, position, obj.Position())
	assert.Equal(t, rotation, obj.Rotation())
}

func TestStaticConcurrentAccess(t *testing.T) {
	obj := model.NewStatic([]model.Vertex{{}})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				obj.SetPosition(glm.Translate3D(float32(n), 0, 0))
				obj.SetRotation(glm.HomogRotate3D(float32(j), glm.Vec3{0, 1, 0}))
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = obj.Position()
				_ = obj.Rotation()
				_ = obj.Vertices()
			}
		}()
	}
	wg.Wait()
}

func TestVertexBindingStride(t *testing.T) {
	bindings := model.VertexBindingDescriptions()
	assert.Len(t, bindings, 1)
	assert.Equal(t, uint32(unsafe.Sizeof(model.Vertex{})), bindings[0].Stride)

	attrs := model.VertexAttributeDescriptions()
	assert.Len(t, attrs, 3)
	for _, attr := range attrs {
		assert.Less(t, attr.Offset, bindings[0].Stride)
	}
}
