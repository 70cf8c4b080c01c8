package model

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// ShaderInterfaceEntry describes one input location that a vertex
// shader consumes.
type ShaderInterfaceEntry struct {
	Name     string
	Location uint32
	Format   vk.Format
}

// ShaderInterface is the full vertex input interface of a shader.
type ShaderInterface []ShaderInterfaceEntry

// MissingAttributeError means an attribute the vertex shader consumes
// is absent from the vertex definition.
type MissingAttributeError struct {
	Attribute string
	Location  uint32
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("vertex attribute %q (location %d) missing from vertex definition", e.Attribute, e.Location)
}

// FormatMismatchError means the vertex definition supplies a
// different format than the shader expects at a location.
type FormatMismatchError struct {
	Attribute  string
	Location   uint32
	Shader     vk.Format
	Definition vk.Format
}

func (e *FormatMismatchError) Error() string {
	return fmt.Sprintf("vertex attribute %q (location %d) format mismatch: shader wants %d, definition has %d",
		e.Attribute, e.Location, e.Shader, e.Definition)
}

// ValidateVertexDefinition links a vertex attribute layout against a
// shader's input interface before pipeline creation. Every interface
// entry must be backed by an attribute at the same location with the
// same format.
func ValidateVertexDefinition(attrs []vk.VertexInputAttributeDescription, iface ShaderInterface) error {
	byLocation := make(map[uint32]vk.VertexInputAttributeDescription, len(attrs))
	for _, a := range attrs {
		byLocation[a.Location] = a
	}

	for _, in := range iface {
		attr, ok := byLocation[in.Location]
		if !ok {
			return &MissingAttributeError{Attribute: in.Name, Location: in.Location}
		}
		if attr.Format != in.Format {
			return &FormatMismatchError{
				Attribute:  in.Name,
				Location:   in.Location,
				Shader:     in.Format,
				Definition: attr.Format,
			}
		}
	}
	return nil
}
