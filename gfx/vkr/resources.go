// Copyright (c) 2020 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/maru/resource"
)

// NewResourceFactory creates a resource.Factory that realizes logical
// descriptors into device buffers and images.
func NewResourceFactory(device *Device) *ResourceFactory {
	return &ResourceFactory{device: device}
}

// ResourceFactory implements resource.Factory and
// resource.ShaderCompiler on a Device.
type ResourceFactory struct {
	device *Device
}

// Realize implements interface
func (f *ResourceFactory) Realize(desc resource.Descriptor) (resource.Object, error) {
	switch d := desc.(type) {
	case resource.BufferDescriptor:
		return f.realizeBuffer(d)
	case resource.ImageDescriptor:
		return f.realizeImage(d)
	default:
		return nil, fmt.Errorf("realize: unhandled descriptor type %T", desc)
	}
}

// Compile implements interface
func (f *ResourceFactory) Compile(name string, code []byte) (resource.ShaderModule, error) {
	smci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}

	var module vk.ShaderModule
	if ret := vk.CreateShaderModule(f.device.logical, &smci, nil, &module); ret != vk.Success {
		return nil, fmt.Errorf("vk.CreateShaderModule(%s): %w", name, mapResult(ret))
	}
	return &ShaderModule{device: f.device.logical, module: module}, nil
}

func (f *ResourceFactory) realizeBuffer(desc resource.BufferDescriptor) (*Buffer, error) {
	bci := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(desc.Size),
		Usage:       bufferUsageFlags(desc.Usage),
		SharingMode: vk.SharingModeExclusive,
	}

	var buffer vk.Buffer
	if ret := vk.CreateBuffer(f.device.logical, &bci, nil, &buffer); ret != vk.Success {
		return nil, fmt.Errorf("vk.CreateBuffer(%s): %w", desc.Label, mapResult(ret))
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(f.device.logical, buffer, &requirements)
	requirements.Deref()

	properties := vk.MemoryPropertyDeviceLocalBit
	if desc.HostVisible {
		properties = vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit
	}

	memory, err := f.device.allocator.Malloc(requirements, properties)
	if err != nil {
		vk.DestroyBuffer(f.device.logical, buffer, nil)
		return nil, err
	}

	if ret := vk.BindBufferMemory(f.device.logical, buffer, memory.Get(), 0); ret != vk.Success {
		memory.Release()
		vk.DestroyBuffer(f.device.logical, buffer, nil)
		return nil, fmt.Errorf("vk.BindBufferMemory(%s): %w", desc.Label, mapResult(ret))
	}

	return &Buffer{device: f.device.logical, buffer: buffer, memory: memory}, nil
}

func (f *ResourceFactory) realizeImage(desc resource.ImageDescriptor) (*Image, error) {
	format := imageFormat(desc.Format)
	ici := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  desc.Width,
			Height: desc.Height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         imageUsageFlags(desc.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	var image vk.Image
	if ret := vk.CreateImage(f.device.logical, &ici, nil, &image); ret != vk.Success {
		return nil, fmt.Errorf("vk.CreateImage(%s): %w", desc.Label, mapResult(ret))
	}

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(f.device.logical, image, &requirements)
	requirements.Deref()

	memory, err := f.device.allocator.Malloc(requirements, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		vk.DestroyImage(f.device.logical, image, nil)
		return nil, err
	}

	if ret := vk.BindImageMemory(f.device.logical, image, memory.Get(), 0); ret != vk.Success {
		memory.Release()
		vk.DestroyImage(f.device.logical, image, nil)
		return nil, fmt.Errorf("vk.BindImageMemory(%s): %w", desc.Label, mapResult(ret))
	}

	view, err := createImageView(f.device.logical, image, format, aspectFlags(desc.Usage))
	if err != nil {
		memory.Release()
		vk.DestroyImage(f.device.logical, image, nil)
		return nil, err
	}

	return &Image{device: f.device.logical, image: image, view: view, memory: memory}, nil
}

func createImageView(device vk.Device, image vk.Image, format vk.Format, aspect vk.ImageAspectFlags) (vk.ImageView, error) {
	ivci := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: 1,
			LayerCount: 1,
		},
	}

	var view vk.ImageView
	if ret := vk.CreateImageView(device, &ivci, nil, &view); ret != vk.Success {
		return view, fmt.Errorf("vk.CreateImageView(): %w", mapResult(ret))
	}
	return view, nil
}

func bufferUsageFlags(usage resource.BufferUsage) vk.BufferUsageFlags {
	switch usage {
	case resource.BufferUsageVertex:
		return vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit | vk.BufferUsageTransferDstBit)
	case resource.BufferUsageIndex:
		return vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit | vk.BufferUsageTransferDstBit)
	case resource.BufferUsageUniform:
		return vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	case resource.BufferUsageStaging:
		return vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit)
	default:
		return vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)
	}
}

func imageFormat(format resource.ImageFormat) vk.Format {
	switch format {
	case resource.ImageFormatBGRA8:
		return vk.FormatB8g8r8a8Unorm
	case resource.ImageFormatD16:
		return vk.FormatD16Unorm
	default:
		return vk.FormatR8g8b8a8Unorm
	}
}

func imageUsageFlags(usage resource.ImageUsage) vk.ImageUsageFlags {
	switch usage {
	case resource.ImageUsageColorAttachment:
		return vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferSrcBit)
	case resource.ImageUsageDepthAttachment:
		return vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
	default:
		return vk.ImageUsageFlags(vk.ImageUsageSampledBit | vk.ImageUsageTransferDstBit)
	}
}

func aspectFlags(usage resource.ImageUsage) vk.ImageAspectFlags {
	if usage == resource.ImageUsageDepthAttachment {
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}

// Buffer is a device buffer bound to its backing memory.
type Buffer struct {
	device vk.Device
	buffer vk.Buffer
	memory Memory
}

// Handle returns the vk.Buffer handle.
func (b *Buffer) Handle() vk.Buffer {
	return b.buffer
}

// Memory returns the backing memory for mapping.
func (b *Buffer) Memory() *Memory {
	return &b.memory
}

// Release implements interface
func (b *Buffer) Release() {
	vk.DestroyBuffer(b.device, b.buffer, nil)
	b.memory.Release()
}

// Image is a device image with its default view and backing memory.
type Image struct {
	device vk.Device
	image  vk.Image
	view   vk.ImageView
	memory Memory
}

// Handle returns the vk.Image handle.
func (i *Image) Handle() vk.Image {
	return i.image
}

// View returns the default whole-image view.
func (i *Image) View() vk.ImageView {
	return i.view
}

// Release implements interface
func (i *Image) Release() {
	vk.DestroyImageView(i.device, i.view, nil)
	vk.DestroyImage(i.device, i.image, nil)
	i.memory.Release()
}

// ShaderModule implements resource.ShaderModule on a vk.ShaderModule.
type ShaderModule struct {
	device vk.Device
	module vk.ShaderModule
}

// Handle returns the vk.ShaderModule handle.
func (m *ShaderModule) Handle() vk.ShaderModule {
	return m.module
}

// Release implements interface
func (m *ShaderModule) Release() {
	vk.DestroyShaderModule(m.device, m.module, nil)
}
