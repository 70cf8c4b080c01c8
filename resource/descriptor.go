// Copyright (c) 2020 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package resource

// BufferUsage tells the factory what a buffer is for.
type BufferUsage int

// Buffer usages understood by the backends.
const (
	BufferUsageVertex BufferUsage = iota
	BufferUsageIndex
	BufferUsageUniform
	BufferUsageStaging
)

// BufferDescriptor describes a device buffer logically. Equal
// descriptors memoize to the same buffer.
type BufferDescriptor struct {
	Label       string
	Size        uint64
	Usage       BufferUsage
	HostVisible bool
}

// ImageFormat is a driver-neutral pixel format selector.
type ImageFormat int

// Image formats understood by the backends.
const (
	ImageFormatRGBA8 ImageFormat = iota
	ImageFormatBGRA8
	ImageFormatD16
)

// ImageUsage tells the factory what an image is for.
type ImageUsage int

// Image usages understood by the backends.
const (
	ImageUsageSampled ImageUsage = iota
	ImageUsageColorAttachment
	ImageUsageDepthAttachment
)

// ImageDescriptor describes a device image logically. Attachments
// carry the surface extent, which makes resize eviction a predicate
// on Width and Height.
type ImageDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Format ImageFormat
	Usage  ImageUsage
}
