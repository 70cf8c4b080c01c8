// Copyright (c) 2020 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"fmt"
	"math"
	"time"

	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/maru/core"
	"github.com/devblok/maru/gfx"
)

// NewSwapchainFactory creates a factory bound to the device and its
// surface. Surface format is selected once here and reused for every
// rebuild, image count is a request that the driver may round up.
func NewSwapchainFactory(device *Device, imageCount uint32) (*SwapchainFactory, error) {
	format, colorSpace, err := selectSurfaceFormat(device.physical, device.surface)
	if err != nil {
		return nil, err
	}
	return &SwapchainFactory{
		device:     device,
		imageCount: imageCount,
		format:     format,
		colorSpace: colorSpace,
	}, nil
}

// SwapchainFactory implements gfx.SwapchainFactory for a Vulkan
// surface.
type SwapchainFactory struct {
	device     *Device
	imageCount uint32
	format     vk.Format
	colorSpace vk.ColorSpace
}

// Format returns the surface format the factory builds chains with.
func (f *SwapchainFactory) Format() vk.Format {
	return f.format
}

// Build implements interface
func (f *SwapchainFactory) Build(extent gfx.Extent2D, old gfx.Swapchain) (gfx.Swapchain, error) {
	var surfaceCapabilities vk.SurfaceCapabilities
	ret := vk.GetPhysicalDeviceSurfaceCapabilities(f.device.physical, f.device.surface, &surfaceCapabilities)
	if ret != vk.Success {
		return nil, fmt.Errorf("vk.GetPhysicalDeviceSurfaceCapabilities(): %w", mapResult(ret))
	}
	surfaceCapabilities.Deref()

	compositeAlpha := vk.CompositeAlphaOpaqueBit
	compositeAlphaFlags := []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	}
	for i := 0; i < len(compositeAlphaFlags); i++ {
		alphaFlags := vk.CompositeAlphaFlags(compositeAlphaFlags[i])
		if surfaceCapabilities.SupportedCompositeAlpha&alphaFlags != 0 {
			compositeAlpha = compositeAlphaFlags[i]
			break
		}
	}

	imageCount := f.imageCount
	if imageCount < surfaceCapabilities.MinImageCount {
		imageCount = surfaceCapabilities.MinImageCount
	}
	if surfaceCapabilities.MaxImageCount > 0 && imageCount > surfaceCapabilities.MaxImageCount {
		imageCount = surfaceCapabilities.MaxImageCount
	}

	oldChain := vk.NullSwapchain
	if old != nil {
		prev, ok := old.(*Swapchain)
		if !ok {
			return nil, fmt.Errorf("swapchain build: foreign old chain implementation %T", old)
		}
		oldChain = prev.chain
	}

	var chain vk.Swapchain
	scci := vk.SwapchainCreateInfo{
		SType:           vk.StructureTypeSwapchainCreateInfo,
		Surface:         f.device.surface,
		MinImageCount:   imageCount,
		ImageFormat:     f.format,
		ImageColorSpace: f.colorSpace,
		ImageExtent: vk.Extent2D{
			Width:  extent.Width,
			Height: extent.Height,
		},
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
		PreTransform:     vk.SurfaceTransformIdentityBit,
		CompositeAlpha:   compositeAlpha,
		PresentMode:      vk.PresentModeFifo,
		Clipped:          vk.True,
		ImageArrayLayers: 1,
		ImageSharingMode: vk.SharingModeExclusive,
		OldSwapchain:     oldChain,
	}
	if err := vk.Error(vk.CreateSwapchain(f.device.logical, &scci, nil, &chain)); err != nil {
		return nil, fmt.Errorf("vk.CreateSwapchain(): %w", err)
	}

	var numImages uint32
	if err := vk.Error(vk.GetSwapchainImages(f.device.logical, chain, &numImages, nil)); err != nil {
		vk.DestroySwapchain(f.device.logical, chain, nil)
		return nil, fmt.Errorf("vk.GetSwapchainImages(num): %w", err)
	}
	images := make([]vk.Image, numImages)
	if err := vk.Error(vk.GetSwapchainImages(f.device.logical, chain, &numImages, images)); err != nil {
		vk.DestroySwapchain(f.device.logical, chain, nil)
		return nil, fmt.Errorf("vk.GetSwapchainImages(images): %w", err)
	}

	return &Swapchain{
		device: f.device.logical,
		chain:  chain,
		images: images,
		extent: extent,
	}, nil
}

func selectSurfaceFormat(physical vk.PhysicalDevice, surface vk.Surface) (vk.Format, vk.ColorSpace, error) {
	var count uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(physical, surface, &count, nil)); err != nil {
		return 0, 0, fmt.Errorf("vk.GetPhysicalDeviceSurfaceFormats(): %w", err)
	}
	formats := make([]vk.SurfaceFormat, count)
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(physical, surface, &count, formats)); err != nil {
		return 0, 0, fmt.Errorf("vk.GetPhysicalDeviceSurfaceFormats(): %w", err)
	}
	for i := range formats {
		formats[i].Deref()
	}
	return pickSurfaceFormat(formats)
}

// pickSurfaceFormat prefers BGRA8 and otherwise takes the first format
// the surface offers. Formats must already be dereferenced.
func pickSurfaceFormat(formats []vk.SurfaceFormat) (vk.Format, vk.ColorSpace, error) {
	if len(formats) == 0 {
		return 0, 0, &core.SwapchainError{
			Op:  "select surface format",
			Err: fmt.Errorf("surface reports no formats"),
		}
	}
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Unorm {
			return f.Format, f.ColorSpace, nil
		}
	}
	return formats[0].Format, formats[0].ColorSpace, nil
}

// Swapchain implements gfx.Swapchain on a vk.Swapchain.
type Swapchain struct {
	device vk.Device
	chain  vk.Swapchain
	images []vk.Image
	extent gfx.Extent2D
}

// Acquire implements interface
func (s *Swapchain) Acquire(timeout time.Duration, sem gfx.Semaphore) (uint32, error) {
	ns := uint64(math.MaxUint64)
	if timeout > 0 {
		ns = uint64(timeout.Nanoseconds())
	}

	var index uint32
	ret := vk.AcquireNextImage(s.device, s.chain, ns, sem.(*Semaphore).semaphore, vk.NullFence, &index)
	if err := mapResult(ret); err != nil {
		// A suboptimal acquire still yields a usable image.
		if err == core.ErrSuboptimal {
			return index, err
		}
		return 0, err
	}
	return index, nil
}

// ImageCount implements interface
func (s *Swapchain) ImageCount() int {
	return len(s.images)
}

// Extent implements interface
func (s *Swapchain) Extent() gfx.Extent2D {
	return s.extent
}

// Image returns the presentable image at the given index.
func (s *Swapchain) Image(index uint32) vk.Image {
	return s.images[index]
}

// Release implements interface
func (s *Swapchain) Release() {
	vk.DestroySwapchain(s.device, s.chain, nil)
	s.images = nil
}
