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

// DeviceOptions configures logical device creation.
type DeviceOptions struct {
	// Extensions are required device extensions, the swapchain
	// extension at minimum.
	Extensions []string
}

// NewDevice selects a physical adapter that can render and present to
// the instance surface, then creates the logical device with a single
// combined graphics and present queue. Queues are allocated here once
// and never reallocated.
func NewDevice(instance *Instance, opts DeviceOptions) (*Device, error) {
	surface := instance.Surface()
	if surface == vk.NullSurface {
		return nil, &core.NoSuitableDeviceError{Reason: "instance has no surface to present to"}
	}

	var (
		physical    vk.PhysicalDevice
		familyIndex uint32
		found       bool
	)
	for _, candidate := range instance.AvailableDevices() {
		if idx, ok := findCombinedQueueFamily(candidate, surface); ok {
			physical = candidate
			familyIndex = idx
			found = true
			break
		}
	}
	if !found {
		return nil, &core.NoSuitableDeviceError{
			Reason: "no adapter offers a combined graphics and present queue family",
		}
	}

	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: familyIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}

	var logical vk.Device
	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(opts.Extensions)),
		PpEnabledExtensionNames: safeStrings(opts.Extensions),
	}
	if err := vk.Error(vk.CreateDevice(physical, &dci, nil, &logical)); err != nil {
		return nil, fmt.Errorf("vk.CreateDevice(): %w", err)
	}

	var queue vk.Queue
	vk.GetDeviceQueue(logical, familyIndex, 0, &queue)

	cpci := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: familyIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if err := vk.Error(vk.CreateCommandPool(logical, &cpci, nil, &pool)); err != nil {
		vk.DestroyDevice(logical, nil)
		return nil, fmt.Errorf("vk.CreateCommandPool(): %w", err)
	}

	allocator, err := NewMemoryAllocator(logical, physical)
	if err != nil {
		vk.DestroyCommandPool(logical, pool, nil)
		vk.DestroyDevice(logical, nil)
		return nil, err
	}

	return &Device{
		physical:    physical,
		logical:     logical,
		surface:     surface,
		queue:       queue,
		familyIndex: familyIndex,
		pool:        pool,
		allocator:   allocator,
	}, nil
}

func findCombinedQueueFamily(device vk.PhysicalDevice, surface vk.Surface) (uint32, bool) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &count, families)

	for i := uint32(0); i < count; i++ {
		families[i].Deref()
		if families[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) == 0 {
			continue
		}
		var supportsPresent vk.Bool32
		vk.GetPhysicalDeviceSurfaceSupport(device, i, surface, &supportsPresent)
		if supportsPresent.B() {
			return i, true
		}
	}
	return 0, false
}

// Device owns the logical GPU device, its queue and the memory
// allocator. Created once at startup, destroyed at shutdown, never
// recreated while any dependent resource is alive.
type Device struct {
	physical    vk.PhysicalDevice
	logical     vk.Device
	surface     vk.Surface
	queue       vk.Queue
	familyIndex uint32
	pool        vk.CommandPool
	allocator   *MemoryAllocator
}

// Allocator returns the device memory allocator.
func (d *Device) Allocator() *MemoryAllocator {
	return d.allocator
}

// Handle returns the vk.Device handle.
func (d *Device) Handle() vk.Device {
	return d.logical
}

// NewFence implements interface
func (d *Device) NewFence(signaled bool) (gfx.Fence, error) {
	fci := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if signaled {
		fci.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var fence vk.Fence
	if err := vk.Error(vk.CreateFence(d.logical, &fci, nil, &fence)); err != nil {
		return nil, fmt.Errorf("vk.CreateFence(): %w", err)
	}
	return &Fence{device: d.logical, fence: fence}, nil
}

// NewSemaphore implements interface
func (d *Device) NewSemaphore() (gfx.Semaphore, error) {
	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}

	var sem vk.Semaphore
	if err := vk.Error(vk.CreateSemaphore(d.logical, &sci, nil, &sem)); err != nil {
		return nil, fmt.Errorf("vk.CreateSemaphore(): %w", err)
	}
	return &Semaphore{device: d.logical, semaphore: sem}, nil
}

// NewCommandBuffer implements interface
func (d *Device) NewCommandBuffer() (gfx.CommandBuffer, error) {
	cbai := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}

	buffers := make([]vk.CommandBuffer, 1)
	if err := vk.Error(vk.AllocateCommandBuffers(d.logical, &cbai, buffers)); err != nil {
		return nil, fmt.Errorf("vk.AllocateCommandBuffers(): %w", err)
	}
	return &CommandBuffer{device: d.logical, pool: d.pool, buffer: buffers[0]}, nil
}

// Submit implements interface
func (d *Device) Submit(cmds []gfx.CommandBuffer, waits, signals []gfx.Semaphore, fence gfx.Fence) error {
	buffers := make([]vk.CommandBuffer, len(cmds))
	for i, c := range cmds {
		buffers[i] = c.(*CommandBuffer).buffer
	}

	waitSems := make([]vk.Semaphore, len(waits))
	stages := make([]vk.PipelineStageFlags, len(waits))
	for i, s := range waits {
		waitSems[i] = s.(*Semaphore).semaphore
		stages[i] = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	}

	signalSems := make([]vk.Semaphore, len(signals))
	for i, s := range signals {
		signalSems[i] = s.(*Semaphore).semaphore
	}

	submitFence := vk.NullFence
	if fence != nil {
		submitFence = fence.(*Fence).fence
	}

	submit := []vk.SubmitInfo{{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(waitSems)),
		PWaitSemaphores:      waitSems,
		PWaitDstStageMask:    stages,
		CommandBufferCount:   uint32(len(buffers)),
		PCommandBuffers:      buffers,
		SignalSemaphoreCount: uint32(len(signalSems)),
		PSignalSemaphores:    signalSems,
	}}

	if ret := vk.QueueSubmit(d.queue, 1, submit, submitFence); ret != vk.Success {
		return fmt.Errorf("vk.QueueSubmit(): %w", mapResult(ret))
	}
	return nil
}

// Present implements interface
func (d *Device) Present(chain gfx.Swapchain, image uint32, wait gfx.Semaphore) error {
	sc, ok := chain.(*Swapchain)
	if !ok {
		return fmt.Errorf("present: foreign swapchain implementation %T", chain)
	}

	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait.(*Semaphore).semaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc.chain},
		PImageIndices:      []uint32{image},
	}

	return mapResult(vk.QueuePresent(d.queue, &presentInfo))
}

// WaitIdle implements interface
func (d *Device) WaitIdle() error {
	return mapResult(vk.DeviceWaitIdle(d.logical))
}

// Destroy releases the command pool and the logical device. All
// queues must be drained beforehand.
func (d *Device) Destroy() {
	vk.DestroyCommandPool(d.logical, d.pool, nil)
	vk.DestroyDevice(d.logical, nil)
}

// Fence implements gfx.Fence on a vk.Fence.
type Fence struct {
	device vk.Device
	fence  vk.Fence
}

// Wait implements interface
func (f *Fence) Wait(timeout time.Duration) error {
	ns := uint64(math.MaxUint64)
	if timeout > 0 {
		ns = uint64(timeout.Nanoseconds())
	}
	return mapResult(vk.WaitForFences(f.device, 1, []vk.Fence{f.fence}, vk.True, ns))
}

// Signaled implements interface
func (f *Fence) Signaled() bool {
	return vk.GetFenceStatus(f.device, f.fence) == vk.Success
}

// Reset implements interface
func (f *Fence) Reset() error {
	return mapResult(vk.ResetFences(f.device, 1, []vk.Fence{f.fence}))
}

// Release implements interface
func (f *Fence) Release() {
	vk.DestroyFence(f.device, f.fence, nil)
}

// Semaphore implements gfx.Semaphore on a vk.Semaphore.
type Semaphore struct {
	device    vk.Device
	semaphore vk.Semaphore
}

// Release implements interface
func (s *Semaphore) Release() {
	vk.DestroySemaphore(s.device, s.semaphore, nil)
}

// CommandBuffer implements gfx.CommandBuffer on a primary
// vk.CommandBuffer.
type CommandBuffer struct {
	device vk.Device
	pool   vk.CommandPool
	buffer vk.CommandBuffer
}

// Reset implements interface
func (c *CommandBuffer) Reset() error {
	ret := vk.ResetCommandBuffer(c.buffer, vk.CommandBufferResetFlags(vk.CommandBufferResetReleaseResourcesBit))
	return mapResult(ret)
}

// Inner implements interface
func (c *CommandBuffer) Inner() interface{} {
	return c.buffer
}
