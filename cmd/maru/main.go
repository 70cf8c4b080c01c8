// Copyright (c) 2020 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gobuffalo/packr"
	log "github.com/sirupsen/logrus"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/devblok/maru/core"
	"github.com/devblok/maru/gfx"
	"github.com/devblok/maru/gfx/vkr"
	"github.com/devblok/maru/resource"
	"github.com/devblok/maru/surface"
	"github.com/devblok/maru/utility/spak"
)

func init() {
	runtime.LockOSThread()
}

// Profiling
var (
	cpuProfile   = flag.String("cpuprof", "", "Profile CPU usage to file")
	memProfile   = flag.String("memprof", "", "Profile memory usage into a file")
	traceProfile = flag.String("trace", "", "Trace output for profiling")
	debug        = flag.Bool("vkdbg", false, "Load Vulkan validation layers")
	verbose      = flag.Bool("v", false, "Verbose logging")
)

var frameCounter int64

var clearColor = [4]float32{0.005, 0.005, 0.01, 1.0}

var builtinShaders = packr.NewBox("../../shaders")

// builtinShaderNames are the shaders every frame pipeline can count
// on. They follow the name.stage convention of cmd/spak.
var builtinShaderNames = []string{"default.vert", "default.frag"}

// boxSource serves compiled shaders out of the embedded box, which
// carries the name.stage.spv files built from the shaders directory.
type boxSource struct{}

func (boxSource) ReadAll(name string) ([]byte, error) {
	return builtinShaders.Find(name + ".spv")
}

// packedSource serves shaders from a spak archive, falling back for
// names the archive does not carry.
type packedSource struct {
	archive  *spak.Archive
	fallback resource.ShaderSource
}

func (s packedSource) ReadAll(name string) ([]byte, error) {
	data, err := s.archive.ReadAll(name)
	if errors.Is(err, spak.ErrNotFound) {
		return s.fallback.ReadAll(name)
	}
	return data, err
}

// newShaderSource builds the shader lookup chain: the configured spak
// archive first, the built-in box behind it.
func newShaderSource(pack string, fallback resource.ShaderSource) (resource.ShaderSource, error) {
	if pack == "" {
		return fallback, nil
	}
	f, err := os.Open(pack)
	if err != nil {
		return nil, fmt.Errorf("shader pack %s: %w", pack, err)
	}
	archive, err := spak.Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("shader pack %s: %w", pack, err)
	}
	return packedSource{archive: archive, fallback: fallback}, nil
}

// preloadShaders pulls the built-in shaders through the cache so a
// broken shader source surfaces at startup, not mid-frame.
func preloadShaders(shaders *resource.ShaderCache) {
	for _, name := range builtinShaderNames {
		if _, err := shaders.Get(name); err != nil {
			log.WithError(err).WithField("shader", name).Warn("Built-in shader unavailable")
			continue
		}
		log.WithField("shader", name).Debug("Shader loaded")
	}
}

func main() {
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal(err)
		}
		defer pprof.StopCPUProfile()
	}

	if *traceProfile != "" {
		f, err := os.Create(*traceProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := trace.Start(f); err != nil {
			log.Fatal(err)
		}
		defer trace.Stop()
	}

	configuration, err := core.FromEnv()
	if err != nil {
		log.Fatal(err)
	}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		log.Fatal(err)
	}
	defer sdl.Quit()

	if err := sdl.VulkanLoadLibrary(""); err != nil {
		log.Fatal(err)
	}
	defer sdl.VulkanUnloadLibrary()

	window, err := surface.NewSDL("Maru3D",
		configuration.Renderer.ScreenWidth,
		configuration.Renderer.ScreenHeight)
	if err != nil {
		log.Fatal(err)
	}
	defer window.Destroy()

	instance, err := vkr.NewInstance(
		vkr.DefaultApplicationInfo,
		sdl.VulkanGetVkGetInstanceProcAddr(),
		vkr.InstanceOptions{
			DebugMode:  *debug,
			Extensions: window.InstanceExtensions(),
		})
	if err != nil {
		log.Fatal(err)
	}
	defer instance.Destroy()

	for _, info := range instance.PhysicalDevicesInfo() {
		log.WithFields(log.Fields{
			"name":   info.Name,
			"memory": info.Memory,
		}).Info("Adapter found")
	}

	vkSurface, err := window.CreateVulkanSurface(instance.Inner())
	if err != nil {
		log.Fatal(err)
	}
	instance.SetSurface(vkSurface)

	device, err := vkr.NewDevice(instance, vkr.DeviceOptions{
		Extensions: configuration.Renderer.DeviceExtensions,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer device.Destroy()

	factory, err := vkr.NewSwapchainFactory(device, configuration.Renderer.SwapchainSize)
	if err != nil {
		log.Fatal(err)
	}

	chain := gfx.NewSwapchainManager(factory, window.Extent)
	scheduler, err := gfx.NewFrameScheduler(device, chain, gfx.SchedulerOptions{
		FramesInFlight: configuration.Renderer.FramesInFlight,
	})
	if err != nil {
		log.Fatal(err)
	}

	resourceFactory := vkr.NewResourceFactory(device)
	resources := resource.NewCache(resourceFactory)

	shaderSource, err := newShaderSource(configuration.Renderer.ShaderPack, boxSource{})
	if err != nil {
		log.Fatal(err)
	}
	shaders, err := resource.NewShaderCache(
		configuration.Resources.ShaderCacheSize, shaderSource, resourceFactory)
	if err != nil {
		log.Fatal(err)
	}
	preloadShaders(shaders)

	timeService := core.NewTime(configuration.Time)
	defer timeService.Stop()

	var (
		programSync sync.WaitGroup
		quit        = make(chan struct{})
		resized     = make(chan struct{}, 1)
	)

	/* Frame counter loop */
	programSync.Add(1)
	go func() {
		defer programSync.Done()
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-quit:
				return
			case <-ticker.C:
				count := atomic.SwapInt64(&frameCounter, 0)
				log.WithFields(log.Fields{
					"frames":   count,
					"inflight": scheduler.InFlight(),
				}).Debug("Frame counter")
			}
		}
	}()

	/* Renderer loop */
	programSync.Add(1)
	go func() {
		defer programSync.Done()
		for {
			select {
			case <-quit:
				if err := scheduler.Shutdown(); err != nil {
					log.WithError(err).Error("Scheduler shutdown")
				}
				resources.Collect()
				shaders.Purge()
				return
			case <-resized:
				scheduler.RequestRebuild()
				resources.Evict(staleAttachment(window))
			case <-timeService.FpsTicker().C:
				if err := drawFrame(scheduler, resources, shaders); err != nil {
					log.WithError(err).Error("Draw error")
				}
			}
		}
	}()

	/* Event loop */
EventLoop:
	for {
		<-timeService.EventTicker().C
		for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
			switch et := event.(type) {
			case *sdl.KeyboardEvent:
				if et.Keysym.Sym == sdl.K_ESCAPE {
					break EventLoop
				}
			case *sdl.WindowEvent:
				if et.Event == sdl.WINDOWEVENT_SIZE_CHANGED || et.Event == sdl.WINDOWEVENT_RESIZED {
					select {
					case resized <- struct{}{}:
					default:
					}
				}
			case *sdl.QuitEvent:
				break EventLoop
			}
		}
	}

	close(quit)
	programSync.Wait()

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal(err)
		}
	}
}

func drawFrame(scheduler *gfx.FrameScheduler, resources *resource.Cache, shaders *resource.ShaderCache) error {
	frame, err := scheduler.Begin()
	if err == gfx.ErrFrameSkipped {
		return nil
	}
	if err != nil {
		return err
	}

	if err := vkr.RecordClear(frame.Commands(), frame.Chain(), frame.ImageIndex, clearColor); err != nil {
		return err
	}

	if err := frame.Submit(); err != nil {
		return err
	}

	resources.Collect()
	shaders.Collect()
	atomic.AddInt64(&frameCounter, 1)
	return nil
}

// staleAttachment flags cached attachments whose size no longer
// matches the drawable surface.
func staleAttachment(window surface.Surface) func(resource.Descriptor) bool {
	ext, err := window.Extent()
	if err != nil {
		return func(resource.Descriptor) bool { return false }
	}
	return func(desc resource.Descriptor) bool {
		img, ok := desc.(resource.ImageDescriptor)
		if !ok {
			return false
		}
		if img.Usage != resource.ImageUsageColorAttachment && img.Usage != resource.ImageUsageDepthAttachment {
			return false
		}
		return img.Width != ext.Width || img.Height != ext.Height
	}
}
