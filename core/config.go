package core

import (
	"fmt"
	"strconv"

	"github.com/gobuffalo/envy"
)

// Configuration defines a global engine configuration setting
type Configuration struct {
	Time      TimeConfiguration
	Renderer  RendererConfiguration
	Resources ResourceConfiguration
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int

	// EventPollDelay is the delay between window event polls,
	// in milliseconds
	EventPollDelay int
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	SwapchainSize    uint32
	FramesInFlight   int
	DeviceExtensions []string

	ScreenWidth  uint32
	ScreenHeight uint32

	// ShaderPack is a path to a spak archive with compiled shaders.
	// Empty means only the built-in shaders are available.
	ShaderPack string
}

// ResourceConfiguration is used to configure the resource cache
type ResourceConfiguration struct {
	// ShaderCacheSize bounds the number of live shader modules
	ShaderCacheSize int
}

// DefaultConfiguration is a complete configuration that works on
// most desktop setups.
var DefaultConfiguration = Configuration{
	Time: TimeConfiguration{
		FramesPerSecond: 60,
		EventPollDelay:  50,
	},
	Renderer: RendererConfiguration{
		SwapchainSize:  3,
		FramesInFlight: 2,
		DeviceExtensions: []string{
			"VK_KHR_swapchain",
		},
		ScreenWidth:  800,
		ScreenHeight: 600,
	},
	Resources: ResourceConfiguration{
		ShaderCacheSize: 64,
	},
}

// FromEnv builds a Configuration from the environment on top of
// DefaultConfiguration. A .env file is honored when present.
func FromEnv() (Configuration, error) {
	cfg := DefaultConfiguration

	var err error
	if cfg.Time.FramesPerSecond, err = envInt("MARU_FPS", cfg.Time.FramesPerSecond); err != nil {
		return cfg, err
	}
	w, err := envInt("MARU_WIDTH", int(cfg.Renderer.ScreenWidth))
	if err != nil {
		return cfg, err
	}
	cfg.Renderer.ScreenWidth = uint32(w)

	h, err := envInt("MARU_HEIGHT", int(cfg.Renderer.ScreenHeight))
	if err != nil {
		return cfg, err
	}
	cfg.Renderer.ScreenHeight = uint32(h)

	if cfg.Renderer.FramesInFlight, err = envInt("MARU_FRAMES_IN_FLIGHT", cfg.Renderer.FramesInFlight); err != nil {
		return cfg, err
	}
	if cfg.Resources.ShaderCacheSize, err = envInt("MARU_SHADER_CACHE", cfg.Resources.ShaderCacheSize); err != nil {
		return cfg, err
	}
	cfg.Renderer.ShaderPack = envy.Get("MARU_SHADER_PACK", cfg.Renderer.ShaderPack)

	return cfg, nil
}

func envInt(key string, def int) (int, error) {
	raw := envy.Get(key, strconv.Itoa(def))
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def, fmt.Errorf("configuration %s: %w", key, err)
	}
	return val, nil
}
