package core_test

import (
	"testing"

	"github.com/gobuffalo/envy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devblok/maru/core"
)

func TestFromEnvDefaults(t *testing.T) {
	envy.Temp(func() {
		cfg, err := core.FromEnv()
		require.NoError(t, err)
		assert.Equal(t, core.DefaultConfiguration, cfg)
	})
}

func TestFromEnvOverrides(t *testing.T) {
	envy.Temp(func() {
		envy.Set("MARU_FPS", "144")
		envy.Set("MARU_WIDTH", "1920")
		envy.Set("MARU_HEIGHT", "1080")
		envy.Set("MARU_FRAMES_IN_FLIGHT", "3")
		envy.Set("MARU_SHADER_PACK", "/opt/maru/shaders.spak")

		cfg, err := core.FromEnv()
		require.NoError(t, err)
		assert.Equal(t, 144, cfg.Time.FramesPerSecond)
		assert.Equal(t, uint32(1920), cfg.Renderer.ScreenWidth)
		assert.Equal(t, uint32(1080), cfg.Renderer.ScreenHeight)
		assert.Equal(t, 3, cfg.Renderer.FramesInFlight)
		assert.Equal(t, "/opt/maru/shaders.spak", cfg.Renderer.ShaderPack)
	})
}

func TestFromEnvRejectsGarbage(t *testing.T) {
	envy.Temp(func() {
		envy.Set("MARU_WIDTH", "wide")

		_, err := core.FromEnv()
		assert.Error(t, err)
	})
}
