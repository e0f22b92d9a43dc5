package minimap

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig("minimap.hcl", []byte(`
width = 128
cadence = "250ms"
zoom_levels = [0, 32]
void_color = rgb(16, 32, 48)
palette = "palette.yaml"

world {
  path = "/srv/world/region"
  min_y = 0
  height = 256
}

log {
  level = "debug"
  json = true
}

output {
  listen = ":8080"
  snapshot = "/tmp/minimap.png"
}
`))
	require.NoError(t, err)

	assert.Equal(t, 128, cfg.Width)
	assert.Equal(t, 250*time.Millisecond, cfg.CadenceDuration())
	assert.Equal(t, DefaultBudget, cfg.BudgetDuration())
	assert.Equal(t, 4*128*128, cfg.CacheCapacity)
	assert.Equal(t, []int{0, 32}, cfg.ZoomLevels)
	assert.Equal(t, "#102030", cfg.VoidColor)
	assert.Equal(t, "palette.yaml", cfg.Palette)

	require.NotNil(t, cfg.World)
	assert.Equal(t, "/srv/world/region", cfg.World.Path)
	require.NotNil(t, cfg.World.MinY)
	assert.Equal(t, 0, *cfg.World.MinY)
	assert.Equal(t, 256, cfg.World.Height)
	assert.Equal(t, 4096, cfg.World.ChunkCache)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, ":8080", cfg.Output.Listen)
	assert.Equal(t, 5*time.Second, cfg.Output.SnapshotIntervalDuration())
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultWidth, cfg.Width)
	assert.Equal(t, DefaultCadence, cfg.CadenceDuration())
	assert.Equal(t, DefaultBudget, cfg.BudgetDuration())
	assert.Equal(t, DefaultZoomLevels, cfg.ZoomLevels)
	assert.Nil(t, cfg.World)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestWorldDefaults(t *testing.T) {
	cfg, err := ParseConfig("minimap.hcl", []byte(`
world {
  path = "region"
}
`))
	require.NoError(t, err)
	assert.Equal(t, 0, *cfg.World.MinY)
	assert.Equal(t, 128, cfg.World.Height)
}

func TestWorldDefaultsShadeSeaLevel(t *testing.T) {
	cfg, err := ParseConfig("minimap.hcl", []byte(`
world {
  path = "region"
}
`))
	require.NoError(t, err)

	grass := classicColors[2]
	black := color.NRGBA{A: 255}
	for _, y := range []int{50, 63, 64, 80, 100} {
		d := ShadeDelta(y-*cfg.World.MinY, cfg.World.Height)
		assert.NotEqual(t, black, Shade(grass, d), "y %d", y)
	}
	assert.Equal(t, Shade(grass, -4), Shade(grass, ShadeDelta(63-*cfg.World.MinY, cfg.World.Height)))
}

func TestParseConfigInvalid(t *testing.T) {
	cases := map[string]string{
		"odd width":      `width = 9`,
		"small width":    `width = 4`,
		"bad cadence":    `cadence = "soon"`,
		"zero budget":    `budget = "0s"`,
		"negative zoom":  `zoom_levels = [0, -16]`,
		"bad void":       `void_color = "nope"`,
		"bad height":     "world {\n  path = \"r\"\n  height = 100\n}",
		"bad interval":   "output {\n  snapshot_interval = \"x\"\n}",
		"negative cache": `cache_capacity = -1`,
	}
	for name, src := range cases {
		_, err := ParseConfig("minimap.hcl", []byte(src))
		assert.ErrorIs(t, err, ErrInvalidConfig, name)
	}

	_, err := ParseConfig("minimap.hcl", []byte(`void_color = rgb(300, 0, 0)`))
	assert.Error(t, err)

	_, err = ParseConfig("minimap.hcl", []byte(`unknown = 1`))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minimap.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`width = 64`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.hcl"))
	assert.Error(t, err)
}

func TestConfigureLogging(t *testing.T) {
	defer log.SetLevel(log.InfoLevel)
	defer log.SetOutput(os.Stderr)

	path := filepath.Join(t.TempDir(), "minimap.log")
	closer, err := ConfigureLogging(&LogConfigBlock{Level: "warn", File: path})
	require.NoError(t, err)
	assert.Equal(t, log.WarnLevel, log.GetLevel())

	log.Warn("written to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")

	_, err = ConfigureLogging(&LogConfigBlock{Level: "loud"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
