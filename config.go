package minimap

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

var ErrInvalidConfig = errors.New("invalid config")

// The default world window puts sea level (y 63) next to the shading midpoint.
// Terrain above DefaultWorldHeight is not scanned.
const (
	DefaultWorldMinY   = 0
	DefaultWorldHeight = 128
)

type Config struct {
	Width         int    `hcl:"width,optional"`
	Cadence       string `hcl:"cadence,optional"`
	Budget        string `hcl:"budget,optional"`
	CacheCapacity int    `hcl:"cache_capacity,optional"`
	ZoomLevels    []int  `hcl:"zoom_levels,optional"`
	Palette       string `hcl:"palette,optional"`
	ClientJar     string `hcl:"client_jar,optional"`
	VoidColor     string `hcl:"void_color,optional"`

	World  *WorldConfigBlock  `hcl:"world,block"`
	Log    *LogConfigBlock    `hcl:"log,block"`
	Output *OutputConfigBlock `hcl:"output,block"`

	cadence time.Duration
	budget  time.Duration
}

type WorldConfigBlock struct {
	Path       string `hcl:"path"`
	Version    string `hcl:"version,optional"`
	MinY       *int   `hcl:"min_y,optional"`
	Height     int    `hcl:"height,optional"`
	ChunkCache int    `hcl:"chunk_cache,optional"`
}

type LogConfigBlock struct {
	Level      string `hcl:"level,optional"`
	File       string `hcl:"file,optional"`
	MaxSizeMB  int    `hcl:"max_size_mb,optional"`
	MaxBackups int    `hcl:"max_backups,optional"`
	JSON       bool   `hcl:"json,optional"`
}

type OutputConfigBlock struct {
	Snapshot         string `hcl:"snapshot,optional"`
	SnapshotInterval string `hcl:"snapshot_interval,optional"`
	Record           string `hcl:"record,optional"`
	Listen           string `hcl:"listen,optional"`

	snapshotInterval time.Duration
}

// rgbFunc lets configs write colors as rgb(r, g, b).
var rgbFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "r", Type: cty.Number},
		{Name: "g", Type: cty.Number},
		{Name: "b", Type: cty.Number},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		var channels [3]int64
		for i, arg := range args {
			v, acc := arg.AsBigFloat().Int64()
			if acc != big.Exact || v < 0 || v > 255 {
				return cty.NilVal, fmt.Errorf("channel %d must be an integer in [0, 255]", i)
			}
			channels[i] = v
		}
		return cty.StringVal(fmt.Sprintf("#%02x%02x%02x", channels[0], channels[1], channels[2])), nil
	},
})

func newHCLEvalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{},
		Functions: map[string]function.Function{
			"rgb": rgbFunc,
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	var cfg Config
	err := hclsimple.DecodeFile(path, newHCLEvalContext(), &cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseConfig decodes HCL source; filename is only used for diagnostics and
// must end in .hcl.
func ParseConfig(filename string, src []byte) (*Config, error) {
	var cfg Config
	err := hclsimple.Decode(filename, src, newHCLEvalContext(), &cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultConfig is the configuration used when no file is given.
func DefaultConfig() *Config {
	cfg := &Config{}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

// Validate fills in defaults and checks ranges.
func (c *Config) Validate() error {
	if c.Width == 0 {
		c.Width = DefaultWidth
	}
	if c.Width < 8 || c.Width%2 != 0 {
		return fmt.Errorf("%w: width must be an even number >= 8, got %d", ErrInvalidConfig, c.Width)
	}

	var err error
	if c.cadence, err = parseDuration("cadence", c.Cadence, DefaultCadence); err != nil {
		return err
	}
	if c.budget, err = parseDuration("budget", c.Budget, DefaultBudget); err != nil {
		return err
	}

	if c.CacheCapacity == 0 {
		c.CacheCapacity = 4 * c.Width * c.Width
	}
	if c.CacheCapacity < 0 {
		return fmt.Errorf("%w: cache_capacity must be positive", ErrInvalidConfig)
	}

	if len(c.ZoomLevels) == 0 {
		c.ZoomLevels = append([]int(nil), DefaultZoomLevels...)
	}
	for _, level := range c.ZoomLevels {
		if level < 0 {
			return fmt.Errorf("%w: zoom level %d is negative", ErrInvalidConfig, level)
		}
	}

	if c.VoidColor != "" {
		if _, err := ParseHexColor(c.VoidColor); err != nil {
			return fmt.Errorf("%w: void_color: %v", ErrInvalidConfig, err)
		}
	}

	if c.World != nil {
		if c.World.MinY == nil {
			minY := DefaultWorldMinY
			c.World.MinY = &minY
		}
		if c.World.Height == 0 {
			c.World.Height = DefaultWorldHeight
		}
		if c.World.Height < 0 || c.World.Height%16 != 0 {
			return fmt.Errorf("%w: world height must be a positive multiple of 16", ErrInvalidConfig)
		}
		if c.World.ChunkCache == 0 {
			c.World.ChunkCache = 4096
		}
	}

	if c.Log == nil {
		c.Log = &LogConfigBlock{}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.Output == nil {
		c.Output = &OutputConfigBlock{}
	}
	if c.Output.snapshotInterval, err = parseDuration("snapshot_interval", c.Output.SnapshotInterval, 5*time.Second); err != nil {
		return err
	}

	return nil
}

func (c *Config) CadenceDuration() time.Duration {
	return c.cadence
}

func (c *Config) BudgetDuration() time.Duration {
	return c.budget
}

func (o *OutputConfigBlock) SnapshotIntervalDuration() time.Duration {
	return o.snapshotInterval
}

func parseDuration(name, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, name)
	}
	return d, nil
}
