package minimap

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/gamut"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ColorMapper returns the unshaded color of a block type at a pixel.
type ColorMapper interface {
	BaseColor(id, localX, localZ int) color.NRGBA
}

var classicColors = map[int]color.NRGBA{
	1:   {R: 125, G: 125, B: 125, A: 255},
	2:   {R: 95, G: 159, B: 53, A: 255},
	3:   {R: 134, G: 96, B: 67, A: 255},
	4:   {R: 122, G: 122, B: 122, A: 255},
	5:   {R: 162, G: 130, B: 78, A: 255},
	6:   {R: 71, G: 102, B: 37, A: 255},
	7:   {R: 84, G: 84, B: 84, A: 255},
	9:   {R: 63, G: 118, B: 228, A: 255},
	11:  {R: 207, G: 92, B: 20, A: 255},
	12:  {R: 219, G: 207, B: 163, A: 255},
	13:  {R: 136, G: 126, B: 126, A: 255},
	14:  {R: 143, G: 140, B: 125, A: 255},
	15:  {R: 136, G: 130, B: 127, A: 255},
	16:  {R: 115, G: 115, B: 115, A: 255},
	17:  {R: 102, G: 81, B: 51, A: 255},
	18:  {R: 60, G: 120, B: 30, A: 255},
	19:  {R: 195, G: 192, B: 74, A: 255},
	20:  {R: 218, G: 240, B: 244, A: 255},
	21:  {R: 102, G: 112, B: 134, A: 255},
	24:  {R: 216, G: 203, B: 155, A: 255},
	31:  {R: 110, G: 170, B: 60, A: 255},
	35:  {R: 234, G: 234, B: 234, A: 255},
	37:  {R: 245, G: 220, B: 50, A: 255},
	38:  {R: 200, G: 30, B: 30, A: 255},
	41:  {R: 246, G: 208, B: 61, A: 255},
	42:  {R: 220, G: 220, B: 220, A: 255},
	45:  {R: 150, G: 97, B: 83, A: 255},
	48:  {R: 110, G: 130, B: 100, A: 255},
	49:  {R: 20, G: 18, B: 29, A: 255},
	50:  {R: 255, G: 200, B: 80, A: 255},
	56:  {R: 125, G: 142, B: 141, A: 255},
	57:  {R: 98, G: 219, B: 214, A: 255},
	60:  {R: 110, G: 70, B: 40, A: 255},
	73:  {R: 133, G: 107, B: 107, A: 255},
	78:  {R: 249, G: 254, B: 254, A: 255},
	79:  {R: 145, G: 183, B: 253, A: 255},
	80:  {R: 240, G: 251, B: 251, A: 255},
	81:  {R: 85, G: 127, B: 43, A: 255},
	82:  {R: 160, G: 166, B: 179, A: 255},
	83:  {R: 148, G: 192, B: 101, A: 255},
	86:  {R: 198, G: 118, B: 24, A: 255},
	87:  {R: 111, G: 54, B: 52, A: 255},
	88:  {R: 84, G: 64, B: 51, A: 255},
	89:  {R: 171, G: 131, B: 84, A: 255},
	98:  {R: 122, G: 121, B: 122, A: 255},
	103: {R: 111, G: 145, B: 30, A: 255},
	110: {R: 111, G: 99, B: 105, A: 255},
	111: {R: 32, G: 128, B: 48, A: 255},
	112: {R: 44, G: 21, B: 26, A: 255},
	121: {R: 219, G: 222, B: 158, A: 255},
	129: {R: 117, G: 136, B: 124, A: 255},
	172: {R: 152, G: 94, B: 67, A: 255},
	174: {R: 141, G: 180, B: 250, A: 255},
}

// classicNoise is the brightness jitter applied to naturally uneven surfaces.
var classicNoise = map[int]int{
	1:  5,
	2:  10,
	3:  6,
	9:  4,
	12: 6,
	13: 10,
	18: 12,
	31: 10,
}

// tinted blocks have grayscale textures that only make sense after biome
// coloring, so their classic colors are kept when loading textures.
var tintedBlocks = map[string]struct{}{
	"minecraft:grass_block": {},
	"minecraft:short_grass": {},
	"minecraft:tall_grass":  {},
	"minecraft:fern":        {},
	"minecraft:vine":        {},
	"minecraft:water":       {},
	"minecraft:oak_leaves":  {},
	"minecraft:lily_pad":    {},
	"minecraft:sugar_cane":  {},
}

const fallbackColorCount = 32

// Palette is an immutable ColorMapper. It is safe for concurrent use.
type Palette struct {
	colors   map[int]color.NRGBA
	noise    map[int]int
	void     color.NRGBA
	fallback []color.NRGBA
}

func (p *Palette) BaseColor(id, localX, localZ int) color.NRGBA {
	if id == 0 {
		return p.void
	}

	clr, ok := p.colors[id]
	if !ok {
		idx := id % len(p.fallback)
		if idx < 0 {
			idx = -idx
		}
		clr = p.fallback[idx]
	}

	if amp := p.noise[id]; amp > 0 {
		clr = jitterColor(clr, amp, localX, localZ)
	}
	return clr
}

// jitterColor shifts the HSV value of clr by a deterministic amount in
// [-amp, amp] derived from the pixel coordinate.
func jitterColor(clr color.NRGBA, amp, x, z int) color.NRGBA {
	h := uint32(x)*73856093 ^ uint32(z)*19349663
	h ^= h >> 13
	h *= 0x5bd1e995
	h ^= h >> 15
	j := int(h%uint32(2*amp+1)) - amp

	c, _ := colorful.MakeColor(clr)
	hue, sat, val := c.Hsv()
	val += float64(j) / 255.0
	if val < 0 {
		val = 0
	} else if val > 1 {
		val = 1
	}
	r, g, b := colorful.Hsv(hue, sat, val).Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: clr.A}
}

// PaletteBuilder assembles a Palette from the classic table, client jar
// textures and user overrides.
type PaletteBuilder struct {
	colors map[int]color.NRGBA
	noise  map[int]int
	void   color.NRGBA
}

func NewPaletteBuilder() *PaletteBuilder {
	b := &PaletteBuilder{
		colors: make(map[int]color.NRGBA, len(classicColors)),
		noise:  make(map[int]int, len(classicNoise)),
		void:   color.NRGBA{A: 255},
	}
	for id, clr := range classicColors {
		b.colors[id] = clr
	}
	for id, amp := range classicNoise {
		b.noise[id] = amp
	}
	return b
}

func (b *PaletteBuilder) SetColor(id int, clr color.NRGBA) *PaletteBuilder {
	clr.A = 255
	b.colors[id] = clr
	return b
}

func (b *PaletteBuilder) SetNoise(id, amp int) *PaletteBuilder {
	if amp <= 0 {
		delete(b.noise, id)
	} else {
		b.noise[id] = amp
	}
	return b
}

func (b *PaletteBuilder) SetVoidColor(clr color.NRGBA) *PaletteBuilder {
	clr.A = 255
	b.void = clr
	return b
}

// LoadTextures replaces base colors with the average color of each block's
// texture in the client jar. It returns the number of colors replaced.
func (b *PaletteBuilder) LoadTextures(loader *AssetLoader, registry *Registry) int {
	count := 0
	for id, name := range registry.Names() {
		if _, ok := tintedBlocks[name]; ok {
			continue
		}

		texture, err := loader.LoadBlockTexture(name)
		if err != nil {
			log.WithField("component", "palette").Debugf("no texture for %s: %v", name, err)
			continue
		}

		clr, ok := averageTextureColor(texture)
		if !ok {
			continue
		}
		b.colors[id] = clr
		count++
	}
	return count
}

type paletteOverrides struct {
	Void   string            `yaml:"void"`
	Colors map[string]string `yaml:"colors"`
	Noise  map[string]int    `yaml:"noise"`
}

// LoadOverrides applies a YAML file of colors and noise amplitudes keyed by
// numeric block id or block name.
func (b *PaletteBuilder) LoadOverrides(path string, registry *Registry) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read palette overrides %s: %w", path, err)
	}
	return b.ApplyOverrides(data, registry)
}

func (b *PaletteBuilder) ApplyOverrides(data []byte, registry *Registry) error {
	var overrides paletteOverrides
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("failed to decode palette overrides: %w", err)
	}

	if overrides.Void != "" {
		clr, err := ParseHexColor(overrides.Void)
		if err != nil {
			return err
		}
		b.SetVoidColor(clr)
	}

	for key, hex := range overrides.Colors {
		clr, err := ParseHexColor(hex)
		if err != nil {
			return fmt.Errorf("block %s: %w", key, err)
		}
		b.SetColor(resolveBlockKey(key, registry), clr)
	}

	for key, amp := range overrides.Noise {
		b.SetNoise(resolveBlockKey(key, registry), amp)
	}
	return nil
}

func (b *PaletteBuilder) Build() (*Palette, error) {
	generated, err := gamut.Generate(fallbackColorCount, gamut.PastelGenerator{})
	if err != nil {
		return nil, fmt.Errorf("failed to generate fallback palette: %w", err)
	}

	fallback := make([]color.NRGBA, 0, len(generated))
	for _, c := range generated {
		clr := color.NRGBAModel.Convert(c).(color.NRGBA)
		clr.A = 255
		fallback = append(fallback, clr)
	}
	if len(fallback) == 0 {
		fallback = append(fallback, color.NRGBA{R: 255, G: 0, B: 255, A: 255})
	}

	colors := make(map[int]color.NRGBA, len(b.colors))
	for id, clr := range b.colors {
		colors[id] = clr
	}
	noise := make(map[int]int, len(b.noise))
	for id, amp := range b.noise {
		noise[id] = amp
	}

	return &Palette{
		colors:   colors,
		noise:    noise,
		void:     b.void,
		fallback: fallback,
	}, nil
}

func resolveBlockKey(key string, registry *Registry) int {
	if id, err := strconv.Atoi(key); err == nil {
		return id
	}
	return registry.ID(strings.TrimSpace(key))
}

func ParseHexColor(hex string) (color.NRGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// averageTextureColor is the alpha weighted mean of a texture. RGBA()
// already premultiplies by alpha, so summing the channels weights them.
func averageTextureColor(texture image.Image) (color.NRGBA, bool) {
	bounds := texture.Bounds()
	var rr, gg, bb, aa float64
	for i := bounds.Min.X; i < bounds.Max.X; i++ {
		for j := bounds.Min.Y; j < bounds.Max.Y; j++ {
			r, g, b, a := texture.At(i, j).RGBA()
			rr += float64(r)
			gg += float64(g)
			bb += float64(b)
			aa += float64(a)
		}
	}
	if aa == 0 {
		return color.NRGBA{}, false
	}
	return color.NRGBA{
		R: uint8(rr/aa*255 + 0.5),
		G: uint8(gg/aa*255 + 0.5),
		B: uint8(bb/aa*255 + 0.5),
		A: 255,
	}, true
}
