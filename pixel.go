package minimap

import (
	"fmt"
	"image"
	"image/color"
	"time"

	log "github.com/sirupsen/logrus"
	xdraw "golang.org/x/image/draw"
)

const (
	DefaultWidth  = 256
	DefaultBudget = time.Second
)

var (
	transparent = color.NRGBA{R: 255, G: 255, B: 255, A: 0}
	// unrendered fills cells a pass did not reach.
	unrendered = color.NRGBA{A: 255}
)

type AbortReason int

const (
	AbortNone AbortReason = iota
	AbortBudget
	AbortZoom
)

func (r AbortReason) String() string {
	switch r {
	case AbortBudget:
		return "budget"
	case AbortZoom:
		return "zoom"
	default:
		return "none"
	}
}

type FrameBuilderOpts struct {
	Width  int
	Budget time.Duration
	// Now is used for the pass budget; defaults to time.Now.
	Now func() time.Time
}

// FrameBuilder renders the square region around the viewer into an image,
// one world column per cell.
type FrameBuilder struct {
	width  int
	budget time.Duration
	now    func() time.Time

	cache  *ColumnCache
	colors ColorMapper
	zoom   *Zoom
}

type PassResult struct {
	Scale    int
	Cells    int
	Aborted  bool
	Reason   AbortReason
	Duration time.Duration
}

func NewFrameBuilder(opts FrameBuilderOpts, cache *ColumnCache, colors ColorMapper, zoom *Zoom) *FrameBuilder {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Budget <= 0 {
		opts.Budget = DefaultBudget
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &FrameBuilder{
		width:  opts.Width,
		budget: opts.Budget,
		now:    opts.Now,
		cache:  cache,
		colors: colors,
		zoom:   zoom,
	}
}

func (b *FrameBuilder) Width() int {
	return b.width
}

// Build runs one pass at the given scale and writes the result to out. The
// pass stops early, keeping the cells rendered so far, when the budget runs
// out or the zoom no longer matches scale.
func (b *FrameBuilder) Build(view View, scale int, out *image.NRGBA) (PassResult, error) {
	result := PassResult{Scale: scale}
	if view.World == nil {
		return result, fmt.Errorf("%w: world unavailable", ErrNoView)
	}
	if out.Bounds().Dx() != b.width || out.Bounds().Dy() != b.width {
		return result, fmt.Errorf("output image is %v, expected %dx%d", out.Bounds().Size(), b.width, b.width)
	}

	start := b.now()
	maxHeight := view.World.MaxHeight()
	half := b.width / 2
	div := ScaleDivisor(scale)
	working := image.NewNRGBA(image.Rect(0, 0, b.width, b.width))
	xdraw.Draw(working, working.Bounds(), image.NewUniform(unrendered), image.Point{}, xdraw.Src)

	for x := -half; x < half; x++ {
		for z := -half; z < half; z++ {
			if reason := b.checkAbort(start, scale); reason != AbortNone {
				composite(out, working)
				result.Aborted = true
				result.Reason = reason
				result.Duration = b.now().Sub(start)
				log.WithField("component", "frame").Debugf("pass aborted (%s) after %d cells", reason, result.Cells)
				return result, nil
			}

			tx := view.X + x/div
			tz := view.Z + z/div

			sample := SampleColumn(view.World, tx, tz)
			if sample.IsSentinel() {
				if cached, ok := b.cache.Get(tx, tz); ok {
					sample = cached
				}
			} else {
				b.cache.Put(tx, tz, sample)
			}

			px, pz := x+half, z+half
			base := b.colors.BaseColor(sample.BlockID, px, pz)
			working.SetNRGBA(px, pz, Shade(base, ShadeDelta(sample.Height, maxHeight)))
			result.Cells++
		}
	}

	composite(out, working)
	result.Duration = b.now().Sub(start)
	return result, nil
}

func (b *FrameBuilder) checkAbort(start time.Time, scale int) AbortReason {
	if b.now().Sub(start) > b.budget {
		return AbortBudget
	}
	if b.zoom != nil && b.zoom.Scale() != scale {
		return AbortZoom
	}
	return AbortNone
}

// composite replaces out with working. Cells a pass never reached are
// opaque black, so an aborted frame holds nothing from earlier passes.
func composite(out, working *image.NRGBA) {
	xdraw.Draw(out, out.Bounds(), working, image.Point{}, xdraw.Src)
}

// ApplyCircleMask clears every pixel at or beyond radius-2 from the center,
// where radius is half the image width.
func ApplyCircleMask(img *image.NRGBA) {
	bounds := img.Bounds()
	radius := bounds.Dx() / 2
	limit := (radius - 2) * (radius - 2)
	for x := 0; x < bounds.Dx(); x++ {
		for z := 0; z < bounds.Dy(); z++ {
			xd := x - radius
			zd := z - radius
			if xd*xd+zd*zd >= limit {
				img.SetNRGBA(bounds.Min.X+x, bounds.Min.Y+z, transparent)
			}
		}
	}
}
