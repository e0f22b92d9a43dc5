package minimap

import (
	"context"
	"fmt"
	"image"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

const DefaultCadence = 500 * time.Millisecond

type LoopState int32

const (
	StateRunning LoopState = iota
	StateWaiting
	StateStopped
)

func (s LoopState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateWaiting:
		return "waiting"
	default:
		return "stopped"
	}
}

type RenderLoopOpts struct {
	Cadence time.Duration
	Now     func() time.Time
}

// RenderLoop repeatedly renders the minimap on a single goroutine and
// publishes a packed frame after every pass.
type RenderLoop struct {
	builder   *FrameBuilder
	source    ViewSource
	zoom      *Zoom
	cache     *ColumnCache
	publisher *Publisher

	cadence time.Duration
	now     func() time.Time
	output  *image.NRGBA
	state   atomic.Int32
	stats   loopCounters
	logger  *log.Entry
}

func NewRenderLoop(opts RenderLoopOpts, builder *FrameBuilder, source ViewSource, zoom *Zoom, cache *ColumnCache, publisher *Publisher) *RenderLoop {
	if opts.Cadence <= 0 {
		opts.Cadence = DefaultCadence
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	l := &RenderLoop{
		builder:   builder,
		source:    source,
		zoom:      zoom,
		cache:     cache,
		publisher: publisher,
		cadence:   opts.Cadence,
		now:       opts.Now,
		output:    image.NewNRGBA(image.Rect(0, 0, builder.Width(), builder.Width())),
		logger:    log.WithField("component", "renderer"),
	}
	l.state.Store(int32(StateStopped))
	return l
}

func (l *RenderLoop) State() LoopState {
	return LoopState(l.state.Load())
}

// Run renders until ctx is cancelled. A failing pass is logged and the next
// pass runs on the usual cadence.
func (l *RenderLoop) Run(ctx context.Context) error {
	defer l.state.Store(int32(StateStopped))
	l.logger.Infof("render loop started (width %d, cadence %s)", l.builder.Width(), l.cadence)

	for {
		if err := ctx.Err(); err != nil {
			l.logger.Infof("render loop stopped after %d passes", l.stats.passes.Load())
			return nil
		}

		l.state.Store(int32(StateRunning))
		start := l.now()
		changed := l.zoom.Changed()
		scale := l.zoom.Scale()

		l.RunPass(scale)

		remaining := l.cadence - l.now().Sub(start)
		if remaining > 0 && l.zoom.Scale() == scale {
			l.state.Store(int32(StateWaiting))
			l.wait(ctx, remaining, changed)
		}
	}
}

func (l *RenderLoop) wait(ctx context.Context, d time.Duration, changed <-chan struct{}) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	case <-changed:
	}
}

// RunPass renders, masks, packs and publishes a single frame at scale.
func (l *RenderLoop) RunPass(scale int) (frame *Frame, err error) {
	l.stats.passes.Add(1)

	defer func() {
		if r := recover(); r != nil {
			frame = nil
			err = fmt.Errorf("render pass panicked: %v", r)
		}
		if err != nil {
			l.stats.failed.Add(1)
			l.logger.Errorf("render pass failed: %v", err)
		}
	}()

	view, err := l.source.View()
	if err != nil {
		return nil, fmt.Errorf("failed to get view: %w", err)
	}

	result, err := l.builder.Build(view, scale, l.output)
	if err != nil {
		return nil, err
	}
	if result.Aborted {
		l.stats.aborted.Add(1)
	}

	ApplyCircleMask(l.output)

	bounds := l.output.Bounds()
	frame = &Frame{
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Pix:        PackImage(l.output),
		Scale:      scale,
		Aborted:    result.Aborted,
		Cells:      result.Cells,
		Duration:   result.Duration,
		RenderedAt: l.now(),
	}
	l.publisher.Publish(frame)
	l.stats.record(result)

	return frame, nil
}

func (l *RenderLoop) Stats() Stats {
	stats := l.stats.snapshot()
	stats.State = l.State().String()
	if l.cache != nil {
		stats.CacheSize = l.cache.Len()
		stats.CacheCapacity = l.cache.Capacity()
	}
	return stats
}
