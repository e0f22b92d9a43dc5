package minimap

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSource struct{}

func (failingSource) View() (View, error) {
	return View{}, errors.New("player not loaded")
}

type panicWorld struct{}

func (panicWorld) MaxHeight() int { return 16 }

func (panicWorld) BlockTypeAt(x, y, z int) int {
	panic("chunk storage corrupted")
}

func newTestLoop(t *testing.T, source ViewSource, zoom *Zoom, cadence time.Duration) (*RenderLoop, *Publisher) {
	t.Helper()
	cache := NewColumnCache(4096)
	builder := NewFrameBuilder(FrameBuilderOpts{Width: 16, Budget: time.Hour}, cache, idColors{}, zoom)
	publisher := NewPublisher()
	loop := NewRenderLoop(RenderLoopOpts{Cadence: cadence}, builder, source, zoom, cache, publisher)
	return loop, publisher
}

func TestRunPassPublishes(t *testing.T) {
	zoom := NewZoom(nil)
	loop, publisher := newTestLoop(t, NewStaticView(&gridWorld{height: 32}, 0, 0), zoom, time.Second)

	frame, err := loop.RunPass(0)
	require.NoError(t, err)
	require.NotNil(t, frame)

	assert.Same(t, frame, publisher.Latest())
	assert.Equal(t, uint64(1), frame.Seq)
	assert.Equal(t, 16, frame.Width)
	assert.Equal(t, 16, frame.Height)
	assert.Len(t, frame.Pix, 16*16*4)
	assert.Equal(t, 256, frame.Cells)
	assert.False(t, frame.Aborted)

	// corner is masked, center is rendered
	img := frame.Image()
	assert.Equal(t, transparent, img.NRGBAAt(0, 0))
	assert.Equal(t, uint8(255), img.NRGBAAt(8, 8).A)

	stats := loop.Stats()
	assert.Equal(t, uint64(1), stats.Passes)
	assert.Equal(t, uint64(1), stats.Published)
	assert.Equal(t, int64(256), stats.LastCells)
	assert.Equal(t, 4096, stats.CacheCapacity)
	assert.Equal(t, 256, stats.CacheSize)
	assert.Equal(t, "stopped", stats.State)
}

func TestRunPassFailures(t *testing.T) {
	zoom := NewZoom(nil)

	loop, publisher := newTestLoop(t, failingSource{}, zoom, time.Second)
	frame, err := loop.RunPass(0)
	assert.Error(t, err)
	assert.Nil(t, frame)
	assert.Nil(t, publisher.Latest())

	loop, publisher = newTestLoop(t, NewStaticView(panicWorld{}, 0, 0), zoom, time.Second)
	frame, err = loop.RunPass(0)
	assert.ErrorContains(t, err, "panicked")
	assert.Nil(t, frame)
	assert.Nil(t, publisher.Latest())

	stats := loop.Stats()
	assert.Equal(t, uint64(1), stats.Failed)
	assert.Equal(t, uint64(0), stats.Published)
}

func TestRunSurvivesFailingPasses(t *testing.T) {
	loop, _ := newTestLoop(t, failingSource{}, NewZoom(nil), 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	require.Eventually(t, func() bool {
		return loop.Stats().Failed >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("render loop did not stop")
	}
	assert.Equal(t, StateStopped, loop.State())
}

func TestRunPublishesOnCadence(t *testing.T) {
	loop, publisher := newTestLoop(t, NewStaticView(&gridWorld{height: 32}, 0, 0), NewZoom(nil), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, loop.Run(ctx))
	}()

	require.Eventually(t, func() bool {
		frame := publisher.Latest()
		return frame != nil && frame.Seq >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	wg.Wait()
	assert.Equal(t, StateStopped, loop.State())
}

func TestRunRestartsImmediatelyAfterZoomAbort(t *testing.T) {
	zoom := NewZoom(nil)
	world := &tripWorld{World: &gridWorld{height: 32}, zoom: zoom, scale: 16, at: 20}
	loop, publisher := newTestLoop(t, NewStaticView(world, 0, 0), zoom, time.Hour)

	frames, unsubscribe := publisher.Subscribe(4)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	var got []*Frame
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case frame := <-frames:
			got = append(got, frame)
		case <-timeout:
			t.Fatalf("received %d frames, want 2", len(got))
		}
	}

	assert.True(t, got[0].Aborted)
	assert.Equal(t, 0, got[0].Scale)
	assert.Equal(t, 20, got[0].Cells)
	assert.False(t, got[1].Aborted)
	assert.Equal(t, 16, got[1].Scale)

	require.Eventually(t, func() bool {
		return loop.State() == StateWaiting
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("render loop did not stop")
	}
	assert.Equal(t, StateStopped, loop.State())
	assert.Equal(t, uint64(1), loop.Stats().Aborted)
}

func TestRunWakesOnZoomChange(t *testing.T) {
	zoom := NewZoom(nil)
	loop, publisher := newTestLoop(t, NewStaticView(&gridWorld{height: 32}, 0, 0), zoom, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	require.Eventually(t, func() bool {
		return publisher.Latest() != nil && loop.State() == StateWaiting
	}, 2*time.Second, time.Millisecond)

	zoom.Set(64)

	require.Eventually(t, func() bool {
		frame := publisher.Latest()
		return frame.Seq == 2 && frame.Scale == 64
	}, 2*time.Second, time.Millisecond)
}
