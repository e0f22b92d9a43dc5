package minimap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScaleDivisor(t *testing.T) {
	assert.Equal(t, 1, ScaleDivisor(0))
	assert.Equal(t, 1, ScaleDivisor(-16))
	assert.Equal(t, 1, ScaleDivisor(15))
	assert.Equal(t, 2, ScaleDivisor(16))
	assert.Equal(t, 3, ScaleDivisor(32))
	assert.Equal(t, 9, ScaleDivisor(128))
}

func TestZoomCycleWraps(t *testing.T) {
	zoom := NewZoom([]int{0, 32, 64})
	assert.Equal(t, 0, zoom.Scale())

	scale, idx := zoom.Cycle()
	assert.Equal(t, 32, scale)
	assert.Equal(t, 1, idx)

	scale, idx = zoom.Cycle()
	assert.Equal(t, 64, scale)
	assert.Equal(t, 2, idx)

	scale, idx = zoom.Cycle()
	assert.Equal(t, 0, scale)
	assert.Equal(t, 0, idx)
	assert.Equal(t, 0, zoom.Scale())
}

func TestZoomCycleFromUnlistedScale(t *testing.T) {
	zoom := NewZoom(nil)
	assert.Equal(t, DefaultZoomLevels, zoom.Levels())

	zoom.Set(17)
	scale, idx := zoom.Cycle()
	assert.Equal(t, DefaultZoomLevels[0], scale)
	assert.Equal(t, 0, idx)
}

func TestZoomChangedClosesOnChange(t *testing.T) {
	zoom := NewZoom(nil)
	changed := zoom.Changed()

	zoom.Set(0)
	select {
	case <-changed:
		t.Fatal("channel closed without a scale change")
	default:
	}

	zoom.Set(48)
	select {
	case <-changed:
	default:
		t.Fatal("channel not closed after a scale change")
	}
	assert.Equal(t, 48, zoom.Scale())

	next := zoom.Changed()
	select {
	case <-next:
		t.Fatal("fresh channel already closed")
	default:
	}
}

func TestZoomConcurrentCycleAdvancesOncePerCall(t *testing.T) {
	levels := []int{0, 16, 32, 48}
	zoom := NewZoom(levels)

	const calls = 64
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[int]int)
	)
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, idx := zoom.Cycle()
			mu.Lock()
			seen[idx]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, zoom.Scale())
	for idx := range levels {
		assert.Equal(t, calls/len(levels), seen[idx], "level %d", idx)
	}
}
