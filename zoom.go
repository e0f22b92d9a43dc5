package minimap

import (
	"sync"
	"sync/atomic"
)

var DefaultZoomLevels = []int{0, 16, 32, 48, 64, 80, 96, 128}

// ScaleDivisor maps a zoom scale to the number of pixels one world column
// spans along each axis.
func ScaleDivisor(scale int) int {
	if scale <= 0 {
		return 1
	}
	return 1 + scale/16
}

// Zoom holds the current scale. It is written by input handling and read
// without locking by the render loop.
type Zoom struct {
	scale atomic.Int32

	mu      sync.Mutex
	levels  []int
	changed chan struct{}
}

func NewZoom(levels []int) *Zoom {
	if len(levels) == 0 {
		levels = DefaultZoomLevels
	}
	z := &Zoom{
		levels:  append([]int(nil), levels...),
		changed: make(chan struct{}),
	}
	z.scale.Store(int32(z.levels[0]))
	return z
}

func (z *Zoom) Scale() int {
	return int(z.scale.Load())
}

// Changed returns a channel that is closed the next time the scale changes.
func (z *Zoom) Changed() <-chan struct{} {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.changed
}

func (z *Zoom) Set(scale int) {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.setLocked(scale)
}

func (z *Zoom) setLocked(scale int) {
	if int(z.scale.Load()) == scale {
		return
	}
	z.scale.Store(int32(scale))
	close(z.changed)
	z.changed = make(chan struct{})
}

// Cycle advances to the next configured level, wrapping around, and returns
// the new scale and its position in the level list.
func (z *Zoom) Cycle() (int, int) {
	z.mu.Lock()
	defer z.mu.Unlock()

	current := z.Scale()
	next := 0
	for i, level := range z.levels {
		if level == current {
			next = (i + 1) % len(z.levels)
			break
		}
	}
	z.setLocked(z.levels[next])
	return z.levels[next], next
}

func (z *Zoom) Levels() []int {
	return append([]int(nil), z.levels...)
}
