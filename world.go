package minimap

import "errors"

// ErrNoView is returned by a ViewSource that cannot currently describe the viewer.
var ErrNoView = errors.New("minimap: no view available")

// World is the voxel query surface the minimap samples. Block type 0 is air.
type World interface {
	MaxHeight() int
	BlockTypeAt(x, y, z int) int
}

// View is the read-only state a single render pass needs.
type View struct {
	World World
	X     int
	Z     int
}

type ViewSource interface {
	View() (View, error)
}

// FlatWorld is a world where every column is solid up to a fixed height.
type FlatWorld struct {
	Height    int
	Top       int
	BlockType int
}

func NewFlatWorld(height, top, blockType int) *FlatWorld {
	return &FlatWorld{
		Height:    height,
		Top:       top,
		BlockType: blockType,
	}
}

func (w *FlatWorld) MaxHeight() int {
	return w.Height
}

func (w *FlatWorld) BlockTypeAt(x, y, z int) int {
	if y > w.Top || y < 0 {
		return 0
	}
	return w.BlockType
}
