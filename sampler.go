package minimap

// ColumnSample is the topmost non-empty voxel of a column. The zero value
// doubles as "no data": a block of type 0 at height 0 cannot be told apart
// from an empty or unavailable column.
type ColumnSample struct {
	Height  int
	BlockID int
}

func (s ColumnSample) IsSentinel() bool {
	return s.Height == 0 && s.BlockID == 0
}

// SampleColumn scans down from the top of the world and returns the first
// non-air voxel at (x, z). A nil world yields the sentinel.
func SampleColumn(world World, x, z int) ColumnSample {
	if world == nil {
		return ColumnSample{}
	}

	for y := world.MaxHeight() - 1; y >= 0; y-- {
		id := world.BlockTypeAt(x, y, z)
		if id > 0 {
			return ColumnSample{Height: y, BlockID: id}
		}
	}
	return ColumnSample{}
}
