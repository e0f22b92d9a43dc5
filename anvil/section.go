package anvil

import (
	"github.com/Tnze/go-mc/level"
	"github.com/Tnze/go-mc/save"

	"github.com/b1naryth1ef/minimap"
)

const sectionVolume = 16 * 16 * 16

// section is a decoded chunk section with its palette already resolved to
// minimap block ids.
type section struct {
	palette []int
	storage *level.BitStorage
}

// column holds the decoded sections of one chunk, keyed by section Y.
type column struct {
	sections map[int]*section
}

var emptyColumn = &column{sections: map[int]*section{}}

var finishedStatuses = map[string]struct{}{
	"minecraft:full":          {},
	"minecraft:spawn":         {},
	"minecraft:postprocessed": {},
	"minecraft:fullchunk":     {},
	"full":                    {},
	"postprocessed":           {},
}

func decodeColumn(chunk *save.Chunk, registry *minimap.Registry) *column {
	if _, ok := finishedStatuses[string(chunk.Status)]; !ok {
		return emptyColumn
	}

	col := &column{sections: make(map[int]*section, len(chunk.Sections))}
	for _, s := range chunk.Sections {
		sec := decodeSection(s, registry)
		if sec == nil {
			continue
		}
		col.sections[int(s.Y)] = sec
	}
	return col
}

func decodeSection(s save.Section, registry *minimap.Registry) *section {
	if len(s.BlockStates.Palette) == 0 {
		return nil
	}

	palette := make([]int, len(s.BlockStates.Palette))
	solid := false
	for i, state := range s.BlockStates.Palette {
		palette[i] = registry.ID(string(state.Name))
		if palette[i] != 0 {
			solid = true
		}
	}
	if !solid {
		return nil
	}

	sec := &section{palette: palette}
	if len(palette) > 1 && len(s.BlockStates.Data) > 0 {
		v := calcBitsPerValue(sectionVolume, len(s.BlockStates.Data))
		sec.storage = level.NewBitStorage(v, sectionVolume, s.BlockStates.Data)
	}
	return sec
}

// blockID returns the id at section-local coordinates.
func (s *section) blockID(x, y, z int) int {
	if s.storage == nil {
		return s.palette[0]
	}
	idx := s.storage.Get((((y * 16) + z) * 16) + x)
	if idx < 0 || idx >= len(s.palette) {
		return 0
	}
	return s.palette[idx]
}

func calcBitsPerValue(length, longs int) (bits int) {
	if longs == 0 || length == 0 {
		return 0
	}
	valuePerLong := (length + longs - 1) / longs
	return 64 / valuePerLong
}
