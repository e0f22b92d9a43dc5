package anvil

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/Tnze/go-mc/save"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b1naryth1ef/minimap"
)

func blockSection(names []string, data []uint64) save.Section {
	var s save.Section
	for _, name := range names {
		s.BlockStates.Palette = append(s.BlockStates.Palette, save.BlockState{Name: name})
	}
	s.BlockStates.Data = data
	return s
}

// testChunk has solid dirt in section 3 and a single stone block at
// section-local (1, 0, 2) in section 4.
func testChunk() *save.Chunk {
	data := make([]uint64, 256)
	idx := (0*16+2)*16 + 1
	data[idx/16] |= 1 << ((idx % 16) * 4)

	air := blockSection([]string{"minecraft:air"}, nil)
	air.Y = 2
	dirt := blockSection([]string{"minecraft:dirt"}, nil)
	dirt.Y = 3
	mixed := blockSection([]string{"minecraft:air", "minecraft:stone"}, data)
	mixed.Y = 4

	var chunk save.Chunk
	chunk.Status = "minecraft:full"
	chunk.Sections = []save.Section{air, dirt, mixed}
	return &chunk
}

func TestDecodeColumn(t *testing.T) {
	col := decodeColumn(testChunk(), minimap.NewRegistry())

	require.Len(t, col.sections, 2)
	assert.NotContains(t, col.sections, 2)

	dirt := col.sections[3]
	require.NotNil(t, dirt)
	assert.Equal(t, 3, dirt.blockID(0, 0, 0))
	assert.Equal(t, 3, dirt.blockID(15, 15, 15))

	mixed := col.sections[4]
	require.NotNil(t, mixed)
	assert.Equal(t, 1, mixed.blockID(1, 0, 2))
	assert.Equal(t, 0, mixed.blockID(2, 0, 1))
	assert.Equal(t, 0, mixed.blockID(1, 1, 2))
}

func TestDecodeColumnUnfinished(t *testing.T) {
	chunk := testChunk()
	chunk.Status = "minecraft:features"
	assert.Same(t, emptyColumn, decodeColumn(chunk, minimap.NewRegistry()))
}

func TestCalcBitsPerValue(t *testing.T) {
	assert.Equal(t, 4, calcBitsPerValue(4096, 256))
	assert.Equal(t, 5, calcBitsPerValue(4096, 342))
	assert.Equal(t, 0, calcBitsPerValue(4096, 0))
}

func TestWorldBlockTypeAt(t *testing.T) {
	world, err := Open(t.TempDir(), minimap.NewRegistry(), Opts{MinY: -64, Height: 384})
	require.NoError(t, err)
	defer world.Close()

	assert.Equal(t, 384, world.MaxHeight())

	// no region files, everything is air
	assert.Equal(t, 0, world.BlockTypeAt(0, 100, 0))
	assert.True(t, minimap.SampleColumn(world, 40, -40).IsSentinel())

	col := decodeColumn(testChunk(), world.registry)
	world.last.Store(&cachedColumn{key: chunkKey(0, 0), col: col})

	// section 4 starts at absolute y 64, which is y 128 above min_y -64
	assert.Equal(t, 1, world.BlockTypeAt(1, 128, 2))
	assert.Equal(t, 0, world.BlockTypeAt(1, 129, 2))
	assert.Equal(t, 3, world.BlockTypeAt(5, 127, 5))
	assert.Equal(t, 0, world.BlockTypeAt(5, -1, 5))
	assert.Equal(t, 0, world.BlockTypeAt(5, 384, 5))

	assert.Equal(t, minimap.ColumnSample{Height: 128, BlockID: 1}, minimap.SampleColumn(world, 1, 2))
	assert.Equal(t, minimap.ColumnSample{Height: 127, BlockID: 3}, minimap.SampleColumn(world, 7, 7))
}

func TestWorldDefaultWindowShadesSeaLevel(t *testing.T) {
	world, err := Open(t.TempDir(), minimap.NewRegistry(), Opts{})
	require.NoError(t, err)
	defer world.Close()

	assert.Equal(t, minimap.DefaultWorldHeight, world.MaxHeight())
	world.last.Store(&cachedColumn{key: chunkKey(0, 0), col: decodeColumn(testChunk(), world.registry)})

	// dirt tops out at sea level, y 63
	sample := minimap.SampleColumn(world, 7, 7)
	require.Equal(t, minimap.ColumnSample{Height: 63, BlockID: 3}, sample)

	d := minimap.ShadeDelta(sample.Height, world.MaxHeight())
	assert.Equal(t, -4, d)
	dirt := color.NRGBA{R: 134, G: 96, B: 67, A: 255}
	assert.Equal(t, color.NRGBA{R: 130, G: 92, B: 63, A: 255}, minimap.Shade(dirt, d))
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"), minimap.NewRegistry(), Opts{})
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "region")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = Open(file, minimap.NewRegistry(), Opts{})
	assert.Error(t, err)
}

func TestEmptyRegionFileReadsAsAir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "r.0.0.mca"), nil, 0o644))

	world, err := Open(dir, minimap.NewRegistry(), Opts{})
	require.NoError(t, err)
	defer world.Close()

	assert.Equal(t, 0, world.BlockTypeAt(3, 200, 3))
}

func TestChunkKey(t *testing.T) {
	assert.NotEqual(t, chunkKey(1, 0), chunkKey(0, 1))
	assert.NotEqual(t, chunkKey(-1, 0), chunkKey(0, -1))
	assert.Equal(t, chunkKey(-5, 7), chunkKey(-5, 7))
}
