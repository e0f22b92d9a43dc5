// Package anvil reads Minecraft Anvil region files as a minimap World.
package anvil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/Tnze/go-mc/save"
	"github.com/Tnze/go-mc/save/region"
	"github.com/dgraph-io/ristretto/v2"
	log "github.com/sirupsen/logrus"

	"github.com/b1naryth1ef/minimap"
)

type Opts struct {
	MinY   int
	Height int
	// ChunkCacheSize is the number of decoded chunks kept in memory.
	ChunkCacheSize int
}

type cachedColumn struct {
	key int64
	col *column
}

// World answers block queries from the region files of one dimension.
type World struct {
	dir      string
	minY     int
	height   int
	registry *minimap.Registry

	chunks *ristretto.Cache[int64, *column]
	last   atomic.Pointer[cachedColumn]

	mu     sync.Mutex
	failed map[int64]struct{}

	logger *log.Entry
}

func Open(dir string, registry *minimap.Registry, opts Opts) (*World, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open world %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("world path %s is not a directory", dir)
	}

	if opts.Height <= 0 {
		opts.Height = minimap.DefaultWorldHeight
	}
	if opts.ChunkCacheSize <= 0 {
		opts.ChunkCacheSize = 4096
	}

	chunks, err := ristretto.NewCache(&ristretto.Config[int64, *column]{
		NumCounters: int64(opts.ChunkCacheSize) * 10,
		MaxCost:     int64(opts.ChunkCacheSize),
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chunk cache: %w", err)
	}

	return &World{
		dir:      dir,
		minY:     opts.MinY,
		height:   opts.Height,
		registry: registry,
		chunks:   chunks,
		failed:   make(map[int64]struct{}),
		logger:   log.WithField("component", "anvil"),
	}, nil
}

func (w *World) MaxHeight() int {
	return w.height
}

// BlockTypeAt returns the block id at (x, y, z) where y counts up from the
// bottom of the world. Missing chunks and sections read as air.
func (w *World) BlockTypeAt(x, y, z int) int {
	if y < 0 || y >= w.height {
		return 0
	}

	col := w.column(x>>4, z>>4)
	absY := w.minY + y
	sec, ok := col.sections[absY>>4]
	if !ok {
		return 0
	}
	return sec.blockID(x&15, absY&15, z&15)
}

func (w *World) Close() {
	w.chunks.Close()
}

func chunkKey(cx, cz int) int64 {
	return int64(int32(cx))<<32 | int64(uint32(int32(cz)))
}

func (w *World) column(cx, cz int) *column {
	key := chunkKey(cx, cz)
	if last := w.last.Load(); last != nil && last.key == key {
		return last.col
	}

	col, ok := w.chunks.Get(key)
	if !ok {
		var err error
		col, err = w.loadColumn(cx, cz)
		if err != nil {
			w.reportFailure(key, cx, cz, err)
			col = emptyColumn
		}
		w.chunks.Set(key, col, 1)
	}

	w.last.Store(&cachedColumn{key: key, col: col})
	return col
}

func (w *World) reportFailure(key int64, cx, cz int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.failed[key]; ok {
		return
	}
	w.failed[key] = struct{}{}
	w.logger.Warnf("failed to load chunk (%d, %d): %v", cx, cz, err)
}

func (w *World) loadColumn(cx, cz int) (*column, error) {
	path := filepath.Join(w.dir, fmt.Sprintf("r.%d.%d.mca", cx>>5, cz>>5))
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return emptyColumn, nil
	}

	reg, err := region.Open(path)
	if errors.Is(err, io.EOF) {
		return emptyColumn, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open region file %s: %w", path, err)
	}
	defer reg.Close()

	sector, err := reg.ReadSector(cx&31, cz&31)
	if errors.Is(err, region.ErrNoSector) {
		return emptyColumn, nil
	}
	if err != nil {
		return nil, err
	}
	if len(sector) == 0 {
		return nil, fmt.Errorf("sector is out of bounds")
	}

	var chunk save.Chunk
	if err := chunk.Load(sector); err != nil {
		return nil, fmt.Errorf("failed to decode chunk: %w", err)
	}

	return decodeColumn(&chunk, w.registry), nil
}
