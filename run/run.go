// Package run wires a configured minimap session: world, palette, render
// loop and the frame consumers.
package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/b1naryth1ef/minimap"
	"github.com/b1naryth1ef/minimap/anvil"
	"github.com/b1naryth1ef/minimap/dl"
	"github.com/b1naryth1ef/minimap/record"
	"github.com/b1naryth1ef/minimap/web"
)

type Opts struct {
	// Flat renders a flat demo world instead of the configured one.
	Flat bool
	X    int
	Z    int
	// Input receives line commands; nil disables input handling.
	Input io.Reader
}

type Session struct {
	Config    *minimap.Config
	Registry  *minimap.Registry
	Palette   *minimap.Palette
	Zoom      *minimap.Zoom
	View      *minimap.StaticView
	Cache     *minimap.ColumnCache
	Publisher *minimap.Publisher
	Loop      *minimap.RenderLoop

	opts    Opts
	world   minimap.World
	closers []func()
}

func NewSession(ctx context.Context, cfg *minimap.Config, opts Opts) (*Session, error) {
	s := &Session{
		Config:    cfg,
		Registry:  minimap.NewRegistry(),
		Zoom:      minimap.NewZoom(cfg.ZoomLevels),
		Cache:     minimap.NewColumnCache(cfg.CacheCapacity),
		Publisher: minimap.NewPublisher(),
		opts:      opts,
	}

	world, err := s.openWorld()
	if err != nil {
		return nil, err
	}
	s.world = world

	s.Palette, err = s.buildPalette(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.View = minimap.NewStaticView(world, opts.X, opts.Z)

	builder := minimap.NewFrameBuilder(minimap.FrameBuilderOpts{
		Width:  cfg.Width,
		Budget: cfg.BudgetDuration(),
	}, s.Cache, s.Palette, s.Zoom)

	s.Loop = minimap.NewRenderLoop(minimap.RenderLoopOpts{
		Cadence: cfg.CadenceDuration(),
	}, builder, s.View, s.Zoom, s.Cache, s.Publisher)

	return s, nil
}

func (s *Session) openWorld() (minimap.World, error) {
	if s.opts.Flat {
		return minimap.NewFlatWorld(128, 64, 2), nil
	}

	worldCfg := s.Config.World
	if worldCfg == nil || worldCfg.Path == "" {
		return nil, fmt.Errorf("%w: no world configured", minimap.ErrInvalidConfig)
	}

	world, err := anvil.Open(worldCfg.Path, s.Registry, anvil.Opts{
		MinY:           *worldCfg.MinY,
		Height:         worldCfg.Height,
		ChunkCacheSize: worldCfg.ChunkCache,
	})
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, world.Close)
	return world, nil
}

func (s *Session) buildPalette(ctx context.Context) (*minimap.Palette, error) {
	builder := minimap.NewPaletteBuilder()

	if jar := s.Config.ClientJar; jar != "" {
		if err := s.ensureClientJar(ctx, jar); err != nil {
			return nil, err
		}

		loader, err := minimap.NewAssetLoaderFromClientJAR(jar)
		if err != nil {
			return nil, err
		}
		count := builder.LoadTextures(loader, s.Registry)
		loader.Close()
		log.WithField("component", "palette").Infof("loaded %d block colors from %s", count, jar)
	}

	if s.Config.Palette != "" {
		if err := builder.LoadOverrides(s.Config.Palette, s.Registry); err != nil {
			return nil, err
		}
	}

	if s.Config.VoidColor != "" {
		clr, err := minimap.ParseHexColor(s.Config.VoidColor)
		if err != nil {
			return nil, err
		}
		builder.SetVoidColor(clr)
	}

	return builder.Build()
}

// ensureClientJar downloads the client jar for the configured world version
// when it is not present yet.
func (s *Session) ensureClientJar(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	version := ""
	if s.Config.World != nil {
		version = s.Config.World.Version
	}
	return FetchClientJar(ctx, version, path)
}

func FetchClientJar(ctx context.Context, version, path string) error {
	if err := ensureDirectory(filepath.Dir(path)); err != nil {
		return err
	}

	tmp := path + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}

	start := time.Now()
	err = dl.NewClient().DownloadClientJar(ctx, version, out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to download client jar: %w", err)
	}

	log.Infof("Downloaded client jar %s in %dms", path, time.Since(start).Milliseconds())
	return os.Rename(tmp, path)
}

// Run starts the render loop and every configured consumer and blocks until
// ctx is cancelled or input asks to quit.
func (s *Session) Run(ctx context.Context) error {
	output := s.Config.Output

	var rec *record.Recorder
	if output.Record != "" {
		var err error
		rec, err = record.Create(output.Record)
		if err != nil {
			return fmt.Errorf("failed to create recording: %w", err)
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.Loop.Run(ctx)
	})

	if output.Snapshot != "" {
		g.Go(func() error {
			return snapshotWriter(ctx, s.Publisher, output.Snapshot, output.SnapshotIntervalDuration())
		})
	}

	if rec != nil {
		frames, unsubscribe := s.Publisher.Subscribe(4)
		g.Go(func() error {
			defer rec.Close()
			defer unsubscribe()
			return rec.Run(ctx, frames)
		})
	}

	if output.Listen != "" {
		server := web.NewServer(s.Publisher, s.Loop, web.FrontendData{
			Width:      s.Config.Width,
			RefreshMs:  s.Config.CadenceDuration().Milliseconds(),
			ZoomLevels: s.Zoom.Levels(),
		})
		httpServer := &http.Server{Addr: output.Listen, Handler: server.Handler()}
		g.Go(func() error {
			log.Infof("Serving minimap on http://%s", output.Listen)
			err := httpServer.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	if s.opts.Input != nil {
		input := NewInput(s.Zoom, s.View)
		g.Go(func() error {
			return input.Run(ctx, s.opts.Input)
		})
	}

	err := g.Wait()
	if errors.Is(err, ErrQuit) {
		return nil
	}
	return err
}

// Snapshot renders a single pass and writes it to path.
func (s *Session) Snapshot(path string, upscale int) error {
	frame, err := s.Loop.RunPass(s.Zoom.Scale())
	if err != nil {
		return err
	}
	return WriteFramePNG(path, frame, upscale)
}

func (s *Session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
