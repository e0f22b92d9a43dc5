package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/b1naryth1ef/minimap"
	"github.com/b1naryth1ef/minimap/record"
	"github.com/b1naryth1ef/minimap/run"
)

func main() {
	configFlag := &cli.PathFlag{
		Name:  "config",
		Usage: "path to the configuration file (defaults are used when empty)",
	}
	viewerFlags := []cli.Flag{
		configFlag,
		&cli.IntFlag{Name: "x", Usage: "viewer x coordinate"},
		&cli.IntFlag{Name: "z", Usage: "viewer z coordinate"},
		&cli.BoolFlag{Name: "flat", Usage: "render a flat demo world instead of the configured world"},
	}

	app := &cli.App{
		Name:        "minimap",
		Description: "renders a height shaded minimap around a viewer in a voxel world",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "render continuously; reads m, zoom <n>, goto <x> <z> and q from stdin",
				Action: commandRun,
				Flags:  viewerFlags,
			},
			{
				Name:   "snapshot",
				Usage:  "render a single frame to a png",
				Action: commandSnapshot,
				Flags: append(viewerFlags,
					&cli.PathFlag{Name: "out", Value: "minimap.png", Usage: "output png"},
					&cli.IntFlag{Name: "scale", Value: 1, Usage: "integer upscale factor"},
					&cli.IntFlag{Name: "zoom", Usage: "zoom scale to render at"},
				),
			},
			{
				Name:   "fetch-client",
				Usage:  "download a minecraft client jar for block textures",
				Action: commandFetchClient,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "version", Usage: "game version, latest release when empty"},
					&cli.PathFlag{Name: "out", Value: "client.jar"},
				},
			},
			{
				Name:   "replay",
				Usage:  "extract the last frame of a recording",
				Action: commandReplay,
				Flags: []cli.Flag{
					&cli.PathFlag{Name: "in", Required: true},
					&cli.PathFlag{Name: "out", Value: "replay.png"},
				},
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func loadConfig(ctx *cli.Context) (*minimap.Config, io.Closer, error) {
	var cfg *minimap.Config
	if path := ctx.Path("config"); path != "" {
		var err error
		cfg, err = minimap.LoadConfig(path)
		if err != nil {
			return nil, nil, err
		}
	} else {
		cfg = minimap.DefaultConfig()
	}

	logs, err := minimap.ConfigureLogging(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logs, nil
}

// newSession returns the session together with the log output, which must be
// closed after the session.
func newSession(ctx *cli.Context, input io.Reader) (*run.Session, io.Closer, error) {
	cfg, logs, err := loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	session, err := run.NewSession(ctx.Context, cfg, run.Opts{
		Flat:  ctx.Bool("flat"),
		X:     ctx.Int("x"),
		Z:     ctx.Int("z"),
		Input: input,
	})
	if err != nil {
		logs.Close()
		return nil, nil, err
	}
	return session, logs, nil
}

func commandRun(ctx *cli.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx.Context = sigCtx

	session, logs, err := newSession(ctx, os.Stdin)
	if err != nil {
		return err
	}
	defer logs.Close()
	defer session.Close()

	return session.Run(sigCtx)
}

func commandSnapshot(ctx *cli.Context) error {
	session, logs, err := newSession(ctx, nil)
	if err != nil {
		return err
	}
	defer logs.Close()
	defer session.Close()

	if ctx.IsSet("zoom") {
		session.Zoom.Set(ctx.Int("zoom"))
	}
	if err := session.Snapshot(ctx.Path("out"), ctx.Int("scale")); err != nil {
		return err
	}
	log.Infof("Wrote %s", ctx.Path("out"))
	return nil
}

func commandFetchClient(ctx *cli.Context) error {
	return run.FetchClientJar(ctx.Context, ctx.String("version"), ctx.Path("out"))
}

func commandReplay(ctx *cli.Context) error {
	f, err := os.Open(ctx.Path("in"))
	if err != nil {
		return err
	}
	defer f.Close()

	reader, err := record.NewReader(f)
	if err != nil {
		return err
	}
	defer reader.Close()

	var last *minimap.Frame
	count := 0
	for {
		frame, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		last = frame
		count++
	}
	if last == nil {
		return fmt.Errorf("recording %s has no frames", ctx.Path("in"))
	}

	if err := run.WriteFramePNG(ctx.Path("out"), last, 1); err != nil {
		return err
	}
	log.Infof("Wrote frame %d of %d to %s", last.Seq, count, ctx.Path("out"))
	return nil
}
