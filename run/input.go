package run

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/b1naryth1ef/minimap"
)

var ErrQuit = errors.New("quit requested")

// Input turns line commands into zoom and viewer changes:
//
//	m            cycle to the next zoom level
//	zoom <n>     set the zoom scale
//	goto <x> <z> move the viewer
//	q            quit
type Input struct {
	zoom *minimap.Zoom
	view *minimap.StaticView
}

func NewInput(zoom *minimap.Zoom, view *minimap.StaticView) *Input {
	return &Input{zoom: zoom, view: view}
}

// Handle applies a single command line. It returns ErrQuit for q.
func (in *Input) Handle(line string) error {
	logger := log.WithField("component", "input")
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "m":
		scale, level := in.zoom.Cycle()
		logger.Infof("zoom level %d (scale %d)", level, scale)
	case "zoom":
		if len(fields) != 2 {
			return errors.New("usage: zoom <scale>")
		}
		scale, err := strconv.Atoi(fields[1])
		if err != nil || scale < 0 {
			return errors.New("zoom scale must be a non-negative integer")
		}
		in.zoom.Set(scale)
		logger.Infof("zoom scale %d", scale)
	case "goto":
		if len(fields) != 3 {
			return errors.New("usage: goto <x> <z>")
		}
		x, errX := strconv.Atoi(fields[1])
		z, errZ := strconv.Atoi(fields[2])
		if errX != nil || errZ != nil {
			return errors.New("coordinates must be integers")
		}
		in.view.MoveTo(x, z)
		logger.Infof("viewer moved to (%d, %d)", x, z)
	case "q", "quit":
		return ErrQuit
	default:
		return errors.New("unknown command " + strconv.Quote(fields[0]))
	}
	return nil
}

// Run reads commands from r until it is exhausted, ctx is done or q is read.
func (in *Input) Run(ctx context.Context, r io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := in.Handle(line); err != nil {
				if errors.Is(err, ErrQuit) {
					return err
				}
				log.WithField("component", "input").Warn(err)
			}
		}
	}
}
