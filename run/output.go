package run

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	xdraw "golang.org/x/image/draw"

	"github.com/b1naryth1ef/minimap"
)

func ensureDirectory(path string) error {
	if path == "" || path == "." {
		return nil
	}
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModePerm)
	}
	return err
}

// WriteFramePNG encodes frame to path, upscaled by an integer factor with
// nearest neighbor sampling so block edges stay sharp.
func WriteFramePNG(path string, frame *minimap.Frame, upscale int) error {
	if err := ensureDirectory(filepath.Dir(path)); err != nil {
		return err
	}

	var img image.Image = frame.Image()
	if upscale > 1 {
		dst := image.NewNRGBA(image.Rect(0, 0, frame.Width*upscale, frame.Height*upscale))
		xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
		img = dst
	}

	tmp := path + ".tmp"
	fd, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create snapshot %s: %w", path, err)
	}
	if err := png.Encode(fd, img); err != nil {
		fd.Close()
		return fmt.Errorf("failed to encode snapshot %s: %w", path, err)
	}
	if err := fd.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// snapshotWriter saves the latest frame on its own cadence, skipping frames
// it has already written.
func snapshotWriter(ctx context.Context, publisher *minimap.Publisher, path string, interval time.Duration) error {
	logger := log.WithField("component", "snapshot")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			frame := publisher.Latest()
			if frame == nil || frame.Seq == lastSeq {
				continue
			}
			if err := WriteFramePNG(path, frame, 1); err != nil {
				logger.Errorf("failed to write snapshot: %v", err)
				continue
			}
			lastSeq = frame.Seq
			logger.Debugf("wrote frame %d to %s", frame.Seq, path)
		}
	}
}
