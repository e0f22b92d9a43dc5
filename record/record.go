// Package record stores published minimap frames in a zstd compressed stream.
package record

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	log "github.com/sirupsen/logrus"

	"github.com/b1naryth1ef/minimap"
)

var magic = [4]byte{'M', 'M', 'F', '1'}

var ErrBadStream = errors.New("not a minimap frame stream")

const flagAborted = 1

// maxFrameSide bounds the dimensions accepted from a stream header.
const maxFrameSide = 4096

type frameHeader struct {
	Seq        uint64
	RenderedAt int64
	Width      uint32
	Height     uint32
	Scale      int32
	Cells      uint32
	DurationNs int64
	Flags      uint8
}

type Recorder struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

func Create(path string) (*Recorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	r := &Recorder{
		f:   f,
		enc: enc,
		w:   bufio.NewWriterSize(enc, 256*1024),
	}
	if _, err := r.w.Write(magic[:]); err != nil {
		_ = r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Recorder) Write(frame *minimap.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.w == nil {
		return os.ErrClosed
	}

	hdr := frameHeader{
		Seq:        frame.Seq,
		RenderedAt: frame.RenderedAt.UnixNano(),
		Width:      uint32(frame.Width),
		Height:     uint32(frame.Height),
		Scale:      int32(frame.Scale),
		Cells:      uint32(frame.Cells),
		DurationNs: int64(frame.Duration),
	}
	if frame.Aborted {
		hdr.Flags |= flagAborted
	}
	if err := binary.Write(r.w, binary.LittleEndian, &hdr); err != nil {
		return err
	}
	if _, err := r.w.Write(frame.Pix); err != nil {
		return err
	}
	return r.w.Flush()
}

// Run records frames from a publisher subscription until ctx is done or the
// channel closes.
func (r *Recorder) Run(ctx context.Context, frames <-chan *minimap.Frame) error {
	logger := log.WithField("component", "recorder")
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			if err := r.Write(frame); err != nil {
				logger.Errorf("failed to record frame %d: %v", frame.Seq, err)
				return err
			}
		}
	}
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if r.w != nil {
		_ = r.w.Flush()
		r.w = nil
	}
	if r.enc != nil {
		err = r.enc.Close()
		r.enc = nil
	}
	if r.f != nil {
		if cerr := r.f.Close(); err == nil {
			err = cerr
		}
		r.f = nil
	}
	return err
}

type Reader struct {
	dec *zstd.Decoder
	r   *bufio.Reader
}

func NewReader(src io.Reader) (*Reader, error) {
	dec, err := zstd.NewReader(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadStream, err)
	}
	r := &Reader{dec: dec, r: bufio.NewReader(dec)}

	var got [4]byte
	if _, err := io.ReadFull(r.r, got[:]); err != nil {
		dec.Close()
		return nil, fmt.Errorf("%w: %v", ErrBadStream, err)
	}
	if got != magic {
		dec.Close()
		return nil, ErrBadStream
	}
	return r, nil
}

// Next returns the next frame, or io.EOF after the last one.
func (r *Reader) Next() (*minimap.Frame, error) {
	var hdr frameHeader
	if err := binary.Read(r.r, binary.LittleEndian, &hdr); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read frame header: %w", err)
	}

	if hdr.Width == 0 || hdr.Height == 0 || hdr.Width > maxFrameSide || hdr.Height > maxFrameSide {
		return nil, fmt.Errorf("%w: frame %d is %dx%d", ErrBadStream, hdr.Seq, hdr.Width, hdr.Height)
	}

	pix := make([]byte, int(hdr.Width)*int(hdr.Height)*4)
	if _, err := io.ReadFull(r.r, pix); err != nil {
		return nil, fmt.Errorf("failed to read frame %d: %w", hdr.Seq, err)
	}

	return &minimap.Frame{
		Seq:        hdr.Seq,
		Width:      int(hdr.Width),
		Height:     int(hdr.Height),
		Pix:        pix,
		Scale:      int(hdr.Scale),
		Aborted:    hdr.Flags&flagAborted != 0,
		Cells:      int(hdr.Cells),
		Duration:   time.Duration(hdr.DurationNs),
		RenderedAt: time.Unix(0, hdr.RenderedAt),
	}, nil
}

func (r *Reader) Close() {
	r.dec.Close()
}
