package minimap

import (
	"image"
	"sync"
	"sync/atomic"
	"time"
)

// Frame is a packed, immutable copy of the minimap image: row-major RGBA,
// four bytes per pixel, non-premultiplied alpha.
type Frame struct {
	Seq        uint64
	Width      int
	Height     int
	Pix        []byte
	Scale      int
	Aborted    bool
	Cells      int
	Duration   time.Duration
	RenderedAt time.Time
}

// PackImage copies img into a new transfer buffer.
func PackImage(img *image.NRGBA) []byte {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	pix := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		start := img.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		copy(pix[y*w*4:(y+1)*w*4], img.Pix[start:start+w*4])
	}
	return pix
}

// Image wraps the frame's pixels. The result shares memory with the frame
// and must not be modified.
func (f *Frame) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    f.Pix,
		Stride: f.Width * 4,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// Publisher hands frames from the render loop to any number of consumers.
// The latest frame is swapped atomically; subscribers that fall behind miss
// frames instead of blocking the loop.
type Publisher struct {
	latest atomic.Pointer[Frame]
	seq    atomic.Uint64

	mu     sync.Mutex
	nextID int
	subs   map[int]chan *Frame
}

func NewPublisher() *Publisher {
	return &Publisher{
		subs: make(map[int]chan *Frame),
	}
}

func (p *Publisher) Latest() *Frame {
	return p.latest.Load()
}

// Publish assigns the next sequence number to frame and makes it visible.
func (p *Publisher) Publish(frame *Frame) {
	frame.Seq = p.seq.Add(1)
	p.latest.Store(frame)

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.subs {
		select {
		case ch <- frame:
		default:
		}
	}
}

func (p *Publisher) Subscribe(buffer int) (<-chan *Frame, func()) {
	ch := make(chan *Frame, buffer)

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = ch
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
			close(ch)
		})
	}
}
