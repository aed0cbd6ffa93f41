// Package testsrc generates synthetic video frames: colour bars with a box
// moving across them and an optional frame counter overlay.
package testsrc

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"golang.org/x/image/draw"

	"github.com/gogpu/vsink/video"
)

// Bars are the 75% colour bars, left to right.
var Bars = []color.RGBA{
	{0xbf, 0xbf, 0xbf, 0xff},
	{0xbf, 0xbf, 0x00, 0xff},
	{0x00, 0xbf, 0xbf, 0xff},
	{0x00, 0xbf, 0x00, 0xff},
	{0xbf, 0x00, 0xbf, 0xff},
	{0xbf, 0x00, 0x00, 0xff},
	{0x00, 0x00, 0xbf, 0xff},
}

// BoxColor is the colour of the moving box.
var BoxColor = color.RGBA{0xff, 0xff, 0xff, 0xff}

// Source produces frames of a fixed size.
type Source struct {
	info     video.Info
	interval time.Duration
	counter  bool
	n        int
}

// Option configures a Source.
type Option func(*Source)

// WithRate sets the frame rate used for timestamps and box motion.
func WithRate(fps int) Option {
	return func(s *Source) {
		if fps > 0 {
			s.interval = time.Second / time.Duration(fps)
		}
	}
}

// WithCounter adds a text overlay showing the frame number.
func WithCounter() Option {
	return func(s *Source) { s.counter = true }
}

// New returns a source of w×h RGBA frames at 30 frames per second.
func New(w, h int, opts ...Option) *Source {
	s := &Source{info: video.NewInfo(video.FormatRGBA, w, h), interval: time.Second / 30}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Info describes the frames.
func (s *Source) Info() video.Info { return s.info }

// Interval is the duration of one frame.
func (s *Source) Interval() time.Duration { return s.interval }

// Next renders the next frame.
func (s *Source) Next() *video.Frame {
	w, h := s.info.Width, s.info.Height
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, c := range Bars {
		x0, x1 := i*w/len(Bars), (i+1)*w/len(Bars)
		draw.Draw(img, image.Rect(x0, 0, x1, h), image.NewUniform(c), image.Point{}, draw.Src)
	}
	draw.Draw(img, s.BoxRect(s.n), image.NewUniform(BoxColor), image.Point{}, draw.Src)

	f := &video.Frame{Image: img, PTS: time.Duration(s.n) * s.interval}
	if s.counter {
		th := max(h/10, 8)
		f.Overlays = []video.Overlay{{
			Rect:  image.Rect(th/2, th/2, th/2+th*6, th/2+th),
			Text:  fmt.Sprintf("frame %d", s.n),
			Color: color.White,
		}}
	}
	s.n++
	return f
}

// BoxRect returns the box position in frame n. The box is a square of a
// quarter of the frame height that bounces between the left and right
// edges, covering a sixtieth of the width per frame.
func (s *Source) BoxRect(n int) image.Rectangle {
	w, h := s.info.Width, s.info.Height
	size := max(h/4, 1)
	span := max(w-size, 1)
	step := max(w/60, 1)
	x := (n * step) % (2 * span)
	if x > span {
		x = 2*span - x
	}
	y := (h - size) / 2
	return image.Rect(x, y, x+size, y+size)
}
