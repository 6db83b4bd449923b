// CLASSIFICATION: COMMUNITY
// Filename: surface.go v0.1
// Author: Lukas Bower
// Date Modified: 2026-10-17
// License: SPDX-License-Identifier: MIT OR Apache-2.0

// Package render draws each agent's first-person view into an off-screen
// surface and reads it back into the gym state once per tick.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
)

// CopyAlignment is the row pitch alignment of copy buffers, in bytes.
const CopyAlignment = 256

var (
	// ErrBufferTooSmall is returned when a readback buffer cannot hold the surface.
	ErrBufferTooSmall = errors.New("readback buffer too small")
	// ErrSurfaceLost is returned by copies from a surface that was invalidated.
	ErrSurfaceLost = errors.New("surface lost")
)

// PaddedStride returns the bytes per row of an RGBA surface of the given
// width once padded to CopyAlignment.
func PaddedStride(width int) int {
	unpadded := width * 4
	return (unpadded + CopyAlignment - 1) / CopyAlignment * CopyAlignment
}

// Surface is an RGBA render target whose rows are padded to CopyAlignment.
type Surface struct {
	mu     sync.Mutex
	width  int
	height int
	stride int
	pix    []byte
	lost   error
}

// NewSurface allocates a cleared surface.
func NewSurface(width, height int) *Surface {
	stride := PaddedStride(width)
	return &Surface{width: width, height: height, stride: stride, pix: make([]byte, stride*height)}
}

// Size returns the surface size in pixels.
func (s *Surface) Size() (int, int) { return s.width, s.height }

// Stride returns the padded row pitch in bytes.
func (s *Surface) Stride() int { return s.stride }

// BufferSize is the number of bytes a readback buffer needs.
func (s *Surface) BufferSize() int { return s.stride * s.height }

// Set writes one pixel; out-of-range writes are ignored.
func (s *Surface) Set(x, y int, c color.RGBA) {
	if x < 0 || y < 0 || x >= s.width || y >= s.height {
		return
	}
	i := y*s.stride + x*4
	s.pix[i], s.pix[i+1], s.pix[i+2], s.pix[i+3] = c.R, c.G, c.B, c.A
}

// VLine fills column x from y0 to y1 inclusive.
func (s *Surface) VLine(x, y0, y1 int, c color.RGBA) {
	if y0 < 0 {
		y0 = 0
	}
	if y1 >= s.height {
		y1 = s.height - 1
	}
	for y := y0; y <= y1; y++ {
		s.Set(x, y, c)
	}
}

// Tint blends every pixel towards c by alpha/255.
func (s *Surface) Tint(c color.RGBA, alpha uint8) {
	a := uint32(alpha)
	for y := 0; y < s.height; y++ {
		row := s.pix[y*s.stride : y*s.stride+s.width*4]
		for i := 0; i < len(row); i += 4 {
			row[i] = uint8((uint32(row[i])*(255-a) + uint32(c.R)*a) / 255)
			row[i+1] = uint8((uint32(row[i+1])*(255-a) + uint32(c.G)*a) / 255)
			row[i+2] = uint8((uint32(row[i+2])*(255-a) + uint32(c.B)*a) / 255)
		}
	}
}

// Invalidate marks the surface lost; every later copy fails with err.
func (s *Surface) Invalidate(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lost = fmt.Errorf("%w: %v", ErrSurfaceLost, err)
}

// Fence completes when a submitted copy has landed in its buffer.
type Fence struct {
	done chan struct{}
	err  error
}

// Wait blocks until the copy finished or ctx is done.
func (f *Fence) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CopyToBuffer submits a copy of the padded surface into dst and returns a
// fence for it. The surface must not be drawn to until the fence completes.
func (s *Surface) CopyToBuffer(dst []byte) *Fence {
	f := &Fence{done: make(chan struct{})}
	s.mu.Lock()
	lost := s.lost
	s.mu.Unlock()
	switch {
	case lost != nil:
		f.err = lost
		close(f.done)
		return f
	case len(dst) < s.BufferSize():
		f.err = fmt.Errorf("%w: have %d bytes, need %d", ErrBufferTooSmall, len(dst), s.BufferSize())
		close(f.done)
		return f
	}
	go func() {
		copy(dst, s.pix)
		close(f.done)
	}()
	return f
}

// Unpad strips row padding from a readback buffer into a tightly packed image.
func Unpad(buf []byte, width, height, stride int) (*image.RGBA, error) {
	if len(buf) < stride*height || stride < width*4 {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d stride %d", ErrBufferTooSmall, len(buf), width, height, stride)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+width*4], buf[y*stride:y*stride+width*4])
	}
	return img, nil
}
