// CLASSIFICATION: COMMUNITY
// Filename: render_test.go v0.1
// Author: Lukas Bower
// Date Modified: 2026-10-17
// License: SPDX-License-Identifier: MIT OR Apache-2.0

package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pose struct {
	x, y, angle float64
	alive       bool
}

// boxScene is an empty room with a one-cell wall border.
type boxScene struct {
	w, h   int
	agents []pose
}

func (s *boxScene) NumAgents() int     { return len(s.agents) }
func (s *boxScene) Bounds() (int, int) { return s.w, s.h }
func (s *boxScene) Solid(cx, cy int) bool {
	return cx <= 0 || cy <= 0 || cx >= s.w-1 || cy >= s.h-1
}
func (s *boxScene) Camera(i int) (float64, float64, float64, bool) {
	p := s.agents[i]
	return p.x, p.y, p.angle, p.alive
}

type recordingSink struct {
	target any
	frames map[int]*image.RGBA
}

func (r *recordingSink) SetRenderTarget(t any) { r.target = t }
func (r *recordingSink) SetScreen(agent int, img *image.RGBA) error {
	if r.frames == nil {
		r.frames = map[int]*image.RGBA{}
	}
	r.frames[agent] = img
	return nil
}

func readback(t *testing.T, s *Surface) *image.RGBA {
	t.Helper()
	buf := make([]byte, s.BufferSize())
	require.NoError(t, s.CopyToBuffer(buf).Wait(context.Background()))
	w, h := s.Size()
	img, err := Unpad(buf, w, h, s.Stride())
	require.NoError(t, err)
	return img
}

func TestPaddedStride(t *testing.T) {
	assert.Equal(t, 256, PaddedStride(1))
	assert.Equal(t, 256, PaddedStride(64))
	assert.Equal(t, 512, PaddedStride(65))
	assert.Equal(t, 768, PaddedStride(160))
}

func TestSurfaceReadbackStripsPadding(t *testing.T) {
	s := NewSurface(3, 2)
	require.Equal(t, 256, s.Stride())
	red := color.RGBA{R: 255, A: 255}
	s.Set(2, 1, red)
	s.Set(5, 5, red) // ignored
	img := readback(t, s)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())
	assert.Equal(t, red, img.RGBAAt(2, 1))
	assert.Equal(t, color.RGBA{}, img.RGBAAt(0, 0))
}

func TestCopyRejectsShortBuffer(t *testing.T) {
	s := NewSurface(4, 4)
	err := s.CopyToBuffer(make([]byte, 10)).Wait(context.Background())
	assert.ErrorIs(t, err, ErrBufferTooSmall)
	_, err = Unpad(make([]byte, 10), 4, 4, s.Stride())
	assert.ErrorIs(t, err, ErrBufferTooSmall)
}

func TestInvalidatedSurfaceFailsCopy(t *testing.T) {
	s := NewSurface(4, 4)
	s.Invalidate(errors.New("device lost"))
	err := s.CopyToBuffer(make([]byte, s.BufferSize())).Wait(context.Background())
	assert.ErrorIs(t, err, ErrSurfaceLost)
}

func TestRaycasterDrawsRoom(t *testing.T) {
	scene := &boxScene{w: 8, h: 8, agents: []pose{{x: 4.5, y: 4.5, angle: 0, alive: true}}}
	s := NewSurface(32, 24)
	var rc Raycaster
	rc.Draw(scene, 0, s)
	img := readback(t, s)
	assert.Equal(t, ceilingColor, img.RGBAAt(16, 0))
	assert.Equal(t, floorColor, img.RGBAAt(16, 23))
	assert.Equal(t, wallColor, img.RGBAAt(16, 12))
}

func TestRaycasterDrawsOtherAgents(t *testing.T) {
	scene := &boxScene{w: 10, h: 10, agents: []pose{
		{x: 2.5, y: 5.5, angle: 0, alive: true},
		{x: 5.5, y: 5.5, angle: math.Pi, alive: true},
	}}
	s := NewSurface(32, 24)
	var rc Raycaster
	rc.Draw(scene, 0, s)
	img := readback(t, s)
	assert.Equal(t, agentColors[1], img.RGBAAt(16, 12))
}

func TestRaycasterTintsDeadView(t *testing.T) {
	scene := &boxScene{w: 8, h: 8, agents: []pose{{x: 4.5, y: 4.5, alive: false}}}
	s := NewSurface(16, 16)
	var rc Raycaster
	rc.Draw(scene, 0, s)
	img := readback(t, s)
	assert.Greater(t, img.RGBAAt(8, 0).R, ceilingColor.R)
}

func TestCapturerStoresEveryAgentFrame(t *testing.T) {
	scene := &boxScene{w: 8, h: 8, agents: []pose{
		{x: 2.5, y: 2.5, alive: true},
		{x: 5.5, y: 5.5, angle: math.Pi, alive: true},
	}}
	sink := &recordingSink{}
	c := NewCapturer(scene, sink, 20, 10)
	surfaces, ok := sink.target.([]*Surface)
	require.True(t, ok)
	assert.Len(t, surfaces, 2)

	require.NoError(t, c.Capture(context.Background()))
	require.Len(t, sink.frames, 2)
	for _, img := range sink.frames {
		assert.Equal(t, image.Rect(0, 0, 20, 10), img.Bounds())
		assert.Equal(t, wallColor.A, img.RGBAAt(10, 5).A)
	}
}

func TestCapturerReportsReadbackFailure(t *testing.T) {
	scene := &boxScene{w: 8, h: 8, agents: []pose{{x: 2.5, y: 2.5, alive: true}}}
	c := NewCapturer(scene, &recordingSink{}, 8, 8)
	c.Surface(0).Invalidate(errors.New("device lost"))
	err := c.Capture(context.Background())
	assert.ErrorIs(t, err, ErrSurfaceLost)
}
