// CLASSIFICATION: COMMUNITY
// Filename: capture.go v0.1
// Author: Lukas Bower
// Date Modified: 2026-10-17
// License: SPDX-License-Identifier: MIT OR Apache-2.0

package render

import (
	"context"
	"fmt"
	"image"
)

// Sink receives captured frames. *gym.State satisfies it.
type Sink interface {
	SetScreen(agent int, img *image.RGBA) error
	SetRenderTarget(t any)
}

// Capturer renders every agent's view and copies it back into the sink.
type Capturer struct {
	scene    Scene
	sink     Sink
	caster   Raycaster
	surfaces []*Surface
	staging  [][]byte
}

// NewCapturer allocates one surface and one readback buffer per agent and
// registers the surfaces as the sink's render target.
func NewCapturer(scene Scene, sink Sink, width, height int) *Capturer {
	n := scene.NumAgents()
	c := &Capturer{
		scene:    scene,
		sink:     sink,
		surfaces: make([]*Surface, n),
		staging:  make([][]byte, n),
	}
	for i := range c.surfaces {
		c.surfaces[i] = NewSurface(width, height)
		c.staging[i] = make([]byte, c.surfaces[i].BufferSize())
	}
	sink.SetRenderTarget(c.surfaces)
	return c
}

// Surface returns agent's render target.
func (c *Capturer) Surface(agent int) *Surface { return c.surfaces[agent] }

// Capture draws and reads back every agent's frame. Any error means the frame
// pipeline is broken and the caller should stop.
func (c *Capturer) Capture(ctx context.Context) error {
	for i, surf := range c.surfaces {
		c.caster.Draw(c.scene, i, surf)
		if err := surf.CopyToBuffer(c.staging[i]).Wait(ctx); err != nil {
			return fmt.Errorf("readback agent %d: %w", i, err)
		}
		w, h := surf.Size()
		img, err := Unpad(c.staging[i], w, h, surf.Stride())
		if err != nil {
			return fmt.Errorf("readback agent %d: %w", i, err)
		}
		if err := c.sink.SetScreen(i, img); err != nil {
			return fmt.Errorf("store frame agent %d: %w", i, err)
		}
	}
	return nil
}
