// CLASSIFICATION: COMMUNITY
// Filename: raycaster.go v0.1
// Author: Lukas Bower
// Date Modified: 2026-10-17
// License: SPDX-License-Identifier: MIT OR Apache-2.0

package render

import (
	"image/color"
	"math"
)

// Scene is what the raycaster needs from the simulation.
type Scene interface {
	NumAgents() int
	Bounds() (int, int)
	Solid(cx, cy int) bool
	Camera(agent int) (x, y, angle float64, alive bool)
}

// planeScale sets the horizontal field of view (0.66 is about 66 degrees).
const planeScale = 0.66

var (
	ceilingColor = color.RGBA{R: 56, G: 56, B: 56, A: 255}
	floorColor   = color.RGBA{R: 112, G: 112, B: 112, A: 255}
	wallColor    = color.RGBA{R: 0, G: 0, B: 168, A: 255}
	wallShade    = color.RGBA{R: 0, G: 0, B: 112, A: 255}
	deadTint     = color.RGBA{R: 168, A: 255}
	corpseColor  = color.RGBA{R: 96, G: 16, B: 16, A: 255}
	agentColors  = []color.RGBA{
		{R: 220, G: 180, B: 40, A: 255},
		{R: 40, G: 200, B: 80, A: 255},
		{R: 200, G: 80, B: 200, A: 255},
		{R: 230, G: 120, B: 30, A: 255},
	}
)

// Raycaster draws first-person views. Its depth buffer is reused between
// draws, so one Raycaster serves one goroutine.
type Raycaster struct {
	depth []float64
}

// Draw renders agent's view of scene into dst.
func (r *Raycaster) Draw(scene Scene, agent int, dst *Surface) {
	w, h := dst.Size()
	if cap(r.depth) < w {
		r.depth = make([]float64, w)
	}
	r.depth = r.depth[:w]

	px, py, angle, alive := scene.Camera(agent)
	dirX, dirY := math.Cos(angle), math.Sin(angle)
	planeX, planeY := -dirY*planeScale, dirX*planeScale

	for x := 0; x < w; x++ {
		// +1 is the left edge
		cam := 1 - 2*float64(x)/float64(w)
		dist, side := castColumn(scene, px, py, dirX+planeX*cam, dirY+planeY*cam)
		r.depth[x] = dist
		line := h
		if dist > 1e-6 {
			line = int(float64(h) / dist)
		}
		top := h/2 - line/2
		bottom := h/2 + line/2
		c := wallColor
		if side == 1 {
			c = wallShade
		}
		dst.VLine(x, 0, top-1, ceilingColor)
		dst.VLine(x, top, bottom, c)
		dst.VLine(x, bottom+1, h-1, floorColor)
	}
	r.drawAgents(scene, agent, dst, px, py, dirX, dirY)
	if !alive {
		dst.Tint(deadTint, 96)
	}
}

func (r *Raycaster) drawAgents(scene Scene, self int, dst *Surface, px, py, dirX, dirY float64) {
	w, h := dst.Size()
	leftX, leftY := -dirY, dirX
	for j := 0; j < scene.NumAgents(); j++ {
		if j == self {
			continue
		}
		ox, oy, _, alive := scene.Camera(j)
		rx, ry := ox-px, oy-py
		depth := rx*dirX + ry*dirY
		if depth <= 0.1 {
			continue
		}
		lateral := (rx*leftX + ry*leftY) / planeScale
		centre := int(float64(w) / 2 * (1 - lateral/depth))
		size := int(float64(h) / depth)
		half := size / 4
		top, bottom := h/2-size/2, h/2+size/2
		c := agentColors[j%len(agentColors)]
		if !alive {
			c = corpseColor
			top = h/2 + size/4
		}
		for x := centre - half; x <= centre+half; x++ {
			if x < 0 || x >= w || depth >= r.depth[x] {
				continue
			}
			dst.VLine(x, top, bottom, c)
		}
	}
}

// castColumn walks the grid along (dx, dy) and returns the perpendicular wall
// distance and which side (0 = x, 1 = y) was hit.
func castColumn(scene Scene, px, py, dx, dy float64) (float64, int) {
	cx, cy := int(math.Floor(px)), int(math.Floor(py))
	deltaX, deltaY := math.Inf(1), math.Inf(1)
	if dx != 0 {
		deltaX = math.Abs(1 / dx)
	}
	if dy != 0 {
		deltaY = math.Abs(1 / dy)
	}
	stepX, stepY := 1, 1
	sideX := (float64(cx) + 1 - px) * deltaX
	sideY := (float64(cy) + 1 - py) * deltaY
	if dx < 0 {
		stepX = -1
		sideX = (px - float64(cx)) * deltaX
	}
	if dy < 0 {
		stepY = -1
		sideY = (py - float64(cy)) * deltaY
	}
	w, h := scene.Bounds()
	for i := 0; i < 2*(w+h)+2; i++ {
		var side int
		if sideX < sideY {
			sideX += deltaX
			cx += stepX
		} else {
			sideY += deltaY
			cy += stepY
			side = 1
		}
		if scene.Solid(cx, cy) {
			if side == 0 {
				return sideX - deltaX, side
			}
			return sideY - deltaY, side
		}
	}
	return math.Inf(1), 0
}
