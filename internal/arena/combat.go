// CLASSIFICATION: COMMUNITY
// Filename: combat.go v0.1
// Author: Lukas Bower
// Date Modified: 2026-10-17
// License: SPDX-License-Identifier: MIT OR Apache-2.0

package arena

import "math"

// Hit is the outcome of one shot.
type Hit struct {
	Agent int // -1 when no agent was hit
	Wall  Cell
	// WallHit is false when the ray left the map without touching a wall.
	WallHit bool
}

func (a *Arena) resolveShots() {
	for i := range a.agents {
		_, _, _, shooter := a.actor(i)
		if !shooter.Trigger {
			continue
		}
		shooter.Trigger = false
		if shooter.Health <= 0 {
			continue
		}
		a.fire(i)
	}
}

// fire casts a ray along the shooter's heading. The nearest living agent in
// front of the first wall takes the damage; otherwise the wall is destroyed.
func (a *Arena) fire(shooter int) Hit {
	pos, _, head, actor := a.actor(shooter)
	dx, dy := math.Cos(head.Angle), math.Sin(head.Angle)
	wall, wallDist, wallHit := a.castRay(pos.X, pos.Y, dx, dy)

	target, best := -1, wallDist
	for j := range a.agents {
		if j == shooter {
			continue
		}
		op, _, _, other := a.actor(j)
		if other.Health <= 0 {
			continue
		}
		qx, qy := op.X-pos.X, op.Y-pos.Y
		along := qx*dx + qy*dy
		if along <= 0 || along >= best {
			continue
		}
		if math.Abs(qx*dy-qy*dx) <= hitRadius {
			target, best = j, along
		}
	}

	if target >= 0 {
		_, vel, _, victim := a.actor(target)
		victim.Health -= shotDamage
		if victim.Health < 0 {
			victim.Health = 0
		}
		if victim.Health == 0 {
			*vel = Velocity{}
		}
		actor.Score += hitScore
		return Hit{Agent: target}
	}
	if wallHit {
		if e, ok := a.walls[wall]; ok {
			a.world.RemoveEntity(e)
			delete(a.walls, wall)
		}
	}
	return Hit{Agent: -1, Wall: wall, WallHit: wallHit}
}

// castRay walks grid cells (DDA) from (x, y) along (dx, dy) and returns the
// first solid cell and the distance to it.
func (a *Arena) castRay(x, y, dx, dy float64) (Cell, float64, bool) {
	cx, cy := int(math.Floor(x)), int(math.Floor(y))
	stepX, stepY := 1, 1
	deltaX, deltaY := math.Inf(1), math.Inf(1)
	if dx != 0 {
		deltaX = math.Abs(1 / dx)
	}
	if dy != 0 {
		deltaY = math.Abs(1 / dy)
	}
	var sideX, sideY float64
	if dx < 0 {
		stepX = -1
		sideX = (x - float64(cx)) * deltaX
	} else {
		sideX = (float64(cx) + 1 - x) * deltaX
	}
	if dy < 0 {
		stepY = -1
		sideY = (y - float64(cy)) * deltaY
	} else {
		sideY = (float64(cy) + 1 - y) * deltaY
	}
	w, h := a.Bounds()
	limit := 2 * (w + h)
	for i := 0; i < limit; i++ {
		var dist float64
		if sideX < sideY {
			dist = sideX
			sideX += deltaX
			cx += stepX
		} else {
			dist = sideY
			sideY += deltaY
			cy += stepY
		}
		if cx < 0 || cy < 0 || cx >= w || cy >= h {
			return Cell{cx, cy}, dist, false
		}
		if _, ok := a.walls[Cell{cx, cy}]; ok {
			return Cell{cx, cy}, dist, true
		}
	}
	return Cell{cx, cy}, math.Inf(1), false
}
