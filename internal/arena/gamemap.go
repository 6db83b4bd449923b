// CLASSIFICATION: COMMUNITY
// Filename: gamemap.go v0.1
// Author: Lukas Bower
// Date Modified: 2026-10-17
// License: SPDX-License-Identifier: MIT OR Apache-2.0

package arena

import (
	"bufio"
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
)

//go:embed maps/arena.txt
var defaultMap []byte

// Cell is a grid coordinate.
type Cell [2]int

// GameMap is the static layout a round is spawned from.
type GameMap struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Walls      []Cell `json:"walls"`
	EmptySpace []Cell `json:"empty_space"`
}

// DefaultMap returns the built-in arena.
func DefaultMap() *GameMap {
	m, err := ParseMap(bytes.NewReader(defaultMap))
	if err != nil {
		panic(fmt.Sprintf("embedded map: %v", err))
	}
	return m
}

// LoadMap reads an ASCII map file.
func LoadMap(path string) (*GameMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := ParseMap(f)
	if err != nil {
		return nil, fmt.Errorf("map %s: %w", path, err)
	}
	return m, nil
}

// ParseMap reads rows of '#' (wall) and '.' (floor). Rows must share a width.
func ParseMap(r io.Reader) (*GameMap, error) {
	m := &GameMap{}
	sc := bufio.NewScanner(r)
	y := 0
	for sc.Scan() {
		row := strings.TrimRight(sc.Text(), "\r")
		if row == "" {
			continue
		}
		if m.Width == 0 {
			m.Width = len(row)
		} else if len(row) != m.Width {
			return nil, fmt.Errorf("row %d has width %d, want %d", y, len(row), m.Width)
		}
		for x, c := range row {
			switch c {
			case '#':
				m.Walls = append(m.Walls, Cell{x, y})
			case '.':
				m.EmptySpace = append(m.EmptySpace, Cell{x, y})
			default:
				return nil, fmt.Errorf("row %d col %d: unexpected %q", y, x, c)
			}
		}
		y++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	m.Height = y
	if m.Width == 0 || m.Height == 0 {
		return nil, fmt.Errorf("empty map")
	}
	if len(m.EmptySpace) == 0 {
		return nil, fmt.Errorf("map has no floor")
	}
	return m, nil
}
