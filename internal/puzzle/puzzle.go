// puzzle.go
//
// A real-time collaborative photo-jigsaw service
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of puzzle-rooms.
// puzzle-rooms is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// puzzle-rooms is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with puzzle-rooms.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

// Package puzzle holds the pure puzzle geometry: difficulty grids, piece
// seeding, the placement test, and progress. No persistence, no transport.
package puzzle

import (
	"math"
	"math/rand/v2"
)

// Difficulty levels. Anything unrecognized is treated as easy.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Board geometry in reference units. Cell is the edge length of one grid
// cell; Offset centers a piece's target inside its cell. Scatter bounds are
// the rectangle fresh pieces (and reset pieces) are thrown into.
const (
	Cell   = 100.0
	Offset = 50.0

	ScatterMinX = 50.0
	ScatterMaxX = 450.0
	ScatterMinY = 50.0
	ScatterMaxY = 350.0
)

// DefaultTolerance is the maximum distance from target that still counts as
// placed. The boundary is inclusive.
const DefaultTolerance = 20.0

// Config is the immutable grid geometry of a room, fixed at creation.
type Config struct {
	Rows       int    `json:"rows"`
	Cols       int    `json:"cols"`
	Difficulty string `json:"difficulty"`
}

// Total returns the piece count for the grid.
func (c Config) Total() int {
	return c.Rows * c.Cols
}

// Seed is one generated piece before it has an identity or a room.
type Seed struct {
	PieceIndex int
	CurrentX   float64
	CurrentY   float64
	TargetX    float64
	TargetY    float64
	IsPlaced   bool
	Rotation   float64
}

// GenerateConfig maps a difficulty to its grid. Unknown difficulties fall
// back to easy rather than failing.
func GenerateConfig(difficulty string) Config {
	switch difficulty {
	case DifficultyEasy:
		return Config{Rows: 3, Cols: 4, Difficulty: DifficultyEasy}
	case DifficultyMedium:
		return Config{Rows: 4, Cols: 6, Difficulty: DifficultyMedium}
	case DifficultyHard:
		return Config{Rows: 6, Cols: 8, Difficulty: DifficultyHard}
	default:
		return Config{Rows: 3, Cols: 4, Difficulty: DifficultyEasy}
	}
}

// Scatter returns one random start position inside the scatter bounds.
func Scatter() (float64, float64) {
	x := ScatterMinX + rand.Float64()*(ScatterMaxX-ScatterMinX)
	y := ScatterMinY + rand.Float64()*(ScatterMaxY-ScatterMinY)
	return x, y
}

// Target returns the fixed target position for a piece index in row-major
// order on the given grid.
func Target(index, cols int) (float64, float64) {
	tx := float64(index%cols)*Cell + Offset
	ty := float64(index/cols)*Cell + Offset
	return tx, ty
}

// GeneratePieces seeds rows*cols pieces with indices 0..n-1 in row-major
// order. Targets are deterministic from the config; current positions are
// scattered at random and are never revalidated against the bounds later.
func GeneratePieces(cfg Config) []Seed {
	total := cfg.Total()
	seeds := make([]Seed, 0, total)

	for i := 0; i < total; i++ {
		tx, ty := Target(i, cfg.Cols)
		cx, cy := Scatter()
		seeds = append(seeds, Seed{
			PieceIndex: i,
			CurrentX:   cx,
			CurrentY:   cy,
			TargetX:    tx,
			TargetY:    ty,
			IsPlaced:   false,
			Rotation:   0,
		})
	}

	return seeds
}

// IsPlaced reports whether a piece at (curX,curY) counts as home for a
// target at (tgtX,tgtY). Distance exactly equal to the tolerance is placed.
// This is the single placement authority; nothing else decides placement.
func IsPlaced(curX, curY, tgtX, tgtY, tolerance float64) bool {
	dx := curX - tgtX
	dy := curY - tgtY
	return math.Sqrt(dx*dx+dy*dy) <= tolerance
}

// Placeable is the minimal view of a piece needed for progress.
type Placeable interface {
	Placed() bool
}

// Progress returns the completion percentage in [0,100]. An empty set is 0
// percent, never a division by zero.
func Progress[T Placeable](pieces []T) float64 {
	if len(pieces) == 0 {
		return 0
	}

	placed := 0
	for _, p := range pieces {
		if p.Placed() {
			placed++
		}
	}

	return float64(placed) / float64(len(pieces)) * 100
}
