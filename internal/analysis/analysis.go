// Package analysis extracts scalar features from a board. Every function is
// a pure function of one grid snapshot.
package analysis

import (
	"math"

	"github.com/stephenkowalewski/stack-wars/internal/tetris"
)

// maxWellDepth caps the depth counted for a single well.
const maxWellDepth = 3

// Features summarizes a grid.
type Features struct {
	Heights        []int `json:"heights"`
	Holes          int   `json:"holes"`
	Bumpiness      int   `json:"bumpiness"`
	CompletedLines int   `json:"completed_lines"`
	TotalHeight    int   `json:"total_height"`
	MaxHeight      int   `json:"max_height"`
	Wells          int   `json:"wells"`
	HoleDepths     int   `json:"hole_depths"`
	AdjacentHoles  int   `json:"adjacent_holes"`
	RowTransitions int   `json:"row_transitions"`
	ColTransitions int   `json:"col_transitions"`
}

// Analyze computes all features of g.
func Analyze(g tetris.Grid) Features {
	heights := Heights(g)
	f := Features{
		Heights:        heights,
		Holes:          Holes(g, heights),
		Bumpiness:      Bumpiness(heights),
		CompletedLines: len(tetris.CompletedRows(g)),
		Wells:          Wells(heights),
		HoleDepths:     HoleDepths(g, heights),
		AdjacentHoles:  AdjacentHoles(g, heights),
		RowTransitions: RowTransitions(g),
		ColTransitions: ColTransitions(g),
	}
	for _, h := range heights {
		f.TotalHeight += h
		f.MaxHeight = max(f.MaxHeight, h)
	}
	return f
}

// Heights returns, per column, the distance from the floor to the top of
// the topmost occupied cell, or 0 for an empty column.
func Heights(g tetris.Grid) []int {
	heights := make([]int, tetris.Width)
	for x := range heights {
		for y := 0; y < len(g); y++ {
			if g[y][x] != tetris.Empty {
				heights[x] = len(g) - y
				break
			}
		}
	}
	return heights
}

// holesOf calls fn for every empty cell below the top of its column,
// column by column, top to bottom.
func holesOf(g tetris.Grid, heights []int, fn func(x, y int)) {
	for x, h := range heights {
		for y := len(g) - h; y < len(g); y++ {
			if g[y][x] == tetris.Empty {
				fn(x, y)
			}
		}
	}
}

// Holes counts the empty cells below the topmost occupied cell of each
// column.
func Holes(g tetris.Grid, heights []int) int {
	n := 0
	holesOf(g, heights, func(int, int) { n++ })
	return n
}

// Bumpiness is the sum of absolute height differences of neighboring
// columns.
func Bumpiness(heights []int) int {
	b := 0
	for i := 0; i+1 < len(heights); i++ {
		d := heights[i] - heights[i+1]
		if d < 0 {
			d = -d
		}
		b += d
	}
	return b
}

// Wells sums a triangular penalty over every column whose neighbors are
// both strictly taller. Board edges count as infinitely tall.
func Wells(heights []int) int {
	sum := 0
	for x, h := range heights {
		left, right := math.MaxInt, math.MaxInt
		if x > 0 {
			left = heights[x-1]
		}
		if x < len(heights)-1 {
			right = heights[x+1]
		}
		if left <= h || right <= h {
			continue
		}
		depth := min(left-h, right-h, maxWellDepth)
		sum += depth * (depth + 1) / 2
	}
	return sum
}

// HoleDepths adds L² for every vertical run of L holes. A filled cell ends
// a run; a run reaching the floor is counted too.
func HoleDepths(g tetris.Grid, heights []int) int {
	sum := 0
	for x, h := range heights {
		run := 0
		for y := len(g) - h; y < len(g); y++ {
			if g[y][x] == tetris.Empty {
				run++
			} else if run > 0 {
				sum += run * run
				run = 0
			}
		}
		sum += run * run
	}
	return sum
}

// AdjacentHoles counts unordered pairs of holes that share an edge.
// Pairs are checked exhaustively, which is fine for a board this size.
func AdjacentHoles(g tetris.Grid, heights []int) int {
	var holes []tetris.Position
	holesOf(g, heights, func(x, y int) {
		holes = append(holes, tetris.Position{X: x, Y: y})
	})

	n := 0
	for i := 0; i < len(holes); i++ {
		for j := i + 1; j < len(holes); j++ {
			dx, dy := abs(holes[i].X-holes[j].X), abs(holes[i].Y-holes[j].Y)
			if dx+dy == 1 {
				n++
			}
		}
	}
	return n
}

// RowTransitions counts occupancy changes along every row, treating both
// side walls as filled.
func RowTransitions(g tetris.Grid) int {
	n := 0
	for y := range g {
		last := true
		for x := range g[y] {
			filled := g[y][x] != tetris.Empty
			if filled != last {
				n++
			}
			last = filled
		}
		if !last {
			n++
		}
	}
	return n
}

// ColTransitions counts occupancy changes down every column, treating the
// ceiling and the floor as filled.
func ColTransitions(g tetris.Grid) int {
	n := 0
	for x := 0; x < tetris.Width; x++ {
		last := true
		for y := range g {
			filled := g[y][x] != tetris.Empty
			if filled != last {
				n++
			}
			last = filled
		}
		if !last {
			n++
		}
	}
	return n
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
