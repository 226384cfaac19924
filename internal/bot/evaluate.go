// Package bot implements the automated player: an exhaustive one-piece
// placement search scored by board features, and a driver that turns the
// chosen placement into timed game intents.
package bot

import (
	"math"
	"time"

	"github.com/stephenkowalewski/stack-wars/internal/analysis"
	"github.com/stephenkowalewski/stack-wars/internal/tetris"
)

// searchedRotations is the number of rotation states tried for every piece.
// Pieces with fewer states repeat them.
const searchedRotations = 4

// Penalties for features that have no per-tier weight.
const (
	wellPenalty          = 0.5
	holeDepthPenalty     = 0.8
	adjacentHolePenalty  = 1.0
	rowTransitionPenalty = 0.2
	colTransitionPenalty = 0.2
)

// Move is a candidate final placement of the active piece.
type Move struct {
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Rotation int     `json:"rotation"`
	Lines    int     `json:"lines"`
	Score    float64 `json:"score"`
}

// Analysis is the result of a placement search.
type Analysis struct {
	Best    Move
	All     []Move
	Elapsed time.Duration
}

// Feasible reports whether the search found a placement that does not
// top out the board.
func (a Analysis) Feasible() bool {
	return !math.IsInf(a.Best.Score, -1)
}

// Evaluate scores every reachable (rotation, column) pair for piece and
// returns the best one. Rotations are searched in the outer loop and
// columns in the inner loop, both ascending. The first placement with the
// highest score wins.
func Evaluate(g tetris.Grid, piece tetris.Piece, d Difficulty) Analysis {
	start := time.Now()
	a := Analysis{
		Best: Move{Score: math.Inf(-1)},
	}
	for rotation := 0; rotation < searchedRotations; rotation++ {
		p := tetris.Piece{Kind: piece.Kind, Rotation: rotation}
		for x := 0; x < tetris.Width; x++ {
			y := dropRow(g, p, x)
			if y < 0 {
				continue
			}
			m := score(g, p.At(tetris.Position{X: x, Y: y}), d)
			a.All = append(a.All, m)
			if m.Score > a.Best.Score {
				a.Best = m
			}
		}
	}
	a.Elapsed = time.Since(start)
	return a
}

// dropRow walks p down column x from the top row and returns the last
// legal row, or -1 when p does not fit at row 0.
func dropRow(g tetris.Grid, p tetris.Piece, x int) int {
	for y := 0; y < len(g); y++ {
		if !tetris.ValidPosition(g, p, tetris.Position{X: x, Y: y}) {
			return y - 1
		}
	}
	return len(g) - 1
}

func score(g tetris.Grid, p tetris.Piece, d Difficulty) Move {
	placed := tetris.Place(g, p)
	lines := len(tetris.CompletedRows(placed))
	cleared, _ := tetris.Clear(placed)
	f := analysis.Analyze(cleared)

	m := Move{X: p.Pos.X, Y: p.Pos.Y, Rotation: p.Rotation, Lines: lines}
	if f.MaxHeight >= tetris.Height {
		m.Score = math.Inf(-1)
		return m
	}

	w := d.Weights()
	s := float64(lines*lines)*w.Lines +
		float64(f.MaxHeight)*w.Height +
		float64(f.TotalHeight)*w.AggregateHeight +
		float64(f.Holes)*w.Holes +
		float64(f.Bumpiness)*w.Bumpiness -
		wellPenalty*float64(f.Wells) -
		holeDepthPenalty*float64(f.HoleDepths) -
		adjacentHolePenalty*float64(f.AdjacentHoles) -
		rowTransitionPenalty*float64(f.RowTransitions) -
		colTransitionPenalty*float64(f.ColTransitions)
	m.Score = s * d.Multiplier()
	return m
}
