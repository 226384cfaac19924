package tetris

import (
	"math/rand/v2"
)

// GarbageRow returns a full-width row of GarbageKind with exactly one empty
// cell at a uniformly random column.
func GarbageRow(rng *rand.Rand) []Kind {
	row := make([]Kind, Width)
	for c := range row {
		row[c] = GarbageKind
	}
	row[rng.IntN(Width)] = Empty
	return row
}

// InjectGarbage removes n rows from the top of g and appends n fresh
// garbage rows at the bottom. n is clamped to [0, Height]. Removing occupied
// rows from the top is allowed; the caller checks for game over afterwards.
func InjectGarbage(g Grid, n int, rng *rand.Rand) Grid {
	n = max(0, min(n, len(g)))
	out := make(Grid, 0, len(g))
	for r := n; r < len(g); r++ {
		row := make([]Kind, len(g[r]))
		copy(row, g[r])
		out = append(out, row)
	}
	for i := 0; i < n; i++ {
		out = append(out, GarbageRow(rng))
	}
	return out
}
