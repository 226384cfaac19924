package tetris

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletedRowsAndClear(t *testing.T) {
	g := mustGrid(t,
		"T.........",
		"IIIIIIIIII",
		"S.........",
		"LLLLLLLLLL",
	)
	assert.Equal(t, []int{17, 19}, CompletedRows(g))

	cleared, n := Clear(g)
	assert.Equal(t, 2, n)
	require.Len(t, cleared, Height)
	expected := mustGrid(t,
		"T.........",
		"S.........",
	)
	if diff := cmp.Diff(expected, cleared); diff != "" {
		t.Errorf("unexpected grid after Clear (-want +got):\n%s", diff)
	}
	assert.Equal(t, []int{17, 19}, CompletedRows(g), "Clear modified its input")

	same, n := Clear(expected)
	assert.Zero(t, n)
	assert.True(t, same.Equal(expected))
	assert.Empty(t, CompletedRows(NewGrid()))
}

func TestPlaceThenClearKeepsOrder(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	g := NewGrid()
	for r := 10; r < Height; r++ {
		g[r] = GarbageRow(rng)
	}
	// plug the hole of every odd row
	placed := g
	for r := 11; r < Height; r += 2 {
		for c := range placed[r] {
			if placed[r][c] == Empty {
				row := make([]Kind, Width)
				copy(row, placed[r])
				row[c] = T
				placed = append(Grid{}, placed...)
				placed[r] = row
			}
		}
	}

	rows := CompletedRows(placed)
	assert.Equal(t, []int{11, 13, 15, 17, 19}, rows)

	cleared, n := Clear(placed)
	require.Equal(t, 5, n)
	require.Len(t, cleared, Height)
	for i, r := range []int{10, 12, 14, 16, 18} {
		assert.Equal(t, g[r], cleared[Height-5+i], "row %d moved out of order", r)
	}
	for r := 0; r < Height-5; r++ {
		assert.Equal(t, emptyRow(), cleared[r])
	}
}

func TestScore(t *testing.T) {
	base := []int{0, 40, 100, 300, 1200}
	for level := 0; level < 5; level++ {
		for lines, points := range base {
			assert.Equal(t, points*(level+1), Score(lines, level), "lines=%d level=%d", lines, level)
		}
	}
	assert.Equal(t, 1200, Score(5, 0))
	assert.Equal(t, 0, Score(-1, 3))
}

func TestLevelAndGarbage(t *testing.T) {
	for lines, level := range map[int]int{0: 0, 9: 0, 10: 1, 19: 1, 25: 2, 100: 10} {
		assert.Equal(t, level, Level(lines), "lines=%d", lines)
	}
	for lines, garbage := range []int{0, 0, 1, 1, 2} {
		assert.Equal(t, garbage, GarbageFor(lines), "lines=%d", lines)
	}
}

func TestInjectGarbage(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	g := NewGrid()
	for r := range g {
		for c := range g[r] {
			if rng.IntN(3) == 0 {
				g[r][c] = Kinds[rng.IntN(len(Kinds))]
			}
		}
	}
	before := g.Clone()

	for _, n := range []int{0, 1, 2, 4, Height} {
		out := InjectGarbage(g, n, rng)
		require.Len(t, out, Height, "n=%d", n)
		for r := 0; r < Height-n; r++ {
			assert.Equal(t, g[r+n], out[r], "n=%d row %d", n, r)
		}
		for r := Height - n; r < Height; r++ {
			empty, garbage := 0, 0
			for _, k := range out[r] {
				switch k {
				case Empty:
					empty++
				case GarbageKind:
					garbage++
				}
			}
			assert.Equal(t, 1, empty, "n=%d row %d: %v", n, r, out[r])
			assert.Equal(t, Width-1, garbage, "n=%d row %d: %v", n, r, out[r])
		}
	}
	if diff := cmp.Diff(before, g); diff != "" {
		t.Errorf("InjectGarbage modified its input (-want +got):\n%s", diff)
	}

	assert.Len(t, InjectGarbage(g, Height+5, rng), Height)
	assert.True(t, InjectGarbage(g, -2, rng).Equal(g))
}

func TestGarbageRowHoleIsUniform(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	var seen [Width]int
	for i := 0; i < 2000; i++ {
		row := GarbageRow(rng)
		for c, k := range row {
			if k == Empty {
				seen[c]++
			}
		}
	}
	for c, n := range seen {
		assert.Greater(t, n, 100, "column %d was almost never chosen", c)
	}
}
