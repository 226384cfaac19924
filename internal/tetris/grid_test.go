package tetris

import (
	"encoding/json"
	"math/bits"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustGrid builds a bottom-aligned grid from rows of piece letters.
func mustGrid(t *testing.T, rows ...string) Grid {
	t.Helper()
	g, err := ParseGrid(rows...)
	require.NoError(t, err)
	return g
}

func TestNewGrid(t *testing.T) {
	g := NewGrid()
	require.Len(t, g, Height)
	for r := range g {
		require.Len(t, g[r], Width)
		for c := range g[r] {
			assert.Equal(t, Empty, g[r][c])
		}
	}
}

func TestGridClone(t *testing.T) {
	g := mustGrid(t, "I........L")
	c := g.Clone()
	c[Height-1][0] = Empty

	assert.Equal(t, I, g[Height-1][0], "clone shares rows with the original")
	assert.True(t, g.Filled(9, Height-1))
	assert.False(t, c.Filled(0, Height-1))
	assert.False(t, g.Filled(-1, 0))
	assert.False(t, g.Filled(0, Height))
}

func TestParseGrid(t *testing.T) {
	g := mustGrid(t,
		"T . . . . . . . . .",
		"IIIIIIIII.",
	)
	assert.Equal(t, T, g[Height-2][0])
	assert.Equal(t, I, g[Height-1][8])
	assert.Equal(t, Empty, g[Height-1][9])

	for _, rows := range [][]string{
		{"III"},
		{"IIIIIIIIIX"},
	} {
		_, err := ParseGrid(rows...)
		assert.Error(t, err, "rows %v", rows)
	}
}

func TestGridJSON(t *testing.T) {
	g := mustGrid(t,
		".OO.......",
		"JJJ.SS.ZZI",
	)
	data, err := json.Marshal(g)
	require.NoError(t, err)

	var row [][]any
	require.NoError(t, json.Unmarshal(data, &row))
	assert.Nil(t, row[Height-1][3])
	assert.Equal(t, "J", row[Height-1][0])

	var decoded Grid
	require.NoError(t, json.Unmarshal(data, &decoded))
	if diff := cmp.Diff(g, decoded); diff != "" {
		t.Errorf("grid changed after JSON round trip (-want +got):\n%s", diff)
	}

	var k Kind
	assert.Error(t, json.Unmarshal([]byte(`"Q"`), &k))
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := ParseKind("")
	assert.Error(t, err)
}

func TestCatalog(t *testing.T) {
	expectedRotations := map[Kind]int{I: 2, O: 1, T: 4, S: 2, Z: 2, J: 4, L: 4}
	for k, n := range expectedRotations {
		require.Len(t, Catalog[k], n, "rotation states of %v", k)
		for i, m := range Catalog[k] {
			assert.Equal(t, 4, bits.OnesCount16(uint16(m)), "%v rotation %d:\n%s", k, i, m.String2D())

			// shapes are anchored top-left
			rowUsed, colUsed := false, false
			for c := 0; c < maskMaxLength; c++ {
				rowUsed = rowUsed || m.Has(0, c)
			}
			for r := 0; r < maskMaxLength; r++ {
				colUsed = colUsed || m.Has(r, 0)
			}
			assert.True(t, rowUsed && colUsed, "%v rotation %d is not anchored top-left: %v", k, i, m)
		}
	}
}

func TestMaskString(t *testing.T) {
	m := Catalog[T][0]
	assert.Equal(t, "0b0100_1110_0000_0000", m.String())
	assert.Equal(t, "0 1 0\n1 1 1", m.String2D())

	rows, cols := Catalog[I][1].Size()
	assert.Equal(t, 4, rows)
	assert.Equal(t, 1, cols)

	assert.Equal(t, []Position{{1, 0}, {0, 1}, {1, 1}, {2, 1}}, m.Cells())
	assert.False(t, m.Has(4, 0))
	assert.False(t, m.Has(0, -1))
}
