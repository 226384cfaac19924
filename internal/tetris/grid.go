package tetris

import (
	"encoding/json"
	"errors"
	"strings"
)

// Board dimensions. They never change for the lifetime of a game.
const (
	Width  = 10
	Height = 20
)

// Kind is the content of a grid cell: Empty or the type of the piece
// that was merged into it.
type Kind uint8

const (
	Empty Kind = iota
	I
	O
	T
	S
	Z
	J
	L
)

// Kinds lists the seven piece types in catalog order.
var Kinds = [...]Kind{I, O, T, S, Z, J, L}

// GarbageKind tags the filled cells of injected garbage rows.
const GarbageKind = I

var kindNames = [...]string{"", "I", "O", "T", "S", "Z", "J", "L"}

func (k Kind) String() string {
	if k == Empty {
		return "."
	}
	if int(k) >= len(kindNames) {
		return "?"
	}
	return kindNames[k]
}

// ParseKind converts a piece letter to a Kind.
func ParseKind(s string) (Kind, error) {
	for i := 1; i < len(kindNames); i++ {
		if kindNames[i] == s {
			return Kind(i), nil
		}
	}
	return Empty, errors.New(`Unknown piece type "` + s + `"`)
}

// MarshalJSON encodes Empty as null and piece types as their letter.
func (k Kind) MarshalJSON() ([]byte, error) {
	if k == Empty {
		return []byte("null"), nil
	}
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*k = Empty
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Grid is a collection of rows that make up a player's board.
// Grid[0] is the top row. Operations in this package never modify a
// Grid in place; they return a new one.
type Grid [][]Kind

// NewGrid returns an empty Width x Height grid.
func NewGrid() Grid {
	g := make(Grid, Height)
	for r := range g {
		g[r] = emptyRow()
	}
	return g
}

func emptyRow() []Kind {
	return make([]Kind, Width)
}

// Clone returns a deep copy of g.
func (g Grid) Clone() Grid {
	c := make(Grid, len(g))
	for r := range g {
		c[r] = make([]Kind, len(g[r]))
		copy(c[r], g[r])
	}
	return c
}

// Filled reports whether the cell at column x, row y holds a block.
// Coordinates outside the grid are reported as empty.
func (g Grid) Filled(x, y int) bool {
	if y < 0 || y >= len(g) || x < 0 || x >= len(g[y]) {
		return false
	}
	return g[y][x] != Empty
}

// Equal reports whether both grids hold the same cells.
func (g Grid) Equal(o Grid) bool {
	if len(g) != len(o) {
		return false
	}
	for r := range g {
		if len(g[r]) != len(o[r]) {
			return false
		}
		for c := range g[r] {
			if g[r][c] != o[r][c] {
				return false
			}
		}
	}
	return true
}

func (g Grid) String2D() string {
	var sb strings.Builder

	for r := range g {
		for c := range g[r] {
			if c > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(g[r][c].String())
		}
		sb.WriteByte('\n')
	}

	return sb.String()
}

// ParseGrid builds a grid from rows of piece letters and '.' for empty
// cells, bottom-aligned: the last row given becomes the bottom row. Spaces
// are ignored. Intended for fixtures and debug tooling.
func ParseGrid(rows ...string) (Grid, error) {
	if len(rows) > Height {
		return nil, errors.New("Too many rows for grid")
	}
	g := NewGrid()
	offset := Height - len(rows)
	for i, row := range rows {
		row = strings.ReplaceAll(row, " ", "")
		if len(row) != Width {
			return nil, errors.New(`Row "` + row + `" does not match grid width`)
		}
		for c, ch := range row {
			if ch == '.' {
				continue
			}
			k, err := ParseKind(string(ch))
			if err != nil {
				return nil, err
			}
			g[offset+i][c] = k
		}
	}
	return g, nil
}
