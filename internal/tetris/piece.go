package tetris

import (
	"fmt"
	"strings"
)

// Mask is a bitmask that represents the occupied cells of one rotation
// state of a piece, anchored at the top left of a maskMaxLength square.
type Mask uint16

// a shape must fit in a maskMaxLength by maskMaxLength square
const maskMaxLength = 4

func maskAt(r, c int) Mask {
	// top-left is (0,0)
	return 1 << ((maskMaxLength-1-r)*maskMaxLength + (maskMaxLength - 1 - c))
}

// Has reports whether the cell at row r, column c of the mask is occupied.
func (m Mask) Has(r, c int) bool {
	if r < 0 || c < 0 || r >= maskMaxLength || c >= maskMaxLength {
		return false
	}
	return m&maskAt(r, c) != 0
}

// Size returns the number of rows and columns spanned by m.
func (m Mask) Size() (int, int) {
	rows, cols := 0, 0
	for r := 0; r < maskMaxLength; r++ {
		for c := 0; c < maskMaxLength; c++ {
			if m.Has(r, c) {
				rows = max(rows, r+1)
				cols = max(cols, c+1)
			}
		}
	}
	return rows, cols
}

// Cells returns the offsets of the occupied cells relative to the anchor,
// in row-major order.
func (m Mask) Cells() []Position {
	cells := make([]Position, 0, 4)
	for r := 0; r < maskMaxLength; r++ {
		for c := 0; c < maskMaxLength; c++ {
			if m.Has(r, c) {
				cells = append(cells, Position{X: c, Y: r})
			}
		}
	}
	return cells
}

// String returns a Go binary literal with bits grouped by row
func (m Mask) String() string {
	var sb strings.Builder

	sb.WriteString("0b")
	for r := 0; r < maskMaxLength; r++ {
		if r > 0 {
			sb.WriteByte('_')
		}
		for c := 0; c < maskMaxLength; c++ {
			if m.Has(r, c) {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
	}

	return sb.String()
}

func (m Mask) String2D() string {
	var sb strings.Builder

	rows, cols := m.Size()
	for r := 0; r < rows; r++ {
		if r > 0 {
			sb.WriteByte('\n')
		}
		for c := 0; c < cols; c++ {
			if c > 0 {
				sb.WriteByte(' ')
			}
			if m.Has(r, c) {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
	}

	return sb.String()
}

// Catalog holds the precomputed rotation states of every piece type.
// Rotating is always a lookup into this table modulo its length.
var Catalog = map[Kind][]Mask{
	I: {
		0b1111_0000_0000_0000,
		0b1000_1000_1000_1000,
	},
	O: {
		0b1100_1100_0000_0000,
	},
	T: {
		0b0100_1110_0000_0000,
		0b1000_1100_1000_0000,
		0b1110_0100_0000_0000,
		0b0100_1100_0100_0000,
	},
	S: {
		0b0110_1100_0000_0000,
		0b1000_1100_0100_0000,
	},
	Z: {
		0b1100_0110_0000_0000,
		0b0100_1100_1000_0000,
	},
	J: {
		0b1000_1110_0000_0000,
		0b1100_1000_1000_0000,
		0b1110_0010_0000_0000,
		0b0100_0100_1100_0000,
	},
	L: {
		0b0010_1110_0000_0000,
		0b1000_1000_1100_0000,
		0b1110_1000_0000_0000,
		0b1100_0100_0100_0000,
	},
}

// Position is a grid coordinate. X is the column, Y is the row, and rows
// above the visible grid are negative.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) Add(o Position) Position {
	return Position{X: p.X + o.X, Y: p.Y + o.Y}
}

// SpawnPosition is where new pieces enter: horizontally centered, one row
// above the visible top.
var SpawnPosition = Position{X: Width/2 - 1, Y: -1}

// Piece is a falling unit. A Piece is a value: moving or rotating one
// produces a new Piece.
type Piece struct {
	Kind     Kind     `json:"type"`
	Pos      Position `json:"position"`
	Rotation int      `json:"rotation"`
}

// NewPiece returns a piece of kind k at the spawn position in rotation 0.
func NewPiece(k Kind) Piece {
	return Piece{Kind: k, Pos: SpawnPosition}
}

// Shape returns the occupancy mask of the piece's current rotation state.
func (p Piece) Shape() Mask {
	shapes := Catalog[p.Kind]
	if len(shapes) == 0 {
		return 0
	}
	return shapes[p.Rotation%len(shapes)]
}

// RotationCount returns the number of distinct rotation states of k.
func RotationCount(k Kind) int {
	return len(Catalog[k])
}

// At returns a copy of p moved to pos.
func (p Piece) At(pos Position) Piece {
	p.Pos = pos
	return p
}

// IsZero reports whether p is the absent piece.
func (p Piece) IsZero() bool {
	return p.Kind == Empty
}

func (p Piece) String() string {
	return fmt.Sprintf("%v@(%d,%d)r%d", p.Kind, p.Pos.X, p.Pos.Y, p.Rotation)
}
