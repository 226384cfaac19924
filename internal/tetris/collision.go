package tetris

// ValidPosition reports whether piece p fits on grid g with its anchor at
// pos. Cells left or right of the grid or below the floor are rejected.
// Cells above the top row are allowed, so pieces may spawn partially above
// the visible field. Cells at row 0 or below must land on empty cells.
func ValidPosition(g Grid, p Piece, pos Position) bool {
	shape := p.Shape()
	for r := 0; r < maskMaxLength; r++ {
		for c := 0; c < maskMaxLength; c++ {
			if !shape.Has(r, c) {
				continue
			}
			x, y := pos.X+c, pos.Y+r
			if x < 0 || x >= Width || y >= Height {
				return false
			}
			if y >= 0 && g[y][x] != Empty {
				return false
			}
		}
	}
	return true
}

// Fits is shorthand for ValidPosition at the piece's own position.
func Fits(g Grid, p Piece) bool {
	return ValidPosition(g, p, p.Pos)
}

// Place returns a new grid with the cells of p written in, tagged with the
// piece type. Cells above the top row are skipped. No legality check is
// done here; callers validate first.
func Place(g Grid, p Piece) Grid {
	out := g.Clone()
	shape := p.Shape()
	for r := 0; r < maskMaxLength; r++ {
		for c := 0; c < maskMaxLength; c++ {
			if !shape.Has(r, c) {
				continue
			}
			x, y := p.Pos.X+c, p.Pos.Y+r
			if y < 0 || y >= Height || x < 0 || x >= Width {
				continue
			}
			out[y][x] = p.Kind
		}
	}
	return out
}

// Move returns p shifted by (dx, dy) if the result is legal on g.
// The second return value is false, and p is returned unchanged, otherwise.
func Move(g Grid, p Piece, dx, dy int) (Piece, bool) {
	pos := p.Pos.Add(Position{X: dx, Y: dy})
	if !ValidPosition(g, p, pos) {
		return p, false
	}
	return p.At(pos), true
}

// DropDistance returns how many rows p can fall before it collides.
func DropDistance(g Grid, p Piece) int {
	n := 0
	for ValidPosition(g, p, p.Pos.Add(Position{Y: n + 1})) {
		n++
	}
	return n
}

// Ghost returns the read-only landing preview of p.
func Ghost(g Grid, p Piece) Piece {
	return p.At(p.Pos.Add(Position{Y: DropDistance(g, p)}))
}
