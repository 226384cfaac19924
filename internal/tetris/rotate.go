package tetris

// Direction is a rotation direction.
type Direction int

const (
	Clockwise        Direction = 1
	CounterClockwise Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Clockwise:
		return "cw"
	case CounterClockwise:
		return "ccw"
	default:
		return "none"
	}
}

// Rotated returns p advanced one rotation state in direction d, without
// moving it and without any legality check.
func Rotated(p Piece, d Direction) Piece {
	n := RotationCount(p.Kind)
	if n == 0 {
		return p
	}
	p.Rotation = ((p.Rotation+int(d))%n + n) % n
	return p
}

// Kick offsets, tried in order. Pieces close to a wall are pushed away from
// it first; pieces in the middle try left before right, then upward.
var (
	kicksNearLeft = []Position{
		{0, 0}, {1, 0}, {2, 0}, {3, 0}, {0, -1}, {1, -1},
	}
	kicksNearRight = []Position{
		{0, 0}, {-1, 0}, {-2, 0}, {-3, 0}, {0, -1}, {-1, -1},
	}
	kicksMiddle = []Position{
		{0, 0}, {-1, 0}, {1, 0}, {-2, 0}, {2, 0}, {0, -1}, {-1, -1}, {1, -1},
	}
)

// kickOffsets picks the offset list for a piece whose column before
// rotating is x.
func kickOffsets(x int) []Position {
	switch {
	case x <= 2:
		return kicksNearLeft
	case x >= Width-3:
		return kicksNearRight
	default:
		return kicksMiddle
	}
}

// Rotate rotates p in direction d on grid g, trying each wall kick offset
// until the rotated piece fits. If none fits the rotation is cancelled and
// p is returned unchanged with ok == false.
func Rotate(g Grid, p Piece, d Direction) (rotated Piece, ok bool) {
	r := Rotated(p, d)
	for _, off := range kickOffsets(p.Pos.X) {
		pos := p.Pos.Add(off)
		if ValidPosition(g, r, pos) {
			return r.At(pos), true
		}
	}
	return p, false
}
