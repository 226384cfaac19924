package bot

import (
	"fmt"

	"github.com/stephenkowalewski/stack-wars/internal/tetris"
)

// Command is one step of a motion plan.
type Command uint8

const (
	Rotate Command = iota + 1
	Left
	Right
	Drop
)

func (c Command) String() string {
	switch c {
	case Rotate:
		return "rotate"
	case Left:
		return "left"
	case Right:
		return "right"
	case Drop:
		return "drop"
	default:
		return fmt.Sprintf("Command(%d)", uint8(c))
	}
}

// Intent returns the game intent issued for c.
func (c Command) Intent() tetris.Intent {
	switch c {
	case Rotate:
		return tetris.Intent{Kind: tetris.RotateCW}
	case Left:
		return tetris.Intent{Kind: tetris.MoveLeft}
	case Right:
		return tetris.Intent{Kind: tetris.MoveRight}
	default:
		return tetris.Intent{Kind: tetris.HardDrop}
	}
}

// PlanMotion returns the commands that bring piece to the placement m:
// clockwise rotations only, then horizontal moves, then a drop.
func PlanMotion(piece tetris.Piece, m Move) []Command {
	turns := ((m.Rotation-piece.Rotation)%searchedRotations + searchedRotations) % searchedRotations
	dx := m.X - piece.Pos.X

	plan := make([]Command, 0, turns+abs(dx)+1)
	for range turns {
		plan = append(plan, Rotate)
	}
	step := Right
	if dx < 0 {
		step = Left
	}
	for range abs(dx) {
		plan = append(plan, step)
	}
	return append(plan, Drop)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
