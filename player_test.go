package main

import (
	"testing"

	"github.com/stephenkowalewski/stack-wars/internal/protocol"
	"github.com/stephenkowalewski/stack-wars/internal/tetris"
)

func TestPlayerRecordState(t *testing.T) {
	p := newPlayer("Alice")
	if p.hasState {
		t.Fatal("New player should not have a state")
	}

	grid := tetris.NewGrid()
	grid[tetris.Height-1][0] = tetris.T
	p.recordState(protocol.StateUpdate{Grid: grid, Score: 40, Lines: 1})
	if !p.hasState || p.state.Score != 40 {
		t.Errorf("Unexpected state after the first update: %+v", p.state)
	}

	// an update without a grid keeps the last one
	p.recordState(protocol.StateUpdate{Score: 140, Lines: 2, Level: 0})
	if p.state.Grid == nil || p.state.Grid[tetris.Height-1][0] != tetris.T {
		t.Error("Expected the previous grid to be kept")
	}
	if p.state.Score != 140 || p.state.Lines != 2 {
		t.Errorf("Unexpected counters %+v", p.state)
	}

	s := p.summary(true, false)
	want := protocol.PlayerSummary{Name: "Alice", IsHost: true, Score: 140, Lines: 2}
	if s != want {
		t.Errorf("Unexpected summary. Got %+v. Expected %+v", s, want)
	}

	p.resetState()
	if p.hasState || p.state.Grid != nil || p.state.Score != 0 {
		t.Errorf("Expected resetState to clear the state. Got %+v", p.state)
	}
}
