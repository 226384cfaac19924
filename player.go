package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stephenkowalewski/stack-wars/internal/protocol"
)

// Player represents a member of a Room.
// state holds the last update the player reported; hasState is false until
// the first one arrives.
type Player struct {
	Name     string `json:"name"`
	id       uuid.UUID
	lastSeen time.Time
	state    protocol.StateUpdate
	hasState bool
}

func (p *Player) String() string {
	return fmt.Sprintf("%-20s %s score=%d lines=%d level=%d over=%t %s",
		p.Name, p.lastSeen.Format(time.TimeOnly), p.state.Score, p.state.Lines, p.state.Level, p.state.IsGameOver, p.id)
}

func newPlayer(name string) *Player {
	return &Player{
		Name:     name,
		id:       uuid.New(),
		lastSeen: time.Now(),
	}
}

// resetState forgets the reported state at the start of a game
func (p *Player) resetState() {
	p.state = protocol.StateUpdate{}
	p.hasState = false
}

// recordState stores update. The grid is kept from the previous update when
// update does not carry one.
func (p *Player) recordState(update protocol.StateUpdate) {
	if update.Grid == nil {
		update.Grid = p.state.Grid
	}
	p.state = update
	p.hasState = true
	p.lastSeen = time.Now()
}

func (p *Player) summary(isHost, connected bool) protocol.PlayerSummary {
	return protocol.PlayerSummary{
		Name:       p.Name,
		IsHost:     isHost,
		Connected:  connected,
		Score:      p.state.Score,
		Lines:      p.state.Lines,
		Level:      p.state.Level,
		IsGameOver: p.state.IsGameOver,
	}
}
