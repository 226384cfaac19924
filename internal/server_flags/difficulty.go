package server_flags

import (
	"github.com/stephenkowalewski/stack-wars/internal/bot"
)

// Difficulty implements the flag.Value interface for automated player
// difficulty tiers
type Difficulty struct {
	Value *bot.Difficulty
}

func (d *Difficulty) String() string {
	if d.Value == nil {
		return bot.Medium.String()
	}
	return d.Value.String()
}

func (d *Difficulty) Set(s string) error {
	parsed, err := bot.ParseDifficulty(s)
	if err != nil {
		return err
	}
	*d.Value = parsed
	return nil
}
