package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Difficulty selects the weights and pace of the automated player.
type Difficulty uint8

const (
	Easy Difficulty = iota
	Medium
	Hard
	Expert
)

// Difficulties lists every tier, easiest first.
var Difficulties = []Difficulty{Easy, Medium, Hard, Expert}

// Weights scale the board features combined into a placement score.
type Weights struct {
	Height          float64 `json:"height"`
	Lines           float64 `json:"lines"`
	Holes           float64 `json:"holes"`
	Bumpiness       float64 `json:"bumpiness"`
	AggregateHeight float64 `json:"aggregate_height"`
}

type tier struct {
	name       string
	weights    Weights
	multiplier float64
	cadence    time.Duration
}

var tiers = [...]tier{
	Easy: {
		name:       "easy",
		weights:    Weights{Height: -0.5, Lines: 1.0, Holes: -0.7, Bumpiness: -0.2, AggregateHeight: -0.1},
		multiplier: 0.7,
		cadence:    1000 * time.Millisecond,
	},
	Medium: {
		name:       "medium",
		weights:    Weights{Height: -0.7, Lines: 1.2, Holes: -1.0, Bumpiness: -0.3, AggregateHeight: -0.2},
		multiplier: 1.0,
		cadence:    800 * time.Millisecond,
	},
	Hard: {
		name:       "hard",
		weights:    Weights{Height: -1.0, Lines: 1.8, Holes: -1.5, Bumpiness: -0.5, AggregateHeight: -0.3},
		multiplier: 1.0,
		cadence:    600 * time.Millisecond,
	},
	Expert: {
		name:       "expert",
		weights:    Weights{Height: -1.5, Lines: 2.5, Holes: -2.0, Bumpiness: -0.8, AggregateHeight: -0.5},
		multiplier: 1.3,
		cadence:    400 * time.Millisecond,
	},
}

func (d Difficulty) tier() tier {
	if int(d) >= len(tiers) {
		return tiers[Medium]
	}
	return tiers[d]
}

// Weights returns the feature weights of the tier.
func (d Difficulty) Weights() Weights { return d.tier().weights }

// Multiplier returns the factor applied to every placement score.
func (d Difficulty) Multiplier() float64 { return d.tier().multiplier }

// Cadence returns how long the player waits after planning before it
// issues the first command.
func (d Difficulty) Cadence() time.Duration { return d.tier().cadence }

func (d Difficulty) String() string {
	if int(d) >= len(tiers) {
		return fmt.Sprintf("Difficulty(%d)", uint8(d))
	}
	return tiers[d].name
}

// ParseDifficulty returns the tier named s, case-insensitively.
func ParseDifficulty(s string) (Difficulty, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, d := range Difficulties {
		if tiers[d].name == name {
			return d, nil
		}
	}
	return Medium, errors.New("Unknown difficulty \"" + s + "\", expected one of easy, medium, hard, expert")
}

func (d Difficulty) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Difficulty) UnmarshalText(text []byte) error {
	parsed, err := ParseDifficulty(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
