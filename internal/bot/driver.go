package bot

import (
	"log"
	"time"

	"github.com/stephenkowalewski/stack-wars/internal/tetris"
)

// CommandInterval is the delay between two commands of the same plan.
const CommandInterval = 100 * time.Millisecond

// Driver plays a game by feeding intents into the game loop. It plans a
// placement whenever it has nothing left to do, waits the difficulty's
// cadence, then releases one command every CommandInterval.
//
// A Driver is not safe for concurrent use; it belongs to one game loop.
type Driver struct {
	difficulty Difficulty
	logger     *log.Logger
	debug      bool

	plan       []Command
	due        time.Duration
	suppressed bool
}

// NewDriver returns a driver for the given difficulty. When debug is set
// every plan is logged.
func NewDriver(d Difficulty, logger *log.Logger, debug bool) *Driver {
	return &Driver{difficulty: d, logger: logger, debug: debug}
}

func (d *Driver) Difficulty() Difficulty {
	return d.difficulty
}

// Pending returns the commands not issued yet.
func (d *Driver) Pending() []Command {
	return d.plan
}

// Reset drops the current plan. The game loop calls it whenever the active
// piece was replaced behind the driver's back, for example on a lock or a
// restart.
func (d *Driver) Reset() {
	d.plan = nil
	d.suppressed = false
}

// Intents returns the intents to apply when s is stepped to now. It returns
// nothing while the game does not accept movement, while completed rows
// are still waiting to be cleared, and while no placement avoids topping
// out.
func (d *Driver) Intents(now time.Duration, s tetris.State) []tetris.Intent {
	if !s.AcceptsMovement() {
		if s.Status != tetris.Paused {
			d.Reset()
		}
		return nil
	}

	if len(d.plan) == 0 {
		// the grid still holds the rows about to be removed
		if len(s.ClearingRows) > 0 || d.suppressed {
			return nil
		}
		a := Evaluate(s.Grid, s.Active, d.difficulty)
		if !a.Feasible() {
			d.suppressed = true
			d.logger.Printf("No placement for %v avoids topping out, waiting", s.Active)
			return nil
		}
		d.plan = PlanMotion(s.Active, a.Best)
		d.due = now + d.difficulty.Cadence()
		if d.debug {
			d.logger.Printf("Planned %v for %v (score %.2f, %d candidates, %v): %v",
				a.Best, s.Active, a.Best.Score, len(a.All), a.Elapsed, d.plan)
		}
	}

	if now < d.due {
		return nil
	}
	c := d.plan[0]
	d.plan = d.plan[1:]
	d.due = now + CommandInterval
	return []tetris.Intent{c.Intent()}
}
