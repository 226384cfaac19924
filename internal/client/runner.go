// Package client runs one player's game loop against the relay. Every tick
// it turns relayed messages and automated-player decisions into intents,
// advances the game with tetris.Step, and reports the result back.
package client

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/stephenkowalewski/stack-wars/internal/bot"
	"github.com/stephenkowalewski/stack-wars/internal/protocol"
	"github.com/stephenkowalewski/stack-wars/internal/tetris"
)

// DefaultTick is the default game loop period.
const DefaultTick = 50 * time.Millisecond

// Link is the connection to the relay. *session.Client implements it.
type Link interface {
	Inbound() <-chan protocol.Message
	Send(protocol.Message) bool
	Connected() bool
}

// Config holds the knobs of a Runner.
type Config struct {
	Difficulty bot.Difficulty
	Tick       time.Duration
	// Seeds of the piece sequence.
	Seed1, Seed2 uint64
	// RequestStart sends start_game once connected while the game is
	// still waiting.
	RequestStart bool
	Logger       *log.Logger
	Debug        bool
}

// Runner owns one player's game state. Only Run (or Tick) changes it.
type Runner struct {
	cfg    Config
	link   Link
	driver *bot.Driver
	logger *log.Logger

	mu    sync.Mutex
	state tetris.State

	lastSentSeq  uint64
	sentOnce     bool
	sendGrid     bool
	wasConnected bool
	startSent    bool
}

// NewRunner returns a runner playing on link.
func NewRunner(link Link, cfg Config) *Runner {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard, "", 0)
	}
	return &Runner{
		cfg:    cfg,
		link:   link,
		driver: bot.NewDriver(cfg.Difficulty, cfg.Logger, cfg.Debug),
		logger: cfg.Logger,
		state:  tetris.NewState(cfg.Seed1, cfg.Seed2),
	}
}

// State returns a snapshot of the game.
func (r *Runner) State() tetris.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Run ticks the game until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	start := time.Now()
	ticker := time.NewTicker(r.cfg.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Tick(time.Since(start))
		}
	}
}

// Tick advances the game to now and returns what happened.
func (r *Runner) Tick(now time.Duration) []tetris.Event {
	connected := r.link.Connected()
	if connected && !r.wasConnected {
		// the relay may have missed updates while we were away
		r.sendGrid = true
		r.sentOnce = false
	}
	r.wasConnected = connected

	intents := r.drainInbound()

	r.mu.Lock()
	prev := r.state
	r.mu.Unlock()

	// relayed intents may replace the piece the driver would plan for
	if len(intents) == 0 {
		intents = r.driver.Intents(now, prev)
	}
	next, events := tetris.Step(prev, now, intents)

	r.mu.Lock()
	r.state = next
	r.mu.Unlock()

	for _, ev := range events {
		r.handleEvent(next, ev)
	}
	if connected {
		r.maybeRequestStart(next)
		r.sendState(next)
	}
	return events
}

// drainInbound converts every queued relay message into intents without
// blocking.
func (r *Runner) drainInbound() []tetris.Intent {
	var intents []tetris.Intent
	for {
		select {
		case msg := <-r.link.Inbound():
			if in, ok := r.intentFor(msg); ok {
				intents = append(intents, in)
			}
		default:
			return intents
		}
	}
}

func (r *Runner) intentFor(msg protocol.Message) (tetris.Intent, bool) {
	switch msg.Type {
	case protocol.TypeGameStarted, protocol.TypeGameRestarted:
		r.logger.Printf("Game %s", msg.Type[len("game_"):])
		r.driver.Reset()
		r.sendGrid = true
		return tetris.Intent{Kind: tetris.Restart}, true
	case protocol.TypeReceiveGarbage:
		payload, err := protocol.Decode[protocol.ReceiveGarbage](msg)
		if err != nil {
			r.logger.Println(err)
			return tetris.Intent{}, false
		}
		if r.cfg.Debug {
			r.logger.Printf("Receiving %d garbage rows from %s", payload.GarbageRows, payload.FromPlayer)
		}
		return tetris.Garbage(payload.GarbageRows), true
	case protocol.TypeGamePaused:
		return tetris.Intent{Kind: tetris.Pause}, true
	case protocol.TypeGameResumed:
		return tetris.Intent{Kind: tetris.Resume}, true
	case protocol.TypeGameWinner, protocol.TypeGameEnded:
		if payload, err := protocol.Decode[protocol.GameOutcome](msg); err == nil {
			r.logger.Printf("Session over (%s), winner %s with %d points",
				payload.Reason, payload.Winner.Name, payload.Winner.Score)
		}
		return tetris.Intent{Kind: tetris.SessionOver}, true
	case protocol.TypeError:
		if payload, err := protocol.Decode[protocol.Error](msg); err == nil {
			r.logger.Printf("Relay error: %s", payload.Message)
		}
	default:
		if r.cfg.Debug {
			r.logger.Printf("Ignoring %s", msg.Type)
		}
	}
	return tetris.Intent{}, false
}

func (r *Runner) handleEvent(s tetris.State, ev tetris.Event) {
	switch ev.Kind {
	case tetris.Locked:
		r.driver.Reset()
		r.sendGrid = true
	case tetris.Ended:
		r.driver.Reset()
		r.sendGrid = true
		r.logger.Printf("Game over with %d points, %d lines, level %d", s.Score, s.Lines, s.Level)
	case tetris.LinesCleared:
		if r.cfg.Debug {
			r.logger.Printf("Cleared %d lines for %d points", ev.Lines, ev.Points)
		}
		if ev.Garbage <= 0 {
			return
		}
		msg, err := protocol.NewMessage(protocol.TypeSendGarbage, protocol.SendGarbage{GarbageRows: ev.Garbage})
		if err != nil {
			r.logger.Println(err)
			return
		}
		if !r.link.Send(msg) {
			r.logger.Printf("Offline, %d garbage rows not sent", ev.Garbage)
		}
	}
}

func (r *Runner) maybeRequestStart(s tetris.State) {
	if !r.cfg.RequestStart || r.startSent || s.Status != tetris.Waiting {
		return
	}
	msg, _ := protocol.NewMessage(protocol.TypeStartGame, nil)
	if r.link.Send(msg) {
		r.startSent = true
	}
}

// sendState reports s when it changed since the last report.
func (r *Runner) sendState(s tetris.State) {
	if r.sentOnce && s.Seq == r.lastSentSeq && !r.sendGrid {
		return
	}
	update := protocol.StateUpdate{
		Score:      s.Score,
		Lines:      s.Lines,
		Level:      s.Level,
		IsGameOver: s.Status == tetris.GameOver,
	}
	if s.HasActive() || r.sendGrid {
		update.Grid = s.BroadcastGrid()
	}
	msg, err := protocol.NewMessage(protocol.TypeStateUpdate, update)
	if err != nil {
		r.logger.Println(err)
		return
	}
	if r.link.Send(msg) {
		r.lastSentSeq = s.Seq
		r.sentOnce = true
		r.sendGrid = false
	}
}
