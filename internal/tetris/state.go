package tetris

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"time"
)

// Timing of a single player's game loop.
const (
	ClearDelay    = 500 * time.Millisecond
	ShakeDuration = 300 * time.Millisecond

	baseDropInterval = 800 * time.Millisecond
	dropIntervalStep = 40 * time.Millisecond
	minDropInterval  = 50 * time.Millisecond
)

// DropInterval returns the gravity period at the given level.
func DropInterval(level int) time.Duration {
	return max(baseDropInterval-time.Duration(level)*dropIntervalStep, minDropInterval)
}

type Status uint8

const (
	Waiting Status = iota
	Playing
	Paused
	GameOver
)

func (s Status) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case GameOver:
		return "game_over"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IntentKind enumerates the discrete triggers a game accepts.
type IntentKind uint8

const (
	MoveLeft IntentKind = iota + 1
	MoveRight
	SoftDrop
	HardDrop
	RotateCW
	RotateCCW
	Hold
	Pause
	Resume
	Start
	Restart
	ReceiveGarbage
	SessionOver
)

var intentNames = map[IntentKind]string{
	MoveLeft:       "move-left",
	MoveRight:      "move-right",
	SoftDrop:       "soft-drop",
	HardDrop:       "hard-drop",
	RotateCW:       "rotate-cw",
	RotateCCW:      "rotate-ccw",
	Hold:           "hold",
	Pause:          "pause",
	Resume:         "resume",
	Start:          "start",
	Restart:        "restart",
	ReceiveGarbage: "receive-garbage",
	SessionOver:    "session-over",
}

func (k IntentKind) String() string {
	if name, ok := intentNames[k]; ok {
		return name
	}
	return fmt.Sprintf("IntentKind(%d)", uint8(k))
}

// Intent is one trigger fed into Step. Rows is only used by ReceiveGarbage.
type Intent struct {
	Kind IntentKind
	Rows int
}

func (i Intent) String() string {
	if i.Kind == ReceiveGarbage {
		return fmt.Sprintf("%v(%d)", i.Kind, i.Rows)
	}
	return i.Kind.String()
}

// Garbage returns the intent for n incoming garbage rows.
func Garbage(n int) Intent {
	return Intent{Kind: ReceiveGarbage, Rows: n}
}

type EventKind uint8

const (
	// Locked is reported when the active piece is merged into the grid.
	Locked EventKind = iota + 1
	// LinesCleared is reported when completed rows are removed.
	LinesCleared
	// Ended is reported on the transition to GameOver.
	Ended
)

func (k EventKind) String() string {
	switch k {
	case Locked:
		return "locked"
	case LinesCleared:
		return "lines-cleared"
	case Ended:
		return "game-over"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Event is something Step reports to the caller, for example so that
// garbage can be forwarded to opponents.
type Event struct {
	Kind    EventKind
	Lines   int
	Points  int
	Garbage int
}

// State is the complete state of one player's game. It is a value: Step
// never modifies the State it is given. Grids and slices held by a State
// are replaced, never edited in place.
type State struct {
	Grid         Grid
	Active       Piece
	Ghost        Piece
	Next         Kind
	Hold         Kind
	CanHold      bool
	Score        int
	Lines        int
	Level        int
	Status       Status
	ClearingRows []int
	Shake        bool
	// SessionOver is set once the session announced a winner or the end of
	// the game. Movement is no longer accepted afterwards.
	SessionOver bool
	// Seq increases every time Step produces an observable change.
	Seq uint64

	now      time.Duration
	lastDrop time.Duration
	tasks    []task
	taskSeq  uint64
	rng      rand.PCG
	dirty    bool
}

// NewState returns a waiting game whose piece sequence is determined by
// the seeds.
func NewState(seed1, seed2 uint64) State {
	s := State{
		Grid:    NewGrid(),
		CanHold: true,
		Status:  Waiting,
		rng:     *rand.NewPCG(seed1, seed2),
	}
	s.Next = s.randomKind()
	return s
}

func (s *State) random() *rand.Rand {
	return rand.New(&s.rng)
}

func (s *State) randomKind() Kind {
	return Kinds[s.random().IntN(len(Kinds))]
}

// Now returns the logical time of the last Step.
func (s State) Now() time.Duration {
	return s.now
}

// HasActive reports whether a piece is currently falling.
func (s State) HasActive() bool {
	return !s.Active.IsZero()
}

// AcceptsMovement reports whether movement intents currently have an
// effect.
func (s State) AcceptsMovement() bool {
	return s.Status == Playing && !s.SessionOver && s.HasActive()
}

// BroadcastGrid returns a copy of the grid with the active piece drawn in.
func (s State) BroadcastGrid() Grid {
	if !s.HasActive() {
		return s.Grid.Clone()
	}
	return Place(s.Grid, s.Active)
}

func (s State) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "status: %v\n", s.Status)
	fmt.Fprintf(&b, "seq: %d\n", s.Seq)
	fmt.Fprintf(&b, "score: %d lines: %d level: %d\n", s.Score, s.Lines, s.Level)
	fmt.Fprintf(&b, "active: %v ghost: %v\n", s.Active, s.Ghost)
	fmt.Fprintf(&b, "next: %v hold: %v canHold: %t\n", s.Next, s.Hold, s.CanHold)
	fmt.Fprintf(&b, "clearingRows: %v shake: %t\n", s.ClearingRows, s.Shake)
	b.WriteString("grid:\n")
	b.WriteString(s.BroadcastGrid().String2D())
	return b.String()
}

// Step is the single entry point for changing a game. It fires the
// deferred tasks due at now, applies intents in order, then applies
// gravity. prev is not modified. Once the game is over every intent other
// than Start and Restart is a no-op.
func Step(prev State, now time.Duration, intents []Intent) (State, []Event) {
	s := prev
	s.dirty = false
	if now > s.now {
		s.now = now
	}

	var events []Event
	s.runDueTasks(&events)
	for _, in := range intents {
		s.apply(in, &events)
	}
	s.gravity(&events)

	if s.dirty {
		s.Seq++
		s.dirty = false
	}
	return s, events
}

func (s *State) apply(in Intent, events *[]Event) {
	switch in.Kind {
	case Start:
		s.start()
		return
	case Restart:
		s.restart()
		return
	}
	if s.Status == GameOver {
		return
	}

	switch in.Kind {
	case Pause:
		if s.Status == Playing {
			s.Status = Paused
			s.dirty = true
		}
	case Resume:
		if s.Status == Paused {
			s.Status = Playing
			s.lastDrop = s.now
			s.dirty = true
		}
	case SessionOver:
		if !s.SessionOver {
			s.SessionOver = true
			s.dirty = true
		}
	case ReceiveGarbage:
		s.receiveGarbage(in.Rows, events)
	default:
		if !s.AcceptsMovement() {
			return
		}
		s.move(in.Kind, events)
	}
}

func (s *State) move(kind IntentKind, events *[]Event) {
	switch kind {
	case MoveLeft:
		s.shift(-1)
	case MoveRight:
		s.shift(1)
	case SoftDrop:
		s.fall(events)
	case HardDrop:
		d := DropDistance(s.Grid, s.Active)
		s.Active = s.Active.At(s.Active.Pos.Add(Position{Y: d}))
		s.lock(d*2, events)
	case RotateCW:
		s.rotate(Clockwise)
	case RotateCCW:
		s.rotate(CounterClockwise)
	case Hold:
		s.hold(events)
	}
}

func (s *State) shift(dx int) {
	if p, ok := Move(s.Grid, s.Active, dx, 0); ok {
		s.setActive(p)
	}
}

func (s *State) rotate(d Direction) {
	if p, ok := Rotate(s.Grid, s.Active, d); ok {
		s.setActive(p)
	}
}

// fall moves the active piece down one row, locking it when it cannot
// move.
func (s *State) fall(events *[]Event) {
	if p, ok := Move(s.Grid, s.Active, 0, 1); ok {
		s.setActive(p)
		return
	}
	s.lock(0, events)
}

func (s *State) setActive(p Piece) {
	s.Active = p
	s.Ghost = Ghost(s.Grid, p)
	s.dirty = true
}

func (s *State) gravity(events *[]Event) {
	if !s.AcceptsMovement() {
		return
	}
	if s.now-s.lastDrop < DropInterval(s.Level) {
		return
	}
	s.lastDrop = s.now
	s.fall(events)
}

// lock merges the active piece into the grid. Completed rows stay in the
// grid, listed in ClearingRows, until the clear task fires ClearDelay
// later. The next piece spawns immediately either way.
func (s *State) lock(bonus int, events *[]Event) {
	placed := Place(s.Grid, s.Active)
	rows := CompletedRows(placed)
	*events = append(*events, Event{Kind: Locked})

	s.Grid = placed
	s.CanHold = true
	s.dirty = true
	if len(rows) > 0 {
		s.ClearingRows = rows
		s.Shake = true
		s.schedule(ShakeDuration, taskEndShake, 0)
		s.schedule(ClearDelay, taskClearLines, bonus)
	} else {
		s.Score += bonus
		s.ClearingRows = nil
	}
	s.spawn(NewPiece(s.Next), events)
	s.Next = s.randomKind()
}

// clearLines removes the completed rows of the current grid and credits
// the score.
func (s *State) clearLines(bonus int, events *[]Event) {
	grid, n := Clear(s.Grid)
	points := Score(n, s.Level) + bonus
	s.Grid = grid
	s.Score += points
	s.Lines += n
	s.Level = Level(s.Lines)
	s.ClearingRows = nil
	if s.HasActive() {
		s.Ghost = Ghost(s.Grid, s.Active)
	}
	if n > 0 {
		*events = append(*events, Event{
			Kind:    LinesCleared,
			Lines:   n,
			Points:  points,
			Garbage: GarbageFor(n),
		})
	}
}

// spawn makes p the active piece, or ends the game if it does not fit.
func (s *State) spawn(p Piece, events *[]Event) {
	s.dirty = true
	s.lastDrop = s.now
	if !Fits(s.Grid, p) {
		s.end(events)
		return
	}
	s.Active = p
	s.Ghost = Ghost(s.Grid, p)
}

func (s *State) end(events *[]Event) {
	s.Status = GameOver
	s.Active = Piece{}
	s.Ghost = Piece{}
	s.Shake = false
	s.dirty = true
	*events = append(*events, Event{Kind: Ended})
}

func (s *State) hold(events *[]Event) {
	if !s.CanHold {
		return
	}
	current := s.Active.Kind
	var incoming Kind
	if s.Hold == Empty {
		incoming = s.Next
		s.Next = s.randomKind()
	} else {
		incoming = s.Hold
	}
	s.Hold = current
	s.CanHold = false
	s.spawn(NewPiece(incoming), events)
}

func (s *State) receiveGarbage(n int, events *[]Event) {
	if n <= 0 {
		return
	}
	n = min(n, Height)
	s.Grid = InjectGarbage(s.Grid, n, s.random())
	s.dirty = true

	if len(s.ClearingRows) > 0 {
		shifted := make([]int, 0, len(s.ClearingRows))
		for _, r := range s.ClearingRows {
			if r-n >= 0 {
				shifted = append(shifted, r-n)
			}
		}
		s.ClearingRows = shifted
	}

	if !s.HasActive() {
		return
	}
	if !Fits(s.Grid, s.Active) {
		s.end(events)
		return
	}
	s.Ghost = Ghost(s.Grid, s.Active)
}

// start begins play from the waiting state, or starts over after a game
// over.
func (s *State) start() {
	switch s.Status {
	case Waiting:
		s.begin()
	case GameOver:
		s.restart()
	}
}

// restart discards the current game and begins a fresh one.
func (s *State) restart() {
	s.Grid = NewGrid()
	s.Score, s.Lines, s.Level = 0, 0, 0
	s.Hold = Empty
	s.ClearingRows = nil
	s.Shake = false
	s.tasks = nil
	s.begin()
}

func (s *State) begin() {
	s.Status = Playing
	s.SessionOver = false
	s.CanHold = true
	s.dirty = true
	var ignored []Event
	s.spawn(NewPiece(s.Next), &ignored)
	s.Next = s.randomKind()
}

// PendingClear reports whether row r is completed and waiting to be
// removed.
func (s State) PendingClear(r int) bool {
	return slices.Contains(s.ClearingRows, r)
}
