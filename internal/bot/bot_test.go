package bot

import (
	"bytes"
	"io"
	"log"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephenkowalewski/stack-wars/internal/tetris"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// gridWithGap fills rows with garbage except for column gap.
func gridWithGap(gap int, rows ...int) tetris.Grid {
	g := tetris.NewGrid()
	for _, r := range rows {
		for c := range g[r] {
			if c != gap {
				g[r][c] = tetris.GarbageKind
			}
		}
	}
	return g
}

// toppedOut leaves only the two top rows and column 0 free, so no O can be
// placed without reaching the ceiling.
func toppedOut() tetris.Grid {
	rows := make([]int, 0, tetris.Height-2)
	for r := 2; r < tetris.Height; r++ {
		rows = append(rows, r)
	}
	return gridWithGap(0, rows...)
}

func TestParseDifficulty(t *testing.T) {
	for _, d := range Difficulties {
		parsed, err := ParseDifficulty(d.String())
		require.NoError(t, err)
		assert.Equal(t, d, parsed)
	}
	d, err := ParseDifficulty(" Expert ")
	require.NoError(t, err)
	assert.Equal(t, Expert, d)

	_, err = ParseDifficulty("nightmare")
	assert.ErrorContains(t, err, "Unknown difficulty")

	var text Difficulty
	require.NoError(t, text.UnmarshalText([]byte("hard")))
	assert.Equal(t, Hard, text)
}

func TestDifficultyTables(t *testing.T) {
	assert.Equal(t, 0.7, Easy.Multiplier())
	assert.Equal(t, 1.0, Medium.Multiplier())
	assert.Equal(t, 1.0, Hard.Multiplier())
	assert.Equal(t, 1.3, Expert.Multiplier())

	assert.Equal(t, Weights{Height: -1.5, Lines: 2.5, Holes: -2.0, Bumpiness: -0.8, AggregateHeight: -0.5}, Expert.Weights())

	// harder tiers punish holes more, reward lines more and act sooner
	for i := 1; i < len(Difficulties); i++ {
		easier, harder := Difficulties[i-1], Difficulties[i]
		assert.Less(t, harder.Weights().Holes, easier.Weights().Holes)
		assert.Greater(t, harder.Weights().Lines, easier.Weights().Lines)
		assert.Less(t, harder.Cadence(), easier.Cadence())
	}
}

func TestEvaluateEmptyBoardO(t *testing.T) {
	a := Evaluate(tetris.NewGrid(), tetris.NewPiece(tetris.O), Medium)
	require.True(t, a.Feasible())
	// columns 0 and 8 tie, the first one searched wins
	assert.Equal(t, 0, a.Best.X)
	assert.Equal(t, 0, a.Best.Rotation)
	assert.Equal(t, 18, a.Best.Y)
	assert.Zero(t, a.Best.Lines)
	// 4 rotations times 9 columns; column 9 does not fit
	assert.Len(t, a.All, 36)
}

func TestEvaluateIsDeterministic(t *testing.T) {
	g, err := tetris.ParseGrid(
		"..S....Z..",
		".SS..ZZZ..",
		"JS.L.ZIII.",
		"JJLLL.OOT.",
	)
	require.NoError(t, err)
	ignoreElapsed := cmpopts.IgnoreFields(Analysis{}, "Elapsed")

	for _, k := range tetris.Kinds {
		for _, d := range Difficulties {
			first := Evaluate(g, tetris.NewPiece(k), d)
			second := Evaluate(g, tetris.NewPiece(k), d)
			if diff := cmp.Diff(first, second, ignoreElapsed); diff != "" {
				t.Errorf("%v/%v: search is not deterministic (-first +second):\n%s", k, d, diff)
			}
			for _, m := range first.All {
				assert.LessOrEqual(t, m.Score, first.Best.Score)
			}
		}
	}
}

func TestEvaluateToppedOut(t *testing.T) {
	a := Evaluate(toppedOut(), tetris.NewPiece(tetris.O), Hard)
	assert.False(t, a.Feasible())
	assert.Equal(t, Move{Score: math.Inf(-1)}, a.Best)
	require.NotEmpty(t, a.All)
	for _, m := range a.All {
		assert.True(t, math.IsInf(m.Score, -1), "%+v", m)
	}
}

func TestEvaluateSingleLine(t *testing.T) {
	g := gridWithGap(5, 19)
	a := Evaluate(g, tetris.NewPiece(tetris.I), Expert)
	assert.Equal(t, Move{X: 5, Y: 16, Rotation: 1, Lines: 1, Score: a.Best.Score}, a.Best)
}

func TestEvaluateDoubleLine(t *testing.T) {
	g := gridWithGap(3, 18, 19)
	a := Evaluate(g, tetris.NewPiece(tetris.I), Expert)
	assert.Equal(t, Move{X: 3, Y: 16, Rotation: 1, Lines: 2, Score: a.Best.Score}, a.Best)
}

func TestScoreFormula(t *testing.T) {
	// O in the bottom left corner of an empty board: max height 2,
	// aggregate height 4, bumpiness 2, 40 row and 20 column transitions
	p := tetris.Piece{Kind: tetris.O, Pos: tetris.Position{X: 0, Y: 18}}
	for d, expected := range map[Difficulty]float64{
		Easy:   (-1 - 0.4 - 0.4 - 8 - 4) * 0.7,
		Medium: -1.4 - 0.8 - 0.6 - 8 - 4,
		Expert: (-3 - 2 - 1.6 - 8 - 4) * 1.3,
	} {
		assert.InDelta(t, expected, score(tetris.NewGrid(), p, d).Score, 1e-9, d.String())
	}
}

func TestPlanMotion(t *testing.T) {
	spawned := tetris.NewPiece(tetris.I)
	assert.Equal(t,
		[]Command{Rotate, Rotate, Rotate, Left, Left, Left, Left, Drop},
		PlanMotion(spawned, Move{X: 0, Rotation: 3}))
	assert.Equal(t,
		[]Command{Right, Right, Right, Drop},
		PlanMotion(spawned, Move{X: 7, Rotation: 0}))
	assert.Equal(t, []Command{Drop}, PlanMotion(spawned, Move{X: 4}))

	// no counter-clockwise shortcut
	turned := spawned
	turned.Rotation = 1
	assert.Equal(t, []Command{Rotate, Rotate, Rotate, Drop}, PlanMotion(turned, Move{X: 4, Rotation: 0}))
}

func TestCommandIntent(t *testing.T) {
	for c, expected := range map[Command]tetris.IntentKind{
		Rotate: tetris.RotateCW,
		Left:   tetris.MoveLeft,
		Right:  tetris.MoveRight,
		Drop:   tetris.HardDrop,
	} {
		assert.Equal(t, expected, c.Intent().Kind, c.String())
	}
}

// play runs the driver against a game until one of the events is seen or
// limit passes, resetting the driver on every lock the way the game loop
// does.
func play(t *testing.T, s tetris.State, d *Driver, limit time.Duration, until tetris.EventKind) (tetris.State, tetris.Event, time.Duration) {
	t.Helper()
	const tick = 50 * time.Millisecond
	for now := s.Now(); now <= limit; now += tick {
		var events []tetris.Event
		s, events = tetris.Step(s, now, d.Intents(now, s))
		for _, ev := range events {
			if ev.Kind == tetris.Locked || ev.Kind == tetris.Ended {
				d.Reset()
			}
			if ev.Kind == until {
				return s, ev, now
			}
		}
	}
	t.Fatalf("no %v event before %v", until, limit)
	return s, tetris.Event{}, 0
}

func startedWith(t *testing.T, g tetris.Grid, k tetris.Kind) tetris.State {
	t.Helper()
	s, _ := tetris.Step(tetris.NewState(1, 2), 0, []tetris.Intent{{Kind: tetris.Start}})
	require.Equal(t, tetris.Playing, s.Status)
	s.Grid = g
	s.Active = tetris.NewPiece(k)
	s.Ghost = tetris.Ghost(g, s.Active)
	return s
}

func TestDriverClearsSingleLine(t *testing.T) {
	s := startedWith(t, gridWithGap(5, 19), tetris.I)
	d := NewDriver(Expert, discardLogger(), true)

	s, ev, at := play(t, s, d, 5*time.Second, tetris.LinesCleared)
	assert.Equal(t, 1, ev.Lines)
	assert.Zero(t, ev.Garbage)
	// dropped 17 rows from the spawn row
	assert.Equal(t, tetris.Score(1, 0)+2*17, ev.Points)
	// rotate at 400ms, right at 500ms, drop at 600ms, clear 500ms later
	assert.Equal(t, 1100*time.Millisecond, at)
	assert.Equal(t, 1, s.Lines)
}

func TestDriverClearsDoubleLine(t *testing.T) {
	s := startedWith(t, gridWithGap(3, 18, 19), tetris.I)
	d := NewDriver(Expert, discardLogger(), false)

	_, ev, _ := play(t, s, d, 5*time.Second, tetris.LinesCleared)
	assert.Equal(t, 2, ev.Lines)
	assert.Equal(t, 1, ev.Garbage)
	assert.Equal(t, tetris.Score(2, 0)+2*17, ev.Points)
}

func TestDriverCadence(t *testing.T) {
	s := startedWith(t, tetris.NewGrid(), tetris.O)
	d := NewDriver(Hard, discardLogger(), false)

	assert.Nil(t, d.Intents(0, s))
	assert.Equal(t, []Command{Left, Left, Left, Left, Drop}, d.Pending())

	var issued []time.Duration
	for now := time.Duration(0); now < 2*time.Second && len(d.Pending()) > 0; now += 10 * time.Millisecond {
		intents := d.Intents(now, s)
		if len(intents) > 0 {
			require.Len(t, intents, 1)
			issued = append(issued, now)
		}
		s, _ = tetris.Step(s, now, intents)
	}
	expected := []time.Duration{
		600 * time.Millisecond,
		700 * time.Millisecond,
		800 * time.Millisecond,
		900 * time.Millisecond,
		1000 * time.Millisecond,
	}
	assert.Equal(t, expected, issued)
}

func TestDriverWaitsWhilePaused(t *testing.T) {
	s := startedWith(t, tetris.NewGrid(), tetris.O)
	d := NewDriver(Expert, discardLogger(), false)
	d.Intents(0, s)
	planned := d.Pending()
	require.NotEmpty(t, planned)

	paused, _ := tetris.Step(s, time.Second, []tetris.Intent{{Kind: tetris.Pause}})
	assert.Nil(t, d.Intents(time.Second, paused))
	assert.Equal(t, planned, d.Pending())

	over, _ := tetris.Step(s, time.Second, []tetris.Intent{{Kind: tetris.SessionOver}})
	assert.Nil(t, d.Intents(time.Second, over))
	assert.Empty(t, d.Pending())
}

func TestDriverWaitsForPendingClear(t *testing.T) {
	s := startedWith(t, tetris.NewGrid(), tetris.O)
	s.ClearingRows = []int{19}
	d := NewDriver(Expert, discardLogger(), false)
	assert.Nil(t, d.Intents(0, s))
	assert.Empty(t, d.Pending())
}

func TestDriverSuppressedWhenToppedOut(t *testing.T) {
	var buf bytes.Buffer
	s := startedWith(t, toppedOut(), tetris.O)
	d := NewDriver(Expert, log.New(&buf, "", 0), false)

	for now := time.Duration(0); now < time.Second; now += 100 * time.Millisecond {
		assert.Nil(t, d.Intents(now, s))
	}
	assert.Empty(t, d.Pending())
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("No placement")))
}
