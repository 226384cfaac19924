//go:build ignore
// +build ignore

// This program generates static/js/vars.js, the constants shared with the
// browser client.
// Run it via `go generate`.

package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/stephenkowalewski/stack-wars/internal/bot"
	"github.com/stephenkowalewski/stack-wars/internal/protocol"
	"github.com/stephenkowalewski/stack-wars/internal/tetris"
)

var jsVarsPath string = "static/js/vars.js"

func main() {
	if err := os.MkdirAll(filepath.Dir(jsVarsPath), 0755); err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(jsVarsPath)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	// Write out JS variable assignments
	fmt.Fprintln(f, "// Auto-generated", time.Now().UTC().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintln(f)
	fmt.Fprintf(f, "const maxPlayers = %d;\n", protocol.MaxPlayers)
	fmt.Fprintf(f, "const roomCodeLength = %d;\n", protocol.RoomCodeLength)
	fmt.Fprintf(f, "const maxNameLength = %d;\n", protocol.MaxNameLength)
	fmt.Fprintln(f)
	fmt.Fprintf(f, "const boardWidth = %d;\n", tetris.Width)
	fmt.Fprintf(f, "const boardHeight = %d;\n", tetris.Height)
	fmt.Fprintf(f, "const clearDelayMs = %d;\n", tetris.ClearDelay.Milliseconds())
	fmt.Fprintf(f, "const shakeDurationMs = %d;\n", tetris.ShakeDuration.Milliseconds())
	fmt.Fprintf(f, "const linesPerLevel = %d;\n", tetris.LinesPerLevel)
	fmt.Fprintf(f, "const rowsPerGarbage = %d;\n", tetris.RowsPerGarbage)
	fmt.Fprintf(f, "const garbageCell = %q;\n", tetris.GarbageKind)

	fmt.Fprintln(f, "const dropIntervalMs = [")
	for level := 0; ; level++ {
		d := tetris.DropInterval(level)
		fmt.Fprintf(f, "  %d,\n", d.Milliseconds())
		if d == tetris.DropInterval(level+1) {
			break
		}
	}
	fmt.Fprintln(f, "];")

	fmt.Fprintln(f, "const lineScores = [")
	for lines := 0; lines <= 4; lines++ {
		fmt.Fprintf(f, "  %d,\n", tetris.Score(lines, 0))
	}
	fmt.Fprintln(f, "];")
	fmt.Fprintln(f)

	// masks are 4x4 bit fields, most significant bit top-left
	fmt.Fprintln(f, "const pieceRotations = {")
	for _, k := range tetris.Kinds {
		fmt.Fprintf(f, "  %q: [", k)
		for i, m := range tetris.Catalog[k] {
			if i > 0 {
				fmt.Fprint(f, ", ")
			}
			fmt.Fprintf(f, "0x%04x", uint16(m))
		}
		fmt.Fprintln(f, "],")
	}
	fmt.Fprintln(f, "};")
	fmt.Fprintln(f)

	fmt.Fprintln(f, "const botDifficulties = {")
	for _, d := range bot.Difficulties {
		w := d.Weights()
		fmt.Fprintf(f, "  %q: {\"cadenceMs\": %d, \"multiplier\": %g, \"weights\": {\"height\": %g, \"lines\": %g, \"holes\": %g, \"bumpiness\": %g, \"aggregateHeight\": %g}},\n",
			d, d.Cadence().Milliseconds(), d.Multiplier(), w.Height, w.Lines, w.Holes, w.Bumpiness, w.AggregateHeight)
	}
	fmt.Fprintln(f, "};")
	fmt.Fprintln(f)

	fmt.Fprintln(f, "const messageTypes = {")
	for _, t := range []string{
		protocol.TypePing, protocol.TypePong,
		protocol.TypeStartGame, protocol.TypeRestartGame, protocol.TypeStateUpdate,
		protocol.TypeSendGarbage, protocol.TypePauseGame, protocol.TypeResumeGame,
		protocol.TypeRoomInfo, protocol.TypePlayerJoined, protocol.TypePlayerLeft,
		protocol.TypeGameStarted, protocol.TypeGameRestarted, protocol.TypePlayerState,
		protocol.TypePlayerGameOver, protocol.TypeGameWinner, protocol.TypeGameEnded,
		protocol.TypeReceiveGarbage, protocol.TypeGamePaused, protocol.TypeGameResumed,
		protocol.TypeError,
	} {
		fmt.Fprintf(f, "  %q: %q,\n", t, t)
	}
	fmt.Fprintln(f, "};")

	log.Println("Wrote:", jsVarsPath)
}
