// stack-bot joins a room on a relay server and plays it with the automated
// player.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stephenkowalewski/stack-wars/internal/bot"
	"github.com/stephenkowalewski/stack-wars/internal/client"
	"github.com/stephenkowalewski/stack-wars/internal/server_flags"
	"github.com/stephenkowalewski/stack-wars/internal/session"
)

var logger = log.New(os.Stderr, "", log.LstdFlags)

// These get set at build time with -ldflags
var (
	Version   = "dev"
	BuildDate = "unknown"
)

func main() {
	var server, room, name string
	var create, start, debug, printVersion bool
	var tick time.Duration
	difficulty := bot.Medium
	var logfile = server_flags.Logfile{Logger: &logger, Name: "stderr"}
	var difficultyFlag = server_flags.Difficulty{Value: &difficulty}

	flag.StringVar(&server, "server", "http://localhost:8080", "Base URL of the relay server")
	flag.StringVar(&room, "room", "", "Room code to join. With --create, the code to request.")
	flag.StringVar(&name, "name", "Bot", "Player name")
	flag.Var(&difficultyFlag, "difficulty", "One of easy, medium, hard, expert")
	flag.BoolVar(&create, "create", false, "Create the room before joining it")
	flag.BoolVar(&start, "start", false, "Ask the relay to start the game once connected")
	flag.DurationVar(&tick, "tick", client.DefaultTick, "Game loop period")
	flag.Var(&logfile, "log", "log file")
	flag.BoolVar(&debug, "debug", false, "Enable extra debug logging")
	flag.BoolVar(&printVersion, "version", false, "Print version info and exit")
	flag.Parse()

	if printVersion {
		fmt.Printf("%s version %s (built %s)\n", os.Args[0], Version, BuildDate)
		os.Exit(0)
	}
	if debug {
		logger.SetFlags(logger.Flags() | log.Lshortfile)
	}
	if room == "" && !create {
		logger.Fatal("Either --room or --create is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, options{
		server:     server,
		room:       room,
		name:       name,
		difficulty: difficulty,
		create:     create,
		start:      start,
		tick:       tick,
		debug:      debug,
	}); err != nil {
		logger.Fatal(err)
	}
}

type options struct {
	server, room, name string
	difficulty         bot.Difficulty
	create, start      bool
	tick               time.Duration
	debug              bool
}

func run(ctx context.Context, opts options) error {
	conn, err := session.New(session.Config{
		Server:     opts.server,
		RoomCode:   opts.room,
		PlayerName: opts.name,
		Logger:     logger,
		Debug:      opts.debug,
	})
	if err != nil {
		return err
	}

	if opts.create {
		created, err := conn.CreateRoom(ctx)
		if err != nil {
			return err
		}
		logger.Printf("Created room %s", created.RoomCode)
	}
	joined, err := conn.Join(ctx)
	if err != nil {
		return err
	}
	logger.Printf("Playing room %s as %s (%s)", joined.RoomCode, joined.PlayerName, opts.difficulty)

	runner := client.NewRunner(conn, client.Config{
		Difficulty:   opts.difficulty,
		Tick:         opts.tick,
		Seed1:        rand.Uint64(),
		Seed2:        rand.Uint64(),
		RequestStart: opts.start,
		Logger:       logger,
		Debug:        opts.debug,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return conn.Run(ctx) })
	g.Go(func() error { return runner.Run(ctx) })

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		s := runner.State()
		logger.Printf("Stopped with %d points, %d lines, level %d", s.Score, s.Lines, s.Level)
		return nil
	}
	return err
}
