package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cbodonnell/drag/pkg/api"
	"github.com/cbodonnell/drag/pkg/config"
	"github.com/cbodonnell/drag/pkg/game"
	"github.com/cbodonnell/drag/pkg/game/types"
	"github.com/cbodonnell/drag/pkg/log"
	"github.com/cbodonnell/drag/pkg/queue"
	"github.com/cbodonnell/drag/pkg/repositories"
	"github.com/cbodonnell/drag/pkg/version"
	"github.com/cbodonnell/drag/pkg/words"
	"github.com/cbodonnell/drag/pkg/workers"
)

func main() {
	logLevel := flag.String("log-level", "info", "Log level")
	envFile := flag.String("env-file", ".env", "Optional file with DRAG_* settings")
	create := flag.Bool("create", false, "Create a new game")
	join := flag.String("join", "", "Join the game with this id")
	list := flag.Bool("list", false, "List the games waiting for players")
	name := flag.String("name", "", "Player name")
	players := flag.Int("players", 5, "Number of players of a created game")
	roundTime := flag.Int64("round-time", 60, "Round time in seconds of a created game")
	lang := flag.String("lang", "en", "Word language of a created game (en or pt)")
	bot := flag.Bool("bot", false, "Play automatically instead of reading moves from stdin")
	watch := flag.String("watch", "", "Follow the game with this id through a lobby server")
	server := flag.String("server", "http://localhost:9090", "Lobby server used by -watch")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}

	logger := log.New(os.Stderr, "", log.DefaultLoggerFlag, parsedLogLevel)
	log.SetDefaultLogger(logger)
	log.Info("Log level set to %s", parsedLogLevel)
	log.Info("Starting drag version %s", version.Get())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *watch != "" {
		err := api.WatchGame(ctx, *server, *watch, func(record *types.GameRecord) error {
			printRecord(os.Stdout, record)
			return nil
		})
		if err != nil {
			log.Error("Watch failed: %v", err)
			os.Exit(1)
		}
		return
	}

	if err := config.LoadDotEnv(*envFile); err != nil {
		panic(fmt.Sprintf("Failed to load %s: %v", *envFile, err))
	}
	cfg := config.Load()

	s, err := config.OpenStore(ctx, cfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to open %s store: %v", cfg.Store, err))
	}
	defer s.Close()

	if *list {
		lobbies, err := game.AvailableLobbies(ctx, s)
		if err != nil {
			log.Error("Failed to list lobbies: %v", err)
			os.Exit(1)
		}
		for _, lobby := range lobbies {
			fmt.Printf("%s  %d/%d players  %ds  %s\n", lobby.ID, lobby.OccupiedCount(), lobby.MaxPlayers, lobby.RoundTimeSeconds, lobby.Language)
		}
		return
	}
	if *create == (*join != "") {
		fmt.Fprintln(os.Stderr, "exactly one of -create and -join is required")
		flag.Usage()
		os.Exit(2)
	}

	history, err := repositories.Open(ctx, cfg.HistoryURL)
	if err != nil {
		panic(fmt.Sprintf("Failed to open history: %v", err))
	}
	defer history.Close(context.Background())

	wordClient, err := words.NewClient(words.NewClientOptions{
		BaseURL:           cfg.WordsURL,
		RequestsPerSecond: cfg.WordsRPS,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to create word client: %v", err))
	}

	// cleanup jobs outlive the signal so a quitting player is still removed
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	cleaned := make(chan struct{}, 1)
	cleanupWorker := workers.NewCleanupWorker(workers.NewCleanupWorkerOptions{
		Queue:       queue.NewInMemoryQueue(),
		Quitter:     game.Quitter{Store: s},
		MaxAttempts: cfg.CleanupMaxAttempts,
		OnDone: func(job workers.CleanupJob, err error) {
			cleaned <- struct{}{}
		},
	})
	go cleanupWorker.Start(workerCtx)

	coordinator := game.NewCoordinator(game.NewCoordinatorOptions{
		Store:        s,
		Words:        wordClient,
		History:      history,
		Cleanup:      cleanupWorker,
		StepTimeout:  cfg.StepTimeout,
		LobbyTimeout: cfg.LobbyTimeout,
	})

	term := newTerminal(os.Stdout, *bot, wordClient)
	var session *game.Session
	if *create {
		session, err = coordinator.Create(ctx, *name, game.GameConfig{
			MaxPlayers:       *players,
			RoundTimeSeconds: *roundTime,
			Language:         words.ParseLanguage(*lang),
		}, term)
		if err != nil {
			fmt.Fprintln(os.Stderr, game.UserMessage(err))
			os.Exit(1)
		}
		fmt.Printf("Created game %s, share the id with the other players\n", session.GameID())
	} else {
		session, err = coordinator.Join(ctx, *join, *name, term)
		if err != nil {
			fmt.Fprintln(os.Stderr, game.UserMessage(err))
			os.Exit(1)
		}
		fmt.Printf("Joined game %s\n", session.GameID())
	}

	if !*bot {
		go term.readMoves(session, bufio.NewScanner(os.Stdin))
	}

	select {
	case <-session.Done():
	case <-ctx.Done():
		log.Info("Leaving game %s", session.GameID())
		quitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := session.Quit(quitCtx); err != nil {
			log.Warn("Session did not stop in time: %v", err)
		}
		cancel()
	}

	select {
	case <-cleaned:
	case <-time.After(30 * time.Second):
		log.Warn("Gave up waiting for cleanup of game %s", session.GameID())
	}
}
