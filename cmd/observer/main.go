package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pathrace/observer/internal/api"
	"github.com/pathrace/observer/internal/archive"
	"github.com/pathrace/observer/internal/config"
	"github.com/pathrace/observer/internal/connection"
	"github.com/pathrace/observer/internal/event"
	"github.com/pathrace/observer/internal/state"
	"github.com/pathrace/observer/internal/task"
	"github.com/pathrace/observer/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/observer.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting observer",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"task_id", cfg.Task.ID,
		"socket_url", cfg.Task.SocketURL,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Resolve task metadata
	gameIDs := cfg.Task.GameIDs
	if len(gameIDs) == 0 {
		apiClient := api.NewClient(
			cfg.API.BaseURL,
			cfg.API.Token,
			api.WithLogger(logger),
			api.WithTimeout(cfg.API.Timeout),
			api.WithRetries(cfg.API.MaxRetries, time.Second),
		)

		info, err := apiClient.GetTask(ctx, cfg.Task.ID)
		if err != nil {
			logger.Error("failed to fetch task metadata", "error", err)
			os.Exit(1)
		}
		gameIDs = info.GameIDs

		logger.Info("task metadata resolved",
			"start_page", info.StartPage,
			"target_page", info.TargetPage,
			"games", len(gameIDs),
		)
	}

	// Build the state store and task manager
	store := state.NewStore(logger)
	unsubscribe := store.Subscribe(progressListener(logger))
	defer unsubscribe()

	manager := task.NewManager(task.Config{
		SocketURL: cfg.Task.SocketURL,
		Supervisor: connection.SupervisorConfig{
			ConnectTimeout: cfg.Connections.ConnectTimeout,
			RetryAttempts:  cfg.Connections.RetryAttempts,
			RetryDelay:     cfg.Connections.RetryDelay,
			PingTimeout:    cfg.Connections.PingTimeout,
			WriteTimeout:   cfg.Connections.WriteTimeout,
			BufferSize:     cfg.Connections.BufferSize,
		},
		EventBufferSize: cfg.Connections.BufferSize,
	}, logger)

	// Optional event journal
	var journal *archive.Writer
	if cfg.Archive.Enabled {
		pool, err := archive.Connect(ctx, cfg.Archive.DB)
		if err != nil {
			logger.Error("failed to connect archive database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		journal = archive.NewWriter(archive.WriterConfig{
			BatchSize:     cfg.Archive.BatchSize,
			FlushInterval: cfg.Archive.FlushInterval,
			BufferSize:    cfg.Archive.BufferSize,
		}, manager.RunID(), pool, logger)

		if err := journal.Start(ctx); err != nil {
			logger.Error("failed to start archive writer", "error", err)
			os.Exit(1)
		}
	}

	if err := manager.ConnectToTask(ctx, gameIDs); err != nil {
		logger.Error("failed to connect to task", "error", err)
		os.Exit(1)
	}
	logger.Info("task connected", "status", manager.TaskStatus())

	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: createHealthHandler(manager, store),
	}

	g, gctx := errgroup.WithContext(ctx)

	// Reduce pump: socket events into the state store
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case ev, ok := <-manager.Events():
				if !ok {
					return nil
				}
				if journal != nil {
					journal.Enqueue(ev)
				}
				decoded, err := event.Decode(ev.Data)
				if err != nil {
					logger.Warn("dropping malformed event",
						"game_id", ev.GameID,
						"error", err,
					)
					continue
				}
				store.Apply(ev.GameID, decoded)
			}
		}
	})

	g.Go(func() error {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return healthServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("observer stopped with error", "error", err)
	}

	// Graceful teardown
	manager.DisconnectFromTask()

	if journal != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := journal.Stop(stopCtx); err != nil {
			logger.Error("archive writer stop failed", "error", err)
		}
	}

	logger.Info("observer stopped")
}

// progressListener logs each game's terminal transition.
func progressListener(logger *slog.Logger) state.Listener {
	finished := make(map[string]bool)
	return func(snap state.Snapshot) {
		for id, g := range snap.Games {
			if g.Status == state.GameFinished && !finished[id] {
				finished[id] = true
				logger.Info("game finished",
					"game_id", id,
					"success", g.Success,
					"moves", len(g.Pages)-1,
				)
			}
		}
	}
}

// createHealthHandler reports task and per-game connection health.
func createHealthHandler(manager *task.Manager, store *state.Store) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		snap := store.Snapshot()
		statuses := manager.GameStatuses()

		games := make(map[string]map[string]any, len(statuses))
		for id, st := range statuses {
			entry := map[string]any{
				"state":    string(st.State),
				"attempts": st.ReconnectAttempts,
			}
			if st.Error != "" {
				entry["error"] = st.Error
			}
			if g, ok := snap.Game(id); ok {
				entry["moves"] = len(g.Pages) - 1
				entry["status"] = string(g.Status)
			}
			games[id] = entry
		}

		resp := map[string]any{
			"version":        version.Version,
			"task_status":    string(manager.TaskStatus()),
			"rendering_mode": string(snap.Mode),
			"current_cursor": snap.CurrentCursor,
			"games":          games,
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	return mux
}
