package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/slovoigra/spelling-backend/internal/config"
	"github.com/slovoigra/spelling-backend/internal/dictionary"
	"github.com/slovoigra/spelling-backend/internal/engine"
	"github.com/slovoigra/spelling-backend/internal/httpapi"
	"github.com/slovoigra/spelling-backend/internal/hub"
	"github.com/slovoigra/spelling-backend/internal/picker"
	"github.com/slovoigra/spelling-backend/internal/session"
	"github.com/slovoigra/spelling-backend/internal/store"
	"github.com/slovoigra/spelling-backend/internal/teams"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Debug {
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zapCfg.Build()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer logger.Sync()

	// The dictionary is the one load that must succeed; a bot without
	// words has nothing to do.
	dictOpts := []dictionary.Option{dictionary.WithCommonLimit(cfg.CommonLimit)}
	if cfg.RemovedWordsPath != "" {
		dictOpts = append(dictOpts, dictionary.WithExclusions(cfg.RemovedWordsPath))
	}
	dict, err := dictionary.Load(cfg.DictionaryPath, dictOpts...)
	if err != nil {
		return fmt.Errorf("loading dictionary: %w", err)
	}
	logger.Info("dictionary loaded",
		zap.String("path", cfg.DictionaryPath),
		zap.Int("words", dict.Len()))

	var st *store.Store
	if cfg.DatabaseURL != "" {
		st, err = store.Open(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("opening snapshot store: %w", err)
		}
		logger.Info("snapshot store enabled", zap.String("recovery_mode", cfg.RecoveryMode))
	}

	score := teams.ScoreFunc(teams.FlatScore)
	if cfg.RarityScoring {
		score = teams.RarityWeighted(cfg.CommonLimit)
	}

	deps := hub.Deps{
		Dict:  dict,
		Roles: teams.StaticRoles(cfg.NativePlayers, cfg.LearnerPlayers),
		Score: score,
		EngineRules: engine.Rules{
			MinGuessLen: cfg.MinGuessLen,
			MaxWordLen:  cfg.WordMaxLen,
			RejectRoot:  true,
		},
		PickerRules: picker.Rules{
			MinLen:         cfg.RootMinLen,
			MaxLen:         cfg.RootMaxLen,
			MinSolutions:   cfg.MinSolutions,
			SolutionMinLen: cfg.WordMinLen,
			SolutionMaxLen: cfg.WordMaxLen,
		},
		GameDuration: time.Duration(cfg.GameHours) * time.Hour,
		RecentWindow: cfg.RecentRoots,
		Recorder:     recorderOrNil(st),
		Logger:       logger,
	}
	h := hub.NewHub(ctx, deps)

	if st != nil && cfg.RecoveryMode != "off" {
		if err := restoreGames(ctx, h, st, cfg.RecoveryMode, logger); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.SetupRoutes(h, st, logger),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", zap.String("addr", cfg.HTTPAddr))
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			return fmt.Errorf("listening on %s: %w", srv.Addr, err)
		}
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		h.Inbox() <- hub.ShutdownHub{}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// restoreGames restores or finalizes games persisted by a previous process run.
func restoreGames(ctx context.Context, h *hub.Hub, st *store.Store, mode string, logger *zap.Logger) error {
	snaps, err := st.LoadActive(ctx)
	if err != nil {
		return fmt.Errorf("loading persisted games: %w", err)
	}

	for _, snap := range snaps {
		switch mode {
		case "resume":
			// A deadline that passed while we were down fires the expiry
			// timer immediately after restore.
			reply := make(chan *session.Session, 1)
			h.Inbox() <- hub.RestoreSession{Snap: snap, Reply: reply}
			<-reply

		case "expire":
			snap.Phase = engine.PhaseExpired
			if err := st.Archive(ctx, snap); err != nil {
				logger.Warn("archiving stale game", zap.String("channel", snap.Channel), zap.Error(err))
			}
			if err := st.Delete(ctx, snap.Channel); err != nil {
				logger.Warn("deleting stale snapshot", zap.String("channel", snap.Channel), zap.Error(err))
			}
			logger.Info("expired persisted game", zap.String("channel", snap.Channel), zap.String("root", snap.Root))
		}
	}
	return nil
}

// recorderOrNil avoids handing the hub a non-nil interface wrapping a nil
// *store.Store.
func recorderOrNil(st *store.Store) session.Recorder {
	if st == nil {
		return nil
	}
	return st
}
