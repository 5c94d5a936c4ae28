package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/tictactoe-arena/internal/config"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-arena/internal/service"
	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-arena/transport/rest"
	"github.com/rocketscienceinc/tictactoe-arena/transport/websocket"
)

const shutdownTimeout = 10 * time.Second

var ErrAddrNotFound = errors.New("redis host is empty")

// RunApp - runs the application until ctx is cancelled or a signal arrives.
func RunApp(ctx context.Context, logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var snapshots repository.SessionSnapshotRepository
	if conf.Redis.Enabled {
		if conf.Redis.Host == "" {
			return ErrAddrNotFound
		}

		redisStorage, err := storage.NewRedisStorage(ctx, conf.Redis.GetRedisAddr())
		if err != nil {
			return fmt.Errorf("could not connect to redis storage: %w", err)
		}

		defer func() {
			if err = redisStorage.Close(); err != nil {
				log.Error("could not close redis storage", "error", err)
			}
		}()

		snapshots = repository.NewSessionSnapshotRepository(redisStorage.Connection, conf.Redis.SnapshotTTL)
		log.Info("Session snapshots enabled", "addr", conf.Redis.GetRedisAddr())
	}

	var archive repository.ArchiveRepository
	if conf.Archive.Enabled {
		sqlStorage, err := storage.NewSQLStorage(ctx, conf.Archive.Driver, conf.Archive.DSN)
		if err != nil {
			return fmt.Errorf("could not open archive storage: %w", err)
		}

		defer func() {
			if err = sqlStorage.Close(); err != nil {
				log.Error("could not close archive storage", "error", err)
			}
		}()

		if err = sqlStorage.Migrate(ctx); err != nil {
			return fmt.Errorf("could not migrate archive storage: %w", err)
		}

		archive = repository.NewArchiveRepository(sqlStorage)
		log.Info("Match archive enabled", "driver", sqlStorage.Dialect)
	}

	archiver := service.NewArchiver(logger, archive, snapshots, conf.Archiver.QueueSize)
	registry := usecase.NewSessionRegistry(logger, archiver)
	archiver.SetListener(registry)

	wsServer := websocket.New(logger, registry)
	restServer := rest.New(logger, registry, snapshots, archive)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return archiver.Run(groupCtx)
	})

	group.Go(func() error {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		if err := wsServer.Start(conf.SocketPort); err != nil {
			return fmt.Errorf("WebSocket server error: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if err := restServer.Start(conf.HTTPPort); err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}

		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		return errors.Join(
			wsServer.Shutdown(shutdownCtx),
			restServer.Shutdown(shutdownCtx),
			archiver.Close(shutdownCtx),
		)
	})

	return group.Wait()
}
