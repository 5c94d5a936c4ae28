package application

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/config"
)

func TestRunApp(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	t.Run("Stops cleanly when the context is cancelled", func(t *testing.T) {
		// Given: no backends and ephemeral ports
		conf := &config.Config{
			LogLevel:   "info",
			HTTPPort:   "0",
			SocketPort: "0",
			Archiver:   config.Archiver{QueueSize: 8},
		}

		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()

		// When: the application runs until the deadline
		err := RunApp(ctx, logger, conf)

		// Then: shutdown completes without error
		assert.NoError(t, err)
	})

	t.Run("Unreachable redis", func(t *testing.T) {
		conf := &config.Config{
			HTTPPort:   "0",
			SocketPort: "0",
			Redis: config.Redis{
				Enabled: true,
				Host:    "127.0.0.1",
				Port:    "1",
			},
		}

		err := RunApp(context.Background(), logger, conf)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "could not connect to redis storage")
	})

	t.Run("Unknown archive driver", func(t *testing.T) {
		conf := &config.Config{
			Archive: config.Archive{
				Enabled: true,
				Driver:  "oracle",
				DSN:     filepath.Join(t.TempDir(), "archive.db"),
			},
		}

		err := RunApp(context.Background(), logger, conf)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "could not open archive storage")
	})

	t.Run("Empty redis host", func(t *testing.T) {
		conf := &config.Config{
			Redis: config.Redis{Enabled: true},
		}

		err := RunApp(context.Background(), logger, conf)

		assert.ErrorIs(t, err, ErrAddrNotFound)
	})
}
