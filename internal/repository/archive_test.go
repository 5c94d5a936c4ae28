package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository/storage"
)

func newArchive(t *testing.T) (context.Context, ArchiveRepository) {
	t.Helper()

	ctx := context.Background()

	st, err := storage.NewSQLiteStorage(ctx, filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
	})

	require.NoError(t, st.Migrate(ctx))

	return ctx, NewArchiveRepository(st)
}

func TestArchiveRepository_GetOrCreatePlayer(t *testing.T) {
	ctx, archive := newArchive(t)

	// Given: Ann is archived
	annID, err := archive.GetOrCreatePlayer(ctx, "Ann")
	require.NoError(t, err)

	// When: Ann is looked up again and Bo is added
	again, err := archive.GetOrCreatePlayer(ctx, "Ann")
	require.NoError(t, err)

	boID, err := archive.GetOrCreatePlayer(ctx, "Bo")
	require.NoError(t, err)

	// Then: the same id is returned for the same name
	assert.Equal(t, annID, again)
	assert.NotEqual(t, annID, boID)
}

func TestArchiveRepository_Match(t *testing.T) {
	t.Run("Match with turns and a winner", func(t *testing.T) {
		ctx, archive := newArchive(t)

		// Given: a match between Ann and Bo
		annID, err := archive.GetOrCreatePlayer(ctx, "Ann")
		require.NoError(t, err)
		boID, err := archive.GetOrCreatePlayer(ctx, "Bo")
		require.NoError(t, err)

		matchID, err := archive.CreateMatch(ctx, annID, boID, 3, time.Now())
		require.NoError(t, err)

		// When: two turns are played and Ann wins
		require.NoError(t, archive.RecordTurn(ctx, matchID, annID, 0, 0, time.Now()))
		require.NoError(t, archive.RecordTurn(ctx, matchID, boID, 1, 1, time.Now()))

		closed, err := archive.CloseMatch(ctx, matchID, &annID, time.Now())
		require.NoError(t, err)
		require.True(t, closed)

		// Then: the summary reflects it
		match, err := archive.GetMatch(ctx, matchID)
		require.NoError(t, err)
		assert.Equal(t, matchID, match.ID)
		assert.Equal(t, "Ann", match.Player1)
		assert.Equal(t, "Bo", match.Player2)
		assert.Equal(t, 3, match.BoardSize)
		assert.True(t, match.Finished)
		assert.Equal(t, "Ann", match.Winner)
		assert.Equal(t, 2, match.Turns)
	})

	t.Run("Match is closed only once", func(t *testing.T) {
		ctx, archive := newArchive(t)

		annID, err := archive.GetOrCreatePlayer(ctx, "Ann")
		require.NoError(t, err)
		boID, err := archive.GetOrCreatePlayer(ctx, "Bo")
		require.NoError(t, err)
		matchID, err := archive.CreateMatch(ctx, annID, boID, 4, time.Now())
		require.NoError(t, err)

		// Given: the match was aborted without a winner
		closed, err := archive.CloseMatch(ctx, matchID, nil, time.Now())
		require.NoError(t, err)
		require.True(t, closed)

		// When: it is closed again with a winner
		closed, err = archive.CloseMatch(ctx, matchID, &boID, time.Now())

		// Then: nothing changes
		require.NoError(t, err)
		assert.False(t, closed)

		match, err := archive.GetMatch(ctx, matchID)
		require.NoError(t, err)
		assert.True(t, match.Finished)
		assert.Empty(t, match.Winner)
	})

	t.Run("Unknown match", func(t *testing.T) {
		ctx, archive := newArchive(t)

		_, err := archive.GetMatch(ctx, 404)

		require.ErrorIs(t, err, ErrMatchNotFound)
		require.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestArchiveRepository_Rebind(t *testing.T) {
	postgres := &archiveRepository{dialect: storage.DialectPostgres}
	sqlite := &archiveRepository{dialect: storage.DialectSQLite}

	query := `UPDATE matches SET ended_at = ?, winner_id = ? WHERE id = ?`

	assert.Equal(t, `UPDATE matches SET ended_at = $1, winner_id = $2 WHERE id = $3`, postgres.rebind(query))
	assert.Equal(t, query, sqlite.rebind(query))
}
