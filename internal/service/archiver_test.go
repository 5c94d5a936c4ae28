package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

var errDatabaseDown = errors.New("database down")

type mockArchiveRepo struct {
	mock.Mock
}

func (that *mockArchiveRepo) GetOrCreatePlayer(ctx context.Context, name string) (int64, error) {
	args := that.Called(ctx, name)
	return args.Get(0).(int64), args.Error(1)
}

func (that *mockArchiveRepo) CreateMatch(ctx context.Context, player1ID, player2ID int64, boardSize int, startedAt time.Time) (int64, error) {
	args := that.Called(ctx, player1ID, player2ID, boardSize, startedAt)
	return args.Get(0).(int64), args.Error(1)
}

func (that *mockArchiveRepo) RecordTurn(ctx context.Context, matchID, playerID int64, row, col int, at time.Time) error {
	return that.Called(ctx, matchID, playerID, row, col, at).Error(0)
}

func (that *mockArchiveRepo) CloseMatch(ctx context.Context, matchID int64, winnerID *int64, endedAt time.Time) (bool, error) {
	args := that.Called(ctx, matchID, winnerID, endedAt)
	return args.Bool(0), args.Error(1)
}

type mockSnapshotRepo struct {
	mock.Mock
}

func (that *mockSnapshotRepo) CreateOrUpdate(ctx context.Context, snapshot *entity.SessionSnapshot) error {
	return that.Called(ctx, snapshot).Error(0)
}

type mockListener struct {
	mock.Mock
}

func (that *mockListener) MatchArchived(sessionID string, matchID, player1ID, player2ID int64) {
	that.Called(sessionID, matchID, player1ID, player2ID)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newStartedSession() *entity.Session {
	session := entity.NewSession("s1", entity.NewPlayer("c1", "Ann"), entity.NewPlayer("c2", "Bo"), time.Now())
	session.BoardSize = 3
	session.Board = entity.NewBoard(3)
	session.Status = entity.StatusTurnX

	return session
}

// runArchiver starts the worker and returns a function that drains it.
func runArchiver(t *testing.T, archiver *Archiver) func() {
	t.Helper()

	go func() {
		_ = archiver.Run(context.Background())
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		require.NoError(t, archiver.Close(ctx))
	}
}

func TestArchiver_Lifecycle(t *testing.T) {
	// Given: an archive that accepts everything
	repo := &mockArchiveRepo{}
	listener := &mockListener{}
	session := newStartedSession()

	repo.On("GetOrCreatePlayer", mock.Anything, "Ann").Return(int64(1), nil).Once()
	repo.On("GetOrCreatePlayer", mock.Anything, "Bo").Return(int64(2), nil).Once()
	repo.On("CreateMatch", mock.Anything, int64(1), int64(2), 3, session.CreatedAt).Return(int64(10), nil).Once()
	repo.On("RecordTurn", mock.Anything, int64(10), int64(1), 0, 0, mock.Anything).Return(nil).Once()
	repo.On("RecordTurn", mock.Anything, int64(10), int64(2), 1, 1, mock.Anything).Return(nil).Once()
	repo.On("CloseMatch", mock.Anything, int64(10), mock.MatchedBy(func(winnerID *int64) bool {
		return winnerID != nil && *winnerID == 2
	}), mock.Anything).Return(true, nil).Once()
	listener.On("MatchArchived", "s1", int64(10), int64(1), int64(2)).Return().Once()

	archiver := NewArchiver(newTestLogger(), repo, nil, 0)
	archiver.SetListener(listener)
	drain := runArchiver(t, archiver)

	// When: a match is started, played and won by O
	archiver.MatchStarted(session.Clone())
	archiver.MoveMade(session.Clone(), entity.MarkX, 0, 0, time.Now())
	archiver.MoveMade(session.Clone(), entity.MarkO, 1, 1, time.Now())

	session.Status = entity.StatusWinO
	archiver.MatchEnded(session.Clone())

	drain()

	// Then: every event reached the archive, players were looked up once
	repo.AssertExpectations(t)
	listener.AssertExpectations(t)
}

func TestArchiver_UnarchivedMatchIsSkipped(t *testing.T) {
	// Given: the archive is down when the match starts
	repo := &mockArchiveRepo{}
	repo.On("GetOrCreatePlayer", mock.Anything, "Ann").Return(int64(0), errDatabaseDown).Once()

	archiver := NewArchiver(newTestLogger(), repo, nil, 0)
	drain := runArchiver(t, archiver)

	// When: the match continues and ends
	session := newStartedSession()
	archiver.MatchStarted(session.Clone())
	archiver.MoveMade(session.Clone(), entity.MarkX, 0, 0, time.Now())

	session.Status = entity.StatusAborted
	archiver.MatchEnded(session.Clone())

	drain()

	// Then: no turn or outcome is written
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "RecordTurn", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "CloseMatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestArchiver_AbortClosesWithoutWinner(t *testing.T) {
	repo := &mockArchiveRepo{}
	repo.On("GetOrCreatePlayer", mock.Anything, "Ann").Return(int64(1), nil).Once()
	repo.On("GetOrCreatePlayer", mock.Anything, "Bo").Return(int64(2), nil).Once()
	repo.On("CreateMatch", mock.Anything, int64(1), int64(2), 3, mock.Anything).Return(int64(10), nil).Once()
	repo.On("CloseMatch", mock.Anything, int64(10), (*int64)(nil), mock.Anything).Return(true, nil).Once()

	archiver := NewArchiver(newTestLogger(), repo, nil, 0)
	drain := runArchiver(t, archiver)

	session := newStartedSession()
	archiver.MatchStarted(session.Clone())

	session.Status = entity.StatusAborted
	session.Vacate("c2")
	archiver.MatchEnded(session.Clone())

	drain()

	repo.AssertExpectations(t)
}

func TestArchiver_Snapshots(t *testing.T) {
	// Given: only the snapshot mirror is enabled
	snapshots := &mockSnapshotRepo{}
	snapshots.On("CreateOrUpdate", mock.Anything, mock.MatchedBy(func(snapshot *entity.SessionSnapshot) bool {
		return snapshot.ID == "s1" && snapshot.Player1.Name == "Ann"
	})).Return(nil).Twice()

	archiver := NewArchiver(newTestLogger(), nil, snapshots, 0)
	drain := runArchiver(t, archiver)

	// When: two events happen
	session := newStartedSession()
	archiver.MatchStarted(session.Clone())
	archiver.MoveMade(session.Clone(), entity.MarkX, 0, 0, time.Now())

	drain()

	// Then: a snapshot is written for each
	snapshots.AssertExpectations(t)
}

func TestArchiver_Enqueue(t *testing.T) {
	t.Run("Full queue drops jobs without blocking", func(t *testing.T) {
		archiver := NewArchiver(newTestLogger(), nil, nil, 1)
		session := newStartedSession()

		archiver.MatchStarted(session)
		archiver.MatchStarted(session)
		archiver.MatchEnded(session)

		assert.Len(t, archiver.jobs, 1)
	})

	t.Run("Closed archiver ignores new jobs", func(t *testing.T) {
		archiver := NewArchiver(newTestLogger(), nil, nil, 0)
		drain := runArchiver(t, archiver)
		drain()

		assert.NotPanics(t, func() {
			archiver.MatchStarted(newStartedSession())
		})
		require.ErrorIs(t, archiver.Close(context.Background()), ErrArchiverClosed)
	})

	t.Run("Close gives up when ctx expires", func(t *testing.T) {
		// Given: a worker that never started
		archiver := NewArchiver(newTestLogger(), nil, nil, 0)
		archiver.MatchStarted(newStartedSession())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// Then: Close returns the context error
		require.ErrorIs(t, archiver.Close(ctx), context.Canceled)
	})
}
