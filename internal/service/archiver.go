package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const (
	DefaultQueueSize = 256

	jobTimeout = 5 * time.Second
)

var ErrArchiverClosed = errors.New("archiver is closed")

type jobKind string

const (
	jobMatchStarted jobKind = "match_started"
	jobMoveMade     jobKind = "move_made"
	jobMatchEnded   jobKind = "match_ended"
)

type job struct {
	kind    jobKind
	session *entity.Session
	mark    entity.Mark
	row     int
	col     int
	at      time.Time
}

type archiveRepo interface {
	GetOrCreatePlayer(ctx context.Context, name string) (int64, error)
	CreateMatch(ctx context.Context, player1ID, player2ID int64, boardSize int, startedAt time.Time) (int64, error)
	RecordTurn(ctx context.Context, matchID, playerID int64, row, col int, at time.Time) error
	CloseMatch(ctx context.Context, matchID int64, winnerID *int64, endedAt time.Time) (bool, error)
}

type snapshotRepo interface {
	CreateOrUpdate(ctx context.Context, snapshot *entity.SessionSnapshot) error
}

// ArchiveListener is told which archive ids a started match received.
type ArchiveListener interface {
	MatchArchived(sessionID string, matchID, player1ID, player2ID int64)
}

// Archiver writes session events to the archive and the snapshot mirror from a
// single worker. Enqueueing never blocks; jobs that do not fit the queue are dropped.
//
// A match whose start could not be archived stays unarchived: its later moves
// and outcome are skipped.
type Archiver struct {
	logger    *slog.Logger
	archive   archiveRepo
	snapshots snapshotRepo
	listener  ArchiveListener
	now       func() time.Time

	mu     sync.RWMutex
	closed bool
	jobs   chan job
	done   chan struct{}

	// owned by the worker
	matches map[string]int64
	players map[string]int64
}

// NewArchiver accepts nil repositories for disabled backends.
func NewArchiver(logger *slog.Logger, archive archiveRepo, snapshots snapshotRepo, queueSize int) *Archiver {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	return &Archiver{
		logger:    logger.With("component", "archiver"),
		archive:   archive,
		snapshots: snapshots,
		now:       time.Now,

		jobs: make(chan job, queueSize),
		done: make(chan struct{}),

		matches: make(map[string]int64),
		players: make(map[string]int64),
	}
}

// SetListener must be called before Run.
func (that *Archiver) SetListener(listener ArchiveListener) {
	that.listener = listener
}

func (that *Archiver) MatchStarted(session *entity.Session) {
	that.enqueue(job{kind: jobMatchStarted, session: session, at: that.now()})
}

func (that *Archiver) MoveMade(session *entity.Session, mark entity.Mark, row, col int, at time.Time) {
	that.enqueue(job{kind: jobMoveMade, session: session, mark: mark, row: row, col: col, at: at})
}

func (that *Archiver) MatchEnded(session *entity.Session) {
	that.enqueue(job{kind: jobMatchEnded, session: session, at: that.now()})
}

func (that *Archiver) enqueue(next job) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	if that.closed {
		that.logger.Warn("archiver is closed, job dropped", "kind", next.kind, "session_id", next.session.ID)
		return
	}

	select {
	case that.jobs <- next:
	default:
		that.logger.Warn("archive queue is full, job dropped", "kind", next.kind, "session_id", next.session.ID)
	}
}

// Run processes jobs until Close is called and the queue is drained.
// Cancelling ctx does not stop the worker, so pending jobs still get written.
func (that *Archiver) Run(ctx context.Context) error {
	defer close(that.done)

	ctx = context.WithoutCancel(ctx)
	for next := range that.jobs {
		that.handle(ctx, next)
	}

	return nil
}

// Close stops accepting jobs and waits for the queue to drain or ctx to expire.
func (that *Archiver) Close(ctx context.Context) error {
	that.mu.Lock()
	if that.closed {
		that.mu.Unlock()
		return ErrArchiverClosed
	}

	that.closed = true
	close(that.jobs)
	that.mu.Unlock()

	select {
	case <-that.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("archive queue was not drained: %w", ctx.Err())
	}
}

func (that *Archiver) handle(ctx context.Context, next job) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	log := that.logger.With("kind", next.kind, "session_id", next.session.ID)

	if that.archive != nil {
		var err error

		switch next.kind {
		case jobMatchStarted:
			err = that.matchStarted(ctx, next.session)
		case jobMoveMade:
			err = that.moveMade(ctx, next)
		case jobMatchEnded:
			err = that.matchEnded(ctx, next)
		}

		if err != nil {
			log.Error("failed to archive", "error", err)
		}
	}

	if that.snapshots != nil {
		snapshot := entity.NewSessionSnapshot(next.session, that.now())
		if matchID, ok := that.matches[next.session.ID]; ok {
			snapshot.ArchiveID = matchID
		}

		if err := that.snapshots.CreateOrUpdate(ctx, snapshot); err != nil {
			log.Error("failed to save snapshot", "error", err)
		}
	}

	if next.kind == jobMatchEnded {
		delete(that.matches, next.session.ID)
	}
}

func (that *Archiver) matchStarted(ctx context.Context, session *entity.Session) error {
	if session.Player1 == nil || session.Player2 == nil {
		return fmt.Errorf("match %s has a vacated slot", session.ID)
	}

	player1ID, err := that.playerID(ctx, session.Player1.Name)
	if err != nil {
		return err
	}

	player2ID, err := that.playerID(ctx, session.Player2.Name)
	if err != nil {
		return err
	}

	matchID, err := that.archive.CreateMatch(ctx, player1ID, player2ID, session.BoardSize, session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}

	that.matches[session.ID] = matchID

	if that.listener != nil {
		that.listener.MatchArchived(session.ID, matchID, player1ID, player2ID)
	}

	return nil
}

func (that *Archiver) moveMade(ctx context.Context, next job) error {
	matchID, ok := that.matches[next.session.ID]
	if !ok {
		that.logger.Debug("match is not archived, turn skipped", "session_id", next.session.ID)
		return nil
	}

	player := next.session.PlayerByMark(next.mark)
	if player == nil {
		return fmt.Errorf("no player holds mark %s", next.mark)
	}

	playerID, err := that.playerID(ctx, player.Name)
	if err != nil {
		return err
	}

	if err = that.archive.RecordTurn(ctx, matchID, playerID, next.row, next.col, next.at); err != nil {
		return fmt.Errorf("failed to record turn: %w", err)
	}

	return nil
}

func (that *Archiver) matchEnded(ctx context.Context, next job) error {
	matchID, ok := that.matches[next.session.ID]
	if !ok {
		that.logger.Debug("match is not archived, outcome skipped", "session_id", next.session.ID)
		return nil
	}

	var winnerID *int64
	if mark := next.session.Status.WinnerMark(); mark != entity.EmptyCell {
		if winner := next.session.PlayerByMark(mark); winner != nil {
			id, err := that.playerID(ctx, winner.Name)
			if err != nil {
				return err
			}

			winnerID = &id
		}
	}

	closed, err := that.archive.CloseMatch(ctx, matchID, winnerID, next.at)
	if err != nil {
		return fmt.Errorf("failed to close match: %w", err)
	}

	if !closed {
		that.logger.Debug("match was already closed", "match_id", matchID)
	}

	return nil
}

func (that *Archiver) playerID(ctx context.Context, name string) (int64, error) {
	if id, ok := that.players[name]; ok {
		return id, nil
	}

	id, err := that.archive.GetOrCreatePlayer(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("failed to get or create player %q: %w", name, err)
	}

	that.players[name] = id

	return id, nil
}
