package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository/storage"
)

var ErrMatchNotFound = fmt.Errorf("%w: archived match", apperror.ErrNotFound)

type ArchiveRepository interface {
	GetOrCreatePlayer(ctx context.Context, name string) (int64, error)
	CreateMatch(ctx context.Context, player1ID, player2ID int64, boardSize int, startedAt time.Time) (int64, error)
	RecordTurn(ctx context.Context, matchID, playerID int64, row, col int, at time.Time) error
	CloseMatch(ctx context.Context, matchID int64, winnerID *int64, endedAt time.Time) (bool, error)
	GetMatch(ctx context.Context, matchID int64) (*entity.ArchivedMatch, error)
}

type archiveRepository struct {
	conn    *sql.DB
	dialect string
}

func NewArchiveRepository(st *storage.Storage) ArchiveRepository {
	return &archiveRepository{
		conn:    st.Connection,
		dialect: st.Dialect,
	}
}

func (that *archiveRepository) GetOrCreatePlayer(ctx context.Context, name string) (int64, error) {
	query := that.rebind(`INSERT INTO players (name, created_at) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`)
	if _, err := that.conn.ExecContext(ctx, query, name, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("failed to insert player: %w", err)
	}

	var id int64
	query = that.rebind(`SELECT id FROM players WHERE name = ?`)
	if err := that.conn.QueryRowContext(ctx, query, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to select player: %w", err)
	}

	return id, nil
}

func (that *archiveRepository) CreateMatch(ctx context.Context, player1ID, player2ID int64, boardSize int, startedAt time.Time) (int64, error) {
	query := that.rebind(`INSERT INTO matches (player1_id, player2_id, board_size, started_at) VALUES (?, ?, ?, ?) RETURNING id`)

	var id int64
	if err := that.conn.QueryRowContext(ctx, query, player1ID, player2ID, boardSize, startedAt.UTC()).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert match: %w", err)
	}

	return id, nil
}

func (that *archiveRepository) RecordTurn(ctx context.Context, matchID, playerID int64, row, col int, at time.Time) error {
	query := that.rebind(`INSERT INTO turns (match_id, player_id, row_index, col_index, created_at) VALUES (?, ?, ?, ?, ?)`)

	if _, err := that.conn.ExecContext(ctx, query, matchID, playerID, row, col, at.UTC()); err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}

	return nil
}

// CloseMatch reports false when the match was already closed or does not exist.
func (that *archiveRepository) CloseMatch(ctx context.Context, matchID int64, winnerID *int64, endedAt time.Time) (bool, error) {
	query := that.rebind(`UPDATE matches SET ended_at = ?, winner_id = ? WHERE id = ? AND ended_at IS NULL`)

	var winner sql.NullInt64
	if winnerID != nil {
		winner = sql.NullInt64{Int64: *winnerID, Valid: true}
	}

	result, err := that.conn.ExecContext(ctx, query, endedAt.UTC(), winner, matchID)
	if err != nil {
		return false, fmt.Errorf("failed to close match: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to close match: %w", err)
	}

	return affected > 0, nil
}

func (that *archiveRepository) GetMatch(ctx context.Context, matchID int64) (*entity.ArchivedMatch, error) {
	query := that.rebind(`
		SELECT m.id, p1.name, p2.name, m.board_size, m.ended_at IS NOT NULL, w.name,
		       (SELECT COUNT(*) FROM turns t WHERE t.match_id = m.id)
		FROM matches m
		JOIN players p1 ON p1.id = m.player1_id
		JOIN players p2 ON p2.id = m.player2_id
		LEFT JOIN players w ON w.id = m.winner_id
		WHERE m.id = ?`)

	var (
		match  entity.ArchivedMatch
		winner sql.NullString
	)

	err := that.conn.QueryRowContext(ctx, query, matchID).Scan(
		&match.ID, &match.Player1, &match.Player2, &match.BoardSize, &match.Finished, &winner, &match.Turns,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMatchNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to select match: %w", err)
	}

	match.Winner = winner.String

	return &match, nil
}

// rebind turns ? placeholders into $n for Postgres.
func (that *archiveRepository) rebind(query string) string {
	if that.dialect != storage.DialectPostgres {
		return query
	}

	var (
		builder strings.Builder
		n       int
	)

	for _, r := range query {
		if r != '?' {
			builder.WriteRune(r)
			continue
		}

		n++
		builder.WriteString("$" + strconv.Itoa(n))
	}

	return builder.String()
}
