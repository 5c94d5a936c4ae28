package usecase

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository/memory"
	"github.com/rocketscienceinc/tictactoe-arena/internal/tictactoe"
)

// archiver receives copies of sessions after each state transition. It is called
// under the session lock so events of one session keep their order; calls must not block.
type archiver interface {
	MatchStarted(session *entity.Session)
	MoveMade(session *entity.Session, mark entity.Mark, row, col int, at time.Time)
	MatchEnded(session *entity.Session)
}

type MatchResult struct {
	Matched bool
	Session *entity.Session
}

type MoveResult struct {
	Session *entity.Session
	Player  *entity.Player
	Row     int
	Col     int
}

type ChatResult struct {
	SessionID  string
	Message    entity.ChatMessage
	Recipients []string
}

type DisconnectResult struct {
	Player    *entity.Player
	SessionID string
	Aborted   bool

	// OpponentConnectionID is set when the other slot is still occupied.
	OpponentConnectionID string
}

type Stats struct {
	Waiting int `json:"waiting"`
	Active  int `json:"active"`
}

// SessionRegistry owns the waiting pool, the active sessions and the
// connection index.
//
// matchMu serializes every pool mutation together with session creation and
// indexing. Moves, board size, chat and disconnect cleanup only take the lock
// of the session they touch.
type SessionRegistry struct {
	logger   *slog.Logger
	archiver archiver
	now      func() time.Time

	matchMu  sync.Mutex
	pool     *memory.WaitingPool
	sessions *memory.SessionTable
	index    *memory.ConnectionIndex
}

func NewSessionRegistry(logger *slog.Logger, archiver archiver) *SessionRegistry {
	return &SessionRegistry{
		logger:   logger.With("component", "session_registry"),
		archiver: archiver,
		now:      time.Now,

		pool:     memory.NewWaitingPool(),
		sessions: memory.NewSessionTable(),
		index:    memory.NewConnectionIndex(),
	}
}

func (that *SessionRegistry) AnnouncePlayer(connectionID, name string) (*entity.Player, error) {
	log := that.logger.With("method", "AnnouncePlayer", "connection_id", connectionID)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ErrEmptyName
	}

	that.matchMu.Lock()
	defer that.matchMu.Unlock()

	if _, ok := that.index.Get(connectionID); ok {
		return nil, apperror.ErrAlreadyConnected
	}

	player := entity.NewPlayer(connectionID, name)
	if err := that.pool.Add(player); err != nil {
		log.Debug("announce rejected", "name", name, "error", err)
		return nil, fmt.Errorf("failed to add player to pool: %w", err)
	}

	log.Info("player is waiting", "name", name)

	return player.Clone(), nil
}

// AttemptMatch pairs the caller with the longest-waiting other player.
// Matched is false while nobody else is waiting.
func (that *SessionRegistry) AttemptMatch(connectionID string) (*MatchResult, error) {
	log := that.logger.With("method", "AttemptMatch", "connection_id", connectionID)

	that.matchMu.Lock()
	defer that.matchMu.Unlock()

	if _, ok := that.pool.Get(connectionID); !ok {
		if _, playing := that.index.Get(connectionID); playing {
			return nil, apperror.ErrAlreadyConnected
		}

		return nil, apperror.ErrPlayerNotFound
	}

	caller, opponent, ok := that.pool.Pair(connectionID)
	if !ok {
		return &MatchResult{Matched: false}, nil
	}

	session := entity.NewSession(pkg.GenerateSessionID(), caller, opponent, that.now())

	that.sessions.Insert(session)
	that.index.Set(caller.ConnectionID, session.ID)
	that.index.Set(opponent.ConnectionID, session.ID)

	log.Info("players matched", "session_id", session.ID, "player1", caller.Name, "player2", opponent.Name)

	return &MatchResult{Matched: true, Session: session.Clone()}, nil
}

func (that *SessionRegistry) ResolveSessionByConnection(connectionID string) (*entity.Session, bool) {
	sessionID, ok := that.index.Get(connectionID)
	if !ok {
		return nil, false
	}

	return that.sessions.Get(sessionID)
}

func (that *SessionRegistry) ResolveSessionByID(sessionID string) (*entity.Session, bool) {
	return that.sessions.Get(sessionID)
}

// ChooseBoardSize is accepted only from the player holding X.
func (that *SessionRegistry) ChooseBoardSize(sessionID, connectionID string, size int) (*entity.Session, error) {
	log := that.logger.With("method", "ChooseBoardSize", "session_id", sessionID)

	var snapshot *entity.Session
	err := that.sessions.Update(sessionID, func(session *entity.Session) error {
		player := session.PlayerByConnection(connectionID)
		if player == nil {
			return apperror.ErrPlayerNotFound
		}

		if player.Mark != entity.MarkX {
			return apperror.ErrNotYourTurn
		}

		if err := tictactoe.ChooseBoardSize(session, size); err != nil {
			return err
		}

		snapshot = session.Clone()
		that.archiver.MatchStarted(snapshot)

		return nil
	})
	if err != nil {
		log.Debug("board size rejected", "size", size, "error", err)
		return nil, fmt.Errorf("failed to choose board size: %w", err)
	}

	log.Info("board configured", "size", size)

	return snapshot, nil
}

func (that *SessionRegistry) SubmitMove(connectionID string, row, col int) (*MoveResult, error) {
	log := that.logger.With("method", "SubmitMove", "connection_id", connectionID)

	sessionID, ok := that.index.Get(connectionID)
	if !ok {
		return nil, apperror.ErrSessionNotFound
	}

	result := &MoveResult{Row: row, Col: col}
	err := that.sessions.Update(sessionID, func(session *entity.Session) error {
		player := session.PlayerByConnection(connectionID)
		if player == nil {
			return apperror.ErrSessionNotFound
		}

		if err := tictactoe.MakeTurn(session, player.Mark, row, col); err != nil {
			return err
		}

		result.Session = session.Clone()
		result.Player = player.Clone()

		that.archiver.MoveMade(result.Session, player.Mark, row, col, that.now())
		if session.IsFinished() {
			that.archiver.MatchEnded(result.Session)
		}

		return nil
	})
	if err != nil {
		log.Debug("move rejected", "session_id", sessionID, "row", row, "col", col, "error", err)
		return nil, fmt.Errorf("failed to make turn: %w", err)
	}

	if result.Session.IsFinished() {
		log.Info("game over", "session_id", sessionID, "status", result.Session.Status)
	}

	return result, nil
}

// RecordChat appends a message when the sender plays in the session.
func (that *SessionRegistry) RecordChat(sessionID, connectionID, text string) (*ChatResult, error) {
	result := &ChatResult{SessionID: sessionID}
	err := that.sessions.Update(sessionID, func(session *entity.Session) error {
		player := session.PlayerByConnection(connectionID)
		if player == nil {
			return apperror.ErrPlayerNotFound
		}

		result.Message = entity.NewChatMessage(player.Name, text, that.now())
		result.Recipients = session.ConnectionIDs()
		session.Chat = append(session.Chat, result.Message)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record chat: %w", err)
	}

	return result, nil
}

// HandleDisconnect removes the connection from wherever it is. A session that
// was still being played is aborted; the session itself goes away once both
// players have left.
func (that *SessionRegistry) HandleDisconnect(connectionID string) (*DisconnectResult, error) {
	log := that.logger.With("method", "HandleDisconnect", "connection_id", connectionID)

	that.matchMu.Lock()
	if player, ok := that.pool.Remove(connectionID); ok {
		that.matchMu.Unlock()

		log.Info("waiting player left", "name", player.Name)
		return &DisconnectResult{Player: player}, nil
	}

	sessionID, ok := that.index.Delete(connectionID)
	that.matchMu.Unlock()

	if !ok {
		return nil, apperror.ErrPlayerNotFound
	}

	result := &DisconnectResult{SessionID: sessionID}
	err := that.sessions.Update(sessionID, func(session *entity.Session) error {
		player := session.PlayerByConnection(connectionID)
		if player == nil {
			return apperror.ErrPlayerNotFound
		}

		result.Player = player.Clone()

		if !session.IsFinished() {
			session.Status = entity.StatusAborted
			result.Aborted = true
		}

		session.Vacate(connectionID)

		if opponent := remainingPlayer(session); opponent != nil {
			result.OpponentConnectionID = opponent.ConnectionID
		}

		if result.Aborted {
			that.archiver.MatchEnded(session.Clone())
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to leave session: %w", err)
	}

	log.Info("player left session", "session_id", sessionID, "aborted", result.Aborted)

	return result, nil
}

// MatchArchived stores the archive ids assigned to a started match.
func (that *SessionRegistry) MatchArchived(sessionID string, matchID, player1ID, player2ID int64) {
	err := that.sessions.Update(sessionID, func(session *entity.Session) error {
		session.ArchiveID = matchID

		if session.Player1 != nil {
			session.Player1.ArchiveID = player1ID
		}

		if session.Player2 != nil {
			session.Player2.ArchiveID = player2ID
		}

		return nil
	})
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		that.logger.Error("failed to store archive ids", "session_id", sessionID, "error", err)
	}
}

func (that *SessionRegistry) Stats() Stats {
	return Stats{
		Waiting: that.pool.Len(),
		Active:  that.sessions.Len(),
	}
}

func remainingPlayer(session *entity.Session) *entity.Player {
	if session.Player1 != nil {
		return session.Player1
	}

	return session.Player2
}
