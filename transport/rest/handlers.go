package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
)

type sessionRegistry interface {
	ResolveSessionByID(sessionID string) (*entity.Session, bool)
	Stats() usecase.Stats
}

type snapshotRepo interface {
	GetByID(ctx context.Context, id string) (*entity.SessionSnapshot, error)
}

type archiveRepo interface {
	GetMatch(ctx context.Context, matchID int64) (*entity.ArchivedMatch, error)
}

type handlers struct {
	logger       *slog.Logger
	registry     sessionRegistry
	snapshotRepo snapshotRepo
	archiveRepo  archiveRepo
}

func (that *handlers) StatsHandler(w http.ResponseWriter, _ *http.Request) {
	that.writeJSON(w, http.StatusOK, that.registry.Stats())
}

// SessionHandler serves a live session, or its last mirrored snapshot once it is gone.
func (that *handlers) SessionHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if session, ok := that.registry.ResolveSessionByID(id); ok {
		that.writeJSON(w, http.StatusOK, entity.NewSessionSnapshot(session, time.Now()))
		return
	}

	if that.snapshotRepo == nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	snapshot, err := that.snapshotRepo.GetByID(r.Context(), id)
	if err != nil {
		that.writeError(w, "failed to get session snapshot", err)
		return
	}

	that.writeJSON(w, http.StatusOK, snapshot)
}

func (that *handlers) MatchHandler(w http.ResponseWriter, r *http.Request) {
	if that.archiveRepo == nil {
		http.Error(w, "archive is disabled", http.StatusNotFound)
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid match id", http.StatusBadRequest)
		return
	}

	match, err := that.archiveRepo.GetMatch(r.Context(), id)
	if err != nil {
		that.writeError(w, "failed to get match", err)
		return
	}

	that.writeJSON(w, http.StatusOK, match)
}

func (that *handlers) writeError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, apperror.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	that.logger.Error(msg, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func (that *handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}
