package rest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository"
	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-arena/testing/suite"
)

type nopArchiver struct{}

func (nopArchiver) MatchStarted(*entity.Session)                               {}
func (nopArchiver) MoveMade(*entity.Session, entity.Mark, int, int, time.Time) {}
func (nopArchiver) MatchEnded(*entity.Session)                                 {}

type stubArchive struct {
	match *entity.ArchivedMatch
}

func (that *stubArchive) GetMatch(_ context.Context, matchID int64) (*entity.ArchivedMatch, error) {
	if that.match == nil || that.match.ID != matchID {
		return nil, repository.ErrMatchNotFound
	}

	return that.match, nil
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))

	return recorder
}

func TestServer_Ping(t *testing.T) {
	server := New(newLogger(), usecase.NewSessionRegistry(newLogger(), nopArchiver{}), nil, nil)

	response := get(t, server.Handler(), "/ping")

	assert.Equal(t, http.StatusOK, response.Code)
	assert.Equal(t, "pong", response.Body.String())
}

func TestServer_Stats(t *testing.T) {
	// Given: one session and one waiting player
	registry := usecase.NewSessionRegistry(newLogger(), nopArchiver{})
	for _, name := range []string{"Ann", "Bo", "Cy"} {
		_, err := registry.AnnouncePlayer("c-"+name, name)
		require.NoError(t, err)
	}
	_, err := registry.AttemptMatch("c-Bo")
	require.NoError(t, err)

	server := New(newLogger(), registry, nil, nil)

	// When: stats are requested
	response := get(t, server.Handler(), "/stats")

	// Then: both counters are reported
	require.Equal(t, http.StatusOK, response.Code)

	var stats usecase.Stats
	require.NoError(t, json.Unmarshal(response.Body.Bytes(), &stats))
	assert.Equal(t, usecase.Stats{Waiting: 1, Active: 1}, stats)
}

func TestServer_Session(t *testing.T) {
	t.Run("Live session", func(t *testing.T) {
		registry := usecase.NewSessionRegistry(newLogger(), nopArchiver{})
		_, err := registry.AnnouncePlayer("c1", "Ann")
		require.NoError(t, err)
		_, err = registry.AnnouncePlayer("c2", "Bo")
		require.NoError(t, err)
		match, err := registry.AttemptMatch("c2")
		require.NoError(t, err)

		server := New(newLogger(), registry, nil, nil)

		response := get(t, server.Handler(), "/sessions/"+match.Session.ID)

		require.Equal(t, http.StatusOK, response.Code)

		var snapshot entity.SessionSnapshot
		require.NoError(t, json.Unmarshal(response.Body.Bytes(), &snapshot))
		assert.Equal(t, "Bo", snapshot.Player1.Name)
		assert.Equal(t, entity.StatusChoosingBoardSize, snapshot.Status)
		assert.NotContains(t, response.Body.String(), "connection_id")
	})

	t.Run("Mirrored snapshot of a finished session", func(t *testing.T) {
		ctx, st := suite.NewInMemory(t)
		snapshots := repository.NewSessionSnapshotRepository(st.Storage, time.Hour)

		session := entity.NewSession("gone", entity.NewPlayer("c1", "Ann"), entity.NewPlayer("c2", "Bo"), time.Now())
		session.Status = entity.StatusAborted
		require.NoError(t, snapshots.CreateOrUpdate(ctx, entity.NewSessionSnapshot(session, time.Now())))

		server := New(newLogger(), usecase.NewSessionRegistry(newLogger(), nopArchiver{}), snapshots, nil)

		response := get(t, server.Handler(), "/sessions/gone")

		require.Equal(t, http.StatusOK, response.Code)
		assert.Contains(t, response.Body.String(), `"status":"aborted"`)

		response = get(t, server.Handler(), "/sessions/never")
		assert.Equal(t, http.StatusNotFound, response.Code)
	})

	t.Run("Unknown session without mirror", func(t *testing.T) {
		server := New(newLogger(), usecase.NewSessionRegistry(newLogger(), nopArchiver{}), nil, nil)

		response := get(t, server.Handler(), "/sessions/nope")

		assert.Equal(t, http.StatusNotFound, response.Code)
	})
}

func TestServer_Match(t *testing.T) {
	archive := &stubArchive{match: &entity.ArchivedMatch{ID: 7, Player1: "Ann", Player2: "Bo", BoardSize: 3, Finished: true, Winner: "Ann", Turns: 5}}
	server := New(newLogger(), usecase.NewSessionRegistry(newLogger(), nopArchiver{}), nil, archive)

	t.Run("Found", func(t *testing.T) {
		response := get(t, server.Handler(), "/matches/7")

		require.Equal(t, http.StatusOK, response.Code)

		var match entity.ArchivedMatch
		require.NoError(t, json.Unmarshal(response.Body.Bytes(), &match))
		assert.Equal(t, *archive.match, match)
	})

	t.Run("Not found", func(t *testing.T) {
		response := get(t, server.Handler(), "/matches/8")

		assert.Equal(t, http.StatusNotFound, response.Code)
	})

	t.Run("Archive disabled", func(t *testing.T) {
		disabled := New(newLogger(), usecase.NewSessionRegistry(newLogger(), nopArchiver{}), nil, nil)

		response := get(t, disabled.Handler(), "/matches/7")

		assert.Equal(t, http.StatusNotFound, response.Code)
	})
}
