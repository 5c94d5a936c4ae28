package websocket

import (
	"encoding/json"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const (
	actionAnnounce  = "player:announce"
	actionMatch     = "game:match"
	actionBoardSize = "game:board-size"
	actionMove      = "game:move"
	actionChat      = "chat:send"

	actionNameConflict = "name:conflict"
	actionWaiting      = "player:waiting"
	actionMatched      = "game:matched"
	actionStarted      = "game:started"
	actionGameOver     = "game:over"
	actionChatMessage  = "chat:message"
	actionOpponentLeft = "opponent:left"
	actionError        = "error"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type AnnounceRequest struct {
	Name string `json:"name"`
}

type BoardSizeRequest struct {
	SessionID string `json:"sessionId"`
	Size      int    `json:"size"`
}

// MoveRequest carries the session id for the client's convenience; the
// session is resolved from the connection.
type MoveRequest struct {
	SessionID string `json:"sessionId"`
	Row       int    `json:"row"`
	Col       int    `json:"col"`
}

type ChatRequest struct {
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
}

type NameConflictResponse struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

type WaitingResponse struct {
	Player string `json:"player"`
}

type MatchedResponse struct {
	SessionID  string      `json:"sessionId"`
	Player1    string      `json:"player1"`
	Player2    string      `json:"player2"`
	Mark       entity.Mark `json:"mark"`
	MovesFirst bool        `json:"movesFirst"`
}

type StartedResponse struct {
	SessionID   string `json:"sessionId"`
	Size        int    `json:"size"`
	FirstPlayer string `json:"firstPlayer"`
}

type MoveResponse struct {
	SessionID  string        `json:"sessionId"`
	Row        int           `json:"row"`
	Col        int           `json:"col"`
	Mark       entity.Mark   `json:"mark"`
	Status     entity.Status `json:"status"`
	NextPlayer string        `json:"nextPlayer,omitempty"`
}

type GameOverResponse struct {
	SessionID string        `json:"sessionId"`
	Status    entity.Status `json:"status"`
	Winner    string        `json:"winner,omitempty"`
}

type ChatResponse struct {
	SessionID string    `json:"sessionId"`
	Player    string    `json:"player"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type OpponentLeftResponse struct {
	SessionID string `json:"sessionId"`
	Player    string `json:"player"`
	Message   string `json:"message"`
}

type ErrorResponse struct {
	Action string `json:"action"`
	Error  string `json:"error"`
}
