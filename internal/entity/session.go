package entity

import (
	"time"
	"unicode/utf8"
)

const (
	MarkX Mark = "X"
	MarkO Mark = "O"

	EmptyCell Mark = ""
)

const (
	MinBoardSize = 3
	MaxBoardSize = 10

	MaxChatLength = 200
)

type Mark string

func (that Mark) Opponent() Mark {
	if that == MarkX {
		return MarkO
	}
	return MarkX
}

type Status string

const (
	StatusChoosingBoardSize Status = "choosing_board_size"
	StatusTurnX             Status = "turn_x"
	StatusTurnO             Status = "turn_o"
	StatusWinX              Status = "win_x"
	StatusWinO              Status = "win_o"
	StatusDraw              Status = "draw"
	StatusAborted           Status = "aborted"
)

// TurnOf returns the status in which the holder of mark moves.
func TurnOf(mark Mark) Status {
	if mark == MarkO {
		return StatusTurnO
	}
	return StatusTurnX
}

func WinOf(mark Mark) Status {
	if mark == MarkO {
		return StatusWinO
	}
	return StatusWinX
}

func (that Status) IsTerminal() bool {
	switch that {
	case StatusWinX, StatusWinO, StatusDraw, StatusAborted:
		return true
	default:
		return false
	}
}

func (that Status) IsTurn() bool {
	return that == StatusTurnX || that == StatusTurnO
}

// TurnMark returns the mark whose turn it is, or EmptyCell outside of Turn states.
func (that Status) TurnMark() Mark {
	switch that {
	case StatusTurnX:
		return MarkX
	case StatusTurnO:
		return MarkO
	default:
		return EmptyCell
	}
}

// WinnerMark returns the winning mark, or EmptyCell when nobody won.
func (that Status) WinnerMark() Mark {
	switch that {
	case StatusWinX:
		return MarkX
	case StatusWinO:
		return MarkO
	default:
		return EmptyCell
	}
}

// Board is a square grid indexed as board[row][col].
type Board [][]Mark

func NewBoard(size int) Board {
	board := make(Board, size)
	for row := range board {
		board[row] = make([]Mark, size)
	}

	return board
}

func (that Board) Size() int {
	return len(that)
}

func (that Board) Clone() Board {
	if that == nil {
		return nil
	}

	clone := make(Board, len(that))
	for row := range that {
		clone[row] = append([]Mark(nil), that[row]...)
	}

	return clone
}

type ChatMessage struct {
	PlayerName string    `json:"player_name"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewChatMessage truncates text to MaxChatLength characters.
func NewChatMessage(playerName, text string, now time.Time) ChatMessage {
	if utf8.RuneCountInString(text) > MaxChatLength {
		text = string([]rune(text)[:MaxChatLength])
	}

	return ChatMessage{
		PlayerName: playerName,
		Text:       text,
		Timestamp:  now,
	}
}

// Session is a single match between two players. A slot becomes nil once its player disconnects.
type Session struct {
	ID        string        `json:"id"`
	Player1   *Player       `json:"player1,omitempty"`
	Player2   *Player       `json:"player2,omitempty"`
	BoardSize int           `json:"board_size"`
	Board     Board         `json:"board"`
	Status    Status        `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	Chat      []ChatMessage `json:"chat,omitempty"`
	ArchiveID int64         `json:"archive_id,omitempty"`
}

func NewSession(id string, player1, player2 *Player, now time.Time) *Session {
	player1.Mark = MarkX
	player2.Mark = MarkO

	return &Session{
		ID:        id,
		Player1:   player1,
		Player2:   player2,
		Status:    StatusChoosingBoardSize,
		CreatedAt: now,
	}
}

func (that *Session) PlayerByConnection(connectionID string) *Player {
	switch {
	case that.Player1 != nil && that.Player1.ConnectionID == connectionID:
		return that.Player1
	case that.Player2 != nil && that.Player2.ConnectionID == connectionID:
		return that.Player2
	default:
		return nil
	}
}

func (that *Session) PlayerByMark(mark Mark) *Player {
	switch {
	case that.Player1 != nil && that.Player1.Mark == mark:
		return that.Player1
	case that.Player2 != nil && that.Player2.Mark == mark:
		return that.Player2
	default:
		return nil
	}
}

// Opponent returns the player in the other slot, if it is still occupied.
func (that *Session) Opponent(connectionID string) *Player {
	switch {
	case that.Player1 != nil && that.Player1.ConnectionID == connectionID:
		return that.Player2
	case that.Player2 != nil && that.Player2.ConnectionID == connectionID:
		return that.Player1
	default:
		return nil
	}
}

// Vacate clears the slot held by connectionID and reports whether one was held.
func (that *Session) Vacate(connectionID string) bool {
	switch {
	case that.Player1 != nil && that.Player1.ConnectionID == connectionID:
		that.Player1 = nil
	case that.Player2 != nil && that.Player2.ConnectionID == connectionID:
		that.Player2 = nil
	default:
		return false
	}

	return true
}

func (that *Session) IsAbandoned() bool {
	return that.Player1 == nil && that.Player2 == nil
}

func (that *Session) IsFinished() bool {
	return that.Status.IsTerminal()
}

func (that *Session) ConnectionIDs() []string {
	ids := make([]string, 0, 2)
	for _, player := range []*Player{that.Player1, that.Player2} {
		if player != nil {
			ids = append(ids, player.ConnectionID)
		}
	}

	return ids
}

// Clone returns a deep copy that is safe to read without holding the session lock.
func (that *Session) Clone() *Session {
	if that == nil {
		return nil
	}

	clone := *that
	clone.Player1 = that.Player1.Clone()
	clone.Player2 = that.Player2.Clone()
	clone.Board = that.Board.Clone()
	clone.Chat = append([]ChatMessage(nil), that.Chat...)

	return &clone
}
