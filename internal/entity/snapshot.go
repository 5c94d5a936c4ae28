package entity

import "time"

type PlayerSnapshot struct {
	Name string `json:"name"`
	Mark Mark   `json:"mark"`
}

// SessionSnapshot is the public view of a session, without connection ids.
type SessionSnapshot struct {
	ID        string          `json:"id"`
	Player1   *PlayerSnapshot `json:"player1,omitempty"`
	Player2   *PlayerSnapshot `json:"player2,omitempty"`
	BoardSize int             `json:"board_size"`
	Board     Board           `json:"board"`
	Status    Status          `json:"status"`
	Winner    string          `json:"winner,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Chat      []ChatMessage   `json:"chat,omitempty"`
	ArchiveID int64           `json:"archive_id,omitempty"`
}

func NewSessionSnapshot(session *Session, now time.Time) *SessionSnapshot {
	snapshot := &SessionSnapshot{
		ID:        session.ID,
		Player1:   playerSnapshot(session.Player1),
		Player2:   playerSnapshot(session.Player2),
		BoardSize: session.BoardSize,
		Board:     session.Board.Clone(),
		Status:    session.Status,
		CreatedAt: session.CreatedAt,
		UpdatedAt: now,
		Chat:      append([]ChatMessage(nil), session.Chat...),
		ArchiveID: session.ArchiveID,
	}

	if mark := session.Status.WinnerMark(); mark != EmptyCell {
		if winner := session.PlayerByMark(mark); winner != nil {
			snapshot.Winner = winner.Name
		}
	}

	return snapshot
}

func playerSnapshot(player *Player) *PlayerSnapshot {
	if player == nil {
		return nil
	}

	return &PlayerSnapshot{Name: player.Name, Mark: player.Mark}
}
