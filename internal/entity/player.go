package entity

// Player is a participant identified by its live connection.
type Player struct {
	ConnectionID string `json:"connection_id"`
	Name         string `json:"name"`
	Mark         Mark   `json:"mark,omitempty"`
	ArchiveID    int64  `json:"archive_id,omitempty"`
}

func NewPlayer(connectionID, name string) *Player {
	return &Player{
		ConnectionID: connectionID,
		Name:         name,
	}
}

func (that *Player) Clone() *Player {
	if that == nil {
		return nil
	}

	clone := *that
	return &clone
}
