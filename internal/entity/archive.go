package entity

// ArchivedMatch is a summary of a match stored in the archive.
type ArchivedMatch struct {
	ID        int64  `json:"id"`
	Player1   string `json:"player1"`
	Player2   string `json:"player2"`
	BoardSize int    `json:"board_size"`
	Finished  bool   `json:"finished"`
	Winner    string `json:"winner,omitempty"`
	Turns     int    `json:"turns"`
}
