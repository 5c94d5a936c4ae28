package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

// ChooseBoardSize allocates an empty size×size board and hands the first turn to X.
func ChooseBoardSize(session *entity.Session, size int) error {
	if session.Status != entity.StatusChoosingBoardSize {
		return apperror.ErrBoardSizeChosen
	}

	if size < entity.MinBoardSize || size > entity.MaxBoardSize {
		return apperror.ErrInvalidBoardSize
	}

	session.BoardSize = size
	session.Board = entity.NewBoard(size)
	session.Status = entity.TurnOf(entity.MarkX)

	return nil
}

// MakeTurn places mark at (row, col) and advances the session status.
// A rejected turn leaves the session untouched.
func MakeTurn(session *entity.Session, mark entity.Mark, row, col int) error {
	if session.IsFinished() {
		return apperror.ErrGameFinished
	}

	if err := validateMove(session, mark, row, col); err != nil {
		return fmt.Errorf("invalid turn: %w", err)
	}

	session.Board[row][col] = mark
	updateGameStatus(session, mark)

	return nil
}

// validateMove - checks if the move is valid.
func validateMove(session *entity.Session, mark entity.Mark, row, col int) error {
	if !session.Status.IsTurn() {
		return apperror.ErrGameIsNotStarted
	}

	if session.Status.TurnMark() != mark {
		return apperror.ErrNotYourTurn
	}

	size := session.Board.Size()
	if row < 0 || row >= size || col < 0 || col >= size {
		return apperror.ErrInvalidCell
	}

	if session.Board[row][col] != entity.EmptyCell {
		return apperror.ErrCellOccupied
	}

	return nil
}

// updateGameStatus - checks the game status after a move.
func updateGameStatus(session *entity.Session, mark entity.Mark) {
	switch {
	case hasLine(session.Board, mark):
		session.Status = entity.WinOf(mark)
	case isFull(session.Board):
		session.Status = entity.StatusDraw
	default:
		session.Status = entity.TurnOf(mark.Opponent())
	}
}

// hasLine scans all rows, all columns and both diagonals.
func hasLine(board entity.Board, mark entity.Mark) bool {
	size := board.Size()

	mainDiagonal, antiDiagonal := true, true
	for i := 0; i < size; i++ {
		row, col := true, true
		for j := 0; j < size; j++ {
			row = row && board[i][j] == mark
			col = col && board[j][i] == mark
		}

		if row || col {
			return true
		}

		mainDiagonal = mainDiagonal && board[i][i] == mark
		antiDiagonal = antiDiagonal && board[i][size-1-i] == mark
	}

	return mainDiagonal || antiDiagonal
}

func isFull(board entity.Board) bool {
	for _, row := range board {
		for _, cell := range row {
			if cell == entity.EmptyCell {
				return false
			}
		}
	}

	return true
}
