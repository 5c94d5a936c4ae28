package apperror

import (
	"errors"
	"fmt"
)

// Category roots. Every concrete error below wraps exactly one of them.
var (
	ErrConflict       = errors.New("conflict")
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("not found")
)

var (
	ErrNameConflict = fmt.Errorf("%w: name is already taken by a waiting player", ErrConflict)

	ErrEmptyName        = fmt.Errorf("%w: name is required", ErrInvalidRequest)
	ErrAlreadyConnected = fmt.Errorf("%w: connection is already waiting or playing", ErrInvalidRequest)
	ErrInvalidBoardSize = fmt.Errorf("%w: board size must be between 3 and 10", ErrInvalidRequest)
	ErrBoardSizeChosen  = fmt.Errorf("%w: board size can not be chosen now", ErrInvalidRequest)
	ErrInvalidCell      = fmt.Errorf("%w: invalid cell", ErrInvalidRequest)
	ErrCellOccupied     = fmt.Errorf("%w: cell is already occupied", ErrInvalidRequest)
	ErrNotYourTurn      = fmt.Errorf("%w: it's not your turn", ErrInvalidRequest)
	ErrGameFinished     = fmt.Errorf("%w: game is already finished", ErrInvalidRequest)
	ErrGameIsNotStarted = fmt.Errorf("%w: game is not started", ErrInvalidRequest)

	ErrPlayerNotFound  = fmt.Errorf("%w: player", ErrNotFound)
	ErrSessionNotFound = fmt.Errorf("%w: session", ErrNotFound)
)
