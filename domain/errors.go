package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrBoardExists indicates the user has already created their one board.
	ErrBoardExists = errors.New("board already created")
)
