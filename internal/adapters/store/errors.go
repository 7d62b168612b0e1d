package store

import "errors"

var (
	// ErrConnect is returned when the database cannot be reached.
	ErrConnect = errors.New("connect to database")
	// ErrInvalidTable is returned for an empty table name.
	ErrInvalidTable = errors.New("invalid table name")
)
