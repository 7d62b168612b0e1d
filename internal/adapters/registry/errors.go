package registry

import (
	"errors"

	"github.com/okian/sibrol/internal/domain/resolver"
)

var (
	// ErrPeriodNotFound is returned when no file in the directory covers a period.
	ErrPeriodNotFound = resolver.ErrPeriodNotFound
	// ErrReadDirectory is returned when the registry directory cannot be listed.
	ErrReadDirectory = errors.New("read registry directory")
	// ErrLoadPeriod is returned when a period file still fails after every attempt.
	ErrLoadPeriod = errors.New("load registry period")
)
