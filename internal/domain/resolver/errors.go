package resolver

import "errors"

// ErrPeriodNotFound is returned by a RegistrySource when no registry file covers
// the requested period.
var ErrPeriodNotFound = errors.New("no registry file for period")
