package service

import "errors"

// Sentinel errors of the audit service.
var (
	// ErrNotLoaded is returned when events are annotated before the lookup
	// tables were loaded.
	ErrNotLoaded = errors.New("lookup tables not loaded")
	// ErrLoadInput wraps failures reading an input file.
	ErrLoadInput = errors.New("load input failed")
	// ErrExport wraps failures writing an output file.
	ErrExport = errors.New("export failed")
)
