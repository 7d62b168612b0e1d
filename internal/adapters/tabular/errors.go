package tabular

import "errors"

var (
	// ErrMissingColumn is returned when a required column is not in the header.
	ErrMissingColumn = errors.New("missing column")
	// ErrMissingSheet is returned when the requested worksheet does not exist.
	ErrMissingSheet = errors.New("missing sheet")
	// ErrUnsupportedFormat is returned for file extensions no reader handles.
	ErrUnsupportedFormat = errors.New("unsupported tabular format")
	// ErrEmpty is returned for files without a header row.
	ErrEmpty = errors.New("empty table")
)
