package export

import "errors"

// ErrUnsupportedFormat is returned for output paths no writer handles.
var ErrUnsupportedFormat = errors.New("unsupported export format")
