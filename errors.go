package genaiconv

import "errors"

// Sentinel errors. Conversion functions never return errors; these come from
// building adapter requests and from usage lookups. Callers should use errors.Is.
var (
	ErrNilRequest  = errors.New("genaiconv: request must not be nil")
	ErrUnsupported = errors.New("genaiconv: unsupported request feature")

	errNoUsage = errors.New("genaiconv: usage not reported")
)
