package errors

import "fmt"

// Error kinds surfaced by the repository. Layers wrap them with fmt.Errorf("%w")
// and callers classify with errors.Is.
var (
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrNotFound        = fmt.Errorf("record not found")
	ErrUnavailable     = fmt.Errorf("store unavailable")
	ErrDataIntegrity   = fmt.Errorf("stored record is malformed")
	ErrConflict        = fmt.Errorf("record was modified concurrently")
)
