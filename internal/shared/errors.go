package shared

import "errors"

// Error taxonomy shared by every engine module. Services wrap these with
// fmt.Errorf("%w: ...") and handlers map them onto problem responses.
var (
	// ErrInvalidArgument indicates malformed input, a role conflict or an
	// exceeded capacity. Always a client error.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound indicates a referenced period, student or record is absent.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a state-machine violation: wrong source state for
	// a transition, duplicate issuance, or losing a concurrent activation.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable indicates an external collaborator failed or timed out.
	ErrUnavailable = errors.New("unavailable")
)
