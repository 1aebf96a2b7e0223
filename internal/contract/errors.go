package contract

import "errors"

// Guard failures are returned as typed errors rather than silent no-ops so
// callers can tell denial from success. The enclosing ledger transaction
// still commits either way: state stays unchanged but the fee is charged.
var (
	ErrInvalidPayment = errors.New("job deposit payment missing, misdirected or of wrong amount")
	ErrNotAuthorized  = errors.New("caller is not authorized for this job")
	ErrJobNotFound    = errors.New("no job record exists for this id")
	ErrJobCompleted   = errors.New("job already carries a result")
	ErrBadRequest     = errors.New("malformed contract call arguments")
	ErrUnknownMethod  = errors.New("unknown contract method selector")
)
