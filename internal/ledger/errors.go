package ledger

import "errors"

var (
	ErrBadSignature      = errors.New("transaction signature does not verify against sender")
	ErrUnknownAccount    = errors.New("account does not exist on the ledger")
	ErrUnknownApp        = errors.New("application does not exist on the ledger")
	ErrUnknownBox        = errors.New("box does not exist for this application")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrFeeTooLow         = errors.New("transaction fee below the minimum fee")
	ErrBadPayment        = errors.New("grouped payment sender must match the transaction sender")
	ErrDeleteDenied      = errors.New("application deletion denied")
)
