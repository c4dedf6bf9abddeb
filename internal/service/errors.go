package service

import "errors"

// Domain error taxonomy. Handlers map these onto HTTP statuses with errors.Is;
// everything else is treated as an internal error.
var (
	// ErrInvalidMovement: the movement would drive an item's stock negative.
	// Rejected before any write.
	ErrInvalidMovement = errors.New("movement would make stock negative")

	// ErrLedgerInconsistency: replaying an item's ledger chain does not
	// reproduce its cached quantity. Never retried automatically, since a retry
	// could double-apply the quantity change. It is surfaced for manual
	// reconciliation.
	ErrLedgerInconsistency = errors.New("inventory ledger does not match cached quantity")

	// ErrAccessDenied: the actor's scope does not cover the target farm.
	// Fails closed: no partial data.
	ErrAccessDenied = errors.New("access denied for this farm")

	ErrNotFound = errors.New("not found")
)
