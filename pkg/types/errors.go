package types

import "errors"

// Storage errors surfaced by the session store. The scheduler relies on
// ErrSessionClosed and ErrMarketAssigned to enforce the close-once and
// associate-once invariants at the persistence boundary.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session already closed")
	ErrMarketAssigned  = errors.New("session already has a market assigned")
)
