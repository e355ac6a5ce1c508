package core

import "errors"

// Recoverable protocol failures, reported through the per-request responder.
// The messages double as the wire error codes the clients match on.
var (
	ErrInvalidName = errors.New("name must be a string")
	ErrRoomFull    = errors.New("full")
	ErrNameTaken   = errors.New("taken")
)

var errClosed = errors.New("session closed")
