package tableerrors

import "errors"

// Sentinel errors shared by the cards, game, transport and lobby packages
// so none of them has to import another just to compare errors.
var (
	ErrEmptyShoe       = errors.New("shoe is empty")
	ErrMalformedFrame  = errors.New("malformed frame")
	ErrPeerClosed      = errors.New("peer closed")
	ErrSendBufferFull  = errors.New("send buffer full")
	ErrTableInProgress = errors.New("a table is already in progress")
	ErrTableAborted    = errors.New("table aborted")
)
