package match

import (
	"errors"
	"fmt"
)

// Rejection categories. Every rejected action returns one of these wrapped
// with a reason; test with errors.Is.
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotYourTurn        = fmt.Errorf("%w: not your turn", ErrUnauthorized)
	ErrAllocationMismatch = errors.New("placed pieces do not match allocation")
	ErrInvalidAllocation  = errors.New("invalid allocation")
	ErrInvalidPieceID     = errors.New("invalid piece id")
	ErrPhaseViolation     = errors.New("phase violation")
	ErrUnknownPiece       = errors.New("unknown piece")
	ErrProofInvalid       = errors.New("proof invalid")
	ErrCommitmentMismatch = errors.New("commitment mismatch")
	ErrMalformedSignals   = errors.New("malformed public signals")
)

// Stable reasons shared by more than one action.
const (
	reasonNoMoveYet     = "attacking player has not played for turn"
	reasonRevealPending = "a turn can not be marked as completed till both players have reported piece positions"
	reasonNotStarted    = "game has not started"
	reasonGameOver      = "game is over"
	reasonNotPlayer     = "caller is not a player in this match"
	reasonNotAdmin      = "caller is neither owner nor game manager"
)

func reject(category error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", category, fmt.Sprintf(format, args...))
}
