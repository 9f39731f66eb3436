package match

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"blitz-zk/internal/commitment"
	"blitz-zk/internal/game"
)

// PlacePieces records the caller's starting pieces as commitments. Each
// player places exactly once; the second placement starts the game with
// White to move.
func (m *Match) PlacePieces(caller common.Address, pieces []game.PlacedPiece) error {
	role := m.RoleOf(caller)
	if role == game.NoRole {
		return m.rejected("placePieces", caller, reject(ErrUnauthorized, reasonNotPlayer))
	}
	if m.placed[role] {
		return m.rejected("placePieces", caller, reject(ErrPhaseViolation, "%s has already placed pieces", role))
	}
	if err := m.checkPlacement(role, pieces); err != nil {
		return m.rejected("placePieces", caller, err)
	}

	for _, p := range pieces {
		m.pieces[pieceKey{role, p.ID}] = &game.Piece{
			ID:         p.ID,
			Class:      p.Class,
			Token:      p.Token,
			Commitment: new(big.Int).Set(p.Commitment),
		}
	}
	m.placed[role] = true
	m.emitPiecesPlaced(role, len(pieces))

	if m.placed[game.White] && m.placed[game.Black] {
		m.started = true
		m.turn = newTurn(1, game.White)
		m.emitGameStarted()
	}
	return nil
}

func (m *Match) checkPlacement(role game.Role, pieces []game.PlacedPiece) error {
	ids := make(map[game.PieceID]bool, len(pieces))
	for _, p := range pieces {
		if p.ID == 0 {
			return reject(ErrInvalidPieceID, "piece id 0 is reserved")
		}
		if ids[p.ID] {
			return reject(ErrInvalidPieceID, "piece id %d used twice", p.ID)
		}
		ids[p.ID] = true
	}
	for _, p := range pieces {
		if !commitment.Valid(p.Commitment) {
			return reject(ErrCommitmentMismatch, "piece %d has no valid commitment", p.ID)
		}
	}

	if len(m.allocTokens[role]) == 0 {
		return reject(ErrAllocationMismatch, "no allocation declared for %s", role)
	}
	counts := make(map[game.TokenVariant]uint32, len(m.allocTokens[role]))
	for _, p := range pieces {
		want := m.allocations[allocKey{role, p.Token}]
		if want.Count == 0 {
			return reject(ErrAllocationMismatch, "piece %d uses token %d which %s is not entitled to", p.ID, p.Token, role)
		}
		if want.Class != p.Class {
			return reject(ErrAllocationMismatch, "piece %d claims class %s but token %d is %s", p.ID, p.Class, p.Token, want.Class)
		}
		counts[p.Token]++
		if counts[p.Token] > want.Count {
			return reject(ErrAllocationMismatch, "more than %d pieces of token %d", want.Count, p.Token)
		}
	}
	for _, tok := range m.allocTokens[role] {
		want := m.allocations[allocKey{role, tok}]
		if counts[tok] != want.Count {
			return reject(ErrAllocationMismatch, "token %d placed %d times, allocation is %d", tok, counts[tok], want.Count)
		}
	}
	return nil
}
