// Package commitment binds a piece's identity and square into a single BN254
// field element. The hash is MiMC so the piece-motion circuit can recompute it.
package commitment

import (
	"math/big"
	"sort"

	"github.com/consensys/gnark-crypto/ecc"
	bnmimc "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"

	"blitz-zk/internal/game"
	"blitz-zk/internal/merkle"
)

// feBytes is x as a 32-byte big-endian word, the block size MiMC absorbs.
func feBytes(x *big.Int) []byte {
	return x.FillBytes(make([]byte, 32))
}

// Hash is MiMC over a sequence of field elements, consistent with the
// in-circuit hasher fed the same elements in the same order.
func Hash(elems ...*big.Int) *big.Int {
	h := bnmimc.NewMiMC()
	for _, e := range elems {
		h.Write(feBytes(e))
	}
	return new(big.Int).SetBytes(h.Sum(nil))
}

func HashNode(left, right *big.Int) *big.Int { return Hash(left, right) }

// Commit returns MiMC(pieceId, pieceClass, x, y).
func Commit(id game.PieceID, class game.PieceClass, c game.Coord) *big.Int {
	return Hash(
		new(big.Int).SetUint64(uint64(id)),
		new(big.Int).SetUint64(uint64(class)),
		new(big.Int).SetUint64(uint64(c.X)),
		new(big.Int).SetUint64(uint64(c.Y)),
	)
}

// CommitUnplaced commits to a piece that has no square.
func CommitUnplaced(id game.PieceID, class game.PieceClass) *big.Int {
	off := big.NewInt(game.OffBoard)
	return Hash(
		new(big.Int).SetUint64(uint64(id)),
		new(big.Int).SetUint64(uint64(class)),
		off, off,
	)
}

// Verify recomputes the commitment from disclosed fields.
func Verify(commitment *big.Int, id game.PieceID, class game.PieceClass, c game.Coord) bool {
	if commitment == nil {
		return false
	}
	return Commit(id, class, c).Cmp(commitment) == 0
}

// Valid reports whether c is a non-zero canonical BN254 scalar.
func Valid(c *big.Int) bool {
	return c != nil && c.Sign() > 0 && c.Cmp(ecc.BN254.ScalarField()) < 0
}

// InField reports whether v is a canonical BN254 scalar (zero allowed).
func InField(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.Cmp(ecc.BN254.ScalarField()) < 0
}

// Entry is one roster leaf.
type Entry struct {
	ID         game.PieceID
	Commitment *big.Int
}

// RosterRoot is the Merkle root of a player's commitments ordered by piece
// id and zero-padded to game.MaxPieces leaves.
func RosterRoot(entries []Entry) (*big.Int, error) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	leaves := make([]*big.Int, len(sorted))
	for i, e := range sorted {
		leaves[i] = e.Commitment
	}
	t, err := merkle.BuildFixedTree(leaves, game.MaxPieces, new(big.Int), HashNode)
	if err != nil {
		return nil, err
	}
	return t.Root(), nil
}

// LayoutCommitments commits every piece of a secret layout.
func LayoutCommitments(l game.Layout) []game.PlacedPiece {
	out := make([]game.PlacedPiece, 0, len(l.Pieces))
	for _, p := range l.Pieces {
		out = append(out, game.PlacedPiece{
			ID:         p.ID,
			Class:      p.Class,
			Token:      p.Token,
			Commitment: Commit(p.ID, p.Class, p.Coords),
		})
	}
	return out
}

// LayoutRosterRoot is RosterRoot over the committed layout.
func LayoutRosterRoot(l game.Layout) (*big.Int, error) {
	entries := make([]Entry, 0, len(l.Pieces))
	for _, p := range l.Pieces {
		entries = append(entries, Entry{ID: p.ID, Commitment: Commit(p.ID, p.Class, p.Coords)})
	}
	return RosterRoot(entries)
}
