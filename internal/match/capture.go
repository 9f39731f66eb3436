package match

import (
	"sort"

	"blitz-zk/internal/game"
)

// Capture is one piece taken at the end of a turn.
type Capture struct {
	Role  game.Role
	ID    game.PieceID
	Class game.PieceClass
	At    game.Coord
}

// ResolveCaptures returns the opponent pieces revealed on the square the
// mover's piece just landed on, ordered by piece id.
func ResolveCaptures(mover game.Role, landed game.RevealedPiece, opponentReveal []game.RevealedPiece) []Capture {
	var out []Capture
	for _, p := range opponentReveal {
		if p.Coords == landed.Coords {
			out = append(out, Capture{Role: mover.Opponent(), ID: p.ID, Class: p.Class, At: p.Coords})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// applyCaptures marks pieces dead and reports whether a king fell. Dead
// pieces stay dead.
func (m *Match) applyCaptures(captures []Capture) (kingTaken bool) {
	for _, c := range captures {
		p, ok := m.pieces[pieceKey{c.Role, c.ID}]
		if !ok || p.Dead {
			continue
		}
		p.Dead = true
		m.emitPieceCaptured(c)
		if p.Class == game.King {
			kingTaken = true
		}
	}
	return kingTaken
}
