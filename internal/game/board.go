package game

import (
	"errors"
	"fmt"
)

const (
	BoardSize = 8
	Squares   = BoardSize * BoardSize

	// MaxPieces is the roster width every circuit is compiled for.
	MaxPieces = 16

	// OffBoard is hashed in place of a coordinate a piece does not have.
	OffBoard = 10_000_000_000
)

type Coord struct {
	X uint8 `json:"x"`
	Y uint8 `json:"y"`
}

func (c Coord) OnBoard() bool { return c.X < BoardSize && c.Y < BoardSize }

// Square is the vision bitmap index of c.
func (c Coord) Square() int { return int(c.X)*BoardSize + int(c.Y) }

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

// Vision marks the squares a player can observe, indexed by Coord.Square.
type Vision [Squares]bool

func (v *Vision) Sees(c Coord) bool { return c.OnBoard() && v[c.Square()] }

// Word packs v into 64 bits, square i at bit i.
func (v *Vision) Word() uint64 {
	var w uint64
	for i, seen := range v {
		if seen {
			w |= 1 << uint(i)
		}
	}
	return w
}

func VisionFromWord(w uint64) Vision {
	var v Vision
	for i := range v {
		v[i] = w&(1<<uint(i)) != 0
	}
	return v
}

// FullVision sees every square.
func FullVision() Vision {
	var v Vision
	for i := range v {
		v[i] = true
	}
	return v
}

// SecretPiece is a player's private knowledge of one piece, including the
// square that stays hidden behind its commitment.
type SecretPiece struct {
	ID     PieceID      `json:"pieceId"`
	Class  PieceClass   `json:"pieceClass"`
	Token  TokenVariant `json:"tokenId"`
	Coords Coord        `json:"coords"`
}

// Layout is a player's secret starting position.
type Layout struct {
	Pieces []SecretPiece `json:"pieces"`
}

func (l *Layout) Validate() error {
	if len(l.Pieces) == 0 {
		return errors.New("layout has no pieces")
	}
	if len(l.Pieces) > MaxPieces {
		return fmt.Errorf("layout has %d pieces, at most %d allowed", len(l.Pieces), MaxPieces)
	}
	ids := make(map[PieceID]bool, len(l.Pieces))
	squares := make(map[Coord]bool, len(l.Pieces))
	for _, p := range l.Pieces {
		if p.ID == 0 {
			return errors.New("piece id can not be zero")
		}
		if !p.Class.Valid() {
			return fmt.Errorf("piece %d has invalid class", p.ID)
		}
		if !p.Coords.OnBoard() {
			return fmt.Errorf("piece %d is off the board at %s", p.ID, p.Coords)
		}
		if ids[p.ID] {
			return fmt.Errorf("duplicate piece id %d", p.ID)
		}
		if squares[p.Coords] {
			return fmt.Errorf("two pieces on %s", p.Coords)
		}
		ids[p.ID] = true
		squares[p.Coords] = true
	}
	return nil
}

// Find returns the piece with the given id.
func (l *Layout) Find(id PieceID) (*SecretPiece, bool) {
	for i := range l.Pieces {
		if l.Pieces[i].ID == id {
			return &l.Pieces[i], true
		}
	}
	return nil, false
}

// Allocation derives the allocation entries the layout satisfies.
func (l *Layout) Allocation() []AllocationEntry {
	var out []AllocationEntry
	idx := make(map[TokenVariant]int)
	for _, p := range l.Pieces {
		if i, ok := idx[p.Token]; ok {
			out[i].Count++
			continue
		}
		idx[p.Token] = len(out)
		out = append(out, AllocationEntry{Class: p.Class, Token: p.Token, Count: 1})
	}
	return out
}

var backRank = []PieceClass{King, Queen, Rook, Bishop, Knight}

// StandardLayout is the ten piece opening used by both sides: king, queen,
// rook, bishop and knight on the back rank and five pawns in front, ids 1..10.
// White occupies ranks 0 and 1, black ranks 7 and 6.
func StandardLayout(r Role, set TokenSet) Layout {
	back, front := uint8(0), uint8(1)
	if r == Black {
		back, front = BoardSize-1, BoardSize-2
	}
	files := []uint8{4, 3, 0, 1, 2}
	var l Layout
	id := PieceID(1)
	for i, cls := range backRank {
		l.Pieces = append(l.Pieces, SecretPiece{ID: id, Class: cls, Token: set.Token(cls), Coords: Coord{X: files[i], Y: back}})
		id++
	}
	for x := uint8(0); x < 5; x++ {
		l.Pieces = append(l.Pieces, SecretPiece{ID: id, Class: Pawn, Token: set.Token(Pawn), Coords: Coord{X: x, Y: front}})
		id++
	}
	return l
}
