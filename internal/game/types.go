package game

import (
	"fmt"
	"math/big"
	"strings"
)

// Role is one of the two sides of a match. The zero value means "no role".
type Role uint8

const (
	NoRole Role = iota
	White
	Black
)

func (r Role) Valid() bool { return r == White || r == Black }

// Opponent returns the other side. NoRole maps to NoRole.
func (r Role) Opponent() Role {
	switch r {
	case White:
		return Black
	case Black:
		return White
	}
	return NoRole
}

func (r Role) String() string {
	switch r {
	case White:
		return "white"
	case Black:
		return "black"
	}
	return "none"
}

// ParseRole accepts "white"/"black" in any case.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white":
		return White, nil
	case "black":
		return Black, nil
	}
	return NoRole, fmt.Errorf("unknown role %q", s)
}

// PieceClass is the movement class of a piece. The numbering is part of the
// commitment preimage and of every circuit's public signals.
type PieceClass uint8

const (
	King PieceClass = iota
	Queen
	Bishop
	Knight
	Rook
	Pawn
	Trebuchet
)

var classNames = [...]string{"KING", "QUEEN", "BISHOP", "KNIGHT", "ROOK", "PAWN", "TREBUCHET"}

func (c PieceClass) Valid() bool { return int(c) < len(classNames) }

func (c PieceClass) String() string {
	if !c.Valid() {
		return fmt.Sprintf("PieceClass(%d)", uint8(c))
	}
	return classNames[c]
}

func ParsePieceClass(s string) (PieceClass, error) {
	up := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range classNames {
		if n == up {
			return PieceClass(i), nil
		}
	}
	return 0, fmt.Errorf("unknown piece class %q", s)
}

// TokenVariant is the collection token a piece is minted from.
type TokenVariant uint64

// PieceID identifies a piece within one player's roster. Zero is reserved.
type PieceID uint32

// Piece is the coordinator's record of a placed piece. Coords holds the last
// revealed square and is nil while the piece is hidden.
type Piece struct {
	ID         PieceID      `json:"pieceId"`
	Class      PieceClass   `json:"pieceClass"`
	Token      TokenVariant `json:"tokenId"`
	Commitment *big.Int     `json:"commitment"`
	Coords     *Coord       `json:"coords,omitempty"`
	Dead       bool         `json:"isDead"`
}

// PlacedPiece is what a player submits at placement: identity and the
// commitment to its hidden starting square.
type PlacedPiece struct {
	ID         PieceID      `json:"pieceId"`
	Class      PieceClass   `json:"pieceClass"`
	Token      TokenVariant `json:"tokenId"`
	Commitment *big.Int     `json:"commitment"`
}

// AllocationEntry entitles a player to Count pieces of Class minted as Token.
// The zero value means "not entitled".
type AllocationEntry struct {
	Class PieceClass   `json:"pieceClass"`
	Token TokenVariant `json:"tokenId"`
	Count uint32       `json:"count"`
}

// RevealedPiece is a plaintext disclosure of one piece's square.
type RevealedPiece struct {
	ID     PieceID    `json:"pieceId"`
	Class  PieceClass `json:"pieceClass"`
	Coords Coord      `json:"coords"`
}
