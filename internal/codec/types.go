package codec

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"blitz-zk/internal/game"
)

var fieldModulus = uint256.MustFromBig(ecc.BN254.ScalarField())

// Signal is one public signal word. On the wire it is a decimal string, a
// 0x-prefixed hex string or a plain JSON number, and must be a BN254 scalar.
type Signal struct {
	uint256.Int
}

func (s *Signal) UnmarshalJSON(b []byte) error {
	var raw string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		raw = n.String()
	}
	v, err := ParseSignal(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s Signal) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Dec())
}

func (s Signal) Big() *big.Int { return s.ToBig() }

// ParseSignal accepts decimal or 0x-prefixed hex.
func ParseSignal(raw string) (Signal, error) {
	raw = strings.TrimSpace(raw)
	var u *uint256.Int
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		n, ok := new(big.Int).SetString(raw[2:], 16)
		if !ok || n.Sign() < 0 {
			return Signal{}, fmt.Errorf("invalid hex signal %q", raw)
		}
		var overflow bool
		if u, overflow = uint256.FromBig(n); overflow {
			return Signal{}, fmt.Errorf("signal %q exceeds 256 bits", raw)
		}
	} else {
		var err error
		if u, err = uint256.FromDecimal(raw); err != nil {
			return Signal{}, fmt.Errorf("invalid signal %q: %w", raw, err)
		}
	}
	if !u.Lt(fieldModulus) {
		return Signal{}, fmt.Errorf("signal %q is not below the BN254 scalar modulus", raw)
	}
	return Signal{Int: *u}, nil
}

func SignalFromBig(v *big.Int) (Signal, error) {
	if v == nil || v.Sign() < 0 {
		return Signal{}, fmt.Errorf("signal must be a non-negative integer")
	}
	u, overflow := uint256.FromBig(v)
	if overflow || !u.Lt(fieldModulus) {
		return Signal{}, fmt.Errorf("signal %s is not below the BN254 scalar modulus", v)
	}
	return Signal{Int: *u}, nil
}

type Signals []Signal

func (s Signals) Big() []*big.Int {
	out := make([]*big.Int, len(s))
	for i := range s {
		out[i] = s[i].Big()
	}
	return out
}

func SignalsFromBig(vs []*big.Int) (Signals, error) {
	out := make(Signals, len(vs))
	for i, v := range vs {
		s, err := SignalFromBig(v)
		if err != nil {
			return nil, fmt.Errorf("signal %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

// Secret is a player's private state, kept by the CLI between commands.
type Secret struct {
	Role   string      `json:"role"`
	Layout game.Layout `json:"layout"`
}

// Piece is a placed piece on the wire.
type Piece struct {
	ID         game.PieceID      `json:"pieceId"`
	Class      game.PieceClass   `json:"pieceClass"`
	Token      game.TokenVariant `json:"tokenId"`
	Commitment Signal            `json:"commitment"`
}

func (p Piece) Placed() game.PlacedPiece {
	return game.PlacedPiece{ID: p.ID, Class: p.Class, Token: p.Token, Commitment: p.Commitment.Big()}
}

func PiecesFromPlaced(ps []game.PlacedPiece) ([]Piece, error) {
	out := make([]Piece, 0, len(ps))
	for _, p := range ps {
		c, err := SignalFromBig(p.Commitment)
		if err != nil {
			return nil, fmt.Errorf("piece %d: %w", p.ID, err)
		}
		out = append(out, Piece{ID: p.ID, Class: p.Class, Token: p.Token, Commitment: c})
	}
	return out, nil
}

// CommitResult is what a player publishes after committing a layout.
type CommitResult struct {
	Pieces     []Piece `json:"pieces"`
	RosterRoot Signal  `json:"rosterRoot"`
}

// ProofPayload carries one proof and its public signals. Proof is the
// gnark binary encoding (base64 in JSON).
type ProofPayload struct {
	From   common.Address `json:"from"`
	Proof  []byte         `json:"proof"`
	Public Signals        `json:"public"`
}

type CreateMatchReq struct {
	Owner   common.Address `json:"owner"`
	Manager common.Address `json:"manager"`
	White   common.Address `json:"white"`
	Black   common.Address `json:"black"`
}

type AllocationReq struct {
	From    common.Address         `json:"from"`
	Entries []game.AllocationEntry `json:"entries"`
}

type PlacementReq struct {
	From   common.Address `json:"from"`
	Pieces []Piece        `json:"pieces"`
}

// VerifierReq installs a groth16 verifying key for one circuit.
type VerifierReq struct {
	From  common.Address `json:"from"`
	VKB64 string         `json:"vkB64"`
}

type TurnReq struct {
	From common.Address `json:"from"`
}
