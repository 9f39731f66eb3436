package zk

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"blitz-zk/internal/commitment"
	"blitz-zk/internal/game"
)

// CircuitKind names one of the three circuits a match verifies against.
type CircuitKind uint8

const (
	PieceMotion CircuitKind = iota
	PlayerVision
	RevealBoardPosition

	NumCircuits = 3
)

var kindNames = [NumCircuits]string{"piece-motion", "player-vision", "reveal-board-position"}

func (k CircuitKind) Valid() bool { return int(k) < NumCircuits }

func (k CircuitKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("CircuitKind(%d)", uint8(k))
	}
	return kindNames[k]
}

func ParseCircuitKind(s string) (CircuitKind, error) {
	for i, n := range kindNames {
		if n == s {
			return CircuitKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown circuit %q", s)
}

// Public signal layouts, version 1. These are a contract with the circuits
// and must change in lock-step with them.
const (
	SignalLayoutVersion = 1

	// [prevCommitment, pieceId, newCommitment]
	MotionSignalCount = 3

	// bitmap[64] indexed x*8+y, then rosterRoot
	VisionSignalCount = game.Squares + 1

	// ids[16] ++ (x,y)[16] ++ classes[16] ++ rosterRoot ++ observedVision,
	// the last being the opponent's vision bitmap as a 64-bit word.
	RevealSignalCount = 4*game.MaxPieces + 2
)

var ErrSignalLayout = errors.New("public signals do not match circuit layout")

func layoutErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSignalLayout, fmt.Sprintf(format, args...))
}

type MotionSignals struct {
	PrevCommitment *big.Int
	PieceID        game.PieceID
	NewCommitment  *big.Int
}

func (m MotionSignals) Encode() []*big.Int {
	return []*big.Int{
		new(big.Int).Set(m.PrevCommitment),
		new(big.Int).SetUint64(uint64(m.PieceID)),
		new(big.Int).Set(m.NewCommitment),
	}
}

func DecodeMotion(signals []*big.Int) (MotionSignals, error) {
	if len(signals) != MotionSignalCount {
		return MotionSignals{}, layoutErr("piece-motion expects %d signals, got %d", MotionSignalCount, len(signals))
	}
	if err := checkField(signals); err != nil {
		return MotionSignals{}, err
	}
	id, err := pieceID(signals[1])
	if err != nil {
		return MotionSignals{}, err
	}
	return MotionSignals{
		PrevCommitment: new(big.Int).Set(signals[0]),
		PieceID:        id,
		NewCommitment:  new(big.Int).Set(signals[2]),
	}, nil
}

type VisionSignals struct {
	Vision     game.Vision
	RosterRoot *big.Int
}

func (v VisionSignals) Encode() []*big.Int {
	out := make([]*big.Int, 0, VisionSignalCount)
	for _, seen := range v.Vision {
		if seen {
			out = append(out, big.NewInt(1))
		} else {
			out = append(out, big.NewInt(0))
		}
	}
	return append(out, new(big.Int).Set(v.RosterRoot))
}

func DecodeVision(signals []*big.Int) (VisionSignals, error) {
	if len(signals) != VisionSignalCount {
		return VisionSignals{}, layoutErr("player-vision expects %d signals, got %d", VisionSignalCount, len(signals))
	}
	if err := checkField(signals); err != nil {
		return VisionSignals{}, err
	}
	var out VisionSignals
	for i := 0; i < game.Squares; i++ {
		switch {
		case signals[i].Sign() == 0:
		case signals[i].Cmp(big.NewInt(1)) == 0:
			out.Vision[i] = true
		default:
			return VisionSignals{}, layoutErr("vision square %d is not a bit", i)
		}
	}
	out.RosterRoot = new(big.Int).Set(signals[game.Squares])
	return out, nil
}

// RevealSignals ties the disclosed pieces to the revealer's live roster and
// to the vision report they answer, so the circuit can require every piece
// standing on an observed square to be listed.
type RevealSignals struct {
	Pieces     []game.RevealedPiece
	RosterRoot *big.Int
	Observed   game.Vision
}

func (r RevealSignals) Encode() []*big.Int {
	const n = game.MaxPieces
	out := make([]*big.Int, RevealSignalCount)
	for i := range out {
		out[i] = new(big.Int)
	}
	for i, p := range r.Pieces {
		if i >= n {
			break
		}
		out[i].SetUint64(uint64(p.ID))
		out[n+2*i].SetUint64(uint64(p.Coords.X))
		out[n+2*i+1].SetUint64(uint64(p.Coords.Y))
		out[3*n+i].SetUint64(uint64(p.Class))
	}
	if r.RosterRoot != nil {
		out[4*n].Set(r.RosterRoot)
	}
	out[4*n+1].SetUint64(r.Observed.Word())
	return out
}

// DecodeReveal returns the non-empty slots. A slot with id 0 is padding and
// must carry zero coordinates and class.
func DecodeReveal(signals []*big.Int) (RevealSignals, error) {
	const n = game.MaxPieces
	if len(signals) != RevealSignalCount {
		return RevealSignals{}, layoutErr("reveal-board-position expects %d signals, got %d", RevealSignalCount, len(signals))
	}
	if err := checkField(signals); err != nil {
		return RevealSignals{}, err
	}
	if !signals[4*n+1].IsUint64() {
		return RevealSignals{}, layoutErr("observed vision is wider than %d bits", game.Squares)
	}
	out := RevealSignals{
		RosterRoot: new(big.Int).Set(signals[4*n]),
		Observed:   game.VisionFromWord(signals[4*n+1].Uint64()),
	}
	for i := 0; i < n; i++ {
		x, y, cls := signals[n+2*i], signals[n+2*i+1], signals[3*n+i]
		if signals[i].Sign() == 0 {
			if x.Sign() != 0 || y.Sign() != 0 || cls.Sign() != 0 {
				return RevealSignals{}, layoutErr("empty reveal slot %d carries data", i)
			}
			continue
		}
		id, err := pieceID(signals[i])
		if err != nil {
			return RevealSignals{}, err
		}
		if !x.IsUint64() || !y.IsUint64() || x.Uint64() >= game.BoardSize || y.Uint64() >= game.BoardSize {
			return RevealSignals{}, layoutErr("piece %d revealed off the board", id)
		}
		if !cls.IsUint64() || cls.Uint64() > uint64(game.Trebuchet) {
			return RevealSignals{}, layoutErr("piece %d revealed with unknown class", id)
		}
		out.Pieces = append(out.Pieces, game.RevealedPiece{
			ID:     id,
			Class:  game.PieceClass(cls.Uint64()),
			Coords: game.Coord{X: uint8(x.Uint64()), Y: uint8(y.Uint64())},
		})
	}
	return out, nil
}

func checkField(signals []*big.Int) error {
	for i, s := range signals {
		if !commitment.InField(s) {
			return layoutErr("signal %d is not a field element", i)
		}
	}
	return nil
}

func pieceID(v *big.Int) (game.PieceID, error) {
	if !v.IsUint64() || v.Uint64() > math.MaxUint32 {
		return 0, layoutErr("piece id %s out of range", v)
	}
	return game.PieceID(v.Uint64()), nil
}
