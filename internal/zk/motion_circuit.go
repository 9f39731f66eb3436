package zk

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"

	"blitz-zk/internal/game"
)

// PieceMotionCircuit proves that a hidden piece moved from the square bound
// by PrevCommitment to the square bound by NewCommitment. Movement patterns
// per class are not constrained here.
//
// Public field order is the piece-motion signal layout.
type PieceMotionCircuit struct {
	PrevCommitment frontend.Variable `gnark:",public"`
	PieceID        frontend.Variable `gnark:",public"`
	NewCommitment  frontend.Variable `gnark:",public"`

	PieceClass frontend.Variable    `gnark:",secret"`
	From       [2]frontend.Variable `gnark:",secret"`
	To         [2]frontend.Variable `gnark:",secret"`
}

func (c *PieceMotionCircuit) Define(api frontend.API) error {
	api.AssertIsLessOrEqual(c.PieceClass, int(game.Trebuchet))
	for i := 0; i < 2; i++ {
		api.AssertIsLessOrEqual(c.From[i], game.BoardSize-1)
		api.AssertIsLessOrEqual(c.To[i], game.BoardSize-1)
	}

	// no null move
	dx := api.Sub(c.To[0], c.From[0])
	dy := api.Sub(c.To[1], c.From[1])
	api.AssertIsDifferent(api.Add(api.Mul(dx, dx), api.Mul(dy, dy)), 0)

	prev, err := CommitInCircuit(api, c.PieceID, c.PieceClass, c.From)
	if err != nil {
		return err
	}
	api.AssertIsEqual(prev, c.PrevCommitment)

	next, err := CommitInCircuit(api, c.PieceID, c.PieceClass, c.To)
	if err != nil {
		return err
	}
	api.AssertIsEqual(next, c.NewCommitment)
	return nil
}

// CommitInCircuit mirrors commitment.Commit.
func CommitInCircuit(api frontend.API, id, class frontend.Variable, sq [2]frontend.Variable) (frontend.Variable, error) {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return nil, err
	}
	h.Reset()
	h.Write(id, class, sq[0], sq[1])
	return h.Sum(), nil
}
