package commitment

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blitz-zk/internal/game"
	"blitz-zk/internal/merkle"
)

func TestCommitDeterministicAndBinding(t *testing.T) {
	a := Commit(10, game.Pawn, game.Coord{X: 4, Y: 1})
	b := Commit(10, game.Pawn, game.Coord{X: 4, Y: 1})
	assert.Equal(t, 0, a.Cmp(b))
	assert.True(t, Valid(a))

	assert.NotEqual(t, 0, a.Cmp(Commit(10, game.Pawn, game.Coord{X: 4, Y: 2})))
	assert.NotEqual(t, 0, a.Cmp(Commit(10, game.Queen, game.Coord{X: 4, Y: 1})))
	assert.NotEqual(t, 0, a.Cmp(Commit(9, game.Pawn, game.Coord{X: 4, Y: 1})))
	// x and y are not interchangeable
	assert.NotEqual(t, 0, Commit(1, game.King, game.Coord{X: 1, Y: 2}).Cmp(Commit(1, game.King, game.Coord{X: 2, Y: 1})))
}

func TestVerify(t *testing.T) {
	c := Commit(1, game.King, game.Coord{X: 4, Y: 7})
	assert.True(t, Verify(c, 1, game.King, game.Coord{X: 4, Y: 7}))
	assert.False(t, Verify(c, 1, game.King, game.Coord{X: 4, Y: 6}))
	assert.False(t, Verify(nil, 1, game.King, game.Coord{X: 4, Y: 7}))
}

func TestCommitUnplacedDiffersFromEveryOnBoardSquare(t *testing.T) {
	off := CommitUnplaced(3, game.Rook)
	for x := uint8(0); x < game.BoardSize; x++ {
		for y := uint8(0); y < game.BoardSize; y++ {
			require.NotEqual(t, 0, off.Cmp(Commit(3, game.Rook, game.Coord{X: x, Y: y})))
		}
	}
}

func TestValid(t *testing.T) {
	assert.False(t, Valid(nil))
	assert.False(t, Valid(big.NewInt(0)))
	assert.False(t, Valid(big.NewInt(-1)))
	assert.False(t, Valid(ecc.BN254.ScalarField()))
	assert.True(t, Valid(big.NewInt(1)))
	assert.True(t, InField(big.NewInt(0)))
}

func TestRosterRootOrderIndependent(t *testing.T) {
	l := game.StandardLayout(game.White, game.StandardTokens)
	root, err := LayoutRosterRoot(l)
	require.NoError(t, err)

	rev := game.Layout{}
	for i := len(l.Pieces) - 1; i >= 0; i-- {
		rev.Pieces = append(rev.Pieces, l.Pieces[i])
	}
	root2, err := LayoutRosterRoot(rev)
	require.NoError(t, err)
	assert.Equal(t, 0, root.Cmp(root2))

	// moving one piece changes the root
	moved := game.StandardLayout(game.White, game.StandardTokens)
	moved.Pieces[9].Coords = game.Coord{X: 4, Y: 2}
	root3, err := LayoutRosterRoot(moved)
	require.NoError(t, err)
	assert.NotEqual(t, 0, root.Cmp(root3))
}

func TestRosterRootMatchesTree(t *testing.T) {
	entries := []Entry{{ID: 2, Commitment: big.NewInt(22)}, {ID: 1, Commitment: big.NewInt(11)}}
	root, err := RosterRoot(entries)
	require.NoError(t, err)

	tree, err := merkle.BuildFixedTree([]*big.Int{big.NewInt(11), big.NewInt(22)}, game.MaxPieces, new(big.Int), HashNode)
	require.NoError(t, err)
	assert.Equal(t, 4, tree.Depth)
	assert.Equal(t, 0, root.Cmp(tree.Root()))

	_, err = RosterRoot(make([]Entry, game.MaxPieces+1))
	assert.Error(t, err)
}

func TestLayoutCommitments(t *testing.T) {
	l := game.StandardLayout(game.Black, game.ExoticTokens)
	placed := LayoutCommitments(l)
	require.Len(t, placed, len(l.Pieces))
	for i, p := range placed {
		assert.Equal(t, l.Pieces[i].ID, p.ID)
		assert.True(t, Verify(p.Commitment, p.ID, p.Class, l.Pieces[i].Coords))
	}
}
