package app

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blitz-zk/internal/codec"
	"blitz-zk/internal/commitment"
	"blitz-zk/internal/game"
	"blitz-zk/internal/match"
	"blitz-zk/internal/zk"
)

var (
	owner = common.HexToAddress("0x1000000000000000000000000000000000000001")
	white = common.HexToAddress("0x3000000000000000000000000000000000000003")
	black = common.HexToAddress("0x4000000000000000000000000000000000000004")
)

func TestMatchIDIsKeccakOfParties(t *testing.T) {
	a := MatchID(owner, white, black, 0)
	assert.Equal(t, a, MatchID(owner, white, black, 0))
	assert.NotEqual(t, a, MatchID(owner, white, black, 1))
	assert.NotEqual(t, a, MatchID(owner, black, white, 0))
}

func TestLobbyCreateAndLookup(t *testing.T) {
	l, err := NewLobby(Options{Logger: zerolog.Nop()})
	require.NoError(t, err)

	id1, err := l.Create(codec.CreateMatchReq{Owner: owner, White: white, Black: black})
	require.NoError(t, err)
	id2, err := l.Create(codec.CreateMatchReq{Owner: owner, White: white, Black: black})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, []common.Hash{id1, id2}, l.IDs())

	_, err = l.Create(codec.CreateMatchReq{Owner: owner, White: white, Black: white})
	assert.Error(t, err)
	assert.Len(t, l.IDs(), 2)

	snap, err := l.Snapshot(id1)
	require.NoError(t, err)
	assert.Equal(t, id1, snap.ID)
	assert.Equal(t, match.Setup.String(), snap.Phase)

	_, err = l.Snapshot(common.HexToHash("0x01"))
	assert.ErrorIs(t, err, ErrNoMatch)

	err = l.Do(id2, func(m *match.Match) error {
		return m.SetAllocation(owner, game.White, game.StandardAllocation(game.StandardTokens))
	})
	require.NoError(t, err)
}

func TestCommitPublishesLayoutCommitments(t *testing.T) {
	sec := InitLayout(game.Black, game.ExoticTokens)
	res, err := Commit(sec)
	require.NoError(t, err)
	require.Len(t, res.Pieces, 10)

	root, err := commitment.LayoutRosterRoot(sec.Layout)
	require.NoError(t, err)
	assert.Equal(t, 0, root.Cmp(res.RosterRoot.Big()))
	for _, p := range res.Pieces {
		sp, ok := sec.Layout.Find(p.ID)
		require.True(t, ok)
		assert.True(t, commitment.Verify(p.Commitment.Big(), p.ID, p.Class, sp.Coords))
	}

	sec.Role = "red"
	_, err = Commit(sec)
	assert.Error(t, err)
}

func TestProveMoveThroughLobby(t *testing.T) {
	keys := filepath.Join(t.TempDir(), "keys")
	l, err := NewLobby(Options{KeysDir: keys, Logger: zerolog.Nop()})
	require.NoError(t, err)

	id, err := l.Create(codec.CreateMatchReq{Owner: owner, White: white, Black: black})
	require.NoError(t, err)

	secrets := map[game.Role]*codec.Secret{}
	for _, r := range []game.Role{game.White, game.Black} {
		tokens := game.StandardTokens
		if r == game.Black {
			tokens = game.ExoticTokens
		}
		sec := InitLayout(r, tokens)
		secrets[r] = &sec
		res, err := Commit(sec)
		require.NoError(t, err)

		pieces := make([]game.PlacedPiece, 0, len(res.Pieces))
		for _, p := range res.Pieces {
			pieces = append(pieces, p.Placed())
		}
		err = l.Do(id, func(m *match.Match) error {
			if err := m.SetAllocation(owner, r, sec.Layout.Allocation()); err != nil {
				return err
			}
			return m.PlacePieces(m.Player(r), pieces)
		})
		require.NoError(t, err)
	}

	payload, err := ProveMove(secrets[game.White], keys, white, 10, game.Coord{X: 4, Y: 2})
	require.NoError(t, err)
	p, _ := secrets[game.White].Layout.Find(10)
	assert.Equal(t, game.Coord{X: 4, Y: 2}, p.Coords)

	ok, err := Verify(zk.VKPath(keys, zk.PieceMotion), zk.PieceMotion, *payload)
	require.NoError(t, err)
	assert.True(t, ok)

	err = l.Do(id, func(m *match.Match) error {
		return m.MakeMove(payload.From, payload.Proof, payload.Public.Big())
	})
	require.NoError(t, err)
	snap, err := l.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, match.AwaitingVision.String(), snap.Phase)

	// vision verifier was never configured
	err = l.Do(id, func(m *match.Match) error {
		root, err := commitment.LayoutRosterRoot(secrets[game.White].Layout)
		if err != nil {
			return err
		}
		return m.ReportBoardVision(white, []byte{1}, zk.VisionSignals{Vision: game.FullVision(), RosterRoot: root}.Encode())
	})
	assert.ErrorIs(t, err, match.ErrProofInvalid)

	_, err = ProveMove(secrets[game.White], keys, white, 10, game.Coord{X: 4, Y: 2})
	assert.Error(t, err)
	_, err = ProveMove(secrets[game.White], keys, white, 99, game.Coord{X: 4, Y: 3})
	assert.Error(t, err)
}
