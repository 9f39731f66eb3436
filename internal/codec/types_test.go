package codec

import (
	"encoding/json"
	"math/big"
	"strings"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blitz-zk/internal/commitment"
	"blitz-zk/internal/game"
)

func TestSignalAcceptsDecimalHexAndNumbers(t *testing.T) {
	var p ProofPayload
	err := json.Unmarshal([]byte(`{
		"from": "0x3000000000000000000000000000000000000003",
		"proof": "3q0=",
		"public": ["12", "0x0c", 12, "0X00000c"]
	}`), &p)
	require.NoError(t, err)
	require.Len(t, p.Public, 4)
	for _, s := range p.Public.Big() {
		assert.Equal(t, int64(12), s.Int64())
	}
	assert.Equal(t, []byte{0xde, 0xad}, p.Proof)
}

func TestSignalRejectsOutOfField(t *testing.T) {
	mod := ecc.BN254.ScalarField()
	_, err := ParseSignal(mod.String())
	assert.Error(t, err)
	_, err = ParseSignal("0x" + new(big.Int).Sub(mod, big.NewInt(1)).Text(16))
	assert.NoError(t, err)

	for _, bad := range []string{`"-1"`, `"0xzz"`, `"1e3"`, `1.5`, `"0x1` + strings.Repeat("f", 64) + `"`} {
		var s Signal
		assert.Error(t, json.Unmarshal([]byte(bad), &s), bad)
	}

	_, err = SignalFromBig(big.NewInt(-3))
	assert.Error(t, err)
	_, err = SignalsFromBig([]*big.Int{big.NewInt(1), mod})
	assert.Error(t, err)
}

func TestSignalMarshalsAsDecimal(t *testing.T) {
	c := commitment.Commit(1, game.King, game.Coord{X: 4, Y: 0})
	s, err := SignalFromBig(c)
	require.NoError(t, err)
	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Equal(t, `"`+c.String()+`"`, string(out))

	var back Signal
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, 0, back.Big().Cmp(c))
}

func TestPiecesFromPlaced(t *testing.T) {
	l := game.StandardLayout(game.White, game.StandardTokens)
	placed := commitment.LayoutCommitments(l)
	wire, err := PiecesFromPlaced(placed)
	require.NoError(t, err)
	require.Len(t, wire, len(placed))
	for i, p := range wire {
		got := p.Placed()
		assert.Equal(t, placed[i].ID, got.ID)
		assert.Equal(t, placed[i].Token, got.Token)
		assert.Equal(t, 0, placed[i].Commitment.Cmp(got.Commitment))
	}

	placed[0].Commitment = nil
	_, err = PiecesFromPlaced(placed)
	assert.Error(t, err)
}
