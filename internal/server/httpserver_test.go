package server

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blitz-zk/internal/app"
	"blitz-zk/internal/codec"
	"blitz-zk/internal/commitment"
	"blitz-zk/internal/game"
	"blitz-zk/internal/match"
	"blitz-zk/internal/zk"
)

func mustKey(b byte) *ecdsa.PrivateKey {
	k, err := crypto.ToECDSA(common.LeftPadBytes([]byte{b}, 32))
	if err != nil {
		panic(err)
	}
	return k
}

var (
	ownerKey    = mustKey(1)
	whiteKey    = mustKey(3)
	blackKey    = mustKey(4)
	strangerKey = mustKey(5)

	owner    = crypto.PubkeyToAddress(ownerKey.PublicKey)
	white    = crypto.PubkeyToAddress(whiteKey.PublicKey)
	black    = crypto.PubkeyToAddress(blackKey.PublicKey)
	stranger = crypto.PubkeyToAddress(strangerKey.PublicKey)
)

type testServer struct {
	t     *testing.T
	http  *httptest.Server
	lobby *app.Lobby
}

func newTestServer(t *testing.T) *testServer {
	lobby, err := app.NewLobby(app.Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	srv := New(lobby, zerolog.Nop())
	mux := http.NewServeMux()
	srv.Routes(mux)
	hs := httptest.NewServer(WithCORS(WithLogging(zerolog.Nop(), mux)))
	t.Cleanup(hs.Close)
	return &testServer{t: t, http: hs, lobby: lobby}
}

// call sends body signed by key; a nil key sends it unsigned.
func (ts *testServer) call(method, path string, key *ecdsa.PrivateKey, body any, out any) int {
	ts.t.Helper()
	var raw []byte
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(ts.t, err)
		raw = b
	}
	req, err := http.NewRequest(method, ts.http.URL+path, bytes.NewReader(raw))
	require.NoError(ts.t, err)
	req.Header.Set("Content-Type", "application/json")
	if key != nil {
		sig, err := SignRequest(key, method, path, raw)
		require.NoError(ts.t, err)
		req.Header.Set(SignatureHeader, sig)
	}
	return ts.send(req, out)
}

func (ts *testServer) send(req *http.Request, out any) int {
	ts.t.Helper()
	resp, err := ts.http.Client().Do(req)
	require.NoError(ts.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(ts.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func placement(t *testing.T, from common.Address, l game.Layout) codec.PlacementReq {
	pieces, err := codec.PiecesFromPlaced(commitment.LayoutCommitments(l))
	require.NoError(t, err)
	return codec.PlacementReq{From: from, Pieces: pieces}
}

func TestMatchLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	var created struct {
		ID common.Hash `json:"id"`
	}
	code := ts.call(http.MethodPost, "/v1/matches", ownerKey, codec.CreateMatchReq{Owner: owner, White: white, Black: black}, &created)
	require.Equal(t, http.StatusCreated, code)
	base := "/v1/matches/" + created.ID.Hex()

	var list struct {
		Matches []common.Hash `json:"matches"`
	}
	assert.Equal(t, http.StatusOK, ts.call(http.MethodGet, "/v1/matches", nil, nil, &list))
	assert.Equal(t, []common.Hash{created.ID}, list.Matches)

	std := game.StandardAllocation(game.StandardTokens)
	assert.Equal(t, http.StatusForbidden,
		ts.call(http.MethodPut, base+"/allocations/white", strangerKey, codec.AllocationReq{From: stranger, Entries: std}, nil))
	require.Equal(t, http.StatusOK,
		ts.call(http.MethodPut, base+"/allocations/white", ownerKey, codec.AllocationReq{From: owner, Entries: std}, nil))
	require.Equal(t, http.StatusOK,
		ts.call(http.MethodPut, base+"/allocations/black", ownerKey, codec.AllocationReq{From: owner, Entries: game.StandardAllocation(game.ExoticTokens)}, nil))

	var entry game.AllocationEntry
	require.Equal(t, http.StatusOK, ts.call(http.MethodGet, base+"/allocations/white/6000", nil, nil, &entry))
	assert.Equal(t, game.AllocationEntry{Class: game.Pawn, Token: game.StandardPawn, Count: 5}, entry)

	wl := game.StandardLayout(game.White, game.StandardTokens)
	bl := game.StandardLayout(game.Black, game.ExoticTokens)
	require.Equal(t, http.StatusOK, ts.call(http.MethodPost, base+"/pieces", whiteKey, placement(t, white, wl), nil))
	assert.Equal(t, http.StatusConflict, ts.call(http.MethodPost, base+"/pieces", whiteKey, placement(t, white, wl), nil))
	assert.Equal(t, http.StatusBadRequest, ts.call(http.MethodPost, base+"/pieces", blackKey, placement(t, black, wl), nil))

	var snap match.Snapshot
	require.Equal(t, http.StatusOK, ts.call(http.MethodPost, base+"/pieces", blackKey, placement(t, black, bl), &snap))
	assert.True(t, snap.Started)
	assert.Equal(t, "white", snap.ActiveMover)

	move := zk.MotionWitness{PieceID: 10, Class: game.Pawn, From: game.Coord{X: 4, Y: 1}, To: game.Coord{X: 4, Y: 2}}
	pub, err := codec.SignalsFromBig(move.Signals().Encode())
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden,
		ts.call(http.MethodPost, base+"/move", blackKey, codec.ProofPayload{From: black, Proof: []byte{1}, Public: pub}, nil))
	// no motion verifier configured for this lobby
	assert.Equal(t, http.StatusUnprocessableEntity,
		ts.call(http.MethodPost, base+"/move", whiteKey, codec.ProofPayload{From: white, Proof: []byte{1}, Public: pub}, nil))
	assert.Equal(t, http.StatusConflict, ts.call(http.MethodPost, base+"/turn", whiteKey, codec.TurnReq{From: white}, nil))

	var captured struct {
		Captured bool `json:"captured"`
	}
	require.Equal(t, http.StatusOK, ts.call(http.MethodGet, base+"/captured/black/1", nil, nil, &captured))
	assert.False(t, captured.Captured)

	var events struct {
		Events []match.Event `json:"events"`
	}
	require.Equal(t, http.StatusOK, ts.call(http.MethodGet, base+"/events", nil, nil, &events))
	assert.Equal(t, "gameStarted", events.Events[len(events.Events)-1].Type)
}

func TestMoveWithStubVerifiers(t *testing.T) {
	ts := newTestServer(t)
	id, err := ts.lobby.Create(codec.CreateMatchReq{Owner: owner, White: white, Black: black})
	require.NoError(t, err)
	base := "/v1/matches/" + id.Hex()

	wl := game.StandardLayout(game.White, game.StandardTokens)
	bl := game.StandardLayout(game.Black, game.StandardTokens)
	require.NoError(t, ts.lobby.Do(id, func(m *match.Match) error {
		for kind := zk.CircuitKind(0); kind < zk.NumCircuits; kind++ {
			if err := m.ChangeVerifier(owner, kind, zk.AcceptAll()); err != nil {
				return err
			}
		}
		if err := m.SetAllocation(owner, game.White, wl.Allocation()); err != nil {
			return err
		}
		return m.SetAllocation(owner, game.Black, bl.Allocation())
	}))
	require.Equal(t, http.StatusOK, ts.call(http.MethodPost, base+"/pieces", whiteKey, placement(t, white, wl), nil))
	require.Equal(t, http.StatusOK, ts.call(http.MethodPost, base+"/pieces", blackKey, placement(t, black, bl), nil))

	// signals as a mix of decimal and hex strings
	move := zk.MotionWitness{PieceID: 10, Class: game.Pawn, From: game.Coord{X: 4, Y: 1}, To: game.Coord{X: 4, Y: 2}}
	sig := move.Signals()
	body := map[string]any{
		"from":   white,
		"proof":  []byte{1},
		"public": []string{sig.PrevCommitment.String(), "0xa", "0x" + sig.NewCommitment.Text(16)},
	}
	var snap match.Snapshot
	require.Equal(t, http.StatusOK, ts.call(http.MethodPost, base+"/move", whiteKey, body, &snap))
	assert.Equal(t, match.AwaitingVision.String(), snap.Phase)

	body["public"] = []string{"1", "2", "nope"}
	assert.Equal(t, http.StatusBadRequest, ts.call(http.MethodPost, base+"/vision", whiteKey, body, nil))

	// vision over a stale roster
	stale := zk.VisionSignals{Vision: game.FullVision(), RosterRoot: big.NewInt(1)}
	pub, err := codec.SignalsFromBig(stale.Encode())
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest,
		ts.call(http.MethodPost, base+"/vision", blackKey, codec.ProofPayload{From: black, Proof: []byte{1}, Public: pub}, nil))
}

func TestBadRequests(t *testing.T) {
	ts := newTestServer(t)
	var out map[string]string

	assert.Equal(t, http.StatusBadRequest, ts.call(http.MethodGet, "/v1/matches/0x1234", nil, nil, &out))
	assert.Contains(t, out["error"], "invalid match id")

	missing := "/v1/matches/" + common.HexToHash("0xbeef").Hex()
	assert.Equal(t, http.StatusNotFound, ts.call(http.MethodGet, missing, nil, nil, nil))
	assert.Equal(t, http.StatusNotFound, ts.call(http.MethodPost, missing+"/turn", whiteKey, codec.TurnReq{From: white}, nil))

	assert.Equal(t, http.StatusBadRequest,
		ts.call(http.MethodPost, "/v1/matches", ownerKey, map[string]any{"owner": owner, "surprise": 1}, nil))
	assert.Equal(t, http.StatusBadRequest,
		ts.call(http.MethodPost, "/v1/matches", ownerKey, codec.CreateMatchReq{Owner: owner, White: white, Black: white}, nil))

	id, err := ts.lobby.Create(codec.CreateMatchReq{Owner: owner, White: white, Black: black})
	require.NoError(t, err)
	base := "/v1/matches/" + id.Hex()
	assert.Equal(t, http.StatusBadRequest,
		ts.call(http.MethodPut, base+"/verifiers/castling", ownerKey, codec.VerifierReq{From: owner, VKB64: "AA=="}, nil))
	assert.Equal(t, http.StatusBadRequest,
		ts.call(http.MethodPut, base+"/verifiers/piece-motion", ownerKey, codec.VerifierReq{From: owner, VKB64: "%%%"}, nil))
	assert.Equal(t, http.StatusBadRequest,
		ts.call(http.MethodPut, base+"/verifiers/piece-motion", ownerKey, codec.VerifierReq{From: owner}, nil))
	assert.Equal(t, http.StatusBadRequest, ts.call(http.MethodGet, base+"/allocations/red/1000", nil, nil, nil))
	assert.Equal(t, http.StatusBadRequest, ts.call(http.MethodGet, base+"/captured/white/x", nil, nil, nil))
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	req, err := http.NewRequest(http.MethodOptions, ts.http.URL+"/v1/matches", nil)
	require.NoError(t, err)
	resp, err := ts.http.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestSpoofedCallerIsForbidden(t *testing.T) {
	ts := newTestServer(t)
	id, err := ts.lobby.Create(codec.CreateMatchReq{Owner: owner, White: white, Black: black})
	require.NoError(t, err)
	base := "/v1/matches/" + id.Hex()
	alloc := codec.AllocationReq{From: owner, Entries: game.StandardAllocation(game.StandardTokens)}

	var out map[string]string
	assert.Equal(t, http.StatusForbidden, ts.call(http.MethodPut, base+"/allocations/white", strangerKey, alloc, &out))
	assert.Contains(t, out["error"], stranger.Hex())
	assert.Equal(t, http.StatusForbidden, ts.call(http.MethodPut, base+"/allocations/white", nil, alloc, nil))
	assert.Equal(t, http.StatusForbidden,
		ts.call(http.MethodPost, "/v1/matches", strangerKey, codec.CreateMatchReq{Owner: owner, White: white, Black: black}, nil))

	signedFor := func(key *ecdsa.PrivateKey, signedPath, path string, body any) *http.Request {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		sig, err := SignRequest(key, http.MethodPut, signedPath, raw)
		require.NoError(t, err)
		req, err := http.NewRequest(http.MethodPut, ts.http.URL+path, bytes.NewReader(raw))
		require.NoError(t, err)
		req.Header.Set(SignatureHeader, sig)
		return req
	}
	other := "/v1/matches/" + common.HexToHash("0xbeef").Hex() + "/allocations/white"
	assert.Equal(t, http.StatusForbidden, ts.send(signedFor(ownerKey, other, base+"/allocations/white", alloc), nil))

	// wallet style recovery id
	req := signedFor(ownerKey, base+"/allocations/white", base+"/allocations/white", alloc)
	sig := hexutil.MustDecode(req.Header.Get(SignatureHeader))
	sig[crypto.RecoveryIDOffset] += 27
	req.Header.Set(SignatureHeader, hexutil.Encode(sig))
	require.Equal(t, http.StatusOK, ts.send(req, nil))

	// an empty from defers to the signer
	require.Equal(t, http.StatusOK, ts.call(http.MethodPut, base+"/allocations/black", ownerKey,
		codec.AllocationReq{Entries: game.StandardAllocation(game.StandardTokens)}, nil))

	wl := game.StandardLayout(game.White, game.StandardTokens)
	bl := game.StandardLayout(game.Black, game.StandardTokens)
	assert.Equal(t, http.StatusForbidden, ts.call(http.MethodPost, base+"/pieces", strangerKey, placement(t, white, wl), nil))
	assert.Equal(t, http.StatusForbidden, ts.call(http.MethodPost, base+"/pieces", whiteKey, placement(t, black, bl), nil))
	require.Equal(t, http.StatusOK, ts.call(http.MethodPost, base+"/pieces", whiteKey, placement(t, white, wl), nil))
	require.Equal(t, http.StatusOK, ts.call(http.MethodPost, base+"/pieces", blackKey, placement(t, black, bl), nil))

	assert.Equal(t, http.StatusForbidden, ts.call(http.MethodPost, base+"/turn", whiteKey, codec.TurnReq{From: black}, nil))
	snap, err := ts.lobby.Snapshot(id)
	require.NoError(t, err)
	assert.Equal(t, match.AwaitingMove.String(), snap.Phase)
}
