package server

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"

	"blitz-zk/internal/app"
	"blitz-zk/internal/codec"
	"blitz-zk/internal/game"
	"blitz-zk/internal/match"
	"blitz-zk/internal/zk"
)

type Server struct {
	lobby *app.Lobby
	log   zerolog.Logger
}

func New(lobby *app.Lobby, log zerolog.Logger) *Server {
	return &Server{lobby: lobby, log: log.With().Str("module", "http").Logger()}
}

func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/matches", s.handleCreate)
	mux.HandleFunc("GET /v1/matches", s.handleList)
	mux.HandleFunc("GET /v1/matches/{id}", s.handleStatus)
	mux.HandleFunc("GET /v1/matches/{id}/events", s.handleEvents)

	// administration
	mux.HandleFunc("PUT /v1/matches/{id}/allocations/{role}", s.handleSetAllocation)
	mux.HandleFunc("GET /v1/matches/{id}/allocations/{role}/{token}", s.handleGetAllocation)
	mux.HandleFunc("PUT /v1/matches/{id}/verifiers/{kind}", s.handleVerifierPut)

	// player actions
	mux.HandleFunc("POST /v1/matches/{id}/pieces", s.handlePlace)
	mux.HandleFunc("POST /v1/matches/{id}/move", s.proofAction((*match.Match).MakeMove))
	mux.HandleFunc("POST /v1/matches/{id}/vision", s.proofAction((*match.Match).ReportBoardVision))
	mux.HandleFunc("POST /v1/matches/{id}/reveal", s.proofAction((*match.Match).ReportPositions))
	mux.HandleFunc("POST /v1/matches/{id}/turn", s.handleTurnOver)

	mux.HandleFunc("GET /v1/matches/{id}/captured/{role}/{piece}", s.handleCaptured)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

// statusFor maps a rejection category to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrNoMatch):
		return http.StatusNotFound
	case errors.Is(err, match.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, match.ErrPhaseViolation):
		return http.StatusConflict
	case errors.Is(err, match.ErrProofInvalid):
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadRequest
}

func decode(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("bad json: %w", err)
	}
	return nil
}

// === request signatures ===

// SignatureHeader carries a 65-byte secp256k1 signature over RequestDigest.
const SignatureHeader = "X-Blitz-Signature"

const maxBody = 1 << 20

var errBadSignature = fmt.Errorf("%w: missing or invalid request signature", match.ErrUnauthorized)

// RequestDigest is keccak256(method || " " || path || "\n" || body). Match
// routes carry the match id in the path.
func RequestDigest(method, path string, body []byte) []byte {
	return crypto.Keccak256([]byte(method), []byte(" "), []byte(path), []byte("\n"), body)
}

// SignRequest returns the SignatureHeader value for a request.
func SignRequest(key *ecdsa.PrivateKey, method, path string, body []byte) (string, error) {
	sig, err := crypto.Sign(RequestDigest(method, path, body), key)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(sig), nil
}

// signed reads the body, recovers who signed it and decodes it into v.
func signed(w http.ResponseWriter, r *http.Request, v any) (common.Address, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		return common.Address{}, fmt.Errorf("read body: %w", err)
	}
	sig, err := hexutil.Decode(r.Header.Get(SignatureHeader))
	if err != nil || len(sig) != crypto.SignatureLength {
		return common.Address{}, errBadSignature
	}
	// wallets sign with v in {27, 28}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(RequestDigest(r.Method, r.URL.Path, body), sig)
	if err != nil {
		return common.Address{}, errBadSignature
	}
	if err := decode(body, v); err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// claimed checks an address named in a body against the signer. The zero
// address defers to the signer.
func claimed(signer, named common.Address) (common.Address, error) {
	if named != (common.Address{}) && named != signer {
		return common.Address{}, fmt.Errorf("%w: request signed by %s, not %s", match.ErrUnauthorized, signer.Hex(), named.Hex())
	}
	return signer, nil
}

// caller recovers the acting address of a signed request.
func caller(w http.ResponseWriter, r *http.Request, v any, from func() common.Address) (common.Address, error) {
	signer, err := signed(w, r, v)
	if err != nil {
		return common.Address{}, err
	}
	return claimed(signer, from())
}

func matchID(r *http.Request) (common.Hash, error) {
	raw := r.PathValue("id")
	b, err := hexutil.Decode(raw)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid match id %q", raw)
	}
	return common.BytesToHash(b), nil
}

// === matches ===

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req codec.CreateMatchReq
	owner, err := caller(w, r, &req, func() common.Address { return req.Owner })
	if err != nil {
		writeErr(w, err)
		return
	}
	req.Owner = owner
	id, err := s.lobby.Create(req)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"matches": s.lobby.IDs()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := matchID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	snap, err := s.lobby.Snapshot(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var events []match.Event
	s.read(w, r, func(m *match.Match) error {
		events = m.Events()
		return nil
	}, func() any { return map[string]any{"events": events} })
}

// read runs fn under the lobby lock and writes out() on success.
func (s *Server) read(w http.ResponseWriter, r *http.Request, fn func(*match.Match) error, out func() any) {
	id, err := matchID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := s.lobby.Do(id, fn); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out())
}

// act runs a state-changing fn and answers with the resulting snapshot.
func (s *Server) act(w http.ResponseWriter, r *http.Request, fn func(*match.Match) error) {
	id, err := matchID(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	var snap match.Snapshot
	err = s.lobby.Do(id, func(m *match.Match) error {
		if err := fn(m); err != nil {
			return err
		}
		snap = m.Snapshot()
		return nil
	})
	if err != nil {
		s.log.Debug().Str("path", r.URL.Path).Err(err).Msg("action rejected")
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// === administration ===

func (s *Server) handleSetAllocation(w http.ResponseWriter, r *http.Request) {
	role, err := game.ParseRole(r.PathValue("role"))
	if err != nil {
		writeErr(w, err)
		return
	}
	var req codec.AllocationReq
	from, err := caller(w, r, &req, func() common.Address { return req.From })
	if err != nil {
		writeErr(w, err)
		return
	}
	s.act(w, r, func(m *match.Match) error {
		return m.SetAllocation(from, role, req.Entries)
	})
}

func (s *Server) handleGetAllocation(w http.ResponseWriter, r *http.Request) {
	role, err := game.ParseRole(r.PathValue("role"))
	if err != nil {
		writeErr(w, err)
		return
	}
	token, err := strconv.ParseUint(r.PathValue("token"), 10, 64)
	if err != nil {
		writeErr(w, fmt.Errorf("invalid token id %q", r.PathValue("token")))
		return
	}
	var entry game.AllocationEntry
	s.read(w, r, func(m *match.Match) error {
		entry = m.PlayerAllocations(role, game.TokenVariant(token))
		return nil
	}, func() any { return entry })
}

func (s *Server) handleVerifierPut(w http.ResponseWriter, r *http.Request) {
	kind, err := zk.ParseCircuitKind(r.PathValue("kind"))
	if err != nil {
		writeErr(w, err)
		return
	}
	var req codec.VerifierReq
	from, err := caller(w, r, &req, func() common.Address { return req.From })
	if err != nil {
		writeErr(w, err)
		return
	}
	if strings.TrimSpace(req.VKB64) == "" {
		writeErr(w, errors.New("vkB64 required"))
		return
	}
	rawVK, err := base64.StdEncoding.DecodeString(req.VKB64)
	if err != nil || len(rawVK) == 0 {
		writeErr(w, errors.New("invalid vkB64"))
		return
	}
	v, err := zk.ReadGroth16Verifier(kind, bytes.NewReader(rawVK))
	if err != nil {
		writeErr(w, err)
		return
	}
	s.act(w, r, func(m *match.Match) error {
		return m.ChangeVerifier(from, kind, v)
	})
}

// === player actions ===

func (s *Server) handlePlace(w http.ResponseWriter, r *http.Request) {
	var req codec.PlacementReq
	from, err := caller(w, r, &req, func() common.Address { return req.From })
	if err != nil {
		writeErr(w, err)
		return
	}
	pieces := make([]game.PlacedPiece, 0, len(req.Pieces))
	for _, p := range req.Pieces {
		pieces = append(pieces, p.Placed())
	}
	s.act(w, r, func(m *match.Match) error {
		return m.PlacePieces(from, pieces)
	})
}

type proofFn func(m *match.Match, caller common.Address, proof []byte, signals []*big.Int) error

func (s *Server) proofAction(fn proofFn) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req codec.ProofPayload
		from, err := caller(w, r, &req, func() common.Address { return req.From })
		if err != nil {
			writeErr(w, err)
			return
		}
		s.act(w, r, func(m *match.Match) error {
			return fn(m, from, req.Proof, req.Public.Big())
		})
	}
}

func (s *Server) handleTurnOver(w http.ResponseWriter, r *http.Request) {
	var req codec.TurnReq
	from, err := caller(w, r, &req, func() common.Address { return req.From })
	if err != nil {
		writeErr(w, err)
		return
	}
	s.act(w, r, func(m *match.Match) error {
		return m.MarkTurnAsOver(from)
	})
}

func (s *Server) handleCaptured(w http.ResponseWriter, r *http.Request) {
	role, err := game.ParseRole(r.PathValue("role"))
	if err != nil {
		writeErr(w, err)
		return
	}
	piece, err := strconv.ParseUint(r.PathValue("piece"), 10, 32)
	if err != nil {
		writeErr(w, fmt.Errorf("invalid piece id %q", r.PathValue("piece")))
		return
	}
	var captured bool
	s.read(w, r, func(m *match.Match) error {
		captured = m.CapturedPieces(role, game.PieceID(piece))
		return nil
	}, func() any { return map[string]any{"captured": captured} })
}

// === CORS ===

func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// In dev we allow any origin. For production, set this to the specific origin(s).
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+SignatureHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// === access log ===

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func WithLogging(log zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("http")
	})
}
