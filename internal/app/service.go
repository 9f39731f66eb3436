package app

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/sha3"

	"blitz-zk/internal/codec"
	"blitz-zk/internal/commitment"
	"blitz-zk/internal/game"
	"blitz-zk/internal/match"
	"blitz-zk/internal/zk"
)

var ErrNoMatch = errors.New("no such match")

type Options struct {
	// KeysDir holds the piece-motion keys; they are generated when missing.
	KeysDir string
	// Optional verifying keys for the externally compiled circuits.
	VisionVKPath string
	RevealVKPath string

	Logger zerolog.Logger
}

// Lobby owns every match and applies actions one at a time across all of
// them.
type Lobby struct {
	mu       sync.Mutex
	matches  map[common.Hash]*match.Match
	created  []common.Hash
	nonce    uint64
	defaults map[zk.CircuitKind]zk.Verifier
	log      zerolog.Logger
}

func NewLobby(opts Options) (*Lobby, error) {
	l := &Lobby{
		matches:  make(map[common.Hash]*match.Match),
		defaults: make(map[zk.CircuitKind]zk.Verifier),
		log:      opts.Logger.With().Str("module", "lobby").Logger(),
	}
	if opts.KeysDir != "" {
		if err := zk.EnsureKeys(opts.KeysDir, zk.PieceMotion); err != nil {
			return nil, err
		}
		v, err := zk.LoadGroth16Verifier(zk.PieceMotion, zk.VKPath(opts.KeysDir, zk.PieceMotion))
		if err != nil {
			return nil, err
		}
		l.defaults[zk.PieceMotion] = v
	}
	for kind, path := range map[zk.CircuitKind]string{
		zk.PlayerVision:        opts.VisionVKPath,
		zk.RevealBoardPosition: opts.RevealVKPath,
	} {
		if path == "" {
			continue
		}
		v, err := zk.LoadGroth16Verifier(kind, path)
		if err != nil {
			return nil, err
		}
		l.defaults[kind] = v
	}
	for kind := range l.defaults {
		l.log.Info().Str("circuit", kind.String()).Msg("default verifier loaded")
	}
	return l, nil
}

// MatchID is keccak256(owner || white || black || nonce).
func MatchID(owner, white, black common.Address, nonce uint64) common.Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write(owner.Bytes())
	h.Write(white.Bytes())
	h.Write(black.Bytes())
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	h.Write(n[:])
	return common.BytesToHash(h.Sum(nil))
}

func (l *Lobby) Create(req codec.CreateMatchReq) (common.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := MatchID(req.Owner, req.White, req.Black, l.nonce)
	verifiers := make(map[zk.CircuitKind]zk.Verifier, len(l.defaults))
	for k, v := range l.defaults {
		verifiers[k] = v
	}
	m, err := match.New(match.Config{
		ID:        id,
		Owner:     req.Owner,
		Manager:   req.Manager,
		White:     req.White,
		Black:     req.Black,
		Verifiers: verifiers,
		Logger:    l.log,
	})
	if err != nil {
		return common.Hash{}, err
	}
	l.nonce++
	l.matches[id] = m
	l.created = append(l.created, id)
	l.log.Info().Str("match", id.Hex()).Str("white", req.White.Hex()).Str("black", req.Black.Hex()).Msg("match created")
	return id, nil
}

// Do runs fn against one match while holding the lobby lock.
func (l *Lobby) Do(id common.Hash, fn func(*match.Match) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.matches[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoMatch, id.Hex())
	}
	return fn(m)
}

func (l *Lobby) Snapshot(id common.Hash) (match.Snapshot, error) {
	var s match.Snapshot
	err := l.Do(id, func(m *match.Match) error {
		s = m.Snapshot()
		return nil
	})
	return s, err
}

// IDs lists matches in creation order.
func (l *Lobby) IDs() []common.Hash {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]common.Hash, len(l.created))
	copy(out, l.created)
	return out
}

// --- player-side helpers used by the CLI ---

// InitLayout returns the standard opening for role minted from tokens.
func InitLayout(role game.Role, tokens game.TokenSet) codec.Secret {
	return codec.Secret{Role: role.String(), Layout: game.StandardLayout(role, tokens)}
}

// Commit turns a secret layout into the public placement payload.
func Commit(sec codec.Secret) (*codec.CommitResult, error) {
	if _, err := game.ParseRole(sec.Role); err != nil {
		return nil, err
	}
	if err := sec.Layout.Validate(); err != nil {
		return nil, err
	}
	pieces, err := codec.PiecesFromPlaced(commitment.LayoutCommitments(sec.Layout))
	if err != nil {
		return nil, err
	}
	root, err := commitment.LayoutRosterRoot(sec.Layout)
	if err != nil {
		return nil, err
	}
	rootSig, err := codec.SignalFromBig(root)
	if err != nil {
		return nil, err
	}
	sort.Slice(pieces, func(i, j int) bool { return pieces[i].ID < pieces[j].ID })
	return &codec.CommitResult{Pieces: pieces, RosterRoot: rootSig}, nil
}

// ProveMove proves moving piece id to `to` and advances the secret layout.
func ProveMove(sec *codec.Secret, keysDir string, from common.Address, id game.PieceID, to game.Coord) (*codec.ProofPayload, error) {
	if !to.OnBoard() {
		return nil, fmt.Errorf("target %s is off the board", to)
	}
	p, ok := sec.Layout.Find(id)
	if !ok {
		return nil, fmt.Errorf("no piece %d in layout", id)
	}
	if p.Coords == to {
		return nil, fmt.Errorf("piece %d is already on %s", id, to)
	}
	if err := zk.EnsureKeys(keysDir, zk.PieceMotion); err != nil {
		return nil, err
	}
	proof, sig, err := zk.ProveMotion(keysDir, zk.MotionWitness{PieceID: id, Class: p.Class, From: p.Coords, To: to})
	if err != nil {
		return nil, err
	}
	pub, err := codec.SignalsFromBig(sig.Encode())
	if err != nil {
		return nil, err
	}
	p.Coords = to
	return &codec.ProofPayload{From: from, Proof: proof, Public: pub}, nil
}

// Verify checks a payload against a verifying key file.
func Verify(vkPath string, kind zk.CircuitKind, payload codec.ProofPayload) (bool, error) {
	v, err := zk.LoadGroth16Verifier(kind, vkPath)
	if err != nil {
		return false, err
	}
	return v.Verify(kind, payload.Proof, payload.Public.Big())
}
