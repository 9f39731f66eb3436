// Package match is the coordinator of one fog-of-war game: allocation and
// placement bookkeeping, the per-turn move/vision/reveal cycle, and capture
// resolution.
//
// A Match is not safe for concurrent use. Every action validates completely
// before it mutates anything, so a rejected action leaves the match unchanged.
package match

import (
	"errors"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"blitz-zk/internal/game"
	"blitz-zk/internal/zk"
)

type Config struct {
	ID      common.Hash
	Owner   common.Address
	Manager common.Address
	White   common.Address
	Black   common.Address

	// Verifiers may be left empty and configured later with ChangeVerifier.
	Verifiers map[zk.CircuitKind]zk.Verifier

	Logger zerolog.Logger
}

type pieceKey struct {
	role game.Role
	id   game.PieceID
}

type allocKey struct {
	role  game.Role
	token game.TokenVariant
}

type Match struct {
	id      common.Hash
	owner   common.Address
	manager common.Address
	players [3]common.Address // indexed by game.Role
	log     zerolog.Logger

	allocations map[allocKey]game.AllocationEntry
	allocTokens [3][]game.TokenVariant
	pieces      map[pieceKey]*game.Piece
	placed      [3]bool
	verifiers   [zk.NumCircuits]zk.Verifier

	started bool
	over    bool
	winner  game.Role
	turn    turnState
	events  []Event
}

func New(cfg Config) (*Match, error) {
	zero := common.Address{}
	if cfg.White == zero || cfg.Black == zero {
		return nil, errors.New("both players must have an address")
	}
	if cfg.White == cfg.Black {
		return nil, errors.New("white and black must be different addresses")
	}
	m := &Match{
		id:          cfg.ID,
		owner:       cfg.Owner,
		manager:     cfg.Manager,
		allocations: make(map[allocKey]game.AllocationEntry),
		pieces:      make(map[pieceKey]*game.Piece),
		log:         cfg.Logger.With().Str("module", "match").Str("match", cfg.ID.Hex()).Logger(),
	}
	m.players[game.White] = cfg.White
	m.players[game.Black] = cfg.Black
	for kind, v := range cfg.Verifiers {
		if !kind.Valid() {
			return nil, errors.New("verifier configured for unknown circuit")
		}
		m.verifiers[kind] = v
	}
	return m, nil
}

func (m *Match) ID() common.Hash { return m.id }

// RoleOf maps a caller to its role; anyone but the two players is NoRole.
func (m *Match) RoleOf(caller common.Address) game.Role {
	switch caller {
	case m.players[game.White]:
		return game.White
	case m.players[game.Black]:
		return game.Black
	}
	return game.NoRole
}

func (m *Match) Player(r game.Role) common.Address {
	if !r.Valid() {
		return common.Address{}
	}
	return m.players[r]
}

func (m *Match) isAdmin(caller common.Address) bool {
	if caller == (common.Address{}) {
		return false
	}
	return caller == m.owner || caller == m.manager
}

func (m *Match) IsGameStarted() bool { return m.started }
func (m *Match) IsGameOver() bool    { return m.over }

// Winner is NoRole until a king has been captured.
func (m *Match) Winner() game.Role { return m.winner }

func (m *Match) WinnerAddress() common.Address {
	if m.winner == game.NoRole {
		return common.Address{}
	}
	return m.players[m.winner]
}

func (m *Match) PlayerHasPlacedPieces(r game.Role) bool {
	return r.Valid() && m.placed[r]
}

func (m *Match) CapturedPieces(r game.Role, id game.PieceID) bool {
	p, ok := m.pieces[pieceKey{r, id}]
	return ok && p.Dead
}

// ActiveMover is NoRole before the game starts.
func (m *Match) ActiveMover() game.Role { return m.turn.mover }

// Turn counts from 1 once the game has started.
func (m *Match) Turn() uint32 { return m.turn.number }

// Events returns a copy of the match log; callers may modify it freely.
func (m *Match) Events() []Event {
	out := make([]Event, len(m.events))
	for i, ev := range m.events {
		attrs := make(map[string]string, len(ev.Attributes))
		for k, v := range ev.Attributes {
			attrs[k] = v
		}
		out[i] = Event{Type: ev.Type, Attributes: attrs}
	}
	return out
}

// livePieces returns the role's pieces that are still on the board, by id.
func (m *Match) livePieces(r game.Role) []*game.Piece {
	var out []*game.Piece
	for k, p := range m.pieces {
		if k.role == r && !p.Dead {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Snapshot is the public view of a match.
type Snapshot struct {
	ID          common.Hash     `json:"id"`
	White       common.Address  `json:"white"`
	Black       common.Address  `json:"black"`
	Phase       string          `json:"phase"`
	Turn        uint32          `json:"turn"`
	ActiveMover string          `json:"activeMover,omitempty"`
	Started     bool            `json:"isGameStarted"`
	Over        bool            `json:"isGameOver"`
	Winner      string          `json:"winner,omitempty"`
	Placed      map[string]bool `json:"placed"`

	TurnProgress *TurnProgress `json:"turnProgress,omitempty"`

	Pieces map[string][]game.Piece `json:"pieces"`
}

// TurnProgress reports which submissions the current turn still waits for.
type TurnProgress struct {
	Moved    bool            `json:"moved"`
	Vision   map[string]bool `json:"vision"`
	Revealed map[string]bool `json:"revealed"`
}

func (m *Match) Snapshot() Snapshot {
	s := Snapshot{
		ID:      m.id,
		White:   m.players[game.White],
		Black:   m.players[game.Black],
		Phase:   m.Phase().String(),
		Turn:    m.turn.number,
		Started: m.started,
		Over:    m.over,
		Placed:  map[string]bool{},
		Pieces:  map[string][]game.Piece{},
	}
	if m.turn.mover != game.NoRole {
		s.ActiveMover = m.turn.mover.String()
	}
	if m.winner != game.NoRole {
		s.Winner = m.winner.String()
	}
	for _, r := range []game.Role{game.White, game.Black} {
		s.Placed[r.String()] = m.placed[r]
	}
	if m.started && !m.over {
		tp := &TurnProgress{Moved: m.turn.moved, Vision: map[string]bool{}, Revealed: map[string]bool{}}
		for _, r := range []game.Role{game.White, game.Black} {
			tp.Vision[r.String()] = m.turn.vision[r] != nil
			tp.Revealed[r.String()] = m.turn.revealed[r]
		}
		s.TurnProgress = tp
	}
	for k, p := range m.pieces {
		cp := *p
		s.Pieces[k.role.String()] = append(s.Pieces[k.role.String()], cp)
	}
	for _, ps := range s.Pieces {
		sort.Slice(ps, func(i, j int) bool { return ps[i].ID < ps[j].ID })
	}
	return s
}
