package match

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"blitz-zk/internal/commitment"
	"blitz-zk/internal/game"
	"blitz-zk/internal/zk"
)

type Phase uint8

const (
	Setup Phase = iota
	Placement
	AwaitingMove
	AwaitingVision
	AwaitingReveal
	TurnComplete
	GameOver
)

var phaseNames = [...]string{"setup", "placement", "awaiting-move", "awaiting-vision", "awaiting-reveal", "turn-complete", "game-over"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}

// turnState is everything recorded during one move/vision/reveal cycle.
type turnState struct {
	number     uint32
	mover      game.Role
	moved      bool
	movedPiece game.PieceID
	vision     [3]*game.Vision
	revealed   [3]bool
	reveals    [3][]game.RevealedPiece
}

func newTurn(n uint32, mover game.Role) turnState {
	return turnState{number: n, mover: mover}
}

func (t *turnState) bothVision() bool {
	return t.vision[game.White] != nil && t.vision[game.Black] != nil
}

func (t *turnState) bothRevealed() bool {
	return t.revealed[game.White] && t.revealed[game.Black]
}

// landing is the mover's reveal of the piece moved this turn, if disclosed.
func (t *turnState) landing() (game.RevealedPiece, bool) {
	for _, p := range t.reveals[t.mover] {
		if p.ID == t.movedPiece {
			return p, true
		}
	}
	return game.RevealedPiece{}, false
}

// Phase is derived from the match flags.
func (m *Match) Phase() Phase {
	switch {
	case m.over:
		return GameOver
	case !m.started && !m.placed[game.White] && !m.placed[game.Black]:
		return Setup
	case !m.started:
		return Placement
	case !m.turn.moved:
		return AwaitingMove
	case !m.turn.bothVision():
		return AwaitingVision
	case !m.turn.bothRevealed():
		return AwaitingReveal
	}
	return TurnComplete
}

// inGame resolves the caller to a role and checks the game is running.
func (m *Match) inGame(caller common.Address) (game.Role, error) {
	role := m.RoleOf(caller)
	if role == game.NoRole {
		return role, reject(ErrUnauthorized, reasonNotPlayer)
	}
	if m.over {
		return role, reject(ErrPhaseViolation, reasonGameOver)
	}
	if !m.started {
		return role, reject(ErrPhaseViolation, reasonNotStarted)
	}
	return role, nil
}

func (m *Match) verify(kind zk.CircuitKind, proof []byte, signals []*big.Int) error {
	v := m.verifiers[kind]
	if v == nil {
		return reject(ErrProofInvalid, "%s verifier not configured", kind)
	}
	ok, err := v.Verify(kind, proof, signals)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrProofInvalid, kind, err)
	}
	if !ok {
		return reject(ErrProofInvalid, "%s proof rejected", kind)
	}
	return nil
}

func malformed(err error) error {
	return fmt.Errorf("%w: %w", ErrMalformedSignals, err)
}

// MakeMove advances one of the active mover's pieces to a new hidden square.
// signals: [prevCommitment, pieceId, newCommitment].
func (m *Match) MakeMove(caller common.Address, proof []byte, signals []*big.Int) error {
	role, err := m.inGame(caller)
	if err != nil {
		return m.rejected("makeMove", caller, err)
	}
	if role != m.turn.mover {
		return m.rejected("makeMove", caller, fmt.Errorf("%w: %s is to move", ErrNotYourTurn, m.turn.mover))
	}
	if m.turn.moved {
		return m.rejected("makeMove", caller, reject(ErrPhaseViolation, "%s already moved this turn", role))
	}
	sig, err := zk.DecodeMotion(signals)
	if err != nil {
		return m.rejected("makeMove", caller, malformed(err))
	}
	p, ok := m.pieces[pieceKey{role, sig.PieceID}]
	if !ok || p.Dead {
		return m.rejected("makeMove", caller, reject(ErrUnknownPiece, "%s has no live piece %d", role, sig.PieceID))
	}
	if p.Commitment.Cmp(sig.PrevCommitment) != 0 {
		return m.rejected("makeMove", caller, reject(ErrCommitmentMismatch, "piece %d is not at the committed start square", p.ID))
	}
	if !commitment.Valid(sig.NewCommitment) {
		return m.rejected("makeMove", caller, reject(ErrCommitmentMismatch, "piece %d target commitment is not a field element", p.ID))
	}
	if sig.NewCommitment.Cmp(sig.PrevCommitment) == 0 {
		return m.rejected("makeMove", caller, reject(ErrCommitmentMismatch, "piece %d does not change square", p.ID))
	}
	if err := m.verify(zk.PieceMotion, proof, signals); err != nil {
		return m.rejected("makeMove", caller, err)
	}

	p.Commitment = sig.NewCommitment
	p.Coords = nil
	m.turn.moved = true
	m.turn.movedPiece = p.ID
	m.emitMoveMade(role, p.ID)
	return nil
}

// ReportBoardVision records which squares the caller observes. Both players
// report once per turn, after the move.
// signals: bitmap[64] indexed x*8+y, then the roster root of the caller's
// live commitments.
func (m *Match) ReportBoardVision(caller common.Address, proof []byte, signals []*big.Int) error {
	role, err := m.inGame(caller)
	if err != nil {
		return m.rejected("reportBoardVision", caller, err)
	}
	if !m.turn.moved {
		return m.rejected("reportBoardVision", caller, reject(ErrPhaseViolation, reasonNoMoveYet))
	}
	if m.turn.vision[role] != nil {
		return m.rejected("reportBoardVision", caller, reject(ErrPhaseViolation, "%s already reported vision this turn", role))
	}
	sig, err := zk.DecodeVision(signals)
	if err != nil {
		return m.rejected("reportBoardVision", caller, malformed(err))
	}
	root, err := m.rosterRoot(role)
	if err != nil {
		return m.rejected("reportBoardVision", caller, err)
	}
	if root.Cmp(sig.RosterRoot) != 0 {
		return m.rejected("reportBoardVision", caller, reject(ErrCommitmentMismatch, "vision is not computed over %s's current pieces", role))
	}
	if err := m.verify(zk.PlayerVision, proof, signals); err != nil {
		return m.rejected("reportBoardVision", caller, err)
	}

	v := sig.Vision
	m.turn.vision[role] = &v
	visible := 0
	for _, seen := range v {
		if seen {
			visible++
		}
	}
	m.emitVisionReported(role, visible)
	return nil
}

func (m *Match) rosterRoot(role game.Role) (*big.Int, error) {
	live := m.livePieces(role)
	entries := make([]commitment.Entry, 0, len(live))
	for _, p := range live {
		entries = append(entries, commitment.Entry{ID: p.ID, Commitment: p.Commitment})
	}
	return commitment.RosterRoot(entries)
}

// ReportPositions discloses the caller's pieces the opponent can see. Both
// players reveal once per turn, after both vision reports.
// signals: ids[16] ++ (x,y)[16] ++ classes[16] ++ rosterRoot ++ observedVision,
// id 0 marks an empty slot.
func (m *Match) ReportPositions(caller common.Address, proof []byte, signals []*big.Int) error {
	role, err := m.inGame(caller)
	if err != nil {
		return m.rejected("reportPositions", caller, err)
	}
	if !m.turn.moved || !m.turn.bothVision() {
		return m.rejected("reportPositions", caller, reject(ErrPhaseViolation, reasonNoMoveYet))
	}
	if m.turn.revealed[role] {
		return m.rejected("reportPositions", caller, reject(ErrPhaseViolation, "%s already revealed positions this turn", role))
	}
	sig, err := zk.DecodeReveal(signals)
	if err != nil {
		return m.rejected("reportPositions", caller, malformed(err))
	}
	root, err := m.rosterRoot(role)
	if err != nil {
		return m.rejected("reportPositions", caller, err)
	}
	if sig.RosterRoot.Cmp(root) != 0 {
		return m.rejected("reportPositions", caller, reject(ErrCommitmentMismatch, "reveal is not over %s's live roster", role))
	}
	if sig.Observed != *m.turn.vision[role.Opponent()] {
		return m.rejected("reportPositions", caller, reject(ErrMalformedSignals, "reveal does not answer %s's vision report", role.Opponent()))
	}
	if err := m.checkReveal(role, sig.Pieces); err != nil {
		return m.rejected("reportPositions", caller, err)
	}
	if err := m.verify(zk.RevealBoardPosition, proof, signals); err != nil {
		return m.rejected("reportPositions", caller, err)
	}

	m.turn.revealed[role] = true
	m.turn.reveals[role] = sig.Pieces
	m.emitPositionsRevealed(role, len(sig.Pieces))
	return nil
}

func (m *Match) checkReveal(role game.Role, revealed []game.RevealedPiece) error {
	oppVision := m.turn.vision[role.Opponent()]
	seen := make(map[game.PieceID]bool, len(revealed))
	for _, r := range revealed {
		p, ok := m.pieces[pieceKey{role, r.ID}]
		if !ok || p.Dead {
			return reject(ErrUnknownPiece, "%s has no live piece %d", role, r.ID)
		}
		if seen[r.ID] {
			return reject(ErrMalformedSignals, "piece %d revealed twice", r.ID)
		}
		seen[r.ID] = true
		if r.Class != p.Class {
			return reject(ErrCommitmentMismatch, "piece %d revealed as %s, placed as %s", r.ID, r.Class, p.Class)
		}
		if !commitment.Verify(p.Commitment, r.ID, r.Class, r.Coords) {
			return reject(ErrCommitmentMismatch, "piece %d is not at %s", r.ID, r.Coords)
		}
		if !oppVision.Sees(r.Coords) {
			return reject(ErrMalformedSignals, "piece %d revealed on %s which %s can not see", r.ID, r.Coords, role.Opponent())
		}
	}
	return nil
}

// MarkTurnAsOver closes the turn once both players revealed: captures are
// resolved, then either the game ends or the other side moves next.
func (m *Match) MarkTurnAsOver(caller common.Address) error {
	if _, err := m.inGame(caller); err != nil {
		return m.rejected("markTurnAsOver", caller, err)
	}
	if !m.turn.moved || !m.turn.bothRevealed() {
		return m.rejected("markTurnAsOver", caller, reject(ErrPhaseViolation, reasonRevealPending))
	}

	mover := m.turn.mover
	for _, r := range []game.Role{game.White, game.Black} {
		for _, rp := range m.turn.reveals[r] {
			c := rp.Coords
			m.pieces[pieceKey{r, rp.ID}].Coords = &c
		}
	}
	// an undisclosed moved piece captures nothing
	var kingTaken bool
	if landed, ok := m.turn.landing(); ok {
		kingTaken = m.applyCaptures(ResolveCaptures(mover, landed, m.turn.reveals[mover.Opponent()]))
	}

	if kingTaken {
		m.over = true
		m.winner = mover
		m.emitGameWon(mover)
		m.log.Info().Str("winner", mover.String()).Uint32("turn", m.turn.number).Msg("game over")
		return nil
	}

	next := mover.Opponent()
	m.emitTurnOver(next)
	m.turn = newTurn(m.turn.number+1, next)
	return nil
}
