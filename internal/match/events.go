package match

import (
	"strconv"

	"blitz-zk/internal/game"
	"blitz-zk/internal/zk"
)

// Event is one entry of a match's append-only log.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

func (m *Match) emit(eventType string, attributes map[string]string) {
	m.events = append(m.events, Event{Type: eventType, Attributes: attributes})
	ev := m.log.Info().Str("event", eventType)
	for k, v := range attributes {
		ev = ev.Str(k, v)
	}
	ev.Msg("match event")
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

func (m *Match) emitAllocationSet(role game.Role, entries int) {
	m.emit("allocationSet", map[string]string{
		"role":    role.String(),
		"entries": u64(uint64(entries)),
	})
}

func (m *Match) emitVerifierChanged(kind zk.CircuitKind) {
	m.emit("verifierChanged", map[string]string{"circuit": kind.String()})
}

func (m *Match) emitPiecesPlaced(role game.Role, n int) {
	m.emit("piecesPlaced", map[string]string{
		"role":   role.String(),
		"by":     m.players[role].Hex(),
		"pieces": u64(uint64(n)),
	})
}

func (m *Match) emitGameStarted() {
	m.emit("gameStarted", map[string]string{
		"white": m.players[game.White].Hex(),
		"black": m.players[game.Black].Hex(),
	})
}

func (m *Match) emitMoveMade(role game.Role, id game.PieceID) {
	m.emit("moveMade", map[string]string{
		"turn":  u64(uint64(m.turn.number)),
		"role":  role.String(),
		"piece": u64(uint64(id)),
	})
}

func (m *Match) emitVisionReported(role game.Role, visible int) {
	m.emit("visionReported", map[string]string{
		"turn":    u64(uint64(m.turn.number)),
		"role":    role.String(),
		"visible": u64(uint64(visible)),
	})
}

func (m *Match) emitPositionsRevealed(role game.Role, n int) {
	m.emit("positionsRevealed", map[string]string{
		"turn":   u64(uint64(m.turn.number)),
		"role":   role.String(),
		"pieces": u64(uint64(n)),
	})
}

func (m *Match) emitPieceCaptured(c Capture) {
	m.emit("pieceCaptured", map[string]string{
		"turn":   u64(uint64(m.turn.number)),
		"role":   c.Role.String(),
		"piece":  u64(uint64(c.ID)),
		"class":  c.Class.String(),
		"square": c.At.String(),
	})
}

func (m *Match) emitTurnOver(next game.Role) {
	m.emit("turnOver", map[string]string{
		"turn": u64(uint64(m.turn.number)),
		"next": next.String(),
	})
}

func (m *Match) emitGameWon(winner game.Role) {
	m.emit("gameWon", map[string]string{
		"winner":  winner.String(),
		"address": m.players[winner].Hex(),
	})
}
