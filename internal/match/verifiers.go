package match

import (
	"github.com/ethereum/go-ethereum/common"

	"blitz-zk/internal/zk"
)

// ChangeVerifier swaps the verifier for one circuit. Owner or game manager
// only, and only before the game starts.
func (m *Match) ChangeVerifier(caller common.Address, kind zk.CircuitKind, v zk.Verifier) error {
	if !m.isAdmin(caller) {
		return m.rejected("changeVerifier", caller, reject(ErrUnauthorized, reasonNotAdmin))
	}
	if !kind.Valid() {
		return m.rejected("changeVerifier", caller, reject(ErrProofInvalid, "unknown circuit %d", uint8(kind)))
	}
	if v == nil {
		return m.rejected("changeVerifier", caller, reject(ErrProofInvalid, "%s verifier can not be nil", kind))
	}
	if m.started {
		return m.rejected("changeVerifier", caller, reject(ErrPhaseViolation, "verifiers are fixed once the game has started"))
	}
	m.verifiers[kind] = v
	m.emitVerifierChanged(kind)
	return nil
}

func (m *Match) ChangePieceMotionVerifier(caller common.Address, v zk.Verifier) error {
	return m.ChangeVerifier(caller, zk.PieceMotion, v)
}

func (m *Match) ChangePlayerVisionVerifier(caller common.Address, v zk.Verifier) error {
	return m.ChangeVerifier(caller, zk.PlayerVision, v)
}

func (m *Match) ChangeRevealBoardPositionVerifier(caller common.Address, v zk.Verifier) error {
	return m.ChangeVerifier(caller, zk.RevealBoardPosition, v)
}
