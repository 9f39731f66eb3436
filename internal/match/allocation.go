package match

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"blitz-zk/internal/game"
)

// ValidateAllocation checks an entitlement set on its own: known classes,
// non-zero counts, unique tokens, at most game.MaxPieces pieces and exactly
// one king.
func ValidateAllocation(entries []game.AllocationEntry) error {
	if len(entries) == 0 {
		return reject(ErrInvalidAllocation, "allocation is empty")
	}
	seen := make(map[game.TokenVariant]bool, len(entries))
	var total, kings uint64
	for _, e := range entries {
		if !e.Class.Valid() {
			return reject(ErrInvalidAllocation, "token %d has unknown class %d", e.Token, e.Class)
		}
		if e.Count == 0 {
			return reject(ErrInvalidAllocation, "token %d has zero count", e.Token)
		}
		if seen[e.Token] {
			return reject(ErrInvalidAllocation, "token %d listed twice", e.Token)
		}
		seen[e.Token] = true
		total += uint64(e.Count)
		if e.Class == game.King {
			kings += uint64(e.Count)
		}
	}
	if total > game.MaxPieces {
		return reject(ErrInvalidAllocation, "%d pieces allocated, at most %d allowed", total, game.MaxPieces)
	}
	if kings != 1 {
		return reject(ErrInvalidAllocation, "allocation must contain exactly one king, has %d", kings)
	}
	return nil
}

// SetAllocation replaces role's allocation. Only the owner or game manager
// may call it, and only until role has placed its pieces.
func (m *Match) SetAllocation(caller common.Address, role game.Role, entries []game.AllocationEntry) error {
	if !m.isAdmin(caller) {
		return m.rejected("setAllocation", caller, reject(ErrUnauthorized, reasonNotAdmin))
	}
	if !role.Valid() {
		return m.rejected("setAllocation", caller, reject(ErrInvalidAllocation, "unknown role %d", role))
	}
	if m.placed[role] {
		return m.rejected("setAllocation", caller, reject(ErrPhaseViolation, "allocation is locked: %s has placed pieces", role))
	}
	if err := ValidateAllocation(entries); err != nil {
		return m.rejected("setAllocation", caller, err)
	}

	for _, tok := range m.allocTokens[role] {
		delete(m.allocations, allocKey{role, tok})
	}
	m.allocTokens[role] = m.allocTokens[role][:0]
	for _, e := range entries {
		m.allocations[allocKey{role, e.Token}] = e
		m.allocTokens[role] = append(m.allocTokens[role], e.Token)
	}
	sort.Slice(m.allocTokens[role], func(i, j int) bool { return m.allocTokens[role][i] < m.allocTokens[role][j] })
	m.emitAllocationSet(role, len(entries))
	return nil
}

// Allocation returns role's entry for token; the zero value means not entitled.
func (m *Match) Allocation(role game.Role, token game.TokenVariant) game.AllocationEntry {
	return m.allocations[allocKey{role, token}]
}

// PlayerAllocations is Allocation under its query name.
func (m *Match) PlayerAllocations(role game.Role, token game.TokenVariant) game.AllocationEntry {
	return m.Allocation(role, token)
}

// Allocations lists role's entries ordered by token.
func (m *Match) Allocations(role game.Role) []game.AllocationEntry {
	if !role.Valid() {
		return nil
	}
	out := make([]game.AllocationEntry, 0, len(m.allocTokens[role]))
	for _, tok := range m.allocTokens[role] {
		out = append(out, m.allocations[allocKey{role, tok}])
	}
	return out
}

func (m *Match) rejected(op string, caller common.Address, err error) error {
	m.log.Debug().Str("op", op).Str("caller", caller.Hex()).Err(err).Msg("action rejected")
	return err
}
