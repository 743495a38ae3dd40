package types

import "time"

// PlayerInfo is the shared view of a joined player.
type PlayerInfo struct {
	Name string
	Slot int
}

// LocalPlayer is this client's identity within a game. It is never shared.
type LocalPlayer struct {
	Name string
	// PlayerID is the slot the player joined with; it never changes.
	PlayerID int
	// BlockID is the slot the player works on this round.
	BlockID    int
	RoundStart time.Time
}

// IsHost reports whether the player may write the global phase.
func (p LocalPlayer) IsHost() bool {
	return p.PlayerID == HostSlot
}

// NextBlockID returns the slot the player takes over after this round.
func (p LocalPlayer) NextBlockID(maxPlayers int) int {
	return (p.BlockID + 1) % maxPlayers
}

// HasFinished reports whether rotating once more would give the player its
// own slot back, which closes the cycle.
func (p LocalPlayer) HasFinished(maxPlayers int) bool {
	return p.NextBlockID(maxPlayers) == p.PlayerID
}

// Rotate returns the player moved to its next slot with a fresh round start.
func (p LocalPlayer) Rotate(maxPlayers int, now time.Time) LocalPlayer {
	p.BlockID = p.NextBlockID(maxPlayers)
	p.RoundStart = now
	return p
}

// Remaining returns the visible countdown for a round.
func (p LocalPlayer) Remaining(roundTime time.Duration, now time.Time) time.Duration {
	left := roundTime - now.Sub(p.RoundStart)
	if left < 0 {
		return 0
	}
	return left
}
