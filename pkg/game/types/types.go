package types

// Phase is the global state of a game. Only the host writes it.
type Phase string

const (
	PhaseWaiting  Phase = "WAITING"
	PhasePickWord Phase = "PICK_WORD"
	PhaseDrawing  Phase = "DRAWING"
	PhaseGuessing Phase = "GUESSING"
	PhaseFinished Phase = "FINISHED"
	PhaseError    Phase = "ERROR"
)

func (p Phase) String() string {
	return string(p)
}

func (p Phase) Valid() bool {
	switch p {
	case PhaseWaiting, PhasePickWord, PhaseDrawing, PhaseGuessing, PhaseFinished, PhaseError:
		return true
	}
	return false
}

// IsActive reports whether rounds are being played.
func (p Phase) IsActive() bool {
	return p == PhasePickWord || p == PhaseDrawing || p == PhaseGuessing
}

// IsTerminal reports whether the phase can never change again.
func (p Phase) IsTerminal() bool {
	return p == PhaseFinished || p == PhaseError
}

// RequiresWord reports whether players type a word during the phase.
func (p Phase) RequiresWord() bool {
	return p == PhasePickWord || p == PhaseGuessing
}

// Next returns the phase that follows a completed round.
func (p Phase) Next() Phase {
	if p == PhaseDrawing {
		return PhaseGuessing
	}
	return PhaseDrawing
}

// OpeningPhase returns the first round's phase: with an even number of
// players every chain must end on a guess, so drawing starts right away.
func OpeningPhase(maxPlayers int) Phase {
	if maxPlayers%2 == 0 {
		return PhaseDrawing
	}
	return PhasePickWord
}
