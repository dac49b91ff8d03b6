package gamestore

// GameRecord is one game as the server-of-record shapes it on the wire.
// Turns counts completed half-moves; parity derives whose turn it is.
type GameRecord struct {
	ID    string `json:"id"`
	Turns int    `json:"turns"`
	Board string `json:"board"`
	White string `json:"white"`
	Black string `json:"black"`
	Ended bool   `json:"ended"`
}

// TurnOf returns the participant expected to move next.
func (g GameRecord) TurnOf() string {
	if g.Turns%2 == 0 {
		return g.White
	}
	return g.Black
}

// IsTurn reports whether actor is the expected mover.
func (g GameRecord) IsTurn(actor string) bool {
	return actor != "" && actor == g.TurnOf()
}

// Collection maps game id to its record. Key uniqueness is the only ordering
// guarantee; iteration order is irrelevant for correctness.
type Collection map[string]GameRecord

// Clone returns a shallow copy safe to hand outside the store.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	for id, g := range c {
		out[id] = g
	}
	return out
}

// MergePolicy decides whether incoming may replace current. current is nil
// when no record exists for the id yet.
type MergePolicy func(current *GameRecord, incoming GameRecord) bool

// LastWriteWins accepts every record unconditionally. Ordering is the
// caller's responsibility; a stale write clobbers a fresh one.
func LastWriteWins(_ *GameRecord, _ GameRecord) bool { return true }

// NewerWins accepts a record only when it advances the turn counter, or ends
// the game at the same turn count. Ended never reverts to false.
func NewerWins(current *GameRecord, incoming GameRecord) bool {
	if current == nil {
		return true
	}
	if incoming.Turns > current.Turns {
		return true
	}
	if incoming.Turns == current.Turns {
		if current.Ended {
			return false
		}
		return incoming.Ended || incoming.Board != current.Board
	}
	return false
}

// PolicyByName resolves a config value to a policy, defaulting to
// LastWriteWins for unknown names.
func PolicyByName(name string) MergePolicy {
	if name == "newer" {
		return NewerWins
	}
	return LastWriteWins
}
