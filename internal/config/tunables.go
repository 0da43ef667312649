package config

import "sync/atomic"

// Tunables holds the reloadable settings behind atomic pointers so the
// matchmaker and decay loops always read a consistent snapshot while a
// SIGHUP handler swaps in new values.
type Tunables struct {
	matchmaking atomic.Pointer[MatchmakingSettings]
	decay       atomic.Pointer[DecaySettings]
}

func NewTunables(mm MatchmakingSettings, d DecaySettings) *Tunables {
	t := &Tunables{}
	t.matchmaking.Store(&mm)
	t.decay.Store(&d)
	return t
}

func (t *Tunables) Matchmaking() MatchmakingSettings {
	return *t.matchmaking.Load()
}

func (t *Tunables) Decay() DecaySettings {
	return *t.decay.Load()
}

// Update swaps in new settings. Active sessions and the queue are not
// touched; the next tick picks up the new values.
func (t *Tunables) Update(mm MatchmakingSettings, d DecaySettings) {
	t.matchmaking.Store(&mm)
	t.decay.Store(&d)
}
