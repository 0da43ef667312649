package service

import (
	"sync"

	"github.com/google/uuid"

	"github.com/martius-lab/comprl/internal/models"
	"github.com/martius-lab/comprl/internal/transport"
)

// Player is the runtime handle for one authenticated connection. Its ID is
// freshly generated per connection and distinct from the account ID; the
// same account may be connected through several players at once.
type Player struct {
	ID      uuid.UUID
	Account *models.Account
	Conn    transport.Conn
}

func NewPlayer(account *models.Account, conn transport.Conn) *Player {
	return &Player{
		ID:      uuid.New(),
		Account: account,
		Conn:    conn,
	}
}

// Connected reports whether the player's transport is still up.
func (p *Player) Connected() bool {
	select {
	case <-p.Conn.Done():
		return false
	default:
		return true
	}
}

// PlayerRegistry tracks all connected, authenticated players. Its size feeds
// the matchmaker's minimum-waiting gate.
type PlayerRegistry struct {
	mu      sync.RWMutex
	players map[uuid.UUID]*Player
}

func NewPlayerRegistry() *PlayerRegistry {
	return &PlayerRegistry{
		players: make(map[uuid.UUID]*Player),
	}
}

func (r *PlayerRegistry) Add(p *Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players[p.ID] = p
}

// Remove is idempotent.
func (r *PlayerRegistry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.players, id)
}

func (r *PlayerRegistry) Get(id uuid.UUID) (*Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[id]
	return p, ok
}

func (r *PlayerRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

// List returns a snapshot of the connected players.
func (r *PlayerRegistry) List() []*Player {
	r.mu.RLock()
	defer r.mu.RUnlock()

	players := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, p)
	}
	return players
}
