package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/martius-lab/comprl/internal/models"
)

// QueueEntry is one waiting player together with the rating snapshot taken
// when it was enqueued.
type QueueEntry struct {
	Player     *Player
	Rating     models.RatingSnapshot
	EnqueuedAt time.Time
}

// WaitingTime returns how long the entry has been queued.
func (e *QueueEntry) WaitingTime(now time.Time) time.Duration {
	return now.Sub(e.EnqueuedAt)
}

// legalMatch reports whether two entries may be paired: never two players of
// the same account, never two bots.
func (e *QueueEntry) legalMatch(other *QueueEntry) bool {
	if e.Player.Account.ID == other.Player.Account.ID {
		return false
	}
	if e.Player.Account.IsBot() && other.Player.Account.IsBot() {
		return false
	}
	return true
}

// WaitingQueue is the ordered collection of players awaiting a match.
// Insertion order is the tie-break order for match formation.
type WaitingQueue struct {
	mu      sync.Mutex
	entries []*QueueEntry
}

func NewWaitingQueue() *WaitingQueue {
	return &WaitingQueue{}
}

// Enqueue appends a player. A player already in the queue is not added
// twice; the original entry (and its waiting time) is kept.
func (q *WaitingQueue) Enqueue(p *Player, rating models.RatingSnapshot, now time.Time) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, e := range q.entries {
		if e.Player.ID == p.ID {
			return false
		}
	}

	q.entries = append(q.entries, &QueueEntry{
		Player:     p,
		Rating:     rating,
		EnqueuedAt: now,
	})
	return true
}

// Remove drops the entry for a player. Idempotent: removing an absent player
// is a no-op.
func (q *WaitingQueue) Remove(playerID uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, e := range q.entries {
		if e.Player.ID == playerID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Snapshot returns the entries in enqueue order.
func (q *WaitingQueue) Snapshot() []*QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	snapshot := make([]*QueueEntry, len(q.entries))
	copy(snapshot, q.entries)
	return snapshot
}

func (q *WaitingQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
