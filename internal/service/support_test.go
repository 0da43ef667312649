package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/martius-lab/comprl/internal/models"
	"github.com/martius-lab/comprl/internal/transport"
)

// fakeConn is an in-memory transport.Conn for tests. Inbound messages are
// fed through push; everything sent by the server is captured in sent.
type fakeConn struct {
	inbound chan transport.Envelope

	mu   sync.Mutex
	sent []transport.Envelope

	done      chan struct{}
	closeOnce sync.Once
}

var _ transport.Conn = (*fakeConn)(nil)

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan transport.Envelope, 16),
		done:    make(chan struct{}),
	}
}

func (c *fakeConn) push(msg transport.Envelope) {
	c.inbound <- msg
}

func (c *fakeConn) sentMessages() []transport.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]transport.Envelope, len(c.sent))
	copy(out, c.sent)
	return out
}

func (c *fakeConn) sentTypes() []transport.MessageType {
	var types []transport.MessageType
	for _, msg := range c.sentMessages() {
		types = append(types, msg.Type)
	}
	return types
}

func (c *fakeConn) Send(msg transport.Envelope) error {
	select {
	case <-c.done:
		return transport.ErrDisconnected
	default:
	}

	c.mu.Lock()
	c.sent = append(c.sent, msg)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Receive(ctx context.Context, timeout time.Duration) (transport.Envelope, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-c.inbound:
		return msg, nil
	case <-timer.C:
		return transport.Envelope{}, transport.ErrTimeout
	case <-c.done:
		return transport.Envelope{}, transport.ErrDisconnected
	case <-ctx.Done():
		return transport.Envelope{}, ctx.Err()
	}
}

func (c *fakeConn) Done() <-chan struct{} {
	return c.done
}

func (c *fakeConn) Close(string) {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *fakeConn) RemoteAddr() string {
	return "fake"
}

func newTestPlayer(accountID int64, username string, role models.AccountRole) (*Player, *fakeConn) {
	conn := newFakeConn()
	player := NewPlayer(&models.Account{
		ID:       accountID,
		Username: username,
		Role:     role,
		Mu:       models.DefaultMu,
		Sigma:    models.DefaultSigma,
	}, conn)
	return player, conn
}

// scriptedLogic is a GameLogic whose behavior is fixed up front.
type scriptedLogic struct {
	endAfter  int
	updateErr error
	invalid   map[uuid.UUID]bool
	scores    map[uuid.UUID]float64
	winner    uuid.UUID
	hasWinner bool

	updates int
}

var _ GameLogic = (*scriptedLogic)(nil)

func (l *scriptedLogic) ValidateAction(participant uuid.UUID, _ json.RawMessage) bool {
	return !l.invalid[participant]
}

func (l *scriptedLogic) Update(map[uuid.UUID]json.RawMessage) (bool, error) {
	l.updates++
	if l.updateErr != nil {
		return false, l.updateErr
	}
	return l.updates >= l.endAfter, nil
}

func (l *scriptedLogic) Observation(uuid.UUID) json.RawMessage {
	return json.RawMessage(`{}`)
}

func (l *scriptedLogic) PlayerWon(participant uuid.UUID) bool {
	return l.hasWinner && participant == l.winner
}

func (l *scriptedLogic) Score(participant uuid.UUID) float64 {
	return l.scores[participant]
}

func (l *scriptedLogic) PlayerStats(uuid.UUID) json.RawMessage {
	return json.RawMessage(`{}`)
}

// stubRanks serves a fixed leaderboard.
type stubRanks struct {
	ranks map[int64]int
}

func (s *stubRanks) Ranks(context.Context) (map[int64]int, error) {
	return s.ranks, nil
}

// stubRatings serves default snapshots for any account.
type stubRatings struct{}

func (stubRatings) RatingByID(_ context.Context, accountID int64) (models.RatingSnapshot, error) {
	return models.RatingSnapshot{
		AccountID: accountID,
		Mu:        models.DefaultMu,
		Sigma:     models.DefaultSigma,
	}, nil
}

// recordingLauncher captures formed pairs instead of running games.
type recordingLauncher struct {
	mu        sync.Mutex
	pairs     [][2]*Player
	active    int
	launchErr error
}

func (l *recordingLauncher) Launch(p1, p2 *Player) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.launchErr != nil {
		return l.launchErr
	}
	l.pairs = append(l.pairs, [2]*Player{p1, p2})
	return nil
}

func (l *recordingLauncher) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

func (l *recordingLauncher) launched() [][2]*Player {
	l.mu.Lock()
	defer l.mu.Unlock()
	pairs := make([][2]*Player, len(l.pairs))
	copy(pairs, l.pairs)
	return pairs
}
