package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martius-lab/comprl/internal/models"
	"github.com/martius-lab/comprl/pkg/database"
)

// recorderConn is a database/sql driver that captures executed statements so
// query shape and bind arguments can be checked without a live postgres.
type recorderConn struct {
	mu    sync.Mutex
	query string
	args  []driver.NamedValue
}

type recorderDriver struct {
	conn *recorderConn
}

func (d *recorderDriver) Open(string) (driver.Conn, error) {
	return d.conn, nil
}

func (c *recorderConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

func (c *recorderConn) Close() error {
	return nil
}

func (c *recorderConn) Begin() (driver.Tx, error) {
	return nil, errors.New("transactions not supported")
}

func (c *recorderConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query = query
	c.args = args
	return driver.RowsAffected(1), nil
}

var _ driver.ExecerContext = (*recorderConn)(nil)

func newRecordedRepository(t *testing.T) (*AccountRepository, *recorderConn) {
	t.Helper()

	conn := &recorderConn{}
	name := "recorder-" + t.Name()
	sql.Register(name, &recorderDriver{conn: conn})

	db, err := sql.Open(name, "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewAccountRepository(&database.DB{DB: db}), conn
}

func TestDecayInactiveCountsOnlyCompletedGames(t *testing.T) {
	repo, conn := newRecordedRepository(t)

	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	affected, err := repo.DecayInactive(context.Background(), since, 0.5, models.DefaultSigma)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	// a disconnected or aborted game in the window must not shield an
	// account from decay, so the activity subquery filters by end state
	assert.Contains(t, conn.query, "end_state = $4")
	require.Len(t, conn.args, 4)
	assert.Equal(t, 0.5, conn.args[0].Value)
	assert.Equal(t, models.DefaultSigma, conn.args[1].Value)
	assert.Equal(t, since, conn.args[2].Value)
	assert.Equal(t, string(models.EndStateCompleted), conn.args[3].Value)
}

func TestDecayInactiveCapsAtSigmaCap(t *testing.T) {
	repo, conn := newRecordedRepository(t)

	_, err := repo.DecayInactive(context.Background(), time.Now(), 1.0, models.DefaultSigma)
	require.NoError(t, err)

	assert.Contains(t, strings.ToUpper(conn.query), "LEAST($2, SIGMA + $1)")
	assert.Contains(t, conn.query, "sigma < $2", "accounts already at the cap are left alone")
}
