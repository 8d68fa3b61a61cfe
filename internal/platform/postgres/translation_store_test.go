package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopglot/shopglot-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingDriver captures every ExecContext call so tests can assert
// the exact values bound to a query without a live database.
type recordingDriver struct {
	conn *recordingConn
}

func (d *recordingDriver) Open(name string) (driver.Conn, error) {
	return d.conn, nil
}

type recordedExec struct {
	query string
	args  []driver.NamedValue
}

type recordingConn struct {
	mu    sync.Mutex
	execs []recordedExec
}

func (c *recordingConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

func (c *recordingConn) Close() error              { return nil }
func (c *recordingConn) Begin() (driver.Tx, error) { return c, nil }
func (c *recordingConn) Commit() error             { return nil }
func (c *recordingConn) Rollback() error           { return nil }

func (c *recordingConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.execs = append(c.execs, recordedExec{query: query, args: args})
	return driver.RowsAffected(1), nil
}

func (c *recordingConn) recorded() []recordedExec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]recordedExec(nil), c.execs...)
}

var recordingDriverSeq int

func openRecordingDB(t *testing.T) (*sql.DB, *recordingConn) {
	t.Helper()

	conn := &recordingConn{}
	recordingDriverSeq++
	name := fmt.Sprintf("recording-%d", recordingDriverSeq)
	sql.Register(name, &recordingDriver{conn: conn})

	db, err := sql.Open(name, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, conn
}

func TestTranslationStoreUpsertBindsSourceLocaleAsText(t *testing.T) {
	db, conn := openRecordingDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewPostgresTranslationStore(db, logger)

	tr, err := domain.NewTranslation(
		"demo.myshopify.com", "gid://product/1", "de", "title", "Rote Tasse", "")
	require.NoError(t, err)

	require.NoError(t, s.Upsert(context.Background(), tr))

	execs := conn.recorded()
	require.Len(t, execs, 1)
	require.Len(t, execs[0].args, 9)

	// source_locale is $7. The column is NOT NULL, so an absent source
	// locale must arrive as an empty string, never as NULL.
	assert.Equal(t, "", execs[0].args[6].Value)

	withSource, err := domain.NewTranslation(
		"demo.myshopify.com", "gid://product/1", "fr", "title", "Tasse rouge", "en")
	require.NoError(t, err)

	require.NoError(t, s.Upsert(context.Background(), withSource))

	execs = conn.recorded()
	require.Len(t, execs, 2)
	assert.Equal(t, "en", execs[1].args[6].Value)
}
