package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gearline/internal/db"
	"gearline/internal/migrate"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	s := NewSQLiteStore(conn)
	s.Now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	return s
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)

	exists, err := s.Exists("p1")
	require.NoError(t, err)
	require.False(t, exists)
	_, err = s.SizeOf("p1")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Read("p1")
	require.ErrorIs(t, err, ErrNotFound)

	payload := []byte(`{"items":[{"id":"a","typeId":"t"}]}`)
	require.NoError(t, s.Put("p1", payload))

	size, err := s.SizeOf("p1")
	require.NoError(t, err)
	require.Equal(t, int64(len(payload)), size)

	data, err := s.Read("p1")
	require.NoError(t, err)
	require.Equal(t, payload, data)

	// Upsert replaces in place.
	require.NoError(t, s.Put("p1", []byte("{}")))
	size, err = s.SizeOf("p1")
	require.NoError(t, err)
	require.Equal(t, int64(2), size)

	keys, err := s.List()
	require.NoError(t, err)
	require.Equal(t, []string{"p1"}, keys)

	require.NoError(t, s.Delete("p1"))
	require.NoError(t, s.Delete("p1"))
	exists, err = s.Exists("p1")
	require.NoError(t, err)
	require.False(t, exists)
}
