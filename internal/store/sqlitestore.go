package store

import (
	"database/sql"
	"errors"
	"time"
)

// SQLiteStore keeps snapshots in the workspace database, for hosts that
// capture through the DB instead of the filesystem. It shares the Store
// contract with FileStore.
type SQLiteStore struct {
	DB  *sql.DB
	Now func() time.Time
}

// NewSQLiteStore wraps an already-migrated database handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{DB: db, Now: time.Now}
}

func (s *SQLiteStore) Exists(key string) (bool, error) {
	var one int
	err := s.DB.QueryRow(`SELECT 1 FROM snapshots WHERE identity = ?`, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) SizeOf(key string) (int64, error) {
	var size int64
	err := s.DB.QueryRow(`SELECT length(payload) FROM snapshots WHERE identity = ?`, key).Scan(&size)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return size, nil
}

func (s *SQLiteStore) Read(key string) ([]byte, error) {
	var payload []byte
	err := s.DB.QueryRow(`SELECT payload FROM snapshots WHERE identity = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (s *SQLiteStore) Put(key string, data []byte) error {
	now := s.Now().UTC().Format(time.RFC3339)
	_, err := s.DB.Exec(`INSERT INTO snapshots(identity,payload,created_at) VALUES (?,?,?)
		ON CONFLICT(identity) DO UPDATE SET payload=excluded.payload, created_at=excluded.created_at`,
		key, data, now)
	return err
}

func (s *SQLiteStore) Delete(key string) error {
	_, err := s.DB.Exec(`DELETE FROM snapshots WHERE identity = ?`, key)
	return err
}

// List returns identities with a stored snapshot, sorted.
func (s *SQLiteStore) List() ([]string, error) {
	rows, err := s.DB.Query(`SELECT identity FROM snapshots ORDER BY identity`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
