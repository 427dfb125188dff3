package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"crudetrack/internal/store"
	"crudetrack/pkg/contracts/domain"
)

const (
	windowLayout  = "2006-01-02"
	createdLayout = "2006-01-02T15:04:05.000000000Z"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveSnapshot stores the table as JSON. An empty ID is filled with a new
// UUID and a zero CreatedAt with the current time.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot *store.Snapshot) error {
	if snapshot == nil || snapshot.Table == nil {
		return fmt.Errorf("sqlite: snapshot table is required")
	}
	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = s.now().UTC()
	}

	payload, err := json.Marshal(snapshot.Table)
	if err != nil {
		return fmt.Errorf("sqlite: encode table: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, created_at, window_from, window_to, row_count, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		snapshot.ID,
		snapshot.CreatedAt.UTC().Format(createdLayout),
		snapshot.From.UTC().Format(windowLayout),
		snapshot.To.UTC().Format(windowLayout),
		snapshot.Table.Len(),
		payload,
	)
	return err
}

func (s *Store) LatestSnapshot(ctx context.Context) (*store.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, window_from, window_to, payload
		FROM snapshots
		ORDER BY created_at DESC, seq DESC
		LIMIT 1
	`)
	return scanSnapshot(row)
}

func (s *Store) GetSnapshot(ctx context.Context, id string) (*store.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, window_from, window_to, payload
		FROM snapshots
		WHERE id = ?
	`, id)
	return scanSnapshot(row)
}

func scanSnapshot(row *sql.Row) (*store.Snapshot, error) {
	var (
		snapshot   store.Snapshot
		createdAt  string
		windowFrom string
		windowTo   string
		payload    []byte
	)
	if err := row.Scan(&snapshot.ID, &createdAt, &windowFrom, &windowTo, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNoSnapshot
		}
		return nil, err
	}

	var err error
	if snapshot.CreatedAt, err = time.Parse(createdLayout, createdAt); err != nil {
		return nil, fmt.Errorf("sqlite: snapshot %s created_at: %w", snapshot.ID, err)
	}
	if snapshot.From, err = time.Parse(windowLayout, windowFrom); err != nil {
		return nil, fmt.Errorf("sqlite: snapshot %s window_from: %w", snapshot.ID, err)
	}
	if snapshot.To, err = time.Parse(windowLayout, windowTo); err != nil {
		return nil, fmt.Errorf("sqlite: snapshot %s window_to: %w", snapshot.ID, err)
	}

	// Numbers stay json.Number, as they come off the wire.
	var table domain.Table
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&table); err != nil {
		return nil, fmt.Errorf("sqlite: decode snapshot %s: %w", snapshot.ID, err)
	}
	snapshot.Table = &table

	return &snapshot, nil
}

func (s *Store) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL,
			window_from TEXT NOT NULL,
			window_to TEXT NOT NULL,
			row_count INTEGER NOT NULL,
			payload BLOB NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS snapshots_created_at ON snapshots (created_at);`,
	}

	for _, statement := range statements {
		if _, err := s.db.Exec(statement); err != nil {
			return err
		}
	}

	return nil
}
