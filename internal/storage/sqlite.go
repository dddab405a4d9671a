package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"vocab-go/internal/storage/migrations"
	"vocab-go/internal/vocab"
)

// SQLiteStorage keeps every object as one row of a single table. Each write
// is one upsert statement, so replacing an object is atomic.
type SQLiteStorage struct {
	db    *sql.DB
	path  string
	clock vocab.Clock
}

var _ vocab.Storage = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens (or creates) the database at path and migrates it
// to the current schema. path can be ":memory:".
func NewSQLiteStorage(path string, clock vocab.Clock) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite serializes writers anyway, and an in-memory
	// database exists per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStorage{db: db, path: path, clock: clock}, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) Exists(ctx context.Context, path string) (bool, error) {
	p, err := CleanPath(path)
	if err != nil {
		return false, err
	}
	var one int
	err = s.db.QueryRowContext(ctx, "SELECT 1 FROM objects WHERE path = ?", p).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("querying object %s: %w", p, err)
	}
	return true, nil
}

func (s *SQLiteStorage) Read(ctx context.Context, path string) ([]byte, error) {
	p, err := CleanPath(path)
	if err != nil {
		return nil, err
	}
	var data []byte
	err = s.db.QueryRowContext(ctx, "SELECT data FROM objects WHERE path = ?", p).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, vocab.NotFound("read", "object %q not found", path)
		}
		return nil, fmt.Errorf("reading object %s: %w", p, err)
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}

func (s *SQLiteStorage) Write(ctx context.Context, path string, data []byte) error {
	p, err := CleanPath(path)
	if err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO objects (path, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		p, data, s.clock.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("writing object %s: %w", p, err)
	}
	return nil
}

func (s *SQLiteStorage) Delete(ctx context.Context, path string) error {
	p, err := CleanPath(path)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM objects WHERE path = ?", p); err != nil {
		return fmt.Errorf("deleting object %s: %w", p, err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// List derives the children of dir from the stored paths below it.
func (s *SQLiteStorage) List(ctx context.Context, dir string) ([]string, error) {
	d, err := cleanDir(dir)
	if err != nil {
		return nil, err
	}
	prefix := ""
	if d != "" {
		prefix = d + "/"
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT path FROM objects WHERE path LIKE ? ESCAPE '\'`,
		likeEscaper.Replace(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning path: %w", err)
		}
		name, _, _ := strings.Cut(strings.TrimPrefix(p, prefix), "/")
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

func (s *SQLiteStorage) EnsureDir(_ context.Context, dir string) error {
	_, err := cleanDir(dir)
	return err
}

// ValidateSetup pings the database and checks the schema version.
func (s *SQLiteStorage) ValidateSetup(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("object store %s not reachable: %w", s.path, err)
	}
	return migrations.Status(s.db)
}
