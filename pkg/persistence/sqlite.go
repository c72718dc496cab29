package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
	namespace  TEXT    NOT NULL,
	key        TEXT    NOT NULL,
	kind       INTEGER NOT NULL,
	text_value TEXT,
	int_value  INTEGER,
	updated_at TEXT    NOT NULL,
	PRIMARY KEY (namespace, key)
);
`

// SQLiteConfig configures a SQLiteStore.
type SQLiteConfig struct {
	// Path is the database file. ":memory:" needs PoolSize 1.
	Path string

	// Namespace defaults to Namespace.
	Namespace string

	// PoolSize defaults to 2: the keypad worker and the remote server are
	// the only concurrent users.
	PoolSize int

	Logger *slog.Logger
}

// SQLiteStore keeps records in a SQLite database. Every Set is its own
// transaction, so Commit has nothing left to do.
type SQLiteStore struct {
	pool      *sqlitex.Pool
	namespace string
	path      string
	logger    *slog.Logger
}

// OpenSQLite opens or creates the database and its schema.
func OpenSQLite(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite store: Path is required")
	}
	if cfg.Namespace == "" {
		cfg.Namespace = Namespace
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 2
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    cfg.PoolSize,
		PrepareConn: prepareConn,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite store: opening %s: %w", cfg.Path, err)
	}

	logger.Info("sqlite store opened", "path", cfg.Path, "namespace", cfg.Namespace)
	return &SQLiteStore{
		pool:      pool,
		namespace: cfg.Namespace,
		path:      cfg.Path,
		logger:    logger,
	}, nil
}

// prepareConn applies pragmas and the schema once per connection.
func prepareConn(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlite store: %s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, sqliteSchema, nil); err != nil {
		return fmt.Errorf("sqlite store: schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) load(ctx context.Context, key string) (record, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return record{}, fmt.Errorf("sqlite store: take: %w", err)
	}
	defer s.pool.Put(conn)

	var (
		r     record
		found bool
	)
	err = sqlitex.Execute(conn,
		`SELECT kind, text_value, int_value FROM records WHERE namespace = ? AND key = ?`,
		&sqlitex.ExecOptions{
			Args: []any{s.namespace, key},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				r.Kind = Kind(stmt.ColumnInt64(0))
				r.Str = stmt.ColumnText(1)
				r.Uint = uint64(stmt.ColumnInt64(2))
				return nil
			},
		})
	if err != nil {
		return record{}, fmt.Errorf("sqlite store: get %s: %w", key, err)
	}
	if !found {
		return record{}, notFound(key)
	}
	return r, nil
}

func (s *SQLiteStore) store(ctx context.Context, key string, r record) (err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("sqlite store: take: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("sqlite store: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	var text, integer any
	switch r.Kind {
	case KindString:
		text = r.Str
	case KindUint:
		integer = int64(r.Uint)
	}

	err = sqlitex.Execute(conn,
		`INSERT INTO records (namespace, key, kind, text_value, int_value, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (namespace, key) DO UPDATE SET
			kind = excluded.kind,
			text_value = excluded.text_value,
			int_value = excluded.int_value,
			updated_at = excluded.updated_at`,
		&sqlitex.ExecOptions{
			Args: []any{s.namespace, key, int64(r.Kind), text, integer, time.Now().UTC().Format(time.RFC3339Nano)},
		})
	if err != nil {
		return fmt.Errorf("sqlite store: set %s: %w", key, err)
	}
	return nil
}

// GetString implements Store.
func (s *SQLiteStore) GetString(ctx context.Context, key string) (string, error) {
	r, err := s.load(ctx, key)
	if err != nil {
		return "", err
	}
	return r.asString(key)
}

// SetString implements Store.
func (s *SQLiteStore) SetString(ctx context.Context, key, value string) error {
	if err := checkString(key, value); err != nil {
		return err
	}
	return s.store(ctx, key, record{Kind: KindString, Str: value})
}

// GetUint implements Store.
func (s *SQLiteStore) GetUint(ctx context.Context, key string) (uint64, error) {
	r, err := s.load(ctx, key)
	if err != nil {
		return 0, err
	}
	return r.asUint(key)
}

// SetUint implements Store. Values above math.MaxInt64 are rejected.
func (s *SQLiteStore) SetUint(ctx context.Context, key string, value uint64) error {
	if value > math.MaxInt64 {
		return fmt.Errorf("sqlite store: %s: value %d out of range", key, value)
	}
	return s.store(ctx, key, record{Kind: KindUint, Uint: value})
}

// Commit implements Store.
func (s *SQLiteStore) Commit(context.Context) error {
	return nil
}

// Close closes all connections.
func (s *SQLiteStore) Close() error {
	if err := s.pool.Close(); err != nil {
		s.logger.Error("sqlite store close error", "path", s.path, "error", err)
		return fmt.Errorf("sqlite store: closing %s: %w", s.path, err)
	}
	s.logger.Info("sqlite store closed", "path", s.path)
	return nil
}

var _ Store = (*SQLiteStore)(nil)
