package snowflake

import (
	"context"
	"crypto/rsa"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/snowflakedb/gosnowflake"
)

// SessionConfig holds the connection parameters for key-pair authentication.
type SessionConfig struct {
	Account    string
	User       string
	Role       string
	Warehouse  string
	Database   string
	Schema     string
	PrivateKey *rsa.PrivateKey
}

// Session is the process-wide handle to the warehouse. The underlying
// connection is opened lazily and exactly once; every adapter sharing the
// Session reuses it, so authentication happens a single time per process.
type Session struct {
	cfg     SessionConfig
	connect func(ctx context.Context) (*sql.DB, error)

	once sync.Once
	db   *sql.DB
	err  error
}

// NewSession builds a Session. No network activity happens until DB is
// called for the first time.
func NewSession(cfg SessionConfig) *Session {
	s := &Session{cfg: cfg}
	s.connect = s.dial
	return s
}

// DB returns the shared database handle, connecting on first use. A failed
// connect is cached and returned to every caller; the process has to be
// restarted with fixed credentials.
func (s *Session) DB(ctx context.Context) (*sql.DB, error) {
	s.once.Do(func() {
		s.db, s.err = s.connect(ctx)
	})
	return s.db, s.err
}

// Close releases the underlying handle if one was opened.
func (s *Session) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Session) dial(ctx context.Context) (*sql.DB, error) {
	dsn, err := gosnowflake.DSN(&gosnowflake.Config{
		Account:       s.cfg.Account,
		User:          s.cfg.User,
		Role:          s.cfg.Role,
		Warehouse:     s.cfg.Warehouse,
		Database:      s.cfg.Database,
		Schema:        s.cfg.Schema,
		Authenticator: gosnowflake.AuthTypeJwt,
		PrivateKey:    s.cfg.PrivateKey,
	})
	if err != nil {
		return nil, fmt.Errorf("building snowflake DSN: %w", err)
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening snowflake connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("authenticating to snowflake: %w", err)
	}

	return db, nil
}
