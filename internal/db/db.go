package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/contactsbook/apiserver/config"
	_ "github.com/lib/pq"
)

const (
	postgresDriver = "postgres"
	pingTimeout    = 5 * time.Second
	connMaxIdle    = 2 * time.Minute
	connMaxLife    = 30 * time.Minute
)

// PostgresURL builds the connection URL for the configured database.
func PostgresURL(cfg config.Config) string {
	sslmode := "disable"
	if cfg.Database.UseSSL {
		sslmode = "require"
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.Database.Host, cfg.Database.Port),
		User:   url.UserPassword(cfg.Database.User, cfg.Database.Password),
		Path:   cfg.Database.DBName,
	}

	q := u.Query()
	q.Set("sslmode", sslmode)
	u.RawQuery = q.Encode()

	return u.String()
}

// Open connects to PostgreSQL and verifies the connection with a ping.
// Pool limits of zero or less keep the database/sql defaults.
func Open(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	db, err := sql.Open(postgresDriver, PostgresURL(cfg))
	if err != nil {
		return nil, err
	}

	db.SetConnMaxIdleTime(connMaxIdle)
	db.SetConnMaxLifetime(connMaxLife)
	if n := cfg.Database.MaxIdleConns; n > 0 {
		db.SetMaxIdleConns(n)
	}
	if n := cfg.Database.MaxOpenConns; n > 0 {
		db.SetMaxOpenConns(n)
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres %s:%d: %w", cfg.Database.Host, cfg.Database.Port, err)
	}

	return db, nil
}
