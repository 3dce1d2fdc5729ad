package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Client wraps the PostgreSQL connection pool backing the relational
// collaborators: idempotency records, notifications, the outbox,
// job runs, and composer drafts (idempotency.go, notifications.go,
// outbox.go, jobruns.go, drafts.go).
type Client struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewClient creates a PostgreSQL client from connection parameters.
func NewClient(ctx context.Context, host string, port int, database, user, password, sslMode string) (*Client, error) {
	if host == "" || database == "" || user == "" {
		return nil, fmt.Errorf("postgres credentials missing: host=%s, db=%s, user=%s", host, database, user)
	}

	connString := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		host, port, database, user, password, sslMode,
	)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres at %s:%d: %w", host, port, err)
	}

	logger := slog.Default().With("component", "postgres")
	logger.Info("postgres client connected", "host", host, "port", port, "database", database)

	return &Client{
		pool:   pool,
		logger: logger,
	}, nil
}

// Pool exposes the underlying pool for collaborators in this package.
func (c *Client) Pool() *pgxpool.Pool {
	return c.pool
}

// Close closes the PostgreSQL connection pool.
func (c *Client) Close() {
	c.pool.Close()
	c.logger.Info("postgres client closed")
}

// HealthCheck verifies PostgreSQL connectivity.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres health check failed: %w", err)
	}
	return nil
}
