// Package database wraps the pgx connection pool behind a small Service
// interface so handlers depend on an interface, not a concrete pool owner.
package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"concretrack-backend/internal/config"
)

// Service exposes the database to the rest of the application.
type Service interface {
	// GetPool returns the underlying pgx pool for queries.
	GetPool() *pgxpool.Pool
	// Health reports connectivity and pool statistics.
	Health() map[string]string
	// Close releases all pool connections.
	Close()
}

type service struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL and pings it. Fatal on failure — the
// application cannot run without its data store.
func New(cfg *config.DBConfig) Service {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		log.Fatalf("Unable to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to reach database: %v", err)
	}

	log.Printf("Connected to database %s@%s:%s/%s", cfg.User, cfg.Host, cfg.Port, cfg.Name)
	return &service{pool: pool}
}

func (s *service) GetPool() *pgxpool.Pool {
	return s.pool
}

func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	stats := s.pool.Stat()
	health := map[string]string{
		"total_conns": fmt.Sprintf("%d", stats.TotalConns()),
		"idle_conns":  fmt.Sprintf("%d", stats.IdleConns()),
	}

	if err := s.pool.Ping(ctx); err != nil {
		health["status"] = "down"
		health["error"] = err.Error()
		return health
	}

	health["status"] = "up"
	return health
}

func (s *service) Close() {
	s.pool.Close()
}
