package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

type Clients struct {
	DB    *sqlx.DB
	Redis *redis.Client
}

func NewClients(dbURL, redisAddr string) (*Clients, error) {
	// Connect to PostgreSQL
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: "",
		DB:       0,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Clients{
		DB:    db,
		Redis: redisClient,
	}, nil
}

// CreateTables bootstraps the schema used by the coaching service.
func (c *Clients) CreateTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entitlements (
		account_id TEXT PRIMARY KEY,
		credits INT NOT NULL DEFAULT 0 CHECK (credits >= 0),
		tier TEXT NOT NULL DEFAULT 'free',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		full_name TEXT,
		age INT,
		sex TEXT,
		height_cm DOUBLE PRECISION,
		experience_years DOUBLE PRECISION,
		prs JSONB NOT NULL DEFAULT '{}'::jsonb,
		injuries TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS wods (
		id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
		account_id TEXT NOT NULL,
		image_url TEXT,
		original_text TEXT,
		analysis JSONB,
		result_type TEXT,
		result_value TEXT,
		feeling INT,
		athlete_notes TEXT,
		post_wod_feedback TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_wods_account_created
		ON wods (account_id, created_at DESC);`

	if _, err := c.DB.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	slog.Info("✅ Database schema is ready!")
	return nil
}
