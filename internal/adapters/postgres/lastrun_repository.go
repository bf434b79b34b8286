package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLastRunRepository реализует LastRunRepositoryPort для PostgreSQL.
// Время последнего успешного запуска хранится отдельно для
// инкрементальной и полной синхронизации.
type PostgresLastRunRepository struct {
	dbPool *pgxpool.Pool
}

// NewPostgresLastRunRepository создает новый экземпляр PostgresLastRunRepository.
func NewPostgresLastRunRepository(dbPool *pgxpool.Pool) (*PostgresLastRunRepository, error) {
	if dbPool == nil {
		return nil, fmt.Errorf("postgres last run repository: dbPool cannot be nil")
	}
	return &PostgresLastRunRepository{dbPool: dbPool}, nil
}

// GetLastRunTimestamp извлекает время последнего успешного запуска.
// Отсутствие записи не ошибка: синхронизация еще ни разу не
// выполнялась, возвращается нулевое время.
func (r *PostgresLastRunRepository) GetLastRunTimestamp(ctx context.Context, syncName string) (time.Time, error) {
	var lastRun time.Time
	query := `SELECT last_run_timestamp FROM sync_runs WHERE sync_name = $1`

	err := r.dbPool.QueryRow(ctx, query, syncName).Scan(&lastRun)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Printf("PostgresLastRunRepo: No last run timestamp found for sync '%s'.", syncName)
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("error querying last run for sync '%s': %w", syncName, err)
	}
	return lastRun, nil
}

// SetLastRunTimestamp устанавливает или обновляет время последнего запуска.
func (r *PostgresLastRunRepository) SetLastRunTimestamp(ctx context.Context, syncName string, t time.Time) error {
	query := `
        INSERT INTO sync_runs (sync_name, last_run_timestamp)
        VALUES ($1, $2)
        ON CONFLICT (sync_name) DO UPDATE SET last_run_timestamp = EXCLUDED.last_run_timestamp
    `
	_, err := r.dbPool.Exec(ctx, query, syncName, t)
	if err != nil {
		return fmt.Errorf("error setting last run for sync '%s': %w", syncName, err)
	}

	log.Printf("PostgresLastRunRepo: Set last run timestamp for sync '%s' to %s\n", syncName, t.Format(time.RFC3339))
	return nil
}

// CREATE TABLE IF NOT EXISTS sync_runs (
//     sync_name VARCHAR(255) PRIMARY KEY,
//     last_run_timestamp TIMESTAMPTZ NOT NULL
// );
