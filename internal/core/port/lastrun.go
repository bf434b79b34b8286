package port

import (
	"context"
	"time"
)

// LastRunRepositoryPort определяет контракт для хранения и получения
// времени последнего успешного запуска синхронизации (отдельно для
// инкрементальной и полной).
type LastRunRepositoryPort interface {
	GetLastRunTimestamp(ctx context.Context, syncName string) (time.Time, error)
	SetLastRunTimestamp(ctx context.Context, syncName string, t time.Time) error
}