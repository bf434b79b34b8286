package port

import (
	"context"
	"crm-sync/internal/core/domain"
)

// TranslationQueuePort определяет контракт для отправки записи в
// очередь на фоновый перевод (fire-and-forget со стороны синхронизации).
type TranslationQueuePort interface {
	Enqueue(ctx context.Context, rec domain.ListingRecord) error
}
