package port

import (
	"context"
	"crm-sync/internal/core/domain"
)

// FeedFetcherPort определяет контракт для получения фида CRM.
// Реализация отвечает за HTTP-запрос, разбор конверта и маппинг
// каждой записи в каноническую форму. Ошибка возвращается только
// при недоступности фида или битом конверте; кривые одиночные
// записи деградируют до пустых полей и батч не прерывают.
type FeedFetcherPort interface {
	FetchListings(ctx context.Context, feedURL string, format domain.FeedFormat) ([]domain.ListingRecord, error)
}
