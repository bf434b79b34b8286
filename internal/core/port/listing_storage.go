package port

import (
	"context"
	"crm-sync/internal/core/domain"
)

// ListingStoragePort определяет контракт для сохранения объектов
// недвижимости в постоянное хранилище.
type ListingStoragePort interface {
	// UpsertListing создает или обновляет весь агрегат (запись, локацию,
	// цену, контакт, картинки, метро, характеристики) по external id
	// и возвращает внутренний числовой id записи. Переводные колонки
	// (*_en) этим путем не затрагиваются.
	UpsertListing(ctx context.Context, rec domain.ListingRecord, priceUsd *float64) (int64, error)

	// UpdateSlug записывает пересчитанный slug для записи.
	UpdateSlug(ctx context.Context, listingID int64, slug string) error

	// DeleteMissing удаляет все записи, чьи external id отсутствуют в
	// seenExternalIDs, вместе с принадлежащими им строками. Вызывается
	// только при полной синхронизации. Возвращает число удаленных записей.
	DeleteMissing(ctx context.Context, seenExternalIDs []string) (int64, error)

	// UpdateTranslations выполняет частичное обновление: только переводные
	// колонки, сопоставление по external id. Если записи уже нет,
	// возвращает domain.ErrListingNotFound.
	UpdateTranslations(ctx context.Context, tr domain.ListingTranslation) error
}
