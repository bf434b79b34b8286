package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"crm-sync/internal/constants"
	"crm-sync/internal/core/domain"
	"crm-sync/internal/core/port"
	"crm-sync/pkg/slug"

	"github.com/google/uuid"
)

// SyncFeedUseCase инкапсулирует один прогон синхронизации фида CRM:
// забрать фид, нормализовать цену, апсертнуть каждую запись, пересчитать
// slug и поставить запись в очередь на перевод. При полной синхронизации
// в конце удаляется все, чего в фиде больше нет.
type SyncFeedUseCase struct {
	feedFetcher port.FeedFetcherPort
	storage     port.ListingStoragePort
	currency    port.CurrencyConverterPort
	queue       port.TranslationQueuePort
	lastRunRepo port.LastRunRepositoryPort
}

// NewSyncFeedUseCase создает новый экземпляр use case.
func NewSyncFeedUseCase(
	fetcher port.FeedFetcherPort,
	storage port.ListingStoragePort,
	currency port.CurrencyConverterPort,
	queue port.TranslationQueuePort,
	lastRun port.LastRunRepositoryPort,
) *SyncFeedUseCase {
	return &SyncFeedUseCase{
		feedFetcher: fetcher,
		storage:     storage,
		currency:    currency,
		queue:       queue,
		lastRunRepo: lastRun,
	}
}

// Execute выполняет один прогон синхронизации.
//
// Политика ошибок: недоступный фид или битый конверт - это не авария,
// а пропущенный тик (лог и выход, база не тронута). Ошибка апсерта
// одной записи пропускает только эту запись. Единственная фатальная
// ошибка - отказ удаления при полной синхронизации: это недоступность
// хранилища, а не плохие данные, и ее обязан увидеть вызывающий код.
func (uc *SyncFeedUseCase) Execute(ctx context.Context, feedURL string, format domain.FeedFormat, fullSync bool) error {
	runID := uuid.New().String()
	log.Printf("Use Case: [%s] Starting feed sync (url: %s, format: %s, full: %v)\n", runID, feedURL, format, fullSync)

	records, err := uc.feedFetcher.FetchListings(ctx, feedURL, format)
	if err != nil {
		log.Printf("Use Case: [%s] Feed is unavailable, skipping this run: %v\n", runID, err)
		return nil
	}

	seenIDs := make([]string, 0, len(records))
	processed := 0
	skipped := 0

	for _, rec := range records {
		if rec.ExternalID == "" {
			log.Printf("Use Case: [%s] Record without external id, skipping\n", runID)
			skipped++
			continue
		}
		seenIDs = append(seenIDs, rec.ExternalID)

		if err := uc.processRecord(ctx, rec); err != nil {
			log.Printf("Use Case: [%s] Failed to process record %s: %v. Skipping.\n", runID, rec.ExternalID, err)
			skipped++
			continue
		}
		processed++
	}

	if fullSync {
		deleted, err := uc.storage.DeleteMissing(ctx, seenIDs)
		if err != nil {
			// Отказ удаления - это недоступность хранилища, наружу.
			return fmt.Errorf("use case: [%s] full sync reconciliation failed: %w", runID, err)
		}
		log.Printf("Use Case: [%s] Full sync reconciliation: deleted %d listings\n", runID, deleted)
	}

	syncName := uc.syncName(fullSync)
	if err := uc.lastRunRepo.SetLastRunTimestamp(ctx, syncName, time.Now()); err != nil {
		log.Printf("Use Case: [%s] Failed to record last run for '%s': %v\n", runID, syncName, err)
	}

	log.Printf("Use Case: [%s] Feed sync finished: %d processed, %d skipped of %d total\n", runID, processed, skipped, len(records))
	return nil
}

// processRecord выполняет весь пайплайн для одной записи. Каждый шаг
// после апсерта best-effort: slug и очередь переводов не должны ронять
// уже сохраненную запись.
func (uc *SyncFeedUseCase) processRecord(ctx context.Context, rec domain.ListingRecord) error {
	var priceUsd *float64
	if rec.Price != nil {
		usd := uc.currency.GetUsdValue(ctx, rec.Price.Value, rec.Price.Currency)
		priceUsd = &usd
	}

	listingID, err := uc.storage.UpsertListing(ctx, rec, priceUsd)
	if err != nil {
		return fmt.Errorf("upsert failed: %w", err)
	}

	// Slug зависит от внутреннего id, поэтому пишется вторым шагом.
	listingSlug := slug.Generate(rec.Title, listingID)
	if err := uc.storage.UpdateSlug(ctx, listingID, listingSlug); err != nil {
		log.Printf("Use Case: Failed to update slug for listing %s: %v\n", rec.ExternalID, err)
	}

	// Постановка в очередь fire-and-forget: перевод догонит позже,
	// а недоступный брокер не должен останавливать ингестию.
	if err := uc.queue.Enqueue(ctx, rec); err != nil {
		log.Printf("Use Case: Failed to enqueue listing %s for translation: %v\n", rec.ExternalID, err)
	}

	return nil
}

func (uc *SyncFeedUseCase) syncName(fullSync bool) string {
	if fullSync {
		return constants.LastRunAllSync
	}
	return constants.LastRunDaySync
}
