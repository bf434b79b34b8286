package usecase

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"crm-sync/internal/core/domain"
	"crm-sync/internal/core/port"
)

// TranslationBackfillWorker асинхронно дообогащает уже сохраненные
// записи переводами. Записи копятся в буфере в памяти (их туда кладет
// консьюмер очереди), а воркер на каждом тике забирает весь буфер и
// обрабатывает его целиком. Перевод намеренно отстает от ингестии:
// синхронизация никогда не ждет переводов.
type TranslationBackfillWorker struct {
	storage      port.ListingStoragePort
	translator   port.TranslatorPort
	targetLang   string
	pollInterval time.Duration

	mu       sync.Mutex
	buffer   []domain.ListingRecord
	draining bool
}

// NewTranslationBackfillWorker создает новый воркер перевода.
func NewTranslationBackfillWorker(
	storage port.ListingStoragePort,
	translator port.TranslatorPort,
	targetLang string,
	pollInterval time.Duration,
) *TranslationBackfillWorker {
	return &TranslationBackfillWorker{
		storage:      storage,
		translator:   translator,
		targetLang:   targetLang,
		pollInterval: pollInterval,
	}
}

// Add кладет запись в буфер. Запись, добавленная во время текущего
// дренажа, попадает в следующий тик.
func (w *TranslationBackfillWorker) Add(rec domain.ListingRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buffer = append(w.buffer, rec)
}

// Start запускает цикл опроса буфера и блокирует до отмены контекста.
// Реализует EventListenerPort.
func (w *TranslationBackfillWorker) Start(ctx context.Context) error {
	log.Printf("TranslationWorker: Starting poll loop (interval: %s, target: %s)\n", w.pollInterval, w.targetLang)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("TranslationWorker: Context cancelled, stopping poll loop.")
			return ctx.Err()
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// Close реализует EventListenerPort. Буфер в памяти, закрывать нечего:
// недоделанные переводы просто придут из очереди после рестарта.
func (w *TranslationBackfillWorker) Close() error {
	return nil
}

// drain забирает снапшот буфера и обрабатывает его. Одновременно
// выполняется не больше одного дренажа: если предыдущий тик еще
// работает, этот пропускается, а буфер продолжает копиться.
func (w *TranslationBackfillWorker) drain(ctx context.Context) {
	w.mu.Lock()
	if w.draining || len(w.buffer) == 0 {
		w.mu.Unlock()
		return
	}
	batch := w.buffer
	w.buffer = nil
	w.draining = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.draining = false
		w.mu.Unlock()
	}()

	log.Printf("TranslationWorker: Draining %d records\n", len(batch))
	for _, rec := range batch {
		w.processRecord(ctx, rec)
	}
}

// processRecord переводит одну запись и сохраняет частичное обновление.
// Любое падение здесь best-effort: запись логируется и выбрасывается,
// чтобы ядовитая запись не блокировала очередь навсегда.
func (w *TranslationBackfillWorker) processRecord(ctx context.Context, rec domain.ListingRecord) {
	if !rec.HasTranslatableText() {
		return
	}

	tr := w.translateRecord(ctx, rec)

	if err := w.storage.UpdateTranslations(ctx, tr); err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			// Запись удалили, пока перевод ждал в очереди.
			log.Printf("TranslationWorker: Listing %s no longer exists, dropping translation\n", rec.ExternalID)
			return
		}
		log.Printf("TranslationWorker: Failed to persist translations for %s, dropping: %v\n", rec.ExternalID, err)
	}
}

// translateRecord переводит все текстовые поля записи. Поля независимы,
// поэтому переводятся параллельно; упавший перевод одного поля
// возвращает исходный текст (политика адаптера переводчика), а не
// валит всю запись.
func (w *TranslationBackfillWorker) translateRecord(ctx context.Context, rec domain.ListingRecord) domain.ListingTranslation {
	tr := domain.ListingTranslation{ExternalID: rec.ExternalID}

	var wg sync.WaitGroup
	translate := func(src string, dst *string) {
		if src == "" {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			*dst = w.translator.Translate(ctx, src, w.targetLang)
		}()
	}

	translate(rec.Title, &tr.TitleEn)
	translate(rec.Description, &tr.DescriptionEn)
	translate(rec.Deal, &tr.DealEn)
	translate(rec.Type, &tr.TypeEn)
	translate(rec.Category, &tr.CategoryEn)
	translate(rec.NewBuildingName, &tr.NewBuildingNameEn)

	if loc := rec.Location; loc != nil {
		locTr := &domain.LocationTranslation{}
		tr.Location = locTr
		translate(loc.Country, &locTr.CountryEn)
		translate(loc.Region, &locTr.RegionEn)
		translate(loc.City, &locTr.CityEn)
		translate(loc.County, &locTr.CountyEn)
		translate(loc.Borough, &locTr.BoroughEn)
		translate(loc.District, &locTr.DistrictEn)
		translate(loc.Street, &locTr.StreetEn)
		translate(loc.StreetType, &locTr.StreetTypeEn)

		tr.Metros = make([]domain.MetroTranslation, len(loc.Metros))
		for i, metro := range loc.Metros {
			tr.Metros[i] = domain.MetroTranslation{Name: metro.Name}
			translate(metro.Name, &tr.Metros[i].NameEn)
		}
	}

	tr.Characteristics = make([]domain.CharacteristicTranslation, len(rec.Characteristics))
	for i, char := range rec.Characteristics {
		tr.Characteristics[i] = domain.CharacteristicTranslation{Key: char.Key}
		translate(char.Key, &tr.Characteristics[i].KeyEn)
		translate(char.Value, &tr.Characteristics[i].ValueEn)
	}

	wg.Wait()
	return tr
}
