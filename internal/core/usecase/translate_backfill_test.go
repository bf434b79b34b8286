package usecase

import (
	"context"
	"testing"
	"time"

	"crm-sync/internal/core/domain"
)

// fakeTranslator помечает переведенный текст префиксом, чтобы в
// ассертах было видно, какие поля прошли через переводчик.
type fakeTranslator struct{}

func (f *fakeTranslator) Translate(ctx context.Context, text string, targetLang string) string {
	return "en:" + text
}

func newWorker(storage *fakeStorage) *TranslationBackfillWorker {
	return NewTranslationBackfillWorker(storage, &fakeTranslator{}, "en", 5*time.Second)
}

func TestDrainTranslatesAndPersists(t *testing.T) {
	storage := newFakeStorage()
	worker := newWorker(storage)

	worker.Add(domain.ListingRecord{
		ExternalID:  "101",
		Title:       "Квартира",
		Description: "Гарна квартира",
		Location: &domain.Location{
			City:   "Київ",
			Metros: []domain.Metro{{Name: "Театральна", Distance: 300}},
		},
		Characteristics: []domain.Characteristic{
			{Key: "Опалення", Value: "централізоване"},
		},
	})

	worker.drain(context.Background())

	if len(storage.translations) != 1 {
		t.Fatalf("expected 1 persisted translation, got %d", len(storage.translations))
	}
	tr := storage.translations[0]
	if tr.ExternalID != "101" {
		t.Errorf("ExternalID = %q", tr.ExternalID)
	}
	if tr.TitleEn != "en:Квартира" || tr.DescriptionEn != "en:Гарна квартира" {
		t.Errorf("listing fields = %q / %q", tr.TitleEn, tr.DescriptionEn)
	}
	if tr.DealEn != "" {
		t.Errorf("empty source field must stay empty, got %q", tr.DealEn)
	}
	if tr.Location == nil || tr.Location.CityEn != "en:Київ" {
		t.Errorf("location translation = %+v", tr.Location)
	}
	if len(tr.Metros) != 1 || tr.Metros[0].Name != "Театральна" || tr.Metros[0].NameEn != "en:Театральна" {
		t.Errorf("metro translation = %+v", tr.Metros)
	}
	if len(tr.Characteristics) != 1 ||
		tr.Characteristics[0].Key != "Опалення" ||
		tr.Characteristics[0].KeyEn != "en:Опалення" ||
		tr.Characteristics[0].ValueEn != "en:централізоване" {
		t.Errorf("characteristic translation = %+v", tr.Characteristics)
	}

	// Буфер очищен - повторный дренаж ничего не делает.
	worker.drain(context.Background())
	if len(storage.translations) != 1 {
		t.Errorf("drained records must not be reprocessed, got %d translations", len(storage.translations))
	}
}

func TestDrainSkipsRecordsWithoutText(t *testing.T) {
	storage := newFakeStorage()
	worker := newWorker(storage)

	worker.Add(domain.ListingRecord{ExternalID: "101"})
	worker.drain(context.Background())

	if len(storage.translations) != 0 {
		t.Errorf("record without translatable text must be skipped, got %v", storage.translations)
	}
}

func TestDrainDropsMissingListing(t *testing.T) {
	storage := newFakeStorage()
	storage.translationErr = domain.ErrListingNotFound
	worker := newWorker(storage)

	worker.Add(domain.ListingRecord{ExternalID: "101", Title: "Квартира"})
	worker.drain(context.Background())

	// Запись выброшена без ретрая: буфер пуст.
	storage.translationErr = nil
	worker.drain(context.Background())
	if len(storage.translations) != 0 {
		t.Errorf("dropped record must not be retried, got %v", storage.translations)
	}
}

func TestDrainDropsOnPersistFailure(t *testing.T) {
	storage := newFakeStorage()
	storage.translationErr = context.DeadlineExceeded
	worker := newWorker(storage)

	worker.Add(domain.ListingRecord{ExternalID: "101", Title: "Квартира"})
	worker.drain(context.Background())

	storage.translationErr = nil
	worker.drain(context.Background())
	if len(storage.translations) != 0 {
		t.Errorf("record with failed persist must be dropped, got %v", storage.translations)
	}
}

func TestAddDuringDrainWaitsForNextTick(t *testing.T) {
	storage := newFakeStorage()
	worker := newWorker(storage)

	// Переводчик, который докладывает новую запись посреди дренажа.
	worker.translator = &midDrainTranslator{worker: worker}

	worker.Add(domain.ListingRecord{ExternalID: "101", Title: "Квартира"})
	worker.drain(context.Background())

	if len(storage.translations) != 1 {
		t.Fatalf("first drain must process only the snapshot, got %d", len(storage.translations))
	}

	worker.translator = &fakeTranslator{}
	worker.drain(context.Background())
	if len(storage.translations) != 2 {
		t.Errorf("record added mid-drain must be processed on the next tick, got %d", len(storage.translations))
	}
	if storage.translations[1].ExternalID != "999" {
		t.Errorf("second drain processed %q; want 999", storage.translations[1].ExternalID)
	}
}

type midDrainTranslator struct {
	worker *TranslationBackfillWorker
	added  bool
}

func (f *midDrainTranslator) Translate(ctx context.Context, text string, targetLang string) string {
	if !f.added {
		f.added = true
		f.worker.Add(domain.ListingRecord{ExternalID: "999", Title: "Додана під час дренажу"})
	}
	return "en:" + text
}

func TestSingleFlightDrain(t *testing.T) {
	storage := newFakeStorage()
	worker := newWorker(storage)
	worker.Add(domain.ListingRecord{ExternalID: "101", Title: "Квартира"})

	// Предыдущий дренаж еще работает - этот тик пропускается.
	worker.mu.Lock()
	worker.draining = true
	worker.mu.Unlock()

	worker.drain(context.Background())
	if len(storage.translations) != 0 {
		t.Error("drain must be single-flight")
	}

	worker.mu.Lock()
	worker.draining = false
	worker.mu.Unlock()

	worker.drain(context.Background())
	if len(storage.translations) != 1 {
		t.Error("buffered record must survive a skipped tick")
	}
}
