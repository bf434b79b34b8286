package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"crm-sync/internal/core/domain"
)

type fakeFetcher struct {
	records []domain.ListingRecord
	err     error
}

func (f *fakeFetcher) FetchListings(ctx context.Context, feedURL string, format domain.FeedFormat) ([]domain.ListingRecord, error) {
	return f.records, f.err
}

type fakeStorage struct {
	nextID       int64
	upserted     []string
	upsertErrFor map[string]error
	slugs        map[int64]string

	deleteCalled bool
	deleteSeen   []string
	deleteErr    error

	translations   []domain.ListingTranslation
	translationErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{slugs: make(map[int64]string)}
}

func (s *fakeStorage) UpsertListing(ctx context.Context, rec domain.ListingRecord, priceUsd *float64) (int64, error) {
	if err, ok := s.upsertErrFor[rec.ExternalID]; ok {
		return 0, err
	}
	s.nextID++
	s.upserted = append(s.upserted, rec.ExternalID)
	return s.nextID, nil
}

func (s *fakeStorage) UpdateSlug(ctx context.Context, listingID int64, slug string) error {
	s.slugs[listingID] = slug
	return nil
}

func (s *fakeStorage) DeleteMissing(ctx context.Context, seenExternalIDs []string) (int64, error) {
	s.deleteCalled = true
	s.deleteSeen = seenExternalIDs
	return int64(len(seenExternalIDs)), s.deleteErr
}

func (s *fakeStorage) UpdateTranslations(ctx context.Context, tr domain.ListingTranslation) error {
	if s.translationErr != nil {
		return s.translationErr
	}
	s.translations = append(s.translations, tr)
	return nil
}

type fakeCurrency struct {
	rate float64
}

func (c *fakeCurrency) GetUsdValue(ctx context.Context, value float64, currency string) float64 {
	if currency == "USD" {
		return value
	}
	return value / c.rate
}

type fakeQueue struct {
	enqueued []string
	err      error
}

func (q *fakeQueue) Enqueue(ctx context.Context, rec domain.ListingRecord) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, rec.ExternalID)
	return nil
}

type fakeLastRun struct {
	set map[string]time.Time
	err error
}

func newFakeLastRun() *fakeLastRun {
	return &fakeLastRun{set: make(map[string]time.Time)}
}

func (r *fakeLastRun) GetLastRunTimestamp(ctx context.Context, syncName string) (time.Time, error) {
	return r.set[syncName], nil
}

func (r *fakeLastRun) SetLastRunTimestamp(ctx context.Context, syncName string, t time.Time) error {
	if r.err != nil {
		return r.err
	}
	r.set[syncName] = t
	return nil
}

func listing(id string, title string) domain.ListingRecord {
	return domain.ListingRecord{
		ExternalID: id,
		Title:      title,
		Price:      &domain.Price{Value: 4000, Currency: "UAH"},
	}
}

func newSyncUseCase(fetcher *fakeFetcher, storage *fakeStorage, queue *fakeQueue, lastRun *fakeLastRun) *SyncFeedUseCase {
	return NewSyncFeedUseCase(fetcher, storage, &fakeCurrency{rate: 40}, queue, lastRun)
}

func TestExecuteIncremental(t *testing.T) {
	fetcher := &fakeFetcher{records: []domain.ListingRecord{
		listing("101", "Квартира"),
		listing("102", "Будинок"),
	}}
	storage := newFakeStorage()
	queue := &fakeQueue{}
	lastRun := newFakeLastRun()

	uc := newSyncUseCase(fetcher, storage, queue, lastRun)
	if err := uc.Execute(context.Background(), "http://feed", domain.FeedFormatJSON, false); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if len(storage.upserted) != 2 {
		t.Errorf("upserted = %v; want both records", storage.upserted)
	}
	if storage.deleteCalled {
		t.Error("incremental sync must never delete")
	}
	if len(queue.enqueued) != 2 {
		t.Errorf("enqueued = %v; want both records", queue.enqueued)
	}
	if storage.slugs[1] != "1-kvartira" {
		t.Errorf("slug for first listing = %q; want 1-kvartira", storage.slugs[1])
	}
	if _, ok := lastRun.set["crm_day_sync"]; !ok {
		t.Error("incremental run must record crm_day_sync timestamp")
	}
	if _, ok := lastRun.set["crm_all_sync"]; ok {
		t.Error("incremental run must not touch crm_all_sync")
	}
}

func TestExecuteFullSyncDeletesMissing(t *testing.T) {
	fetcher := &fakeFetcher{records: []domain.ListingRecord{
		listing("101", "Квартира"),
		listing("102", "Будинок"),
	}}
	storage := newFakeStorage()
	lastRun := newFakeLastRun()

	uc := newSyncUseCase(fetcher, storage, &fakeQueue{}, lastRun)
	if err := uc.Execute(context.Background(), "http://feed", domain.FeedFormatJSON, true); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if !storage.deleteCalled {
		t.Fatal("full sync must reconcile deletions")
	}
	want := []string{"101", "102"}
	if fmt.Sprint(storage.deleteSeen) != fmt.Sprint(want) {
		t.Errorf("seen ids = %v; want %v", storage.deleteSeen, want)
	}
	if _, ok := lastRun.set["crm_all_sync"]; !ok {
		t.Error("full run must record crm_all_sync timestamp")
	}
}

func TestExecuteFullSyncDeleteFailureIsFatal(t *testing.T) {
	fetcher := &fakeFetcher{records: []domain.ListingRecord{listing("101", "Квартира")}}
	storage := newFakeStorage()
	storage.deleteErr = errors.New("connection refused")
	lastRun := newFakeLastRun()

	uc := newSyncUseCase(fetcher, storage, &fakeQueue{}, lastRun)
	err := uc.Execute(context.Background(), "http://feed", domain.FeedFormatJSON, true)
	if err == nil {
		t.Fatal("reconciliation failure must surface")
	}
	if len(lastRun.set) != 0 {
		t.Error("failed run must not record a last run timestamp")
	}
}

func TestExecuteFetchFailureSkipsRun(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("timeout")}
	storage := newFakeStorage()
	lastRun := newFakeLastRun()

	uc := newSyncUseCase(fetcher, storage, &fakeQueue{}, lastRun)
	if err := uc.Execute(context.Background(), "http://feed", domain.FeedFormatJSON, true); err != nil {
		t.Fatalf("fetch failure must not surface, got: %v", err)
	}

	if len(storage.upserted) != 0 || storage.deleteCalled {
		t.Error("failed fetch must leave the store untouched")
	}
	if len(lastRun.set) != 0 {
		t.Error("skipped run must not record a last run timestamp")
	}
}

func TestExecutePerRecordFailureIsolation(t *testing.T) {
	fetcher := &fakeFetcher{records: []domain.ListingRecord{
		listing("101", "Квартира"),
		listing("102", "Будинок"),
		listing("103", "Офіс"),
	}}
	storage := newFakeStorage()
	storage.upsertErrFor = map[string]error{"102": errors.New("bad data")}
	queue := &fakeQueue{}

	uc := newSyncUseCase(fetcher, storage, queue, newFakeLastRun())
	if err := uc.Execute(context.Background(), "http://feed", domain.FeedFormatJSON, true); err != nil {
		t.Fatalf("single record failure must not surface, got: %v", err)
	}

	if fmt.Sprint(storage.upserted) != fmt.Sprint([]string{"101", "103"}) {
		t.Errorf("upserted = %v; want 101 and 103", storage.upserted)
	}
	// Упавшая запись все равно видена в фиде - удалять ее нельзя.
	if fmt.Sprint(storage.deleteSeen) != fmt.Sprint([]string{"101", "102", "103"}) {
		t.Errorf("seen ids = %v; failed record must still count as seen", storage.deleteSeen)
	}
}

func TestExecuteEnqueueFailureIsNotFatal(t *testing.T) {
	fetcher := &fakeFetcher{records: []domain.ListingRecord{listing("101", "Квартира")}}
	storage := newFakeStorage()
	queue := &fakeQueue{err: errors.New("broker down")}

	uc := newSyncUseCase(fetcher, storage, queue, newFakeLastRun())
	if err := uc.Execute(context.Background(), "http://feed", domain.FeedFormatJSON, false); err != nil {
		t.Fatalf("enqueue failure must not surface, got: %v", err)
	}
	if len(storage.upserted) != 1 {
		t.Error("record must be persisted even when enqueue fails")
	}
}

func TestExecuteSkipsRecordsWithoutExternalID(t *testing.T) {
	fetcher := &fakeFetcher{records: []domain.ListingRecord{
		{Title: "Без id"},
		listing("101", "Квартира"),
	}}
	storage := newFakeStorage()

	uc := newSyncUseCase(fetcher, storage, &fakeQueue{}, newFakeLastRun())
	if err := uc.Execute(context.Background(), "http://feed", domain.FeedFormatJSON, true); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if fmt.Sprint(storage.upserted) != fmt.Sprint([]string{"101"}) {
		t.Errorf("upserted = %v; want only 101", storage.upserted)
	}
	if fmt.Sprint(storage.deleteSeen) != fmt.Sprint([]string{"101"}) {
		t.Errorf("seen ids = %v; id-less record must not count as seen", storage.deleteSeen)
	}
}
