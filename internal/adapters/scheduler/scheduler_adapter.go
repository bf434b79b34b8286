package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"crm-sync/internal/core/domain"
)

// SyncRunner - то, что планировщик умеет запускать. Сигнатура
// совпадает с usecase.SyncFeedUseCase.Execute.
type SyncRunner interface {
	Execute(ctx context.Context, feedURL string, format domain.FeedFormat, fullSync bool) error
}

// SchedulerAdapter - входящий адаптер, который по таймеру дергает
// синхронизацию: инкрементальную каждую минуту и полную один раз
// за ночной час. Отдельного cron здесь нет намеренно - двух правил
// недостаточно, чтобы тащить планировщик с выражениями.
type SchedulerAdapter struct {
	syncUseCase SyncRunner

	feedDayURL   string
	feedAllURL   string
	format       domain.FeedFormat
	tickInterval time.Duration
	fullSyncHour int

	// Взводится после ночной полной синхронизации и сбрасывается,
	// когда час проходит, чтобы полная выполнялась один раз за ночь.
	fullSyncDone bool
}

// NewSchedulerAdapter создает новый планировщик.
func NewSchedulerAdapter(
	syncUseCase SyncRunner,
	feedDayURL string,
	feedAllURL string,
	format domain.FeedFormat,
	tickInterval time.Duration,
	fullSyncHour int,
) (*SchedulerAdapter, error) {
	if syncUseCase == nil {
		return nil, fmt.Errorf("scheduler: syncUseCase cannot be nil")
	}
	if tickInterval <= 0 {
		return nil, fmt.Errorf("scheduler: tick interval must be positive, got %s", tickInterval)
	}
	if fullSyncHour < 0 || fullSyncHour > 23 {
		return nil, fmt.Errorf("scheduler: full sync hour must be 0-23, got %d", fullSyncHour)
	}
	return &SchedulerAdapter{
		syncUseCase:  syncUseCase,
		feedDayURL:   feedDayURL,
		feedAllURL:   feedAllURL,
		format:       format,
		tickInterval: tickInterval,
		fullSyncHour: fullSyncHour,
	}, nil
}

// Start запускает цикл тиков и блокирует до отмены контекста.
// Реализует EventListenerPort. Ошибка любой синхронизации логируется
// и не останавливает цикл: следующий тик наступает всегда.
func (s *SchedulerAdapter) Start(ctx context.Context) error {
	log.Printf("Scheduler: Starting (tick: %s, full sync hour: %d)\n", s.tickInterval, s.fullSyncHour)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Scheduler: Context cancelled, stopping.")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx, time.Now())
		}
	}
}

// Close реализует EventListenerPort.
func (s *SchedulerAdapter) Close() error {
	return nil
}

// tick выполняет работу одного тика. Текущее время передается
// параметром, чтобы логику часа можно было проверить тестом.
func (s *SchedulerAdapter) tick(ctx context.Context, now time.Time) {
	if err := s.syncUseCase.Execute(ctx, s.feedDayURL, s.format, false); err != nil {
		log.Printf("Scheduler: Incremental sync failed: %v\n", err)
	}

	if now.Hour() == s.fullSyncHour {
		if !s.fullSyncDone {
			s.fullSyncDone = true
			log.Println("Scheduler: Starting nightly full sync")
			if err := s.syncUseCase.Execute(ctx, s.feedAllURL, s.format, true); err != nil {
				log.Printf("Scheduler: Nightly full sync failed: %v\n", err)
			}
		}
	} else {
		s.fullSyncDone = false
	}
}
