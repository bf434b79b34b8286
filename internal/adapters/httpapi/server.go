package httpapi

import (
	"context"
	"fmt"
	"log"

	"crm-sync/internal/core/domain"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
)

// SyncRunner - то, что сервер запускает по ручному триггеру.
// Сигнатура совпадает с usecase.SyncFeedUseCase.Execute.
type SyncRunner interface {
	Execute(ctx context.Context, feedURL string, format domain.FeedFormat, fullSync bool) error
}

// Server - входящий HTTP-адаптер. Единственный маршрут - ручной
// триггер синхронизации, тот же пайплайн, что и у планировщика.
type Server struct {
	app         *fiber.App
	addr        string
	syncUseCase SyncRunner
	feedDayURL  string
	feedAllURL  string
	format      domain.FeedFormat
}

// NewServer создает HTTP-сервер с маршрутом GET /crm/sync.
func NewServer(
	syncUseCase SyncRunner,
	addr string,
	feedDayURL string,
	feedAllURL string,
	format domain.FeedFormat,
) (*Server, error) {
	if syncUseCase == nil {
		return nil, fmt.Errorf("httpapi: syncUseCase cannot be nil")
	}

	s := &Server{
		addr:        addr,
		syncUseCase: syncUseCase,
		feedDayURL:  feedDayURL,
		feedAllURL:  feedAllURL,
		format:      format,
	}

	app := fiber.New(fiber.Config{
		AppName: "crm-sync",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Get("/crm/sync", s.handleSync)
	s.app = app

	return s, nil
}

// handleSync запускает синхронизацию синхронно: ответ приходит после
// завершения прогона, чтобы по нему можно было судить об успехе.
func (s *Server) handleSync(c fiber.Ctx) error {
	syncType := c.Query("type", string(domain.SyncTypeDay))

	var feedURL string
	var fullSync bool
	switch domain.SyncType(syncType) {
	case domain.SyncTypeDay:
		feedURL = s.feedDayURL
	case domain.SyncTypeAll:
		feedURL = s.feedAllURL
		fullSync = true
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("unknown sync type %q, expected 'day' or 'all'", syncType),
		})
	}

	log.Printf("HTTP: Manual sync triggered (type: %s)\n", syncType)
	// Прогон живет своим контекстом: обрыв HTTP-соединения не должен
	// бросать синхронизацию на полпути.
	if err := s.syncUseCase.Execute(context.Background(), feedURL, s.format, fullSync); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("sync failed: %v", err),
		})
	}

	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Sync complete: %s", syncType),
	})
}

// Start реализует EventListenerPort: поднимает сервер и блокирует до
// отмены контекста или ошибки листенера.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("httpapi: listener failed: %w", err)
		}
		return nil
	}
}

// Close реализует EventListenerPort.
func (s *Server) Close() error {
	return s.app.Shutdown()
}
