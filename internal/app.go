package internal

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"crm-sync/internal/adapters/crmfeed"
	"crm-sync/internal/adapters/googletranslate"
	"crm-sync/internal/adapters/httpapi"
	"crm-sync/internal/adapters/nburates"
	postgres_adapter "crm-sync/internal/adapters/postgres"
	rabbitmq_adapter "crm-sync/internal/adapters/rabbitmq"
	"crm-sync/internal/adapters/scheduler"
	"crm-sync/internal/configs"
	"crm-sync/internal/constants"
	"crm-sync/internal/core/domain"
	"crm-sync/internal/core/port"
	"crm-sync/internal/core/usecase"
	"crm-sync/pkg/postgres"
	"crm-sync/pkg/rabbitmq/rabbitmq_common"
	"crm-sync/pkg/rabbitmq/rabbitmq_consumer"
	"crm-sync/pkg/rabbitmq/rabbitmq_producer"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App – структура приложения
type App struct {
	config        *configs.AppConfig
	dbPool        *pgxpool.Pool
	eventProducer *rabbitmq_producer.Publisher
	translator    *googletranslate.GoogleTranslateAdapter

	// Входящие порты (слушатели событий): консьюмер переводов,
	// воркер перевода, планировщик и HTTP-сервер.
	translationListener port.EventListenerPort
	translationWorker   port.EventListenerPort
	syncScheduler       port.EventListenerPort
	httpServer          port.EventListenerPort
}

// NewApp создает новый экземпляр приложения.
// Это "Composition Root", где все зависимости создаются и связываются.
func NewApp() (*App, error) {
	appConfig, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading application configuration: %w", err)
	}

	// 1. Инициализация низкоуровневых зависимостей
	dbPool, err := postgres.NewClient(context.Background(), postgres.Config{DatabaseURL: appConfig.Database.URL})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	log.Println("Successfully connected to PostgreSQL pool!")

	producerCfg := rabbitmq_producer.PublisherConfig{
		Config:                   rabbitmq_common.Config{URL: appConfig.RabbitMQ.URL},
		ExchangeName:             constants.ExchangeName,
		ExchangeType:             constants.ExchangeType,
		DurableExchange:          true,
		DeclareExchangeIfMissing: true,
	}
	eventProducer, err := rabbitmq_producer.NewPublisher(producerCfg)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to create event producer: %w", err)
	}
	log.Println("RabbitMQ Event Producer initialized.")

	translatorAdapter, err := googletranslate.NewGoogleTranslateAdapter(context.Background())
	if err != nil {
		eventProducer.Close()
		dbPool.Close()
		return nil, fmt.Errorf("failed to create translate adapter: %w", err)
	}

	// 2. Исходящие адаптеры
	feedAdapter := crmfeed.NewCrmFeedAdapter(30*time.Second, 1*time.Second)
	ratesAdapter := nburates.NewNbuRatesAdapter(appConfig.NbuRatesURL, 10*time.Second)
	translationQueueAdapter, _ := rabbitmq_adapter.NewRabbitMQTranslationQueueAdapter(eventProducer, constants.RoutingKeyPendingTranslations)
	pgLastRunRepo, _ := postgres_adapter.NewPostgresLastRunRepository(dbPool)

	listingStorageAdapter, err := postgres_adapter.NewPostgresListingStorageAdapter(dbPool)
	if err != nil {
		eventProducer.Close()
		dbPool.Close()
		return nil, fmt.Errorf("failed to create listing storage adapter: %w", err)
	}
	log.Println("All outgoing adapters initialized.")

	// 3. Use Cases
	syncUseCase := usecase.NewSyncFeedUseCase(
		feedAdapter,
		listingStorageAdapter,
		ratesAdapter,
		translationQueueAdapter,
		pgLastRunRepo,
	)
	translationWorker := usecase.NewTranslationBackfillWorker(
		listingStorageAdapter,
		translatorAdapter,
		appConfig.Translate.TargetLang,
		time.Duration(appConfig.Translate.PollSeconds)*time.Second,
	)
	log.Println("All use cases initialized.")

	// 4. Входящие адаптеры
	translationConsumerCfg := rabbitmq_consumer.ConsumerConfig{
		Config:              rabbitmq_common.Config{URL: appConfig.RabbitMQ.URL},
		QueueName:           constants.QueuePendingTranslations,
		RoutingKeyForBind:   constants.RoutingKeyPendingTranslations,
		ExchangeNameForBind: constants.ExchangeName,
		PrefetchCount:       10,
		DurableQueue:        true,
		ConsumerTag:         "translation-backfill-adapter",
		DeclareQueue:        true,
	}
	translationListener, err := rabbitmq_adapter.NewTranslationConsumerAdapter(translationConsumerCfg, translationWorker)
	if err != nil {
		eventProducer.Close()
		dbPool.Close()
		return nil, err
	}
	log.Println("Translation Events Listener initialized.")

	feedFormat := domain.FeedFormat(appConfig.Feed.Format)
	syncScheduler, err := scheduler.NewSchedulerAdapter(
		syncUseCase,
		appConfig.Feed.DayURL,
		appConfig.Feed.AllURL,
		feedFormat,
		time.Duration(appConfig.Scheduler.SyncIntervalSeconds)*time.Second,
		appConfig.Scheduler.FullSyncHour,
	)
	if err != nil {
		translationListener.Close()
		eventProducer.Close()
		dbPool.Close()
		return nil, err
	}

	httpServer, err := httpapi.NewServer(
		syncUseCase,
		appConfig.HTTPAddr,
		appConfig.Feed.DayURL,
		appConfig.Feed.AllURL,
		feedFormat,
	)
	if err != nil {
		translationListener.Close()
		eventProducer.Close()
		dbPool.Close()
		return nil, err
	}
	log.Println("All incoming adapters initialized.")

	// 5. Собираем приложение
	application := &App{
		config:              appConfig,
		dbPool:              dbPool,
		eventProducer:       eventProducer,
		translator:          translatorAdapter,
		translationListener: translationListener,
		translationWorker:   translationWorker,
		syncScheduler:       syncScheduler,
		httpServer:          httpServer,
	}

	return application, nil
}

// Run запускает все компоненты приложения и управляет их жизненным циклом.
func (a *App) Run() error {
	// Единый контекст приложения для graceful shutdown
	appCtx, cancelApp := context.WithCancel(context.Background())

	var wg sync.WaitGroup

	defer func() {
		log.Println("App: Shutdown sequence initiated...")

		log.Println("App: Waiting for background processes to finish...")
		wg.Wait()
		log.Println("App: All background processes finished.")

		// Теперь безопасно закрываем ресурсы
		for _, listener := range []struct {
			name string
			l    port.EventListenerPort
		}{
			{"translation listener", a.translationListener},
			{"translation worker", a.translationWorker},
			{"scheduler", a.syncScheduler},
			{"http server", a.httpServer},
		} {
			if listener.l == nil {
				continue
			}
			if err := listener.l.Close(); err != nil {
				log.Printf("App: Error closing %s: %v\n", listener.name, err)
			}
		}
		if a.eventProducer != nil {
			if err := a.eventProducer.Close(); err != nil {
				log.Printf("App: Error closing event producer: %v\n", err)
			}
		}
		if a.translator != nil {
			if err := a.translator.Close(); err != nil {
				log.Printf("App: Error closing translator: %v\n", err)
			}
		}
		if a.dbPool != nil {
			a.dbPool.Close()
			log.Println("App: PostgreSQL pool closed.")
		}
		log.Println("Application shut down gracefully.")
	}()

	log.Println("Application is starting...")

	listenerErrors := make(chan error, 4)

	// Функция-хелпер для запуска слушателей
	startListener := func(name string, listener port.EventListenerPort) {
		defer wg.Done()
		log.Printf("App: Starting %s...", name)
		err := listener.Start(appCtx)
		if err != nil && appCtx.Err() == nil {
			log.Printf("App: %s stopped with an unexpected error: %v", name, err)
			listenerErrors <- fmt.Errorf("%s error: %w", name, err)
			return
		}
		log.Printf("App: %s stopped due to context cancellation.", name)
	}

	wg.Add(4)
	go startListener("Translation Events Listener", a.translationListener)
	go startListener("Translation Backfill Worker", a.translationWorker)
	go startListener("Sync Scheduler", a.syncScheduler)
	go startListener("HTTP Server", a.httpServer)

	// Ожидание сигнала на завершение или ошибки от одного из компонентов
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("Application running. Waiting for signals or listener error...")
	select {
	case receivedSignal := <-quit:
		log.Printf("App: Received signal: %s. Shutting down...\n", receivedSignal)
	case err := <-listenerErrors:
		log.Printf("App: A critical component failed: %v. Shutting down...\n", err)
	case <-appCtx.Done():
		log.Println("App: Context was cancelled unexpectedly. Shutting down...")
	}

	cancelApp()

	return nil
}
