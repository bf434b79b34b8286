package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"crm-sync/internal/core/domain"
	"crm-sync/internal/core/usecase"
	"crm-sync/pkg/rabbitmq/rabbitmq_consumer"

	amqp "github.com/rabbitmq/amqp091-go"
)

// TranslationConsumerAdapter - входящий адаптер, который слушает
// очередь переводов и складывает записи в буфер воркера перевода.
// Сам перевод выполняет воркер на своем тике, здесь только прием.
type TranslationConsumerAdapter struct {
	consumer *rabbitmq_consumer.Consumer
	worker   *usecase.TranslationBackfillWorker
}

// NewTranslationConsumerAdapter создает новый адаптер.
func NewTranslationConsumerAdapter(
	consumerCfg rabbitmq_consumer.ConsumerConfig,
	worker *usecase.TranslationBackfillWorker,
) (*TranslationConsumerAdapter, error) {
	adapter := &TranslationConsumerAdapter{
		worker: worker,
	}

	consumer, err := rabbitmq_consumer.NewConsumer(consumerCfg, adapter.messageHandler)
	if err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ consumer for translations: %w", err)
	}
	adapter.consumer = consumer

	return adapter, nil
}

func (a *TranslationConsumerAdapter) messageHandler(d amqp.Delivery) (ack bool, requeueOnError bool, err error) {
	var rec domain.ListingRecord
	if err := json.Unmarshal(d.Body, &rec); err != nil {
		log.Printf("TranslationConsumerAdapter: Error unmarshalling: %v. NACK (no requeue).\n", err)
		return false, false, fmt.Errorf("unmarshal error: %w", err)
	}

	// Add не возвращает ошибку: буфер в памяти, а падения на этапе
	// перевода или записи воркер обрабатывает сам (best-effort).
	a.worker.Add(rec)
	return true, false, nil
}

// Start реализует EventListenerPort
func (a *TranslationConsumerAdapter) Start(ctx context.Context) error {
	return a.consumer.StartConsuming(ctx)
}

// Close реализует EventListenerPort
func (a *TranslationConsumerAdapter) Close() error {
	return a.consumer.Close()
}
