package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"crm-sync/internal/core/domain"
	"crm-sync/pkg/rabbitmq/rabbitmq_producer"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQTranslationQueueAdapter реализует TranslationQueuePort для RabbitMQ.
// Синхронизация публикует сюда запись после апсерта; перевод подхватит
// ее асинхронно, и может отставать от ингестии - это нормально.
type RabbitMQTranslationQueueAdapter struct {
	producer   *rabbitmq_producer.Publisher
	routingKey string
}

// NewRabbitMQTranslationQueueAdapter создает новый адаптер очереди переводов.
// producer - уже инициализированный rabbitmq_producer.Publisher.
func NewRabbitMQTranslationQueueAdapter(producer *rabbitmq_producer.Publisher, routingKey string) (*RabbitMQTranslationQueueAdapter, error) {
	if producer == nil {
		return nil, fmt.Errorf("rabbitmq adapter: producer cannot be nil")
	}
	if routingKey == "" {
		return nil, fmt.Errorf("rabbitmq adapter: routingKey cannot be empty")
	}
	return &RabbitMQTranslationQueueAdapter{
		producer:   producer,
		routingKey: routingKey,
	}, nil
}

// Enqueue отправляет запись в очередь на перевод.
func (a *RabbitMQTranslationQueueAdapter) Enqueue(ctx context.Context, rec domain.ListingRecord) error {
	recJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("rabbitmq adapter: failed to marshal listing record %s: %w", rec.ExternalID, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         recJSON,
		DeliveryMode: amqp.Persistent, // Переводы переживают перезапуск брокера
		Timestamp:    time.Now(),
	}

	// Таймаут на публикацию, чтобы зависший брокер не тормозил синхронизацию
	publishCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.producer.Publish(publishCtx, a.routingKey, msg); err != nil {
		return fmt.Errorf("rabbitmq adapter: failed to publish listing record %s: %w", rec.ExternalID, err)
	}

	log.Printf("RabbitMQAdapter: Published listing %s for translation\n", rec.ExternalID)
	return nil
}
