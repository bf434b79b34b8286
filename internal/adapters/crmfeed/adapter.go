package crmfeed

import (
	"context"
	"fmt"
	"log"
	"time"

	"crm-sync/internal/core/domain"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/extensions"
)

// CrmFeedAdapter отвечает за все взаимодействия с фидом CRM.
// Он инкапсулирует в себе настроенный colly.Collector.
type CrmFeedAdapter struct {
	// Родительский коллектор, который разделяет лимиты между запросами
	collector *colly.Collector
	timeout   time.Duration
}

// NewCrmFeedAdapter создает адаптер фида. timeout ограничивает весь
// HTTP-запрос (фид большой, но 30 секунд хватает с запасом); delay
// задает вежливую случайную задержку между последовательными
// обращениями к CRM.
func NewCrmFeedAdapter(timeout time.Duration, delay time.Duration) *CrmFeedAdapter {
	// URL фида фиксированный, а забирается он каждую минуту -
	// без AllowURLRevisit colly отдал бы его только один раз.
	c := colly.NewCollector(colly.AllowURLRevisit())
	c.SetRequestTimeout(timeout)

	// Параллелизм 1: фид один, а забирать его параллельно из
	// планировщика и ручного триггера одновременно нет смысла —
	// colly выстраивает вызовы в последовательную очередь.
	err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		RandomDelay: delay,
	})
	if err != nil {
		// Ошибка в базовых настройках - это критично, приложение не сможет работать корректно.
		log.Fatalf("CrmFeedAdapter: Failed to set limit rule: %v", err)
	}

	extensions.RandomUserAgent(c)

	c.OnRequest(func(r *colly.Request) {
		log.Printf("CrmFeedAdapter: Making request to %s", r.URL.String())
	})

	return &CrmFeedAdapter{
		collector: c,
		timeout:   timeout,
	}
}

// FetchListings забирает фид по URL, разбирает конверт и маппит каждую
// запись в каноническую форму. Ошибка возвращается только при
// недоступности фида или битом конверте; пустой фид - это валидный
// запуск с нулем записей.
func (a *CrmFeedAdapter) FetchListings(ctx context.Context, feedURL string, format domain.FeedFormat) ([]domain.ListingRecord, error) {
	mapper, err := MapperFor(format)
	if err != nil {
		return nil, err
	}

	// Одноразовый клон для этого запроса: наследует лимиты,
	// но имеет собственные обработчики.
	collector := a.collector.Clone()
	collector.SetRequestTimeout(a.timeout)

	var body []byte
	var fetchErr error

	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	collector.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = fmt.Errorf("crm feed adapter: request to %s failed (status %d): %w", feedURL, status, err)
	})

	if visitErr := collector.Visit(feedURL); visitErr != nil {
		return nil, fmt.Errorf("crm feed adapter: failed to visit %s: %w", feedURL, visitErr)
	}
	collector.Wait()

	if fetchErr != nil {
		return nil, fetchErr
	}
	if body == nil {
		return nil, fmt.Errorf("crm feed adapter: empty response from %s", feedURL)
	}

	records, parseErr := mapper.ParseFeed(body)
	if parseErr != nil {
		return nil, fmt.Errorf("crm feed adapter: malformed %s envelope from %s: %w", format, feedURL, parseErr)
	}

	log.Printf("CrmFeedAdapter: Fetched %d records from %s (format: %s)\n", len(records), feedURL, format)
	return records, nil
}
