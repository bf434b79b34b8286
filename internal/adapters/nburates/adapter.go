package nburates

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
)

// refreshThreshold - максимальный возраст курса, после которого перед
// конвертацией делается повторный запрос к НБУ.
const refreshThreshold = time.Hour

// nbuRate - одна запись из ответа НБУ. Из всего ответа нужен только
// сам курс (гривен за единицу валюты).
type nbuRate struct {
	Rate float64 `json:"rate"`
}

// rateEntry - закэшированный курс одной валюты. Мьютекс у каждой
// валюты свой: одновременно выполняется не больше одного запроса
// на обновление по валюте, остальные вызовы ждут его результата.
type rateEntry struct {
	mu          sync.Mutex
	rate        float64
	refreshedAt time.Time
}

// NbuRatesAdapter нормализует цены фида в доллары по курсам НБУ.
// Курсы НБУ выражены в гривнах за единицу валюты, поэтому любая
// конвертация в доллары проходит через курс USD.
type NbuRatesAdapter struct {
	ratesURL  string
	collector *colly.Collector

	mu      sync.Mutex
	entries map[string]*rateEntry
}

// NewNbuRatesAdapter создает адаптер курсов. ratesURL - базовый адрес
// справочника НБУ без параметров; timeout ограничивает каждый запрос,
// чтобы обновление курса не подвешивало конвертацию.
func NewNbuRatesAdapter(ratesURL string, timeout time.Duration) *NbuRatesAdapter {
	c := colly.NewCollector(colly.AllowURLRevisit())
	c.SetRequestTimeout(timeout)

	return &NbuRatesAdapter{
		ratesURL:  ratesURL,
		collector: c,
		entries:   make(map[string]*rateEntry),
	}
}

// GetUsdValue переводит value в доллары по закэшированному курсу.
// Никогда не возвращает ошибку: при недоступном НБУ используется
// устаревший курс, а если курса нет совсем - возвращается 0.
func (a *NbuRatesAdapter) GetUsdValue(ctx context.Context, value float64, currency string) float64 {
	switch strings.ToUpper(strings.TrimSpace(currency)) {
	case "USD", "":
		return round2(value)
	case "UAH":
		usdRate := a.getRate(ctx, "USD")
		if usdRate == 0 {
			log.Printf("NbuRatesAdapter: No USD rate available, cannot convert %.2f UAH", value)
			return 0
		}
		return round2(value / usdRate)
	case "EUR":
		usdRate := a.getRate(ctx, "USD")
		eurRate := a.getRate(ctx, "EUR")
		if usdRate == 0 || eurRate == 0 {
			log.Printf("NbuRatesAdapter: No EUR/USD rate available, cannot convert %.2f EUR", value)
			return 0
		}
		return round2(value * eurRate / usdRate)
	default:
		log.Printf("NbuRatesAdapter: Unknown currency %q, treating value as USD", currency)
		return round2(value)
	}
}

// getRate возвращает курс валюты к гривне, обновляя его не чаще
// раза в час. Обновления одной валюты дедуплицируются мьютексом
// записи, разные валюты обновляются независимо.
func (a *NbuRatesAdapter) getRate(ctx context.Context, code string) float64 {
	entry := a.entry(code)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if time.Since(entry.refreshedAt) < refreshThreshold {
		return entry.rate
	}

	rate, err := a.fetchRate(ctx, code)
	if err != nil {
		// Курс не обновился - продолжаем жить на старом.
		log.Printf("NbuRatesAdapter: Failed to refresh %s rate, using stale value %.4f: %v", code, entry.rate, err)
		return entry.rate
	}

	entry.rate = rate
	entry.refreshedAt = time.Now()
	log.Printf("NbuRatesAdapter: Refreshed %s rate: %.4f", code, rate)
	return rate
}

func (a *NbuRatesAdapter) entry(code string) *rateEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.entries[code]
	if !ok {
		e = &rateEntry{}
		a.entries[code] = e
	}
	return e
}

func (a *NbuRatesAdapter) fetchRate(ctx context.Context, code string) (float64, error) {
	url := fmt.Sprintf("%s?valcode=%s&json", a.ratesURL, code)

	collector := a.collector.Clone()

	var body []byte
	var fetchErr error

	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("request to %s failed: %w", url, err)
	})

	if err := collector.Visit(url); err != nil {
		return 0, fmt.Errorf("failed to visit %s: %w", url, err)
	}
	collector.Wait()

	if fetchErr != nil {
		return 0, fetchErr
	}

	var rates []nbuRate
	if err := json.Unmarshal(body, &rates); err != nil {
		return 0, fmt.Errorf("failed to unmarshal nbu response: %w", err)
	}
	if len(rates) == 0 || rates[0].Rate == 0 {
		return 0, fmt.Errorf("nbu returned no rate for %s", code)
	}
	return rates[0].Rate, nil
}

// round2 округляет до двух знаков (half-up, как округляют деньги).
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
