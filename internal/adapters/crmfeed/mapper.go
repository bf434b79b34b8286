package crmfeed

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"crm-sync/internal/core/domain"
)

// Mapper – стратегия разбора одного формата фида. Два формата CRM
// (легаси XML и текущий JSON) намеренно разведены по отдельным
// реализациям: их эвристики расходятся (в частности isOutOfCity),
// и вызывающий код зависит от точной семантики каждого формата.
type Mapper interface {
	ParseFeed(body []byte) ([]domain.ListingRecord, error)
}

// MapperFor возвращает стратегию для формата фида.
func MapperFor(format domain.FeedFormat) (Mapper, error) {
	switch format {
	case domain.FeedFormatJSON:
		return &JSONFeedMapper{}, nil
	case domain.FeedFormatXML:
		return &LegacyXMLMapper{}, nil
	default:
		return nil, fmt.Errorf("unknown feed format: %q", format)
	}
}

// isCharacteristicKey: динамические числовые характеристики фида -
// все, что похоже на площадь, этаж или комнаты.
func isCharacteristicKey(key string) bool {
	return strings.Contains(key, "area") ||
		strings.Contains(key, "floor") ||
		strings.Contains(key, "room")
}

// numericProjection возвращает числовую проекцию строкового значения
// характеристики или nil, если значение не парсится.
func numericProjection(value string) *float64 {
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return nil
	}
	return &n
}

// Форматы дат, которые встречались в фиде.
var feedTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseFeedTime разбирает дату из фида; нераспознанная или пустая дата
// деградирует до нулевого времени, а не до ошибки.
func parseFeedTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
