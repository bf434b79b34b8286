package port

import "context"

// CurrencyConverterPort определяет контракт для нормализации цен в USD.
// Реализация обязана "падать открыто": при недоступности источника
// курсов используется последний закэшированный курс, ошибки наружу
// не отдаются. Результат округлен до двух знаков.
type CurrencyConverterPort interface {
	GetUsdValue(ctx context.Context, value float64, currency string) float64
}
