package constants

// Дефолтные адреса внешних источников. Переопределяются через env
// (см. internal/configs).
const (
	// Инкрементальный фид: только изменения за сутки, записи не удаляются.
	DefaultFeedDayURL = "https://crm-myspace.realtsoft.net/feed/json?id=3&updates=day"
	// Полный фид: авторитетный набор, отсутствующие записи удаляются.
	DefaultFeedAllURL = "https://crm-myspace.realtsoft.net/feed/json?id=3&updates=all"

	// Курсы валют НБУ, все курсы выражены относительно гривны.
	DefaultNbuRatesURL = "https://bank.gov.ua/NBUStatService/v1/statdirectory/exchange"
)

// Имена синхронизаций для журнала последних запусков.
const (
	LastRunDaySync = "crm_day_sync"
	LastRunAllSync = "crm_all_sync"
)
