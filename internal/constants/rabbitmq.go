package constants

// Имена очередей
const (
	QueuePendingTranslations = "pending_translations"
)

// Ключи маршрутизации
const (
	RoutingKeyPendingTranslations = "crm.translations.pending"
)

// Обменник всех событий сервиса
const (
	ExchangeName = "crm_sync_exchange"
	ExchangeType = "direct"
)
