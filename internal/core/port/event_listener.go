package port

import "context"

// EventListenerPort – общий контракт для входящих адаптеров с
// собственным жизненным циклом (консьюмеры очередей, HTTP-сервер,
// планировщик). Start блокирует до отмены контекста или фатальной
// ошибки компонента.
type EventListenerPort interface {
	Start(ctx context.Context) error
	Close() error
}
