package port

import "context"

// TranslatorPort определяет контракт для машинного перевода текста.
// Перевод best-effort: при ошибке внешнего API реализация логирует
// проблему и возвращает исходный текст, поэтому ошибки наружу
// не отдаются.
type TranslatorPort interface {
	Translate(ctx context.Context, text string, targetLang string) string
}
