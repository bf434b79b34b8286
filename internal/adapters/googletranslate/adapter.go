package googletranslate

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/translate"
	"golang.org/x/text/language"
)

// GoogleTranslateAdapter переводит тексты объявлений через Google
// Cloud Translation API. Креды берутся из стандартного окружения
// GOOGLE_APPLICATION_CREDENTIALS.
type GoogleTranslateAdapter struct {
	client *translate.Client
}

func NewGoogleTranslateAdapter(ctx context.Context) (*GoogleTranslateAdapter, error) {
	client, err := translate.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create translate client: %w", err)
	}
	return &GoogleTranslateAdapter{client: client}, nil
}

// Translate переводит text на targetLang. Перевод best-effort: при
// любой ошибке (API, неизвестный язык) возвращается исходный текст,
// чтобы одно упавшее поле не валило весь бэкфилл.
func (a *GoogleTranslateAdapter) Translate(ctx context.Context, text string, targetLang string) string {
	if text == "" {
		return ""
	}

	target, err := language.Parse(targetLang)
	if err != nil {
		log.Printf("GoogleTranslateAdapter: Invalid target language %q: %v", targetLang, err)
		return text
	}

	translations, err := a.client.Translate(ctx, []string{text}, target, nil)
	if err != nil {
		log.Printf("GoogleTranslateAdapter: Translation failed, falling back to original text: %v", err)
		return text
	}
	if len(translations) == 0 {
		return text
	}
	return translations[0].Text
}

func (a *GoogleTranslateAdapter) Close() error {
	return a.client.Close()
}
