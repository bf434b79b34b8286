package slug

import (
	"fmt"
	"regexp"
	"strings"
)

// Фиксированная карта транслитерации кириллицы (включая украинские
// і/ї/є/ґ). Карта намеренно не зависит от локали: одинаковый вход
// всегда дает одинаковый slug в любом процессе.
var translitMap = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "shch",
	'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
	'А': "A", 'Б': "B", 'В': "V", 'Г': "G", 'Д': "D", 'Е': "E", 'Ё': "E",
	'Ж': "Zh", 'З': "Z", 'И': "I", 'Й': "Y", 'К': "K", 'Л': "L", 'М': "M",
	'Н': "N", 'О': "O", 'П': "P", 'Р': "R", 'С': "S", 'Т': "T", 'У': "U",
	'Ф': "F", 'Х': "Kh", 'Ц': "Ts", 'Ч': "Ch", 'Ш': "Sh", 'Щ': "Shch",
	'Ъ': "", 'Ы': "Y", 'Ь': "", 'Э': "E", 'Ю': "Yu", 'Я': "Ya",
	'і': "i", 'ї': "yi", 'є': "ye", 'ґ': "g",
	'І': "I", 'Ї': "Yi", 'Є': "Ye", 'Ґ': "G",
}

var (
	nonSlugChars  = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespaceRun = regexp.MustCompile(`\s+`)
	hyphenRun     = regexp.MustCompile(`--+`)
)

// Transliterate заменяет кириллические символы на латиницу по
// фиксированной карте; прочие символы остаются как есть.
func Transliterate(text string) string {
	var b strings.Builder
	for _, r := range text {
		if repl, ok := translitMap[r]; ok {
			b.WriteString(repl)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Generate строит уникальный slug вида "{id}-{title}": транслитерация,
// нижний регистр, вычистка всего кроме [a-z0-9\s-], пробелы в дефисы,
// схлопывание повторных дефисов. Числовой префикс гарантирует
// глобальную уникальность даже при пустом или совпадающем заголовке
// (вырожденный случай – "{id}-").
func Generate(title string, id int64) string {
	s := strings.ToLower(Transliterate(title))
	s = strings.TrimSpace(s)
	s = nonSlugChars.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, "-")
	s = hyphenRun.ReplaceAllString(s, "-")
	return fmt.Sprintf("%d-%s", id, s)
}
