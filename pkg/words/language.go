package words

// Language is a word source language tag.
type Language string

const (
	LanguageEnglish    Language = "en"
	LanguagePortuguese Language = "pt"

	FallbackLanguage = LanguageEnglish
)

var localesByLanguage = map[Language][]string{
	LanguageEnglish:    {"en_US", "en_GB"},
	LanguagePortuguese: {"pt_PT", "pt_BR"},
}

// LanguageFromLocale maps a locale such as "pt_BR" to its language, or the
// fallback language when the locale is unknown.
func LanguageFromLocale(locale string) Language {
	for lang, locales := range localesByLanguage {
		for _, valid := range locales {
			if locale == valid {
				return lang
			}
		}
	}
	return FallbackLanguage
}

// ParseLanguage returns the language of a tag, or the fallback language.
func ParseLanguage(tag string) Language {
	if _, ok := localesByLanguage[Language(tag)]; ok {
		return Language(tag)
	}
	return FallbackLanguage
}
