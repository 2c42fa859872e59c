package i18n

import (
	"embed"
	"fmt"
	"path"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Supported locales.
const (
	English        = "en"
	MexicanSpanish = "es_MX"
)

//go:embed locales/*.yaml
var catalogFiles embed.FS

// Bundle holds the message catalogs and negotiates locales.
type Bundle struct {
	fallback string
	locales  []string
	catalogs map[string]map[string]string
	matcher  language.Matcher
}

// NewBundle loads the embedded catalogs. defaultLocale falls back to English
// when it is not a supported locale.
func NewBundle(defaultLocale string) (*Bundle, error) {
	locales := []string{English, MexicanSpanish}
	catalogs := make(map[string]map[string]string, len(locales))
	tags := make([]language.Tag, 0, len(locales))
	for _, locale := range locales {
		raw, err := catalogFiles.ReadFile(path.Join("locales", locale+".yaml"))
		if err != nil {
			return nil, fmt.Errorf("read %s catalog: %w", locale, err)
		}
		messages := map[string]string{}
		if err := yaml.Unmarshal(raw, &messages); err != nil {
			return nil, fmt.Errorf("parse %s catalog: %w", locale, err)
		}
		catalogs[locale] = messages
		tags = append(tags, language.MustParse(toBCP47(locale)))
	}

	b := &Bundle{
		fallback: English,
		locales:  locales,
		catalogs: catalogs,
		matcher:  language.NewMatcher(tags),
	}
	if match, ok := b.match(defaultLocale); ok {
		b.fallback = match
	}
	return b, nil
}

// Default returns the locale used when nothing matches.
func (b *Bundle) Default() string {
	return b.fallback
}

// Negotiate picks a locale from an explicit query value, then the
// Accept-Language header, then the default.
func (b *Bundle) Negotiate(query, acceptLanguage string) string {
	if match, ok := b.match(query); ok {
		return match
	}
	if acceptLanguage != "" {
		tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
		if err == nil && len(tags) > 0 {
			_, index, confidence := b.matcher.Match(tags...)
			if confidence != language.No {
				return b.locales[index]
			}
		}
	}
	return b.fallback
}

// T translates key for locale, formatting args into the message. Unknown keys
// fall back to the default catalog and then to the key itself.
func (b *Bundle) T(locale, key string, args ...interface{}) string {
	msg, ok := b.catalogs[locale][key]
	if !ok {
		msg, ok = b.catalogs[b.fallback][key]
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

func (b *Bundle) match(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	tag, err := language.Parse(toBCP47(raw))
	if err != nil {
		return "", false
	}
	_, index, confidence := b.matcher.Match(tag)
	if confidence == language.No {
		return "", false
	}
	return b.locales[index], true
}

func toBCP47(locale string) string {
	return strings.ReplaceAll(locale, "_", "-")
}
