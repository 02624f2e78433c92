// Package urlnorm проверяет и канонизирует введённый пользователем адрес сайта.
package urlnorm

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

var (
	ErrURLEmpty   = errors.New("адрес не задан")
	ErrURLInvalid = errors.New("некорректный адрес сайта")
)

var domainRegex = regexp.MustCompile(`(?i)^[a-z0-9]+([\-.][a-z0-9]+)*\.[a-z]{2,}$`)

// Normalize валидирует ввод и возвращает канонический https-адрес.
// Голый домен принимается только если он проходит доменный шаблон;
// схема принятого адреса всегда принудительно https, даже если
// пользователь ввёл http://, чтобы исключить mixed content.
func Normalize(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", ErrURLEmpty
	}

	candidate := trimmed
	if !hasHTTPScheme(candidate) {
		if !domainRegex.MatchString(candidate) {
			return "", ErrURLInvalid
		}
		candidate = "http://" + candidate
	}

	parsed, err := url.Parse(candidate)
	if err != nil {
		return "", ErrURLInvalid
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", ErrURLInvalid
	}
	host := parsed.Hostname()
	if !strings.Contains(host, ".") || len(host) <= 3 {
		return "", ErrURLInvalid
	}

	parsed.Scheme = "https"
	return parsed.String(), nil
}

func hasHTTPScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
