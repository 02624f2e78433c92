// Package reftoken кодирует ссылку {id, url} в URL-безопасный токен
// для передачи через параметр client_reference_id платёжной страницы.
package reftoken

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrTokenInvalid возвращается, если токен не удалось раскодировать.
var ErrTokenInvalid = errors.New("некорректный reference-токен")

// Символ, заменяющий '=' в хвосте base64, чтобы токен не требовал
// percent-кодирования внутри query-параметра.
const padFiller = '_'

// Reference связывает событие оплаты с парой пользователь/анализ.
type Reference struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Encode сериализует ссылку в base64 и заменяет хвостовые '=' на '_'.
func Encode(ref Reference) (string, error) {
	raw, err := json.Marshal(ref)
	if err != nil {
		return "", fmt.Errorf("marshal reference: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(raw)
	trimmed := strings.TrimRight(encoded, "=")
	return trimmed + strings.Repeat(string(padFiller), len(encoded)-len(trimmed)), nil
}

// Decode восстанавливает ссылку из токена. Ошибка не фатальна для
// загрузки страницы: вызывающий логирует её и работает без ссылки.
func Decode(token string) (Reference, error) {
	padded := token
	for len(padded)%4 != 0 {
		padded += string(padFiller)
	}
	normalized := strings.ReplaceAll(padded, string(padFiller), "=")

	raw, err := base64.StdEncoding.DecodeString(normalized)
	if err != nil {
		return Reference{}, fmt.Errorf("%w: base64: %v", ErrTokenInvalid, err)
	}
	var ref Reference
	if err := json.Unmarshal(raw, &ref); err != nil {
		return Reference{}, fmt.Errorf("%w: json: %v", ErrTokenInvalid, err)
	}
	return ref, nil
}

// CheckoutURL строит адрес платёжной страницы с вшитым токеном.
func CheckoutURL(base string, ref Reference) (string, error) {
	token, err := Encode(ref)
	if err != nil {
		return "", err
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse checkout base: %w", err)
	}
	query := parsed.Query()
	query.Set("client_reference_id", token)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
