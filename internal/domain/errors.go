package domain

import "errors"

// ErrNotFound возвращается хранилищем, если ключ отсутствует.
var ErrNotFound = errors.New("значение не найдено")
