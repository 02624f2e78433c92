package domain

import (
	"context"
	"encoding/json"
)

// Scope задаёт время жизни записи в хранилище сессий.
type Scope string

const (
	// ScopeSession живёт в пределах одного прохода по воронке.
	ScopeSession Scope = "session"
	// ScopePersistent переживает закрытие вкладки и повторные визиты.
	ScopePersistent Scope = "persistent"
)

// SessionStore — key-value хранилище состояния воронки.
// Последняя запись побеждает, блокировок нет: посетитель ведёт
// через воронку одну вкладку за раз.
type SessionStore interface {
	Get(ctx context.Context, scope Scope, sessionID, key string) (string, error)
	Set(ctx context.Context, scope Scope, sessionID, key, value string) error
	Delete(ctx context.Context, scope Scope, sessionID, key string) error
}

// AnalysisAPI описывает удалённый API анализа и оплаты.
type AnalysisAPI interface {
	SubmitAnalysis(ctx context.Context, url, id string) error
	CheckPayment(ctx context.Context, id string) (bool, error)
	FetchResults(ctx context.Context, id string, paid bool) (json.RawMessage, error)
}
