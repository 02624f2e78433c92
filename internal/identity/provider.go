// Package identity выдаёт стабильный непрозрачный идентификатор посетителя.
package identity

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"gazel-funnel/internal/domain"
)

// Policy определяет, переиспользуется ли идентификатор между прогонами анализа.
type Policy string

const (
	// PolicyStable — идентификатор создаётся один раз и переживает визиты.
	PolicyStable Policy = "stable"
	// PolicyFresh — на каждый запуск анализа чеканится новый идентификатор.
	PolicyFresh Policy = "fresh"
)

const randomSuffixLen = 8

// Provider читает или чеканит идентификатор пользователя.
type Provider struct {
	store  domain.SessionStore
	policy Policy
	log    zerolog.Logger
	now    func() time.Time
	randFn func() float64
}

// NewProvider создаёт провайдер идентификаторов.
func NewProvider(store domain.SessionStore, policy Policy, logger zerolog.Logger) *Provider {
	return &Provider{
		store:  store,
		policy: policy,
		log:    logger,
		now:    time.Now,
		randFn: rand.Float64,
	}
}

// GetOrCreate возвращает сохранённый идентификатор либо чеканит новый.
// Сначала проверяется долговременное хранилище, затем сессионное.
// Уникальность нового значения — best effort (время плюс случайность):
// коллизия грозит лишь смешением чужих результатов, не безопасностью.
func (p *Provider) GetOrCreate(ctx context.Context, sessionID string) (string, error) {
	if p.policy == PolicyStable {
		if id := p.lookup(ctx, sessionID); id != "" {
			return id, nil
		}
	}

	id := p.mint()
	if err := p.store.Set(ctx, domain.ScopePersistent, sessionID, domain.KeyUserID, id); err != nil {
		// Отказ долговременной записи не фатален: значение остаётся в сессии.
		p.log.Warn().Err(err).Msg("identity: не удалось сохранить идентификатор надолго")
	}
	if err := p.store.Set(ctx, domain.ScopeSession, sessionID, domain.KeyUserID, id); err != nil {
		return "", fmt.Errorf("сохранение идентификатора: %w", err)
	}
	return id, nil
}

func (p *Provider) lookup(ctx context.Context, sessionID string) string {
	for _, scope := range []domain.Scope{domain.ScopePersistent, domain.ScopeSession} {
		value, err := p.store.Get(ctx, scope, sessionID, domain.KeyUserID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				p.log.Warn().Err(err).Str("scope", string(scope)).Msg("identity: ошибка чтения идентификатора")
			}
			continue
		}
		if value != "" {
			return value
		}
	}
	return ""
}

// mint собирает идентификатор из base36-таймстампа и случайного суффикса.
func (p *Provider) mint() string {
	timestamp := strconv.FormatInt(p.now().UnixMilli(), 36)
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	suffix := make([]byte, randomSuffixLen)
	for i := range suffix {
		suffix[i] = alphabet[int(p.randFn()*float64(len(alphabet)))%len(alphabet)]
	}
	return timestamp + string(suffix)
}
