// Package analysis реализует машину состояний анализа и оплаты:
// запуск удалённого анализа, проверку оплаты, загрузку результатов
// и минимальную длительность экрана загрузки.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"gazel-funnel/internal/domain"
	"gazel-funnel/internal/identity"
	"gazel-funnel/internal/infra/metrics"
	"gazel-funnel/internal/reftoken"
	"gazel-funnel/internal/urlnorm"
	"gazel-funnel/internal/usecase/report"
)

// ErrSessionIncomplete возвращается, когда в сессии нет адреса или
// идентификатора, необходимых для прогона анализа.
var ErrSessionIncomplete = errors.New("в сессии нет данных для анализа")

// Service управляет последовательностью удалённых вызовов воронки.
// Все шаги одного прогона строго последовательны; повторов нет,
// каждый шаг выполняется не более одного раза за визит страницы.
type Service struct {
	api          domain.AnalysisAPI
	store        domain.SessionStore
	ids          *identity.Provider
	checkoutBase string
	minLoading   time.Duration
	log          zerolog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// NewService создаёт оркестратор анализа.
func NewService(api domain.AnalysisAPI, store domain.SessionStore, ids *identity.Provider, checkoutBase string, minLoading time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		api:          api,
		store:        store,
		ids:          ids,
		checkoutBase: checkoutBase,
		minLoading:   minLoading,
		log:          logger,
		now:          time.Now,
		sleep:        sleepCtx,
	}
}

// Begin обрабатывает отправку адреса с лендинга: нормализует ввод,
// получает идентификатор пользователя и кладёт в сессию всё, что
// понадобится странице загрузки, включая адрес оплаты с токеном.
func (s *Service) Begin(ctx context.Context, sessionID, rawURL string) (string, error) {
	normalized, err := urlnorm.Normalize(rawURL)
	if err != nil {
		return "", err
	}
	userID, err := s.ids.GetOrCreate(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("получение идентификатора: %w", err)
	}

	if err := s.store.Set(ctx, domain.ScopeSession, sessionID, domain.KeyAnalyzedURL, normalized); err != nil {
		return "", fmt.Errorf("сохранение адреса: %w", err)
	}

	checkoutURL, err := reftoken.CheckoutURL(s.checkoutBase, reftoken.Reference{ID: userID, URL: normalized})
	if err != nil {
		return "", fmt.Errorf("построение адреса оплаты: %w", err)
	}
	if err := s.store.Set(ctx, domain.ScopeSession, sessionID, domain.KeyCheckoutURL, checkoutURL); err != nil {
		return "", fmt.Errorf("сохранение адреса оплаты: %w", err)
	}
	return normalized, nil
}

// MarkStart запоминает момент начала работы страницы загрузки.
func (s *Service) MarkStart(ctx context.Context, sessionID string) error {
	value := strconv.FormatInt(s.now().UnixMilli(), 10)
	if err := s.store.Set(ctx, domain.ScopeSession, sessionID, domain.KeyAnalysisStartTime, value); err != nil {
		return fmt.Errorf("сохранение времени старта: %w", err)
	}
	return nil
}

// Run выполняет прогон: запуск анализа, проверка оплаты, загрузка
// результатов и проекция. Любой сбой сети, не-2xx статус или
// нечитаемый JSON завершает прогон состоянием failed без повторов.
// Итог сохраняется в сессии и не мутирует после перехода.
func (s *Service) Run(ctx context.Context, sessionID string) domain.AnalysisOutcome {
	started := s.now()
	outcome := domain.AnalysisOutcome{State: domain.OutcomePending}
	s.saveOutcome(ctx, sessionID, outcome)

	outcome = s.run(ctx, sessionID)

	s.saveOutcome(ctx, sessionID, outcome)
	metrics.IncAnalysisRun(string(outcome.State))
	metrics.AnalysisRunSeconds.Observe(s.now().Sub(started).Seconds())
	return outcome
}

func (s *Service) run(ctx context.Context, sessionID string) domain.AnalysisOutcome {
	analyzedURL, err := s.store.Get(ctx, domain.ScopeSession, sessionID, domain.KeyAnalyzedURL)
	if err != nil || analyzedURL == "" {
		return failed(fmt.Errorf("%w: нет адреса", ErrSessionIncomplete))
	}
	userID, err := s.store.Get(ctx, domain.ScopeSession, sessionID, domain.KeyUserID)
	if err != nil || userID == "" {
		return failed(fmt.Errorf("%w: нет идентификатора", ErrSessionIncomplete))
	}

	// Тело ответа не нужно, но сам запрос обязан завершиться успешно.
	if err := s.api.SubmitAnalysis(ctx, analyzedURL, userID); err != nil {
		s.log.Error().Err(err).Str("url", analyzedURL).Msg("analysis: запуск анализа не удался")
		return failed(fmt.Errorf("запуск анализа: %w", err))
	}

	paid, err := s.api.CheckPayment(ctx, userID)
	if err != nil {
		s.log.Error().Err(err).Msg("analysis: проверка оплаты не удалась")
		return failed(fmt.Errorf("проверка оплаты: %w", err))
	}

	raw, err := s.api.FetchResults(ctx, userID, paid)
	if err != nil {
		s.log.Error().Err(err).Bool("paid", paid).Msg("analysis: загрузка результатов не удалась")
		return failed(fmt.Errorf("загрузка результатов: %w", err))
	}

	projected, err := report.Project(raw)
	if err != nil {
		s.log.Error().Err(err).Msg("analysis: ответ API не прошёл валидацию")
		return failed(err)
	}

	return domain.AnalysisOutcome{State: domain.OutcomeSucceeded, Report: &projected}
}

func failed(err error) domain.AnalysisOutcome {
	return domain.AnalysisOutcome{State: domain.OutcomeFailed, Reason: err.Error()}
}

func (s *Service) saveOutcome(ctx context.Context, sessionID string, outcome domain.AnalysisOutcome) {
	raw, err := json.Marshal(outcome)
	if err != nil {
		s.log.Error().Err(err).Msg("analysis: не удалось сериализовать итог")
		return
	}
	if err := s.store.Set(ctx, domain.ScopeSession, sessionID, domain.KeyAnalysisOutcome, string(raw)); err != nil {
		s.log.Warn().Err(err).Msg("analysis: не удалось сохранить итог")
	}
}

// Outcome возвращает сохранённый итог последнего прогона.
func (s *Service) Outcome(ctx context.Context, sessionID string) (domain.AnalysisOutcome, error) {
	raw, err := s.store.Get(ctx, domain.ScopeSession, sessionID, domain.KeyAnalysisOutcome)
	if err != nil {
		return domain.AnalysisOutcome{}, err
	}
	var outcome domain.AnalysisOutcome
	if err := json.Unmarshal([]byte(raw), &outcome); err != nil {
		return domain.AnalysisOutcome{}, fmt.Errorf("чтение итога: %w", err)
	}
	return outcome, nil
}

// GateDelay возвращает, сколько ещё нужно продержать экран загрузки:
// max(0, минимум − прошедшее время). Задержка применяется после
// завершения прогона, не до него.
func (s *Service) GateDelay(ctx context.Context, sessionID string) time.Duration {
	raw, err := s.store.Get(ctx, domain.ScopeSession, sessionID, domain.KeyAnalysisStartTime)
	if err != nil {
		return 0
	}
	startMilli, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	elapsed := s.now().Sub(time.UnixMilli(startMilli))
	if elapsed >= s.minLoading {
		return 0
	}
	return s.minLoading - elapsed
}

// WaitGate выдерживает минимальную длительность экрана загрузки.
func (s *Service) WaitGate(ctx context.Context, sessionID string) {
	if delay := s.GateDelay(ctx, sessionID); delay > 0 {
		s.sleep(ctx, delay)
	}
}

// CheckAccess заново запрашивает статус оплаты. Статус никогда не
// кэшируется: оплата может измениться между визитами страницы.
func (s *Service) CheckAccess(ctx context.Context, sessionID string) (domain.PaymentStatus, error) {
	userID, err := s.store.Get(ctx, domain.ScopeSession, sessionID, domain.KeyUserID)
	if err != nil || userID == "" {
		return domain.PaymentUnknown, fmt.Errorf("%w: нет идентификатора", ErrSessionIncomplete)
	}
	paid, err := s.api.CheckPayment(ctx, userID)
	if err != nil {
		return domain.PaymentUnknown, fmt.Errorf("проверка оплаты: %w", err)
	}
	if paid {
		return domain.PaymentPaid, nil
	}
	return domain.PaymentUnpaid, nil
}

// FetchReport загружает и проецирует свежие результаты для страницы
// отчёта. При сбое сети или невалидном ответе страницы результатов
// получают симулированный отчёт с пометкой, а не ошибку.
func (s *Service) FetchReport(ctx context.Context, sessionID string, paid bool) domain.ScoreReport {
	analyzedURL, _ := s.store.Get(ctx, domain.ScopeSession, sessionID, domain.KeyAnalyzedURL)

	userID, err := s.store.Get(ctx, domain.ScopeSession, sessionID, domain.KeyUserID)
	if err != nil || userID == "" {
		return s.fallback(analyzedURL, fmt.Errorf("%w: нет идентификатора", ErrSessionIncomplete))
	}

	raw, err := s.api.FetchResults(ctx, userID, paid)
	if err != nil {
		return s.fallback(analyzedURL, err)
	}
	projected, err := report.Project(raw)
	if err != nil {
		return s.fallback(analyzedURL, err)
	}
	return projected
}

func (s *Service) fallback(analyzedURL string, cause error) domain.ScoreReport {
	s.log.Warn().Err(cause).Str("url", analyzedURL).Msg("analysis: отдаём симулированный отчёт")
	metrics.SimulatedReportsTotal.Inc()
	return report.GenerateSimulated(analyzedURL)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
