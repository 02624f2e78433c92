// Package web содержит тонкие контроллеры страниц воронки. Вся логика
// живёт в usecase/analysis; здесь только разбор запроса, cookie сессии
// и JSON-ответы с полем redirect для навигации на стороне фронта.
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gazel-funnel/internal/domain"
	"gazel-funnel/internal/infra/metrics"
	"gazel-funnel/internal/urlnorm"
	"gazel-funnel/internal/usecase/analysis"
)

const sessionCookie = "gazel_session"

var resultTabs = map[string]bool{"audience": true, "messaging": true, "credibility": true, "ux": true}

// Handler обслуживает страницы воронки.
type Handler struct {
	analysisUC *analysis.Service
	store      domain.SessionStore
	log        zerolog.Logger
}

// NewHandler создаёт контроллеры страниц.
func NewHandler(analysisUC *analysis.Service, store domain.SessionStore, logger zerolog.Logger) *Handler {
	return &Handler{analysisUC: analysisUC, store: store, log: logger}
}

// Register вешает маршруты воронки на роутер.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/v1/analyze", h.handleAnalyze)
	r.Post("/api/v1/loading/run", h.handleLoadingRun)
	r.Get("/api/v1/results-pre", h.handleResultsPre)
	r.Get("/api/v1/results", h.handleResults)
}

type analyzeRequest struct {
	URL string `json:"url"`
}

// handleAnalyze обрабатывает отправку адреса с лендинга.
// Ошибка валидации возвращается как 422 без навигации: пользователь
// просто поправляет ввод.
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "не удалось прочитать запрос")
		return
	}

	sessionID := h.ensureSessionID(w, r)
	normalized, err := h.analysisUC.Begin(r.Context(), sessionID, req.URL)
	if err != nil {
		if errors.Is(err, urlnorm.ErrURLEmpty) || errors.Is(err, urlnorm.ErrURLInvalid) {
			metrics.AnalyzeRejectedTotal.Inc()
			writeError(w, http.StatusUnprocessableEntity, "введите корректный адрес сайта")
			return
		}
		h.log.Error().Err(err).Msg("web: не удалось начать анализ")
		writeError(w, http.StatusInternalServerError, "внутренняя ошибка")
		return
	}

	metrics.AnalyzeRequestsTotal.Inc()
	writeJSON(w, map[string]string{
		"analyzed_url": normalized,
		"redirect":     "/loading?url=" + url.QueryEscape(normalized),
	})
}

// handleLoadingRun выполняет прогон анализа для страницы загрузки.
// Навигация не происходит раньше минимальной длительности экрана,
// как бы быстро ни ответил API.
func (h *Handler) handleLoadingRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := h.ensureSessionID(w, r)

	analyzedURL, err := h.store.Get(ctx, domain.ScopeSession, sessionID, domain.KeyAnalyzedURL)
	if err != nil || analyzedURL == "" {
		// Фолбэк для прямого захода: адрес приходит query-параметром.
		if fallback := r.URL.Query().Get("url"); fallback != "" {
			if normalized, nerr := urlnorm.Normalize(fallback); nerr == nil {
				analyzedURL = normalized
				_ = h.store.Set(ctx, domain.ScopeSession, sessionID, domain.KeyAnalyzedURL, analyzedURL)
			}
		}
	}
	if analyzedURL == "" {
		writeJSON(w, map[string]string{"redirect": "/error"})
		return
	}

	if err := h.analysisUC.MarkStart(ctx, sessionID); err != nil {
		h.log.Warn().Err(err).Msg("web: не удалось отметить старт загрузки")
	}

	outcome := h.analysisUC.Run(ctx, sessionID)
	h.analysisUC.WaitGate(ctx, sessionID)

	if outcome.State != domain.OutcomeSucceeded {
		writeJSON(w, map[string]string{"redirect": "/error"})
		return
	}
	writeJSON(w, map[string]string{
		"analyzed_url": analyzedURL,
		"redirect":     "/results-pre",
	})
}

// handleResultsPre отдаёт предварительный отчёт и адрес оплаты.
func (h *Handler) handleResultsPre(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := h.ensureSessionID(w, r)

	analyzedURL, _ := h.store.Get(ctx, domain.ScopeSession, sessionID, domain.KeyAnalyzedURL)
	checkoutURL, _ := h.store.Get(ctx, domain.ScopeSession, sessionID, domain.KeyCheckoutURL)

	result := h.analysisUC.FetchReport(ctx, sessionID, false)
	writeJSON(w, map[string]any{
		"analyzed_url": analyzedURL,
		"checkout_url": checkoutURL,
		"report":       result,
		"simulated":    result.Simulated,
	})
}

// handleResults отдаёт полный отчёт. Параметры userId/analyzedUrl
// поддерживают заход по ссылке из письма: они сохраняются в сессию,
// а фронт убирает их из адресной строки. Статус оплаты проверяется
// при каждом входе заново.
func (h *Handler) handleResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := h.ensureSessionID(w, r)
	query := r.URL.Query()

	strippedQuery := false
	if userID := query.Get("userId"); userID != "" {
		_ = h.store.Set(ctx, domain.ScopeSession, sessionID, domain.KeyUserID, userID)
		strippedQuery = true
	}
	if rawURL := query.Get("analyzedUrl"); rawURL != "" {
		if normalized, err := urlnorm.Normalize(rawURL); err == nil {
			_ = h.store.Set(ctx, domain.ScopeSession, sessionID, domain.KeyAnalyzedURL, normalized)
		}
		strippedQuery = true
	}

	status, err := h.analysisUC.CheckAccess(ctx, sessionID)
	if err != nil {
		h.log.Warn().Err(err).Msg("web: проверка оплаты не удалась")
	}
	if status != domain.PaymentPaid {
		writeJSON(w, map[string]any{"redirect": "/results-pre", "stripped_query": strippedQuery})
		return
	}

	analyzedURL, _ := h.store.Get(ctx, domain.ScopeSession, sessionID, domain.KeyAnalyzedURL)
	result := h.analysisUC.FetchReport(ctx, sessionID, true)

	tab := query.Get("tab")
	if !resultTabs[tab] {
		tab = "audience"
	}

	writeJSON(w, map[string]any{
		"analyzed_url":   analyzedURL,
		"report":         result,
		"simulated":      result.Simulated,
		"active_tab":     tab,
		"stripped_query": strippedQuery,
	})
}

// ensureSessionID читает cookie сессии или выпускает новую.
func (h *Handler) ensureSessionID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	sessionID := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(365 * 24 * time.Hour),
	})
	return sessionID
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
