package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"gazel-funnel/internal/domain"
	"gazel-funnel/internal/identity"
)

type memStore struct {
	values map[string]string
}

func newMemStore() *memStore {
	return &memStore{values: map[string]string{}}
}

func (s *memStore) key(scope domain.Scope, sessionID, key string) string {
	return string(scope) + ":" + sessionID + ":" + key
}

func (s *memStore) Get(_ context.Context, scope domain.Scope, sessionID, key string) (string, error) {
	value, ok := s.values[s.key(scope, sessionID, key)]
	if !ok {
		return "", domain.ErrNotFound
	}
	return value, nil
}

func (s *memStore) Set(_ context.Context, scope domain.Scope, sessionID, key, value string) error {
	s.values[s.key(scope, sessionID, key)] = value
	return nil
}

func (s *memStore) Delete(_ context.Context, scope domain.Scope, sessionID, key string) error {
	delete(s.values, s.key(scope, sessionID, key))
	return nil
}

type fakeAPI struct {
	submitErr  error
	paymentErr error
	paid       bool
	fetchErr   error
	results    string

	submitted   bool
	fetchedPaid *bool
}

func (f *fakeAPI) SubmitAnalysis(context.Context, string, string) error {
	f.submitted = true
	return f.submitErr
}

func (f *fakeAPI) CheckPayment(context.Context, string) (bool, error) {
	return f.paid, f.paymentErr
}

func (f *fakeAPI) FetchResults(_ context.Context, _ string, paid bool) (json.RawMessage, error) {
	f.fetchedPaid = &paid
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return json.RawMessage(f.results), nil
}

const validFullResults = `{"data":{
	"Target_Audience":{"audience_score":80,"audience_summary":"s","audience_age_groups":{"age_25_34":60,"age_35_44":40}},
	"Messaging":{"messaging_score":70},
	"Credibility":{"credibility_score":90},
	"User_Experience":{"ux_score":60}
}}`

func newServiceWithSession(t *testing.T, api domain.AnalysisAPI) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	ids := identity.NewProvider(store, identity.PolicyStable, zerolog.Nop())
	service := NewService(api, store, ids, "https://buy.stripe.com/test", 5*time.Second, zerolog.Nop())
	ctx := context.Background()
	_ = store.Set(ctx, domain.ScopeSession, "sess", domain.KeyAnalyzedURL, "https://example.com")
	_ = store.Set(ctx, domain.ScopeSession, "sess", domain.KeyUserID, "user-1")
	return service, store
}

func TestBeginNormalizesAndStoresSession(t *testing.T) {
	api := &fakeAPI{}
	store := newMemStore()
	ids := identity.NewProvider(store, identity.PolicyStable, zerolog.Nop())
	service := NewService(api, store, ids, "https://buy.stripe.com/test", 5*time.Second, zerolog.Nop())

	normalized, err := service.Begin(context.Background(), "sess", "example.com")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if normalized != "https://example.com" {
		t.Fatalf("ожидали https://example.com, получили %q", normalized)
	}
	if got, _ := store.Get(context.Background(), domain.ScopeSession, "sess", domain.KeyAnalyzedURL); got != normalized {
		t.Fatalf("адрес не сохранён: %q", got)
	}
	checkout, _ := store.Get(context.Background(), domain.ScopeSession, "sess", domain.KeyCheckoutURL)
	if checkout == "" {
		t.Fatal("адрес оплаты не сохранён")
	}
}

func TestBeginRejectsInvalidURL(t *testing.T) {
	api := &fakeAPI{}
	store := newMemStore()
	ids := identity.NewProvider(store, identity.PolicyStable, zerolog.Nop())
	service := NewService(api, store, ids, "https://buy.stripe.com/test", 5*time.Second, zerolog.Nop())

	if _, err := service.Begin(context.Background(), "sess", "not a url"); err == nil {
		t.Fatal("ожидали ошибку валидации")
	}
	if api.submitted {
		t.Fatal("невалидный адрес не должен доходить до API")
	}
}

func TestRunPaidFetchesFullResults(t *testing.T) {
	api := &fakeAPI{paid: true, results: validFullResults}
	service, _ := newServiceWithSession(t, api)

	outcome := service.Run(context.Background(), "sess")
	if outcome.State != domain.OutcomeSucceeded {
		t.Fatalf("ожидали succeeded, получили %s (%s)", outcome.State, outcome.Reason)
	}
	if api.fetchedPaid == nil || !*api.fetchedPaid {
		t.Fatal("при оплате должен запрашиваться full_results")
	}
	if outcome.Report == nil || outcome.Report.OverallScore != 75 {
		t.Fatalf("неожиданный отчёт: %+v", outcome.Report)
	}
}

func TestRunUnpaidFetchesPreResults(t *testing.T) {
	api := &fakeAPI{paid: false, results: `{"data":{"overall_score":72,"audience_score":70,"messaging_score":74,"credibility_score":71,"ux_score":73}}`}
	service, _ := newServiceWithSession(t, api)

	outcome := service.Run(context.Background(), "sess")
	if outcome.State != domain.OutcomeSucceeded {
		t.Fatalf("ожидали succeeded, получили %s (%s)", outcome.State, outcome.Reason)
	}
	if api.fetchedPaid == nil || *api.fetchedPaid {
		t.Fatal("без оплаты должен запрашиваться pre_results")
	}
}

func TestRunSubmitFailureIsFatal(t *testing.T) {
	api := &fakeAPI{submitErr: errors.New("сеть недоступна")}
	service, _ := newServiceWithSession(t, api)

	outcome := service.Run(context.Background(), "sess")
	if outcome.State != domain.OutcomeFailed {
		t.Fatalf("ожидали failed, получили %s", outcome.State)
	}
	if outcome.Reason == "" {
		t.Fatal("ожидали причину сбоя")
	}
	if api.fetchedPaid != nil {
		t.Fatal("после сбоя запуска результаты запрашиваться не должны")
	}

	saved, err := service.Outcome(context.Background(), "sess")
	if err != nil {
		t.Fatalf("итог должен быть сохранён: %v", err)
	}
	if saved.State != domain.OutcomeFailed {
		t.Fatalf("сохранён неверный итог: %s", saved.State)
	}
}

func TestRunInvalidPayloadIsFailed(t *testing.T) {
	api := &fakeAPI{paid: true, results: `{"data":{"Target_Audience":{}}}`}
	service, _ := newServiceWithSession(t, api)

	outcome := service.Run(context.Background(), "sess")
	if outcome.State != domain.OutcomeFailed {
		t.Fatalf("невалидный ответ должен завершать прогон, получили %s", outcome.State)
	}
}

func TestGateDelayHoldsMinimumDuration(t *testing.T) {
	api := &fakeAPI{paid: false, results: `{"data":{"overall_score":72}}`}
	service, _ := newServiceWithSession(t, api)

	start := time.UnixMilli(1700000000000)
	current := start
	service.now = func() time.Time { return current }

	if err := service.MarkStart(context.Background(), "sess"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}

	// Все сетевые шаги уложились в 500мс — задержка добивает до минимума.
	current = start.Add(500 * time.Millisecond)
	if delay := service.GateDelay(context.Background(), "sess"); delay != 4500*time.Millisecond {
		t.Fatalf("ожидали 4.5s, получили %s", delay)
	}

	current = start.Add(7 * time.Second)
	if delay := service.GateDelay(context.Background(), "sess"); delay != 0 {
		t.Fatalf("после минимума задержка должна быть нулевой, получили %s", delay)
	}
}

func TestWaitGateSleepsRemainder(t *testing.T) {
	api := &fakeAPI{}
	service, _ := newServiceWithSession(t, api)

	start := time.UnixMilli(1700000000000)
	current := start
	service.now = func() time.Time { return current }
	var slept time.Duration
	service.sleep = func(_ context.Context, d time.Duration) { slept = d }

	if err := service.MarkStart(context.Background(), "sess"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	current = start.Add(2 * time.Second)
	service.WaitGate(context.Background(), "sess")
	if slept != 3*time.Second {
		t.Fatalf("ожидали сон 3s, получили %s", slept)
	}
}

func TestCheckAccessMapsPaymentStatus(t *testing.T) {
	api := &fakeAPI{paid: true}
	service, _ := newServiceWithSession(t, api)
	status, err := service.CheckAccess(context.Background(), "sess")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if status != domain.PaymentPaid {
		t.Fatalf("ожидали paid, получили %v", status)
	}

	api.paid = false
	status, err = service.CheckAccess(context.Background(), "sess")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if status != domain.PaymentUnpaid {
		t.Fatalf("ожидали unpaid, получили %v", status)
	}

	api.paymentErr = errors.New("сбой")
	if status, _ = service.CheckAccess(context.Background(), "sess"); status != domain.PaymentUnknown {
		t.Fatalf("при ошибке статус должен быть unknown, получили %v", status)
	}
}

func TestFetchReportFallsBackToSimulated(t *testing.T) {
	api := &fakeAPI{fetchErr: errors.New("API недоступен")}
	service, _ := newServiceWithSession(t, api)

	got := service.FetchReport(context.Background(), "sess", false)
	if !got.Simulated {
		t.Fatal("при недоступном API ожидали симулированный отчёт")
	}
	for _, score := range got.CategoryScores() {
		if score < 65 || score > 95 {
			t.Fatalf("оценка %d вне диапазона симуляции", score)
		}
	}
}

func TestFetchReportUsesRealPayload(t *testing.T) {
	api := &fakeAPI{results: validFullResults}
	service, _ := newServiceWithSession(t, api)

	got := service.FetchReport(context.Background(), "sess", true)
	if got.Simulated {
		t.Fatal("валидный ответ не должен подменяться симуляцией")
	}
	if got.Profile.DominantAgeGroup != "25-34" {
		t.Fatalf("ожидали 25-34, получили %q", got.Profile.DominantAgeGroup)
	}
}
