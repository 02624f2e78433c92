package domain

import "time"

// Session хранит состояние воронки одного посетителя между страницами.
type Session struct {
	UserID            string
	AnalyzedURL       string
	AnalysisStartTime time.Time
	CheckoutURL       string
}

// PaymentStatus описывает статус оплаты анализа.
type PaymentStatus int

const (
	PaymentUnknown PaymentStatus = iota
	PaymentPaid
	PaymentUnpaid
)

// OutcomeState описывает жизненный цикл результата анализа.
type OutcomeState string

const (
	OutcomePending   OutcomeState = "pending"
	OutcomeSucceeded OutcomeState = "succeeded"
	OutcomeFailed    OutcomeState = "failed"
)

// AnalysisOutcome фиксирует итог одного прогона анализа.
// Создаётся в состоянии pending и переходит в succeeded либо failed ровно один раз.
type AnalysisOutcome struct {
	State  OutcomeState `json:"state"`
	Report *ScoreReport `json:"report,omitempty"`
	Reason string       `json:"reason,omitempty"`
}

// CategoryScore содержит оценку одной категории отчёта.
type CategoryScore struct {
	Score       int      `json:"score"`
	Summary     string   `json:"summary"`
	Explanation []string `json:"explanation"`
}

// AudienceProfile описывает демографию аудитории сайта.
type AudienceProfile struct {
	MenPercent       float64            `json:"men_percent"`
	WomenPercent     float64            `json:"women_percent"`
	DominantAgeGroup string             `json:"dominant_age_group"`
	AgeGroups        map[string]float64 `json:"age_groups,omitempty"`
	SocialPlatforms  map[string]float64 `json:"social_platforms,omitempty"`
}

// ScoreReport — каноническая форма отчёта для отображения.
type ScoreReport struct {
	OverallScore int             `json:"overall_score"`
	Audience     CategoryScore   `json:"audience"`
	Messaging    CategoryScore   `json:"messaging"`
	Credibility  CategoryScore   `json:"credibility"`
	UX           CategoryScore   `json:"ux"`
	Profile      AudienceProfile `json:"profile"`
	Simulated    bool            `json:"simulated"`
}

// CategoryScores возвращает четыре оценки категорий в фиксированном порядке.
func (r ScoreReport) CategoryScores() [4]int {
	return [4]int{r.Audience.Score, r.Messaging.Score, r.Credibility.Score, r.UX.Score}
}
