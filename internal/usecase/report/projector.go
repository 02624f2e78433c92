// Package report приводит разношёрстные ответы API к канонической
// форме отчёта и генерирует симулированные данные для фолбэка.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"

	"gazel-funnel/internal/domain"
)

// ErrPayloadInvalid возвращается, когда ответ API распарсился как JSON,
// но не содержит обязательных полей. Нулевая итоговая оценка неотличима
// от отсутствия данных и тоже считается невалидной.
var ErrPayloadInvalid = errors.New("ответ API не содержит данных отчёта")

// Точки объяснений ограничены пятью на категорию.
const maxExplanationPoints = 5

var ageKeyRegex = regexp.MustCompile(`^age_(\d+)(?:_(\d+|plus))?$`)

type envelope struct {
	Data json.RawMessage `json:"data"`
}

// категория полного диалекта: и snake-, и kebab-ключи ведут сюда.
type rawCategory struct {
	AudienceScore       *float64           `json:"audience_score"`
	AudienceSummary     string             `json:"audience_summary"`
	AudienceExplanation []string           `json:"audience_explanation"`
	AudienceMen         float64            `json:"audience_men"`
	AudienceWomen       float64            `json:"audience_women"`
	AudienceAgeGroups   map[string]float64 `json:"audience_age_groups"`
	AudiencePlatforms   map[string]float64 `json:"audience_social_platforms"`

	MessagingScore       *float64 `json:"messaging_score"`
	MessagingSummary     string   `json:"messaging_summary"`
	MessagingExplanation []string `json:"messaging_explanation"`

	CredibilityScore       *float64 `json:"credibility_score"`
	CredibilitySummary     string   `json:"credibility_summary"`
	CredibilityExplanation []string `json:"credibility_explanation"`

	UXScore       *float64 `json:"ux_score"`
	UXSummary     string   `json:"ux_summary"`
	UXExplanation []string `json:"ux_explanation"`
}

type flatPayload struct {
	OverallScore     *float64 `json:"overall_score"`
	AudienceScore    *float64 `json:"audience_score"`
	MessagingScore   *float64 `json:"messaging_score"`
	CredibilityScore *float64 `json:"credibility_score"`
	UXScore          *float64 `json:"ux_score"`
}

// Project валидирует сырой ответ API и строит канонический отчёт.
// Распознаются три диалекта: полный с ключами Target_Audience/...,
// полный с kebab-ключами и плоский предпросмотровый с overall_score.
func Project(raw json.RawMessage) (domain.ScoreReport, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.ScoreReport{}, fmt.Errorf("%w: %v", ErrPayloadInvalid, err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return domain.ScoreReport{}, fmt.Errorf("%w: нет контейнера data", ErrPayloadInvalid)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(env.Data, &fields); err != nil {
		return domain.ScoreReport{}, fmt.Errorf("%w: %v", ErrPayloadInvalid, err)
	}

	switch {
	case hasAll(fields, "Target_Audience", "Messaging", "Credibility", "User_Experience"):
		return projectFull(fields, [4]string{"Target_Audience", "Messaging", "Credibility", "User_Experience"})
	case hasAll(fields, "target-audience", "messaging", "credibility", "user-experience"):
		return projectFull(fields, [4]string{"target-audience", "messaging", "credibility", "user-experience"})
	case fields["overall_score"] != nil:
		return projectFlat(env.Data)
	default:
		return domain.ScoreReport{}, fmt.Errorf("%w: не хватает обязательных категорий", ErrPayloadInvalid)
	}
}

func hasAll(fields map[string]json.RawMessage, keys ...string) bool {
	for _, key := range keys {
		if fields[key] == nil {
			return false
		}
	}
	return true
}

func projectFull(fields map[string]json.RawMessage, keys [4]string) (domain.ScoreReport, error) {
	var audience, messaging, credibility, ux rawCategory
	for i, target := range []*rawCategory{&audience, &messaging, &credibility, &ux} {
		if err := json.Unmarshal(fields[keys[i]], target); err != nil {
			return domain.ScoreReport{}, fmt.Errorf("%w: категория %s: %v", ErrPayloadInvalid, keys[i], err)
		}
	}

	scores := [4]*float64{audience.AudienceScore, messaging.MessagingScore, credibility.CredibilityScore, ux.UXScore}
	var sum float64
	for i, score := range scores {
		if score == nil {
			return domain.ScoreReport{}, fmt.Errorf("%w: нет оценки категории %s", ErrPayloadInvalid, keys[i])
		}
		sum += *score
	}
	// Прямое поле overall_score, если оно есть, является окончательным;
	// среднее считается только в его отсутствие.
	overall := int(math.Round(sum / 4))
	if raw, ok := fields["overall_score"]; ok {
		var direct float64
		if err := json.Unmarshal(raw, &direct); err != nil {
			return domain.ScoreReport{}, fmt.Errorf("%w: overall_score: %v", ErrPayloadInvalid, err)
		}
		overall = int(math.Round(direct))
	}
	if overall == 0 {
		return domain.ScoreReport{}, fmt.Errorf("%w: нулевая итоговая оценка", ErrPayloadInvalid)
	}

	result := domain.ScoreReport{
		OverallScore: overall,
		Audience: domain.CategoryScore{
			Score:       int(math.Round(*audience.AudienceScore)),
			Summary:     audience.AudienceSummary,
			Explanation: capPoints(audience.AudienceExplanation),
		},
		Messaging: domain.CategoryScore{
			Score:       int(math.Round(*messaging.MessagingScore)),
			Summary:     messaging.MessagingSummary,
			Explanation: capPoints(messaging.MessagingExplanation),
		},
		Credibility: domain.CategoryScore{
			Score:       int(math.Round(*credibility.CredibilityScore)),
			Summary:     credibility.CredibilitySummary,
			Explanation: capPoints(credibility.CredibilityExplanation),
		},
		UX: domain.CategoryScore{
			Score:       int(math.Round(*ux.UXScore)),
			Summary:     ux.UXSummary,
			Explanation: capPoints(ux.UXExplanation),
		},
		Profile: domain.AudienceProfile{
			MenPercent:       audience.AudienceMen,
			WomenPercent:     audience.AudienceWomen,
			AgeGroups:        audience.AudienceAgeGroups,
			SocialPlatforms:  audience.AudiencePlatforms,
			DominantAgeGroup: DominantAgeGroup(audience.AudienceAgeGroups),
		},
	}
	return result, nil
}

func projectFlat(data json.RawMessage) (domain.ScoreReport, error) {
	var flat flatPayload
	if err := json.Unmarshal(data, &flat); err != nil {
		return domain.ScoreReport{}, fmt.Errorf("%w: %v", ErrPayloadInvalid, err)
	}
	if flat.OverallScore == nil || int(math.Round(*flat.OverallScore)) == 0 {
		return domain.ScoreReport{}, fmt.Errorf("%w: нулевая итоговая оценка", ErrPayloadInvalid)
	}
	return domain.ScoreReport{
		OverallScore: int(math.Round(*flat.OverallScore)),
		Audience:     domain.CategoryScore{Score: roundOrZero(flat.AudienceScore)},
		Messaging:    domain.CategoryScore{Score: roundOrZero(flat.MessagingScore)},
		Credibility:  domain.CategoryScore{Score: roundOrZero(flat.CredibilityScore)},
		UX:           domain.CategoryScore{Score: roundOrZero(flat.UXScore)},
	}, nil
}

func roundOrZero(value *float64) int {
	if value == nil {
		return 0
	}
	return int(math.Round(*value))
}

func capPoints(points []string) []string {
	if len(points) > maxExplanationPoints {
		return points[:maxExplanationPoints]
	}
	return points
}

// DominantAgeGroup выбирает возрастную группу с максимальной долей
// и возвращает её человекочитаемую метку. При равенстве долей берётся
// лексикографически первый ключ, чтобы результат был детерминирован.
func DominantAgeGroup(groups map[string]float64) string {
	if len(groups) == 0 {
		return ""
	}
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	best := keys[0]
	for _, key := range keys[1:] {
		if groups[key] > groups[best] {
			best = key
		}
	}
	return AgeGroupLabel(best)
}

// AgeGroupLabel превращает ключ вида age_25_34 в метку "25-34",
// age_45_plus в "45+", age_18 в "18". Неопознанный ключ проходит как есть.
func AgeGroupLabel(key string) string {
	match := ageKeyRegex.FindStringSubmatch(key)
	if match == nil {
		return key
	}
	from, to := match[1], match[2]
	switch {
	case to == "plus":
		return from + "+"
	case to != "":
		return from + "-" + to
	default:
		return from
	}
}
