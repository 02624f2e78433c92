package report

import (
	"fmt"
	"math"
	"math/rand"

	"gazel-funnel/internal/domain"
)

// Диапазоны симулированных значений.
const (
	simScoreMin = 65
	simScoreMax = 95
)

var simAgeGroupKeys = []string{"age_18_24", "age_25_34", "age_35_44", "age_45_54", "age_55_plus"}

// GenerateSimulated строит правдоподобный отчёт, когда удалённый API
// недоступен или вернул невалидные данные. Числа случайны при каждом
// вызове; отчёт всегда помечен как симулированный, чтобы страница
// показала уведомление и не выдала заглушку за реальные данные.
func GenerateSimulated(analyzedURL string) domain.ScoreReport {
	audienceScore := simScore()
	messagingScore := simScore()
	credibilityScore := simScore()
	uxScore := simScore()

	men := 40 + rand.Float64()*20
	men = math.Round(men)

	ageGroups := simAgeGroups()
	platforms := map[string]float64{
		"facebook":  simPercent(10, 30),
		"instagram": simPercent(20, 40),
		"x_com":     simPercent(5, 20),
		"reddit":    simPercent(5, 15),
		"linkedin":  simPercent(10, 30),
	}

	return domain.ScoreReport{
		OverallScore: int(math.Round(float64(audienceScore+messagingScore+credibilityScore+uxScore) / 4)),
		Audience: domain.CategoryScore{
			Score:   audienceScore,
			Summary: fmt.Sprintf("Сайт %s привлекает смешанную аудиторию с заметным ядром постоянных посетителей.", analyzedURL),
			Explanation: []string{
				"Структура страниц рассчитана на широкую аудиторию",
				"Основное ядро посетителей приходит из поиска",
				"Социальный трафик распределён по нескольким платформам",
			},
		},
		Messaging: domain.CategoryScore{
			Score:   messagingScore,
			Summary: "Ключевые сообщения читаются, но выгоды продукта можно сформулировать конкретнее.",
			Explanation: []string{
				"Заголовки передают суть предложения",
				"Призывы к действию присутствуют на главных страницах",
				"Часть формулировок слишком общая",
			},
		},
		Credibility: domain.CategoryScore{
			Score:   credibilityScore,
			Summary: "Базовые сигналы доверия на месте; добавление отзывов усилит впечатление.",
			Explanation: []string{
				"Контактные данные легко найти",
				"Сайт использует защищённое соединение",
				"Социальные доказательства представлены слабо",
			},
		},
		UX: domain.CategoryScore{
			Score:   uxScore,
			Summary: "Навигация предсказуема, основные сценарии проходятся без препятствий.",
			Explanation: []string{
				"Меню и структура разделов понятны",
				"Страницы загружаются достаточно быстро",
				"Мобильная версия требует доработки отдельных блоков",
			},
		},
		Profile: domain.AudienceProfile{
			MenPercent:       men,
			WomenPercent:     100 - men,
			AgeGroups:        ageGroups,
			SocialPlatforms:  platforms,
			DominantAgeGroup: DominantAgeGroup(ageGroups),
		},
		Simulated: true,
	}
}

func simScore() int {
	return simScoreMin + rand.Intn(simScoreMax-simScoreMin+1)
}

func simPercent(min, max float64) float64 {
	return math.Round(min + rand.Float64()*(max-min))
}

// simAgeGroups раздаёт случайные веса по каноническим группам и
// нормирует их к сумме 100.
func simAgeGroups() map[string]float64 {
	weights := make([]float64, len(simAgeGroupKeys))
	var total float64
	for i := range weights {
		weights[i] = 1 + rand.Float64()*9
		total += weights[i]
	}
	groups := make(map[string]float64, len(simAgeGroupKeys))
	var allocated float64
	for i, key := range simAgeGroupKeys {
		if i == len(simAgeGroupKeys)-1 {
			groups[key] = 100 - allocated
			break
		}
		share := math.Round(weights[i] / total * 100)
		groups[key] = share
		allocated += share
	}
	return groups
}
