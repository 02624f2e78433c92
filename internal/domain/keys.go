package domain

// Ключи записей в SessionStore.
const (
	KeyUserID            = "userId"
	KeyAnalyzedURL       = "analyzedUrl"
	KeyAnalysisStartTime = "analysisStartTime"
	KeyCheckoutURL       = "checkoutUrl"
	KeyAnalysisOutcome   = "analysisOutcome"
)
