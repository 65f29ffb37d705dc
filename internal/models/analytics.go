package models

// AnalyticsSnapshot is the derived metrics view recomputed client-side from
// raw counters and case totals. It is never persisted; given identical inputs
// two recomputes produce identical snapshots.
type AnalyticsSnapshot struct {
	GrammarAttempts    int
	GrammarCorrect     int
	GrammarAccuracy    int
	DiscoveredWords    int
	VocabularyProgress int
	CluesDiscovered    int
	CaseProgress       int
	EngagementScore    int
}
