package analytics_test

import (
	"testing"

	"github.com/korpimaa/nightexpress/internal/analytics"
	"github.com/stretchr/testify/require"
)

func TestAggregator_GrammarAccuracy(t *testing.T) {
	a := analytics.NewAggregator(analytics.Totals{Vocabulary: 10, Clues: 6}, nil)

	// No attempts yet reads as perfect accuracy.
	require.Equal(t, 100, a.Snapshot().GrammarAccuracy)

	// Five attempts, two correct.
	a.RecordGrammarAttempt(true)
	a.RecordGrammarAttempt(true)
	a.RecordGrammarAttempt(false)
	a.RecordGrammarAttempt(false)
	a.RecordGrammarAttempt(false)
	snapshot := a.Snapshot()
	require.Equal(t, 5, snapshot.GrammarAttempts)
	require.Equal(t, 40, snapshot.GrammarAccuracy)
	require.Equal(t, 2, a.Counters().BestGrammarStreak)
}

func TestAggregator_WordDeduplication(t *testing.T) {
	a := analytics.NewAggregator(analytics.Totals{Vocabulary: 10, Clues: 6}, nil)

	// Same word in different casing counts once.
	a.RecordWordDiscovered("Knife")
	a.RecordWordDiscovered("knife")
	require.Equal(t, 1, a.Snapshot().DiscoveredWords)
	require.Equal(t, 10, a.Snapshot().VocabularyProgress)

	a.RecordWordDiscovered("ALIBI")
	require.Equal(t, 2, a.Snapshot().DiscoveredWords)
	require.Equal(t, 20, a.Snapshot().VocabularyProgress)
}

func TestAggregator_CaseProgress(t *testing.T) {
	a := analytics.NewAggregator(analytics.Totals{Vocabulary: 10, Clues: 6}, nil)

	a.RecordClueFound()
	a.RecordClueFound()
	a.RecordClueFound()
	require.Equal(t, 50, a.Snapshot().CaseProgress)
}

func TestAggregator_ZeroDenominators(t *testing.T) {
	a := analytics.NewAggregator(analytics.Totals{}, nil)
	a.RecordWordDiscovered("alibi")
	a.RecordClueFound()
	snapshot := a.Snapshot()
	require.Equal(t, 0, snapshot.VocabularyProgress)
	require.Equal(t, 0, snapshot.CaseProgress)
}

func TestAggregator_EngagementScore(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(a *analytics.Aggregator)
		expected int
	}{
		{
			name:     "no activity",
			mutate:   func(_ *analytics.Aggregator) {},
			expected: 0,
		},
		{
			name: "balanced activity",
			mutate: func(a *analytics.Aggregator) {
				// suspects 3*10=30, journal 6*5=30, chat 15*2=30.
				for range 3 {
					a.RecordSuspectInteraction()
				}
				for range 6 {
					a.RecordJournalEntry()
				}
				for range 15 {
					a.RecordChatMessage(false)
				}
			},
			expected: 30,
		},
		{
			name: "components cap at 100 before averaging",
			mutate: func(a *analytics.Aggregator) {
				for range 50 {
					a.RecordSuspectInteraction()
				}
			},
			expected: 33,
		},
		{
			name: "teacher broadcasts are excluded",
			mutate: func(a *analytics.Aggregator) {
				for range 10 {
					a.RecordChatMessage(true)
				}
			},
			expected: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := analytics.NewAggregator(analytics.Totals{Vocabulary: 10, Clues: 6}, nil)
			tt.mutate(a)
			require.Equal(t, tt.expected, a.Snapshot().EngagementScore)
		})
	}
}

func TestAggregator_SnapshotDeterminism(t *testing.T) {
	a := analytics.NewAggregator(analytics.Totals{Vocabulary: 10, Clues: 6}, nil)
	a.RecordGrammarAttempt(true)
	a.RecordWordDiscovered("motive")
	a.RecordClueFound()
	a.RecordMinigameScore("timetable-logic", 87)

	first := a.Snapshot()
	second := a.Snapshot()
	require.Equal(t, first, second, "recompute must be pure given unchanged counters")
}

func TestAggregator_RecomputeScheduling(t *testing.T) {
	recomputes := 0
	a := analytics.NewAggregator(analytics.Totals{Vocabulary: 10, Clues: 6}, func() {
		recomputes++
	})
	require.Equal(t, 1, recomputes, "construction performs the initial recompute")

	a.RecordClueFound()
	a.RecordGrammarAttempt(true)
	require.Equal(t, 3, recomputes)

	// Teacher broadcasts mutate nothing, so no recompute fires.
	a.RecordChatMessage(true)
	require.Equal(t, 3, recomputes)
}

func TestAggregator_MinigameLatestScore(t *testing.T) {
	a := analytics.NewAggregator(analytics.Totals{Vocabulary: 10, Clues: 6}, nil)
	a.RecordMinigameScore("telegram-scramble", 90)
	a.RecordMinigameScore("telegram-scramble", 40)
	// Latest score per id wins; the best across ids feeds the rule engine.
	require.Equal(t, 40, a.Counters().MinigameBestScore)
	a.RecordMinigameScore("luggage-match", 70)
	require.Equal(t, 70, a.Counters().MinigameBestScore)
}
