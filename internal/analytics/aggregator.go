// Package analytics folds raw gameplay event counters into the derived
// metrics snapshot the difficulty controller and the rule engine evaluate.
package analytics

import (
	"math"
	"strings"

	"github.com/korpimaa/nightexpress/internal/models"
)

// Totals are the static case denominators supplied by the content bundle.
type Totals struct {
	Vocabulary int
	Clues      int
}

// Counters is a read-only copy of the session-lifetime event counters. All
// counters are monotonically non-decreasing within a session.
type Counters struct {
	GrammarAttempts     int
	GrammarCorrect      int
	BestGrammarStreak   int
	DiscoveredWords     int
	CluesDiscovered     int
	DialoguesCompleted  int
	MinigameBestScore   int
	JournalEntries      int
	ChatMessages        int
	SuspectInteractions int
	LensChargesUsed     int
}

// Aggregator tracks gameplay counters and recomputes the snapshot after every
// mutation. It is not safe for concurrent use; the session runtime serializes
// all access on its dispatcher.
type Aggregator struct {
	totals Totals

	grammarAttempts    int
	grammarCorrect     int
	grammarStreak      int
	bestGrammarStreak  int
	discoveredWords    map[string]struct{}
	cluesDiscovered    int
	completedDialogues map[string]struct{}
	minigameScores     map[string]int
	journalEntries     int
	chatMessages       int
	suspectTalks       int
	lensChargesUsed    int

	snapshot models.AnalyticsSnapshot

	// onRecompute is invoked synchronously after every recompute. The runtime
	// uses it to schedule — never run inline — the controller and rule-engine
	// evaluation passes.
	onRecompute func()
}

// NewAggregator creates an aggregator for a fresh session. onRecompute may be
// nil.
func NewAggregator(totals Totals, onRecompute func()) *Aggregator {
	a := &Aggregator{
		totals:             totals,
		discoveredWords:    map[string]struct{}{},
		completedDialogues: map[string]struct{}{},
		minigameScores:     map[string]int{},
		onRecompute:        onRecompute,
	}
	a.recompute()
	return a
}

// RecordGrammarAttempt tracks one grammar exercise answer.
func (a *Aggregator) RecordGrammarAttempt(correct bool) {
	a.grammarAttempts++
	if correct {
		a.grammarCorrect++
		a.grammarStreak++
		if a.grammarStreak > a.bestGrammarStreak {
			a.bestGrammarStreak = a.grammarStreak
		}
	} else {
		a.grammarStreak = 0
	}
	a.recompute()
}

// RecordWordDiscovered adds a vocabulary word to the discovered set. Words
// are deduplicated case-insensitively.
func (a *Aggregator) RecordWordDiscovered(word string) {
	a.discoveredWords[strings.ToLower(word)] = struct{}{}
	a.recompute()
}

// RecordClueFound increments the discovered-clue count.
func (a *Aggregator) RecordClueFound() {
	a.cluesDiscovered++
	a.recompute()
}

// RecordDialogueCompleted tracks a completed dialogue once per id.
func (a *Aggregator) RecordDialogueCompleted(id string) {
	a.completedDialogues[id] = struct{}{}
	a.recompute()
}

// RecordMinigameScore stores the latest score for the minigame id.
func (a *Aggregator) RecordMinigameScore(id string, score int) {
	a.minigameScores[id] = score
	a.recompute()
}

// RecordJournalEntry counts one journal entry.
func (a *Aggregator) RecordJournalEntry() {
	a.journalEntries++
	a.recompute()
}

// RecordChatMessage counts one chat message. Teacher-authored broadcasts are
// excluded from the engagement figure, so they do not increment the counter.
func (a *Aggregator) RecordChatMessage(teacherBroadcast bool) {
	if teacherBroadcast {
		return
	}
	a.chatMessages++
	a.recompute()
}

// RecordSuspectInteraction counts one suspect questioning.
func (a *Aggregator) RecordSuspectInteraction() {
	a.suspectTalks++
	a.recompute()
}

// RecordLensChargeSpent counts one spent insight-lens charge.
func (a *Aggregator) RecordLensChargeSpent() {
	a.lensChargesUsed++
	a.recompute()
}

// Snapshot returns the current derived metrics. Pure with respect to the
// counters: identical counters and totals always yield identical snapshots.
func (a *Aggregator) Snapshot() models.AnalyticsSnapshot {
	return a.snapshot
}

// Counters returns a copy of the raw counters for rule evaluation.
func (a *Aggregator) Counters() Counters {
	bestScore := 0
	for _, score := range a.minigameScores {
		if score > bestScore {
			bestScore = score
		}
	}
	return Counters{
		GrammarAttempts:     a.grammarAttempts,
		GrammarCorrect:      a.grammarCorrect,
		BestGrammarStreak:   a.bestGrammarStreak,
		DiscoveredWords:     len(a.discoveredWords),
		CluesDiscovered:     a.cluesDiscovered,
		DialoguesCompleted:  len(a.completedDialogues),
		MinigameBestScore:   bestScore,
		JournalEntries:      a.journalEntries,
		ChatMessages:        a.chatMessages,
		SuspectInteractions: a.suspectTalks,
		LensChargesUsed:     a.lensChargesUsed,
	}
}

func (a *Aggregator) recompute() {
	grammarAccuracy := 100
	if a.grammarAttempts > 0 {
		grammarAccuracy = roundPercent(a.grammarCorrect, a.grammarAttempts)
	}
	vocabularyProgress := 0
	if a.totals.Vocabulary > 0 {
		vocabularyProgress = roundPercent(len(a.discoveredWords), a.totals.Vocabulary)
	}
	caseProgress := 0
	if a.totals.Clues > 0 {
		caseProgress = roundPercent(a.cluesDiscovered, a.totals.Clues)
	}

	a.snapshot = models.AnalyticsSnapshot{
		GrammarAttempts:    a.grammarAttempts,
		GrammarCorrect:     a.grammarCorrect,
		GrammarAccuracy:    grammarAccuracy,
		DiscoveredWords:    len(a.discoveredWords),
		VocabularyProgress: vocabularyProgress,
		CluesDiscovered:    a.cluesDiscovered,
		CaseProgress:       caseProgress,
		EngagementScore:    a.engagementScore(),
	}

	if a.onRecompute != nil {
		a.onRecompute()
	}
}

// engagementScore averages three components, each individually capped at 100
// before averaging so the score stays a hard 0..100.
func (a *Aggregator) engagementScore() int {
	components := []int{
		capAt100(a.suspectTalks * 10),
		capAt100(a.journalEntries * 5),
		capAt100(a.chatMessages * 2),
	}
	sum := 0
	for _, component := range components {
		sum += component
	}
	return int(math.Round(float64(sum) / float64(len(components))))
}

func capAt100(n int) int {
	if n > 100 {
		return 100
	}
	return n
}

func roundPercent(numerator, denominator int) int {
	return int(math.Round(100 * float64(numerator) / float64(denominator)))
}
