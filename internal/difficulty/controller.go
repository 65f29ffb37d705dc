// Package difficulty adjusts the learning difficulty of a session from
// analytics snapshots. Transitions move one level at a time, respect a
// wall-clock cooldown and are announced on the shared journal.
package difficulty

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/korpimaa/nightexpress/internal/errors"
	"github.com/korpimaa/nightexpress/internal/models"
)

const (
	historyLimit = 10
	cooldown     = 120 * time.Second

	stepDownBelow   = 50.0
	stepUpAbove     = 85.0
	promoteAbove    = 75.0
	consistentFloor = 70.0
	consistentRuns  = 5

	minAttemptsForData = 5
	minWordsForData    = 5
)

// Sink persists level transitions and announces them to the players.
type Sink interface {
	PersistLevel(ctx context.Context, level models.DifficultyLevel) error
	AppendJournal(ctx context.Context, actor, text string) error
}

// Controller holds the difficulty state of one session. It is not safe for
// concurrent use; the session runtime serializes all calls.
type Controller struct {
	sink     Sink
	logger   *slog.Logger
	now      func() time.Time
	settings models.DifficultySettings

	grammarHistory    []float64
	vocabularyHistory []float64
	lastEvaluation    time.Time
}

// NewController starts at the intermediate preset with automatic adjustment
// enabled. The clock is injectable so cooldown behavior is testable.
func NewController(sink Sink, logger *slog.Logger, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	settings := Preset(models.DifficultyIntermediate)
	settings.AutoAdjust = true
	return &Controller{
		sink:     sink,
		logger:   logger,
		now:      now,
		settings: settings,
	}
}

// Settings returns a copy of the current settings.
func (c *Controller) Settings() models.DifficultySettings {
	return c.settings
}

// Level returns the current difficulty level.
func (c *Controller) Level() models.DifficultyLevel {
	return c.settings.Level
}

// SetAutoAdjust toggles automatic adjustment without touching the level.
func (c *Controller) SetAutoAdjust(enabled bool) {
	c.settings.AutoAdjust = enabled
}

// Override forces a level regardless of analytics. Performance history is
// preserved so automatic adjustment, if re-enabled, keeps its context. The
// cooldown restarts so an override is not immediately reverted.
func (c *Controller) Override(ctx context.Context, level models.DifficultyLevel) error {
	if !level.Valid() {
		return errors.New("invalid difficulty level", slog.String("level", string(level)))
	}
	previous := c.settings.Level
	c.applyPreset(level)
	c.lastEvaluation = c.now()
	if level == previous {
		return nil
	}
	if err := c.sink.PersistLevel(ctx, level); err != nil {
		return errors.Wrap(err, "persist difficulty override")
	}
	text := fmt.Sprintf("Difficulty set to %s by the teacher.", level)
	if err := c.sink.AppendJournal(ctx, models.ActorSystem, text); err != nil {
		return errors.Wrap(err, "announce difficulty override")
	}
	return nil
}

// AdoptRemote applies a level that was changed by the other participant. No
// persistence or announcement happens; the remote side already did both.
func (c *Controller) AdoptRemote(level models.DifficultyLevel) {
	if !level.Valid() || level == c.settings.Level {
		return
	}
	c.applyPreset(level)
	c.lastEvaluation = c.now()
}

// Evaluate runs one adjustment pass against a fresh analytics snapshot.
//
// Nothing happens while automatic adjustment is off, while the student has
// produced too little data to judge, or while the cooldown since the last
// pass is still running. Otherwise the snapshot is appended to the rolling
// performance history and the level moves at most one step.
func (c *Controller) Evaluate(ctx context.Context, snapshot models.AnalyticsSnapshot) error {
	if !c.settings.AutoAdjust {
		return nil
	}
	if snapshot.GrammarAttempts < minAttemptsForData && snapshot.DiscoveredWords < minWordsForData {
		return nil
	}
	now := c.now()
	if !c.lastEvaluation.IsZero() && now.Sub(c.lastEvaluation) < cooldown {
		return nil
	}
	c.lastEvaluation = now

	c.grammarHistory = appendBounded(c.grammarHistory, float64(snapshot.GrammarAccuracy))
	c.vocabularyHistory = appendBounded(c.vocabularyHistory, float64(snapshot.VocabularyProgress))

	score := (mean(c.grammarHistory) + mean(c.vocabularyHistory) + float64(snapshot.EngagementScore)) / 3

	next, reason := c.decide(score)
	if next == c.settings.Level {
		return nil
	}

	c.applyPreset(next)
	if err := c.sink.PersistLevel(ctx, next); err != nil {
		return errors.Wrap(err, "persist difficulty transition")
	}
	text := fmt.Sprintf("Difficulty adjusted to %s (%s).", next, reason)
	if err := c.sink.AppendJournal(ctx, models.ActorSystem, text); err != nil {
		return errors.Wrap(err, "announce difficulty transition")
	}
	c.logger.LogAttrs(ctx, slog.LevelInfo, "difficulty adjusted",
		slog.String("level", string(next)),
		slog.String("reason", reason))
	return nil
}

// decide picks the next level from the overall score. Struggling takes
// precedence over excelling, which takes precedence over the consistency
// promotion from intermediate.
func (c *Controller) decide(score float64) (models.DifficultyLevel, string) {
	level := c.settings.Level
	switch {
	case score < stepDownBelow:
		return level.StepDown(), fmt.Sprintf("performance score %.0f below %.0f", score, stepDownBelow)
	case score > stepUpAbove:
		return level.StepUp(), fmt.Sprintf("performance score %.0f above %.0f", score, stepUpAbove)
	case level == models.DifficultyIntermediate && score > promoteAbove && c.consistentGrammar():
		return models.DifficultyAdvanced, fmt.Sprintf("consistent grammar accuracy with score %.0f", score)
	default:
		return level, ""
	}
}

// consistentGrammar reports whether enough recent grammar samples exist and
// every one of them clears the consistency floor.
func (c *Controller) consistentGrammar() bool {
	if len(c.grammarHistory) < consistentRuns {
		return false
	}
	for _, sample := range c.grammarHistory {
		if sample < consistentFloor {
			return false
		}
	}
	return true
}

// ShouldShowVocabulary reports whether a word of the given difficulty is
// within the current ceiling.
func (c *Controller) ShouldShowVocabulary(wordDifficulty int) bool {
	return wordDifficulty <= c.settings.VocabularyMaxDifficulty
}

// ShouldShowHint reports whether a hint may be shown after the student has
// been stuck for the given duration.
func (c *Controller) ShouldShowHint(stuck time.Duration) bool {
	return c.settings.HintsEnabled && stuck >= c.settings.HintDelay
}

func (c *Controller) applyPreset(level models.DifficultyLevel) {
	autoAdjust := c.settings.AutoAdjust
	c.settings = Preset(level)
	c.settings.AutoAdjust = autoAdjust
}

func appendBounded(history []float64, sample float64) []float64 {
	history = append(history, sample)
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	return history
}

func mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, sample := range samples {
		sum += sample
	}
	return sum / float64(len(samples))
}
