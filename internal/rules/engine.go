// Package rules awards achievements and progress checkpoints. Both are
// one-way: once earned or completed they never revert, and re-evaluating the
// same state is a no-op.
package rules

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/korpimaa/nightexpress/internal/analytics"
	"github.com/korpimaa/nightexpress/internal/errors"
	"github.com/korpimaa/nightexpress/internal/models"
)

// ActorConductor voices checkpoint rewards on the journal.
const ActorConductor = "The Conductor"

// Sink applies the side effects of an award.
type Sink interface {
	AppendJournal(ctx context.Context, actor, text string) error
	GrantLensCharges(ctx context.Context, delta int) error
}

// Result lists what a single evaluation pass newly awarded, so callers can
// surface each unlock exactly once.
type Result struct {
	Achievements []models.Achievement
	Checkpoints  []models.ProgressCheckpoint
}

// Engine evaluates a static catalog against analytics state. It is not safe
// for concurrent use; the session runtime serializes all calls.
type Engine struct {
	sink         Sink
	logger       *slog.Logger
	now          func() time.Time
	achievements []models.Achievement
	checkpoints  []models.ProgressCheckpoint
}

// NewEngine builds an engine over the default catalogs.
func NewEngine(sink Sink, logger *slog.Logger, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{
		sink:         sink,
		logger:       logger,
		now:          now,
		achievements: DefaultAchievements(),
		checkpoints:  DefaultCheckpoints(),
	}
}

// Achievements returns a copy of the catalog with earned state.
func (e *Engine) Achievements() []models.Achievement {
	out := make([]models.Achievement, len(e.achievements))
	copy(out, e.achievements)
	return out
}

// Checkpoints returns a copy of the checkpoints with completion state.
func (e *Engine) Checkpoints() []models.ProgressCheckpoint {
	out := make([]models.ProgressCheckpoint, len(e.checkpoints))
	copy(out, e.checkpoints)
	return out
}

// Evaluate runs one pass over every unearned achievement and every pending
// checkpoint. Checkpoints are processed first so achievements they grant
// count toward this pass's result rather than the next one's.
func (e *Engine) Evaluate(ctx context.Context, snapshot models.AnalyticsSnapshot, counters analytics.Counters) (Result, error) {
	var result Result

	for i := range e.checkpoints {
		checkpoint := &e.checkpoints[i]
		if checkpoint.Completed || snapshot.CaseProgress < checkpoint.ProgressThreshold {
			continue
		}
		if err := e.completeCheckpoint(ctx, checkpoint, &result); err != nil {
			return result, err
		}
		result.Checkpoints = append(result.Checkpoints, *checkpoint)
	}

	for i := range e.achievements {
		achievement := &e.achievements[i]
		if achievement.Earned() {
			continue
		}
		value, ok := metricValue(achievement.Requirement.Type, snapshot, counters)
		if !ok || value < achievement.Requirement.Threshold {
			continue
		}
		if err := e.award(ctx, achievement); err != nil {
			return result, err
		}
		result.Achievements = append(result.Achievements, *achievement)
	}

	return result, nil
}

func (e *Engine) completeCheckpoint(ctx context.Context, checkpoint *models.ProgressCheckpoint, result *Result) error {
	completedAt := e.now()
	checkpoint.Completed = true
	checkpoint.CompletedAt = &completedAt

	rewards := checkpoint.Rewards
	if rewards.LensCharges != 0 {
		if err := e.sink.GrantLensCharges(ctx, rewards.LensCharges); err != nil {
			return errors.Wrap(err, "grant checkpoint lens charges",
				slog.String("checkpoint", checkpoint.ID))
		}
	}
	if rewards.Message != "" {
		if err := e.sink.AppendJournal(ctx, ActorConductor, rewards.Message); err != nil {
			return errors.Wrap(err, "announce checkpoint",
				slog.String("checkpoint", checkpoint.ID))
		}
	}
	for _, id := range rewards.AchievementIDs {
		achievement := e.findAchievement(id)
		if achievement == nil || achievement.Earned() {
			continue
		}
		if err := e.award(ctx, achievement); err != nil {
			return err
		}
		result.Achievements = append(result.Achievements, *achievement)
	}
	e.logger.LogAttrs(ctx, slog.LevelInfo, "checkpoint completed",
		slog.String("checkpoint", checkpoint.ID))
	return nil
}

func (e *Engine) award(ctx context.Context, achievement *models.Achievement) error {
	earnedAt := e.now()
	achievement.EarnedAt = &earnedAt
	text := fmt.Sprintf("Achievement unlocked: %s", achievement.Title)
	if err := e.sink.AppendJournal(ctx, models.ActorSystem, text); err != nil {
		return errors.Wrap(err, "announce achievement",
			slog.String("achievement", achievement.ID))
	}
	e.logger.LogAttrs(ctx, slog.LevelInfo, "achievement earned",
		slog.String("achievement", achievement.ID))
	return nil
}

func (e *Engine) findAchievement(id string) *models.Achievement {
	for i := range e.achievements {
		if e.achievements[i].ID == id {
			return &e.achievements[i]
		}
	}
	return nil
}

// metricValue resolves a requirement type against the current analytics
// state. Grammar accuracy only counts once at least one exercise has been
// attempted, since the accuracy of an untested student defaults to perfect.
func metricValue(kind models.RequirementType, snapshot models.AnalyticsSnapshot, counters analytics.Counters) (int, bool) {
	switch kind {
	case models.RequirementGrammarAccuracy:
		if counters.GrammarAttempts == 0 {
			return 0, false
		}
		return snapshot.GrammarAccuracy, true
	case models.RequirementVocabularyCount:
		return snapshot.DiscoveredWords, true
	case models.RequirementCluesFound:
		return snapshot.CluesDiscovered, true
	case models.RequirementDialoguesCompleted:
		return counters.DialoguesCompleted, true
	case models.RequirementMinigameScore:
		return counters.MinigameBestScore, true
	case models.RequirementCaseProgress:
		return snapshot.CaseProgress, true
	case models.RequirementGrammarStreak:
		return counters.BestGrammarStreak, true
	case models.RequirementChatMessages:
		return counters.ChatMessages, true
	default:
		return 0, false
	}
}
