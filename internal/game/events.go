package game

import (
	"context"
	"log/slog"

	"github.com/korpimaa/nightexpress/internal/analytics"
	"github.com/korpimaa/nightexpress/internal/difficulty"
	"github.com/korpimaa/nightexpress/internal/errors"
	"github.com/korpimaa/nightexpress/internal/models"
	"github.com/korpimaa/nightexpress/internal/replication"
	"github.com/korpimaa/nightexpress/internal/rules"
	"github.com/korpimaa/nightexpress/internal/store"
)

// Gameplay event intake. Each method submits one run-to-completion task, so
// callers from any goroutine observe a serialized session.

// RecordGrammarAttempt counts one grammar exercise result.
func (r *Runtime) RecordGrammarAttempt(ctx context.Context, correct bool) error {
	return r.run(ctx, func(context.Context) error {
		r.aggregator.RecordGrammarAttempt(correct)
		return nil
	})
}

// RecordWordDiscovered counts a vocabulary word, deduplicated case-insensitively.
func (r *Runtime) RecordWordDiscovered(ctx context.Context, word string) error {
	return r.run(ctx, func(context.Context) error {
		r.aggregator.RecordWordDiscovered(word)
		return nil
	})
}

// RecordClueFound counts a clue toward case progress and shares it on the
// session: suspect-attributed clues go into the suspects map, unattributed
// ones into the inventory. Re-finding a known clue is a no-op.
func (r *Runtime) RecordClueFound(ctx context.Context, suspectID, clueID string) error {
	return r.run(ctx, func(taskCtx context.Context) error {
		session, bound := r.client.Session()
		if !bound {
			return errors.Wrap(replication.ErrNoSession, "record clue")
		}

		var patch models.SessionPatch
		if suspectID == "" {
			if contains(session.Inventory, clueID) {
				return nil
			}
			inventory := append(append([]string(nil), session.Inventory...), clueID)
			patch.Inventory = &inventory
		} else {
			clues, known := session.Suspects[suspectID]
			if !known {
				return errors.Wrap(store.ErrValidation, "unknown suspect",
					slog.String("suspect", suspectID))
			}
			if contains(clues, clueID) {
				return nil
			}
			suspects := make(map[string][]string, len(session.Suspects))
			for id, found := range session.Suspects {
				suspects[id] = append([]string(nil), found...)
			}
			suspects[suspectID] = append(suspects[suspectID], clueID)
			patch.Suspects = &suspects
		}

		if err := r.client.UpdateSession(taskCtx, patch); err != nil {
			return errors.Wrap(err, "persist clue discovery")
		}
		r.aggregator.RecordClueFound()
		return nil
	})
}

func contains(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}

// RecordDialogueCompleted counts a finished suspect dialogue, once per id.
func (r *Runtime) RecordDialogueCompleted(ctx context.Context, dialogueID string) error {
	return r.run(ctx, func(context.Context) error {
		r.aggregator.RecordDialogueCompleted(dialogueID)
		return nil
	})
}

// RecordMinigameScore records the latest score for a minigame.
func (r *Runtime) RecordMinigameScore(ctx context.Context, minigameID string, score int) error {
	return r.run(ctx, func(context.Context) error {
		r.aggregator.RecordMinigameScore(minigameID, score)
		return nil
	})
}

// RecordSuspectInteraction counts one interaction with any suspect.
func (r *Runtime) RecordSuspectInteraction(ctx context.Context) error {
	return r.run(ctx, func(context.Context) error {
		r.aggregator.RecordSuspectInteraction()
		return nil
	})
}

// SpendLensCharge consumes one insight lens charge. Spending at zero fails
// instead of clamping so the client can grey the lens out.
func (r *Runtime) SpendLensCharge(ctx context.Context) error {
	return r.run(ctx, func(taskCtx context.Context) error {
		session, bound := r.client.Session()
		if !bound {
			return errors.Wrap(replication.ErrNoSession, "spend lens charge")
		}
		if session.LensCharges <= models.MinLensCharges {
			return errors.Wrap(store.ErrValidation, "no lens charges left")
		}
		charges := session.LensCharges - 1
		if err := r.client.UpdateSession(taskCtx, models.SessionPatch{LensCharges: &charges}); err != nil {
			return errors.Wrap(err, "persist lens spend")
		}
		r.aggregator.RecordLensChargeSpent()
		return nil
	})
}

// ChangeScene moves the session to another part of the train.
func (r *Runtime) ChangeScene(ctx context.Context, scene models.Scene) error {
	return r.run(ctx, func(taskCtx context.Context) error {
		return r.client.UpdateSession(taskCtx, models.SessionPatch{Scene: &scene})
	})
}

// SetLocked toggles the teacher's session lock.
func (r *Runtime) SetLocked(ctx context.Context, locked bool) error {
	return r.run(ctx, func(taskCtx context.Context) error {
		return r.client.UpdateSession(taskCtx, models.SessionPatch{Locked: &locked})
	})
}

// OverrideDifficulty applies a teacher-chosen level immediately.
func (r *Runtime) OverrideDifficulty(ctx context.Context, level models.DifficultyLevel) error {
	return r.run(ctx, func(taskCtx context.Context) error {
		return r.controller.Override(taskCtx, level)
	})
}

// SetAutoAdjust toggles automatic difficulty adjustment.
func (r *Runtime) SetAutoAdjust(ctx context.Context, enabled bool) error {
	return r.run(ctx, func(context.Context) error {
		r.controller.SetAutoAdjust(enabled)
		return nil
	})
}

// Snapshot returns the current analytics snapshot.
func (r *Runtime) Snapshot(ctx context.Context) (models.AnalyticsSnapshot, error) {
	var snapshot models.AnalyticsSnapshot
	err := r.run(ctx, func(context.Context) error {
		snapshot = r.aggregator.Snapshot()
		return nil
	})
	return snapshot, err
}

// Counters returns the raw gameplay counters.
func (r *Runtime) Counters(ctx context.Context) (analytics.Counters, error) {
	var counters analytics.Counters
	err := r.run(ctx, func(context.Context) error {
		counters = r.aggregator.Counters()
		return nil
	})
	return counters, err
}

// DifficultySettings returns the active difficulty settings.
func (r *Runtime) DifficultySettings(ctx context.Context) (models.DifficultySettings, error) {
	var settings models.DifficultySettings
	err := r.run(ctx, func(context.Context) error {
		settings = r.controller.Settings()
		return nil
	})
	return settings, err
}

// Achievements returns the achievement catalog with earned state.
func (r *Runtime) Achievements(ctx context.Context) ([]models.Achievement, error) {
	var achievements []models.Achievement
	err := r.run(ctx, func(context.Context) error {
		achievements = r.engine.Achievements()
		return nil
	})
	return achievements, err
}

// Checkpoints returns the progress checkpoints with completion state.
func (r *Runtime) Checkpoints(ctx context.Context) ([]models.ProgressCheckpoint, error) {
	var checkpoints []models.ProgressCheckpoint
	err := r.run(ctx, func(context.Context) error {
		checkpoints = r.engine.Checkpoints()
		return nil
	})
	return checkpoints, err
}

// The runtime is the side-effect sink for both the difficulty controller and
// the rule engine. These methods run on the dispatcher goroutine and go
// straight to the replication client, which is safe from any goroutine.

var _ difficulty.Sink = (*Runtime)(nil)
var _ rules.Sink = (*Runtime)(nil)

// PersistLevel writes a difficulty transition to the shared session.
func (r *Runtime) PersistLevel(ctx context.Context, level models.DifficultyLevel) error {
	return r.client.UpdateSession(ctx, models.SessionPatch{Difficulty: &level})
}

// AppendJournal writes one journal entry on behalf of the given actor.
func (r *Runtime) AppendJournal(ctx context.Context, actor, text string) error {
	_, err := r.client.AppendJournal(ctx, actor, text)
	return err
}

// GrantLensCharges applies a charge delta, clamped into the legal range.
func (r *Runtime) GrantLensCharges(ctx context.Context, delta int) error {
	session, bound := r.client.Session()
	if !bound {
		return errors.Wrap(replication.ErrNoSession, "grant lens charges")
	}
	charges := models.ClampLensCharges(session.LensCharges + delta)
	if charges == session.LensCharges {
		return nil
	}
	return r.client.UpdateSession(ctx, models.SessionPatch{LensCharges: &charges})
}
