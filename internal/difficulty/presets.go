package difficulty

import (
	"time"

	"github.com/korpimaa/nightexpress/internal/models"
)

// Preset returns the fixed content-shaping values for a level. Beginner
// favors maximal scaffolding; advanced removes it entirely. AutoAdjust is not
// part of the preset and is preserved across transitions.
func Preset(level models.DifficultyLevel) models.DifficultySettings {
	switch level {
	case models.DifficultyBeginner:
		return models.DifficultySettings{
			Level:                   models.DifficultyBeginner,
			VocabularyMaxDifficulty: 1,
			HintsEnabled:            true,
			HintDelay:               5 * time.Second,
			ClueHighlighting:        true,
		}
	case models.DifficultyAdvanced:
		return models.DifficultySettings{
			Level:                   models.DifficultyAdvanced,
			VocabularyMaxDifficulty: 3,
			HintsEnabled:            false,
			HintDelay:               0,
			ClueHighlighting:        false,
		}
	default:
		return models.DifficultySettings{
			Level:                   models.DifficultyIntermediate,
			VocabularyMaxDifficulty: 2,
			HintsEnabled:            true,
			HintDelay:               10 * time.Second,
			ClueHighlighting:        true,
		}
	}
}

// MinigameTimeLimit returns the per-level minigame time allowance.
func MinigameTimeLimit(level models.DifficultyLevel) time.Duration {
	switch level {
	case models.DifficultyBeginner:
		return 2 * time.Minute
	case models.DifficultyAdvanced:
		return time.Minute
	default:
		return 90 * time.Second
	}
}

// MinigameHintAllowance returns how many minigame hints a level grants.
func MinigameHintAllowance(level models.DifficultyLevel) int {
	switch level {
	case models.DifficultyBeginner:
		return 3
	case models.DifficultyAdvanced:
		return 0
	default:
		return 1
	}
}
