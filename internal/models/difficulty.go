package models

import "time"

// DifficultyLevel is one of the three linearly ordered levels governing
// content-shaping presets.
type DifficultyLevel string

const (
	DifficultyBeginner     DifficultyLevel = "beginner"
	DifficultyIntermediate DifficultyLevel = "intermediate"
	DifficultyAdvanced     DifficultyLevel = "advanced"
)

// Rank returns the position of the level in the beginner < intermediate <
// advanced order. Unknown levels rank as beginner.
func (l DifficultyLevel) Rank() int {
	switch l {
	case DifficultyIntermediate:
		return 1
	case DifficultyAdvanced:
		return 2
	default:
		return 0
	}
}

// StepUp returns the next level up, saturating at advanced.
func (l DifficultyLevel) StepUp() DifficultyLevel {
	switch l {
	case DifficultyBeginner:
		return DifficultyIntermediate
	case DifficultyIntermediate:
		return DifficultyAdvanced
	default:
		return l
	}
}

// StepDown returns the next level down, saturating at beginner.
func (l DifficultyLevel) StepDown() DifficultyLevel {
	switch l {
	case DifficultyAdvanced:
		return DifficultyIntermediate
	case DifficultyIntermediate:
		return DifficultyBeginner
	default:
		return l
	}
}

// Valid reports whether l is one of the three known levels.
func (l DifficultyLevel) Valid() bool {
	switch l {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// DifficultySettings are the content-shaping parameters active for a session.
// One value is active at a time, owned exclusively by the difficulty
// controller and read-only to everything else.
type DifficultySettings struct {
	Level                   DifficultyLevel
	AutoAdjust              bool
	VocabularyMaxDifficulty int
	HintsEnabled            bool
	HintDelay               time.Duration
	ClueHighlighting        bool
}
