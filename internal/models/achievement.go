package models

import "time"

// RequirementType names the analytics signal an achievement rule thresholds on.
type RequirementType string

const (
	RequirementGrammarAccuracy    RequirementType = "grammar-accuracy-at-least"
	RequirementVocabularyCount    RequirementType = "vocabulary-count-at-least"
	RequirementCluesFound         RequirementType = "clues-found-at-least"
	RequirementDialoguesCompleted RequirementType = "dialogues-completed-at-least"
	RequirementMinigameScore      RequirementType = "any-minigame-score-at-least"
	RequirementCaseProgress       RequirementType = "case-progress-at-least"
	RequirementGrammarStreak      RequirementType = "grammar-streak-at-least"
	RequirementChatMessages       RequirementType = "chat-messages-at-least"
)

// Requirement is the declarative threshold rule of an achievement.
type Requirement struct {
	Type      RequirementType
	Threshold int
}

// Achievement is a badge earned at most once. Only EarnedAt mutates, and only
// from unset to set.
type Achievement struct {
	ID          string
	Title       string
	Description string
	Requirement Requirement
	EarnedAt    *time.Time
}

// Earned reports whether the achievement has been awarded.
func (a Achievement) Earned() bool {
	return a.EarnedAt != nil
}

// CheckpointRewards are applied exactly once when a checkpoint completes.
type CheckpointRewards struct {
	// LensCharges is a charge delta granted to the session, clamped into the
	// session's [0,5] invariant on write.
	LensCharges int
	// Message is appended to the journal in the Conductor's voice.
	Message string
	// AchievementIDs are achievements granted directly by this checkpoint.
	AchievementIDs []string
}

// ProgressCheckpoint is a one-way case-progress milestone.
type ProgressCheckpoint struct {
	ID                string
	Title             string
	ProgressThreshold int
	Completed         bool
	CompletedAt       *time.Time
	Rewards           CheckpointRewards
}
