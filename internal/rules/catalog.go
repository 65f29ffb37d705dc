package rules

import "github.com/korpimaa/nightexpress/internal/models"

// DefaultAchievements returns the achievement catalog in its display order.
func DefaultAchievements() []models.Achievement {
	return []models.Achievement{
		{
			ID:          "first-scratch",
			Title:       "First Scratch",
			Description: "Discover your first clue aboard the train.",
			Requirement: models.Requirement{Type: models.RequirementCluesFound, Threshold: 1},
		},
		{
			ID:          "sharp-eyes",
			Title:       "Sharp Eyes",
			Description: "Discover four clues.",
			Requirement: models.Requirement{Type: models.RequirementCluesFound, Threshold: 4},
		},
		{
			ID:          "wordsmith",
			Title:       "Wordsmith",
			Description: "Learn five new words.",
			Requirement: models.Requirement{Type: models.RequirementVocabularyCount, Threshold: 5},
		},
		{
			ID:          "grammar-apprentice",
			Title:       "Grammar Apprentice",
			Description: "Keep your grammar accuracy at eighty or better.",
			Requirement: models.Requirement{Type: models.RequirementGrammarAccuracy, Threshold: 80},
		},
		{
			ID:          "hot-streak",
			Title:       "Hot Streak",
			Description: "Answer five grammar exercises correctly in a row.",
			Requirement: models.Requirement{Type: models.RequirementGrammarStreak, Threshold: 5},
		},
		{
			ID:          "interrogator",
			Title:       "Interrogator",
			Description: "Complete three suspect dialogues.",
			Requirement: models.Requirement{Type: models.RequirementDialoguesCompleted, Threshold: 3},
		},
		{
			ID:          "arcade-detective",
			Title:       "Arcade Detective",
			Description: "Score ninety or better in any minigame.",
			Requirement: models.Requirement{Type: models.RequirementMinigameScore, Threshold: 90},
		},
		{
			ID:          "chatterbox",
			Title:       "Chatterbox",
			Description: "Send ten chat messages to your teacher.",
			Requirement: models.Requirement{Type: models.RequirementChatMessages, Threshold: 10},
		},
		{
			ID:          "trusted-by-the-conductor",
			Title:       "Trusted by the Conductor",
			Description: "Bring the investigation halfway to its end.",
			Requirement: models.Requirement{Type: models.RequirementCaseProgress, Threshold: 50},
		},
		{
			ID:          "master-detective",
			Title:       "Master Detective",
			Description: "Close the case of the Night Express.",
			Requirement: models.Requirement{Type: models.RequirementCaseProgress, Threshold: 100},
		},
	}
}

// DefaultCheckpoints returns the case progress checkpoints in ascending
// threshold order.
func DefaultCheckpoints() []models.ProgressCheckpoint {
	return []models.ProgressCheckpoint{
		{
			ID:                "boarding-pass",
			Title:             "Boarding Pass",
			ProgressThreshold: 25,
			Rewards: models.CheckpointRewards{
				LensCharges: 1,
				Message:     "The conductor tips his cap. \"You have a keen eye, detective. Take this.\"",
			},
		},
		{
			ID:                "halfway-whistle",
			Title:             "Halfway Whistle",
			ProgressThreshold: 50,
			Rewards: models.CheckpointRewards{
				LensCharges:    1,
				Message:        "\"Half the mystery unravelled already,\" the conductor murmurs. \"Keep at it.\"",
				AchievementIDs: []string{"trusted-by-the-conductor"},
			},
		},
		{
			ID:                "final-approach",
			Title:             "Final Approach",
			ProgressThreshold: 75,
			Rewards: models.CheckpointRewards{
				LensCharges: 2,
				Message:     "\"The station lights are near,\" says the conductor. \"Time to name a culprit.\"",
			},
		},
		{
			ID:                "case-closed",
			Title:             "Case Closed",
			ProgressThreshold: 100,
			Rewards: models.CheckpointRewards{
				Message:        "\"Remarkable work, detective. The Night Express will not forget you.\"",
				AchievementIDs: []string{"master-detective"},
			},
		},
	}
}
