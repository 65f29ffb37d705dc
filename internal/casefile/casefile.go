package casefile

import (
	"encoding/json"
	"log/slog"

	"github.com/korpimaa/nightexpress/internal/errors"
)

var ErrInvalidBundle = errors.NewSentinel("invalid case bundle")

// Suspect is one member of the roster. The killer is drawn from these at
// session creation.
type Suspect struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Berth  string `json:"berth"`
	Alibi  string `json:"alibi"`
	Motive string `json:"motive"`
}

// Clue belongs to a suspect or a scene. RequiresInsight gates it behind a
// spent lens charge; GrammarPoint tags the grammar exercise it unlocks.
type Clue struct {
	ID              string `json:"id"`
	SuspectID       string `json:"suspect_id,omitempty"`
	Scene           string `json:"scene"`
	Text            string `json:"text"`
	RequiresInsight bool   `json:"requires_insight"`
	GrammarPoint    string `json:"grammar_point,omitempty"`
}

// VocabularyWord has difficulty 1..3; the difficulty controller's vocabulary
// ceiling decides which words are shown.
type VocabularyWord struct {
	Word       string   `json:"word"`
	Difficulty int      `json:"difficulty"`
	Definition string   `json:"definition"`
	Example    string   `json:"example,omitempty"`
	Synonyms   []string `json:"synonyms,omitempty"`
}

// Minigame is referenced by id from analytics score reports.
type Minigame struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Kind  string `json:"kind"`
}

// Bundle is the static content of one case. The core reads totals and
// difficulty tags from it and never mutates it.
type Bundle struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	Suspects   []Suspect        `json:"suspects"`
	Clues      []Clue           `json:"clues"`
	Vocabulary []VocabularyWord `json:"vocabulary"`
	Minigames  []Minigame       `json:"minigames"`
}

// TotalClues returns the clue count used as the case-progress denominator.
func (b *Bundle) TotalClues() int {
	return len(b.Clues)
}

// TotalVocabulary returns the word count used as the vocabulary-progress denominator.
func (b *Bundle) TotalVocabulary() int {
	return len(b.Vocabulary)
}

// SuspectIDs returns the roster ids in catalog order.
func (b *Bundle) SuspectIDs() []string {
	ids := make([]string, 0, len(b.Suspects))
	for _, s := range b.Suspects {
		ids = append(ids, s.ID)
	}
	return ids
}

// Parse decodes and validates a case bundle.
func Parse(data []byte) (*Bundle, error) {
	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, errors.Wrap(err, "decode case bundle")
	}
	if err := bundle.Validate(); err != nil {
		return nil, err
	}
	return &bundle, nil
}

// Validate checks the structural invariants the core depends on.
func (b *Bundle) Validate() error {
	if b.ID == "" {
		return errors.Wrap(ErrInvalidBundle, "missing bundle id")
	}
	if len(b.Suspects) == 0 {
		return errors.Wrap(ErrInvalidBundle, "no suspects", slog.String("bundle", b.ID))
	}
	suspectIDs := make(map[string]struct{}, len(b.Suspects))
	for _, s := range b.Suspects {
		if s.ID == "" {
			return errors.Wrap(ErrInvalidBundle, "suspect without id", slog.String("bundle", b.ID))
		}
		if _, ok := suspectIDs[s.ID]; ok {
			return errors.Wrap(ErrInvalidBundle, "duplicate suspect id",
				slog.String("bundle", b.ID), slog.String("suspect", s.ID))
		}
		suspectIDs[s.ID] = struct{}{}
	}
	for _, c := range b.Clues {
		if c.ID == "" {
			return errors.Wrap(ErrInvalidBundle, "clue without id", slog.String("bundle", b.ID))
		}
		if c.SuspectID != "" {
			if _, ok := suspectIDs[c.SuspectID]; !ok {
				return errors.Wrap(ErrInvalidBundle, "clue references unknown suspect",
					slog.String("bundle", b.ID), slog.String("clue", c.ID), slog.String("suspect", c.SuspectID))
			}
		}
	}
	for _, w := range b.Vocabulary {
		if w.Word == "" {
			return errors.Wrap(ErrInvalidBundle, "empty vocabulary word", slog.String("bundle", b.ID))
		}
		if w.Difficulty < 1 || w.Difficulty > 3 {
			return errors.Wrap(ErrInvalidBundle, "vocabulary difficulty out of range",
				slog.String("bundle", b.ID), slog.String("word", w.Word), slog.Int("difficulty", w.Difficulty))
		}
	}
	return nil
}
