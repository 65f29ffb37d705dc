package store

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/korpimaa/nightexpress/internal/errors"
	"github.com/korpimaa/nightexpress/internal/models"
)

// roomRow is the raw shape of a rooms table row. Rows are decoded into typed
// records at this boundary; malformed rows are surfaced as errors here and
// logged and skipped by the callers instead of propagating loosely-typed data
// inward.
type roomRow struct {
	ID          string    `db:"id"`
	Code        string    `db:"code"`
	Scene       string    `db:"scene"`
	Locked      bool      `db:"locked"`
	LensCharges int       `db:"lens_charges"`
	KillerID    string    `db:"killer_id"`
	TeacherID   string    `db:"teacher_id"`
	StudentID   string    `db:"student_id"`
	Difficulty  string    `db:"difficulty"`
	Inventory   string    `db:"inventory"`
	Suspects    string    `db:"suspects"`
	Version     int64     `db:"version"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r roomRow) decode() (models.Session, error) {
	var inventory []string
	if err := json.Unmarshal([]byte(r.Inventory), &inventory); err != nil {
		return models.Session{}, errors.Wrap(err, "decode inventory column",
			slog.String("room_id", r.ID))
	}
	var suspects map[string][]string
	if err := json.Unmarshal([]byte(r.Suspects), &suspects); err != nil {
		return models.Session{}, errors.Wrap(err, "decode suspects column",
			slog.String("room_id", r.ID))
	}
	difficulty := models.DifficultyLevel(r.Difficulty)
	if !difficulty.Valid() {
		return models.Session{}, errors.New("unknown difficulty level",
			slog.String("room_id", r.ID), slog.String("difficulty", r.Difficulty))
	}
	return models.Session{
		ID:          r.ID,
		Code:        r.Code,
		Scene:       models.Scene(r.Scene),
		Locked:      r.Locked,
		LensCharges: r.LensCharges,
		KillerID:    r.KillerID,
		TeacherID:   r.TeacherID,
		StudentID:   r.StudentID,
		Difficulty:  difficulty,
		Inventory:   inventory,
		Suspects:    suspects,
		Version:     r.Version,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

func encodeInventory(inventory []string) (string, error) {
	if inventory == nil {
		inventory = []string{}
	}
	data, err := json.Marshal(inventory)
	if err != nil {
		return "", errors.Wrap(err, "encode inventory column")
	}
	return string(data), nil
}

func encodeSuspects(suspects map[string][]string) (string, error) {
	if suspects == nil {
		suspects = map[string][]string{}
	}
	data, err := json.Marshal(suspects)
	if err != nil {
		return "", errors.Wrap(err, "encode suspects column")
	}
	return string(data), nil
}

type journalRow struct {
	ID        string    `db:"id"`
	RoomID    string    `db:"room_id"`
	Actor     string    `db:"actor"`
	Text      string    `db:"text"`
	CreatedAt time.Time `db:"created_at"`
}

func (r journalRow) decode() models.JournalEntry {
	return models.JournalEntry{
		ID:        r.ID,
		SessionID: r.RoomID,
		Actor:     r.Actor,
		Text:      r.Text,
		CreatedAt: r.CreatedAt,
	}
}

type chatRow struct {
	ID        string    `db:"id"`
	RoomID    string    `db:"room_id"`
	Sender    string    `db:"sender"`
	Message   string    `db:"message"`
	CreatedAt time.Time `db:"created_at"`
}

func (r chatRow) decode() models.ChatMessage {
	return models.ChatMessage{
		ID:        r.ID,
		SessionID: r.RoomID,
		Sender:    r.Sender,
		Message:   r.Message,
		CreatedAt: r.CreatedAt,
	}
}
