package main

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/korpimaa/nightexpress/internal/models"
)

type journalEntryResponse struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Actor     string    `json:"actor"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type chatMessageResponse struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

func toJournalResponse(entry models.JournalEntry) journalEntryResponse {
	return journalEntryResponse{
		ID:        entry.ID,
		SessionID: entry.SessionID,
		Actor:     entry.Actor,
		Text:      entry.Text,
		CreatedAt: entry.CreatedAt,
	}
}

func toChatResponse(message models.ChatMessage) chatMessageResponse {
	return chatMessageResponse{
		ID:        message.ID,
		SessionID: message.SessionID,
		Sender:    message.Sender,
		Message:   message.Message,
		CreatedAt: message.CreatedAt,
	}
}

type appendJournalRequest struct {
	Actor string `json:"actor"`
	Text  string `json:"text"`
}

func (app *application) appendJournal(w http.ResponseWriter, r *http.Request) {
	var req appendJournalRequest
	if !app.decodeJSON(w, r, &req) {
		return
	}
	if req.Actor == "" || req.Text == "" {
		app.clientError(w, r, http.StatusUnprocessableEntity)
		return
	}

	entry, err := app.store.InsertJournal(r.Context(), models.JournalEntry{
		ID:        uuid.NewString(),
		SessionID: r.PathValue("id"),
		Actor:     req.Actor,
		Text:      req.Text,
	})
	if err != nil {
		app.storeError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusCreated, toJournalResponse(entry))
}

func (app *application) listJournal(w http.ResponseWriter, r *http.Request) {
	entries, err := app.store.ListJournal(r.Context(), r.PathValue("id"))
	if err != nil {
		app.storeError(w, r, err)
		return
	}
	out := make([]journalEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, toJournalResponse(entry))
	}
	app.writeJSON(w, r, http.StatusOK, out)
}

type appendChatRequest struct {
	Message string `json:"message"`
}

// appendChat inserts a chat message from the calling identity.
func (app *application) appendChat(w http.ResponseWriter, r *http.Request) {
	var req appendChatRequest
	if !app.decodeJSON(w, r, &req) {
		return
	}
	if req.Message == "" {
		app.clientError(w, r, http.StatusUnprocessableEntity)
		return
	}

	message, err := app.store.InsertChat(r.Context(), models.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: r.PathValue("id"),
		Sender:    app.clientID(r),
		Message:   req.Message,
	})
	if err != nil {
		app.storeError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusCreated, toChatResponse(message))
}

func (app *application) listChat(w http.ResponseWriter, r *http.Request) {
	messages, err := app.store.ListChat(r.Context(), r.PathValue("id"))
	if err != nil {
		app.storeError(w, r, err)
		return
	}
	out := make([]chatMessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, toChatResponse(message))
	}
	app.writeJSON(w, r, http.StatusOK, out)
}
