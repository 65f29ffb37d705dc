package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/korpimaa/nightexpress/internal/errors"
	"github.com/korpimaa/nightexpress/internal/store"
)

const streamHeartbeatInterval = 30 * time.Second

type streamEventResponse struct {
	Kind    string                `json:"kind"`
	Session *sessionResponse      `json:"session,omitempty"`
	Journal *journalEntryResponse `json:"journal,omitempty"`
	Chat    *chatMessageResponse  `json:"chat,omitempty"`
}

// streamChanges serves the session's row-level change feed as Server Sent
// Events. One event per committed mutation, named after the changed table.
func (app *application) streamChanges(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		app.serverError(w, r, errors.New("response writer does not support flushing"))
		return
	}

	sessionID := r.PathValue("id")
	if _, err := app.store.GetRoom(r.Context(), sessionID); err != nil {
		app.storeError(w, r, err)
		return
	}

	sub := app.store.Subscribe()
	if sub == nil {
		app.serverError(w, r, errors.New("change feed stopped"))
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(streamHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, open := <-sub.C:
			if !open {
				return
			}
			if event.SessionID != sessionID {
				continue
			}
			if err := app.writeStreamEvent(w, event); err != nil {
				app.logger.Debug("stream write failed", "sessionId", sessionID)
				return
			}
			flusher.Flush()
		}
	}
}

func (app *application) writeStreamEvent(w http.ResponseWriter, event store.ChangeEvent) error {
	payload := streamEventResponse{Kind: string(event.Kind)}
	if event.Room != nil {
		session := toSessionResponse(*event.Room)
		payload.Session = &session
	}
	if event.Journal != nil {
		journal := toJournalResponse(*event.Journal)
		payload.Journal = &journal
	}
	if event.Chat != nil {
		chat := toChatResponse(*event.Chat)
		payload.Chat = &chat
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal stream event")
	}
	if _, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Table, data); err != nil {
		return errors.Wrap(err, "write stream event")
	}
	return nil
}
