package main

import (
	"net/http"

	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	session := alice.New(app.sessionManager.LoadAndSave, app.identify)
	scoped := session.Append(app.sessionScope)
	stream := alice.New(app.serverSentEventMiddleware, app.sessionScope)

	mux.HandleFunc("GET /api/healthy", app.healthy)

	mux.Handle("POST /api/sessions", session.ThenFunc(app.createSession))
	mux.Handle("POST /api/sessions/join", session.ThenFunc(app.joinSession))
	mux.Handle("GET /api/sessions/{id}", scoped.ThenFunc(app.getSession))
	mux.Handle("PATCH /api/sessions/{id}", scoped.ThenFunc(app.patchSession))

	mux.Handle("POST /api/sessions/{id}/journal", scoped.ThenFunc(app.appendJournal))
	mux.Handle("GET /api/sessions/{id}/journal", scoped.ThenFunc(app.listJournal))
	mux.Handle("POST /api/sessions/{id}/chat", scoped.ThenFunc(app.appendChat))
	mux.Handle("GET /api/sessions/{id}/chat", scoped.ThenFunc(app.listChat))

	mux.Handle("GET /api/sessions/{id}/stream", stream.ThenFunc(app.streamChanges))

	return app.recoverPanic(app.logRequest(secureHeaders(mux)))
}
