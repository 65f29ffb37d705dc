package main

import "net/http"

const clientIDSessionKey = "clientID"

// clientID returns the caller's anonymous identity assigned by identify.
func (app *application) clientID(r *http.Request) string {
	return app.sessionManager.GetString(r.Context(), clientIDSessionKey)
}
