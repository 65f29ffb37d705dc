package main

import (
	"net/http"
	"time"

	"github.com/korpimaa/nightexpress/internal/models"
	"github.com/korpimaa/nightexpress/internal/replication"
)

type sessionResponse struct {
	ID          string              `json:"id"`
	Code        string              `json:"code"`
	Scene       string              `json:"scene"`
	Locked      bool                `json:"locked"`
	LensCharges int                 `json:"lensCharges"`
	KillerID    string              `json:"killerId"`
	TeacherID   string              `json:"teacherId"`
	StudentID   string              `json:"studentId"`
	Difficulty  string              `json:"difficulty"`
	Inventory   []string            `json:"inventory"`
	Suspects    map[string][]string `json:"suspects"`
	Version     int64               `json:"version"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

func toSessionResponse(s models.Session) sessionResponse {
	return sessionResponse{
		ID:          s.ID,
		Code:        s.Code,
		Scene:       string(s.Scene),
		Locked:      s.Locked,
		LensCharges: s.LensCharges,
		KillerID:    s.KillerID,
		TeacherID:   s.TeacherID,
		StudentID:   s.StudentID,
		Difficulty:  string(s.Difficulty),
		Inventory:   s.Inventory,
		Suspects:    s.Suspects,
		Version:     s.Version,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// createSession hosts a new game session owned by the calling teacher.
func (app *application) createSession(w http.ResponseWriter, r *http.Request) {
	client := replication.NewClient(app.store, app.clientID(r), app.logger)
	session, err := client.CreateSession(r.Context(), app.bundle)
	if err != nil {
		app.storeError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusCreated, toSessionResponse(session))
}

type joinSessionRequest struct {
	Code string `json:"code"`
}

// joinSession binds the caller as the session's student by join code.
func (app *application) joinSession(w http.ResponseWriter, r *http.Request) {
	var req joinSessionRequest
	if !app.decodeJSON(w, r, &req) {
		return
	}
	if req.Code == "" {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}

	client := replication.NewClient(app.store, app.clientID(r), app.logger)
	session, err := client.JoinSession(r.Context(), req.Code)
	if err != nil {
		app.storeError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, toSessionResponse(session))
}

func (app *application) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := app.store.GetRoom(r.Context(), r.PathValue("id"))
	if err != nil {
		app.storeError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, toSessionResponse(session))
}

type sessionPatchRequest struct {
	Scene       *string              `json:"scene"`
	Locked      *bool                `json:"locked"`
	LensCharges *int                 `json:"lensCharges"`
	Difficulty  *string              `json:"difficulty"`
	Inventory   *[]string            `json:"inventory"`
	Suspects    *map[string][]string `json:"suspects"`
}

var knownScenes = map[models.Scene]bool{
	models.SceneMenu:       true,
	models.ScenePlatform:   true,
	models.SceneCarriage:   true,
	models.SceneDiningCar:  true,
	models.SceneEngineRoom: true,
	models.SceneSolution:   true,
}

// patchSession applies a field-level partial update. Absent fields stay
// untouched; lens charges are clamped by the store rather than rejected.
func (app *application) patchSession(w http.ResponseWriter, r *http.Request) {
	var req sessionPatchRequest
	if !app.decodeJSON(w, r, &req) {
		return
	}

	var patch models.SessionPatch
	if req.Scene != nil {
		scene := models.Scene(*req.Scene)
		if !knownScenes[scene] {
			app.clientError(w, r, http.StatusUnprocessableEntity)
			return
		}
		patch.Scene = &scene
	}
	if req.Difficulty != nil {
		level := models.DifficultyLevel(*req.Difficulty)
		if !level.Valid() {
			app.clientError(w, r, http.StatusUnprocessableEntity)
			return
		}
		patch.Difficulty = &level
	}
	patch.Locked = req.Locked
	patch.LensCharges = req.LensCharges
	patch.Inventory = req.Inventory
	patch.Suspects = req.Suspects

	if patch.IsZero() {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}

	session, err := app.store.UpdateRoom(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		app.storeError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, toSessionResponse(session))
}
