package main

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHealthy(t *testing.T) {
	t.Parallel()
	srv := startTestServer(t, io.Discard, testLookupEnv)
	client := srv.Client(t)

	var out map[string]string
	status := srv.getJSON(t, client, "/api/healthy", &out)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "ok", out["status"])
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()
	srv := startTestServer(t, io.Discard, testLookupEnv)
	teacher := srv.Client(t)
	student := srv.Client(t)

	var created sessionResponse
	status := srv.postJSON(t, teacher, http.MethodPost, "/api/sessions", nil, &created)
	require.Equal(t, http.StatusCreated, status)
	require.Len(t, created.Code, 6)
	require.Equal(t, "menu", created.Scene)
	require.Equal(t, 3, created.LensCharges)
	require.NotEmpty(t, created.TeacherID)
	require.Empty(t, created.StudentID)

	// Wrong code misses, the right one binds the student.
	status = srv.postJSON(t, student, http.MethodPost, "/api/sessions/join",
		joinSessionRequest{Code: "XXXXXX"}, nil)
	require.Equal(t, http.StatusNotFound, status)

	var joined sessionResponse
	status = srv.postJSON(t, student, http.MethodPost, "/api/sessions/join",
		joinSessionRequest{Code: created.Code}, &joined)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, created.ID, joined.ID)
	require.NotEmpty(t, joined.StudentID)

	// A second distinct student is rejected.
	interloper := srv.Client(t)
	status = srv.postJSON(t, interloper, http.MethodPost, "/api/sessions/join",
		joinSessionRequest{Code: created.Code}, nil)
	require.Equal(t, http.StatusConflict, status)

	// Partial update touches only the supplied fields.
	scene := "carriage"
	var patched sessionResponse
	status = srv.postJSON(t, teacher, http.MethodPatch, "/api/sessions/"+created.ID,
		sessionPatchRequest{Scene: &scene}, &patched)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "carriage", patched.Scene)
	require.Equal(t, joined.StudentID, patched.StudentID)
	require.Greater(t, patched.Version, joined.Version)

	// Lens charge writes clamp instead of failing.
	charges := 99
	status = srv.postJSON(t, teacher, http.MethodPatch, "/api/sessions/"+created.ID,
		sessionPatchRequest{LensCharges: &charges}, &patched)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, 5, patched.LensCharges)

	badLevel := "nightmare"
	status = srv.postJSON(t, teacher, http.MethodPatch, "/api/sessions/"+created.ID,
		sessionPatchRequest{Difficulty: &badLevel}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, status)

	status = srv.postJSON(t, teacher, http.MethodPatch, "/api/sessions/"+created.ID,
		sessionPatchRequest{}, nil)
	require.Equal(t, http.StatusBadRequest, status)

	status = srv.getJSON(t, teacher, "/api/sessions/no-such-id", nil)
	require.Equal(t, http.StatusNotFound, status)
}

func TestJournalAndChat(t *testing.T) {
	t.Parallel()
	srv := startTestServer(t, io.Discard, testLookupEnv)
	teacher := srv.Client(t)

	var created sessionResponse
	status := srv.postJSON(t, teacher, http.MethodPost, "/api/sessions", nil, &created)
	require.Equal(t, http.StatusCreated, status)

	base := "/api/sessions/" + created.ID

	var entry journalEntryResponse
	status = srv.postJSON(t, teacher, http.MethodPost, base+"/journal",
		appendJournalRequest{Actor: "Detective", Text: "Found a torn ticket on the platform."}, &entry)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, entry.ID)
	require.False(t, entry.CreatedAt.IsZero())

	status = srv.postJSON(t, teacher, http.MethodPost, base+"/journal",
		appendJournalRequest{Actor: "Detective"}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, status)

	var chat chatMessageResponse
	status = srv.postJSON(t, teacher, http.MethodPost, base+"/chat",
		appendChatRequest{Message: "Look closely at the berth numbers."}, &chat)
	require.Equal(t, http.StatusCreated, status)
	// The sender is the caller's transport identity, not client-supplied.
	require.Equal(t, created.TeacherID, chat.Sender)

	var entries []journalEntryResponse
	status = srv.getJSON(t, teacher, base+"/journal", &entries)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, entries, 1)

	var messages []chatMessageResponse
	status = srv.getJSON(t, teacher, base+"/chat", &messages)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, messages, 1)
}

func TestStreamDeliversChanges(t *testing.T) {
	t.Parallel()
	srv := startTestServer(t, io.Discard, testLookupEnv)
	teacher := srv.Client(t)

	var created sessionResponse
	status := srv.postJSON(t, teacher, http.MethodPost, "/api/sessions", nil, &created)
	require.Equal(t, http.StatusCreated, status)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		srv.url+"/api/sessions/"+created.ID+"/stream", nil)
	require.NoError(t, err)

	resp, err := teacher.Do(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// Give the stream a moment to register before committing the change.
	time.Sleep(250 * time.Millisecond)
	scene := "dining-car"
	status = srv.postJSON(t, teacher, http.MethodPatch, "/api/sessions/"+created.ID,
		sessionPatchRequest{Scene: &scene}, nil)
	require.Equal(t, http.StatusOK, status)

	scanner := bufio.NewScanner(resp.Body)
	var sawEvent, sawData bool
	for scanner.Scan() {
		line := scanner.Text()
		if line == "event: rooms" {
			sawEvent = true
		}
		if sawEvent && strings.HasPrefix(line, "data: ") {
			require.Contains(t, line, `"dining-car"`)
			sawData = true
			break
		}
	}
	require.True(t, sawEvent, "expected a rooms event on the stream")
	require.True(t, sawData, "expected event data on the stream")
}
