package syncclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tonalli/internal/api"
	"tonalli/internal/session"
)

type recordedRequest struct {
	method string
	path   string
	auth   string
	body   []byte
}

func newRecordingServer(t *testing.T, status int, respBody any) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var reqs []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		reqs = append(reqs, recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			auth:   r.Header.Get("Authorization"),
			body:   body,
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if respBody != nil {
			_ = json.NewEncoder(w).Encode(respBody)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func TestClient_AttachesBearerCredential(t *testing.T) {
	srv, reqs := newRecordingServer(t, http.StatusOK, []api.Reminder{})
	c := New(srv.URL, srv.Client(), session.NewTokenStore("tok-123"), nil)

	_, err := c.ListReminders(context.Background(), 7)
	require.NoError(t, err)

	require.Len(t, *reqs, 1)
	got := (*reqs)[0]
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/api/reminders/7", got.path)
	assert.Equal(t, "Bearer tok-123", got.auth)
}

func TestClient_NoSessionStillSendsRequest(t *testing.T) {
	srv, reqs := newRecordingServer(t, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	c := New(srv.URL, srv.Client(), session.NewTokenStore(""), nil)

	_, err := c.GetSummary(context.Background(), 7)

	require.Len(t, *reqs, 1, "unauthenticated call must still be issued")
	assert.Empty(t, (*reqs)[0].auth)

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusUnauthorized, remoteErr.Status)
	assert.Equal(t, "unauthorized", remoteErr.Message)
	assert.True(t, remoteErr.Unauthorized())
}

func TestClient_CredentialReReadEveryCall(t *testing.T) {
	srv, reqs := newRecordingServer(t, http.StatusOK, []api.Reminder{})
	store := session.NewTokenStore("first")
	c := New(srv.URL, srv.Client(), store, nil)

	_, err := c.ListReminders(context.Background(), 7)
	require.NoError(t, err)
	store.Set("second")
	_, err = c.ListReminders(context.Background(), 7)
	require.NoError(t, err)

	require.Len(t, *reqs, 2)
	assert.Equal(t, "Bearer first", (*reqs)[0].auth)
	assert.Equal(t, "Bearer second", (*reqs)[1].auth)
}

func TestClient_CreateReminderBodyAndDecode(t *testing.T) {
	want := api.Reminder{
		ID:                 3,
		UserID:             7,
		Text:               "Drink water",
		ReminderTime:       time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC),
		LastReactionStatus: api.ReactionPending,
	}
	srv, reqs := newRecordingServer(t, http.StatusCreated, want)
	c := New(srv.URL, srv.Client(), session.NewTokenStore("tok"), nil)

	got, err := c.CreateReminder(context.Background(), 7, api.CreateReminderRequest{
		Text:         "Drink water",
		ReminderTime: want.ReminderTime,
	})
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.True(t, got.ReminderTime.Equal(want.ReminderTime))

	require.Len(t, *reqs, 1)
	assert.Equal(t, http.MethodPost, (*reqs)[0].method)
	assert.Equal(t, "/api/reminders/7", (*reqs)[0].path)

	var sent api.CreateReminderRequest
	require.NoError(t, json.Unmarshal((*reqs)[0].body, &sent))
	assert.Equal(t, "Drink water", sent.Text)
	assert.True(t, sent.ReminderTime.Equal(want.ReminderTime))
}

func TestClient_UpdateReminderPathAndPartialBody(t *testing.T) {
	srv, reqs := newRecordingServer(t, http.StatusOK, api.Reminder{ID: 9})
	c := New(srv.URL, srv.Client(), session.NewTokenStore("tok"), nil)

	status := api.ReactionSnoozed
	completed := false
	_, err := c.UpdateReminder(context.Background(), 7, 9, api.UpdateReminderRequest{
		LastReactionStatus: &status,
		Completed:          &completed,
	})
	require.NoError(t, err)

	require.Len(t, *reqs, 1)
	assert.Equal(t, http.MethodPut, (*reqs)[0].method)
	assert.Equal(t, "/api/reminders/7/9", (*reqs)[0].path)

	var sent map[string]json.RawMessage
	require.NoError(t, json.Unmarshal((*reqs)[0].body, &sent))
	assert.Contains(t, sent, "last_reaction_status")
	assert.Contains(t, sent, "completed")
	assert.NotContains(t, sent, "text", "unset fields must stay off the wire")
	assert.NotContains(t, sent, "reminder_time")
}

func TestClient_DeleteActivityPath(t *testing.T) {
	srv, reqs := newRecordingServer(t, http.StatusOK, nil)
	c := New(srv.URL, srv.Client(), session.NewTokenStore("tok"), nil)

	require.NoError(t, c.DeleteActivity(context.Background(), 7, 12))
	require.Len(t, *reqs, 1)
	assert.Equal(t, http.MethodDelete, (*reqs)[0].method)
	assert.Equal(t, "/api/agenda/7/12", (*reqs)[0].path)
}

func TestClient_TransportFailureIsRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // force connection refused

	c := New(srv.URL, &http.Client{Timeout: time.Second}, session.NewTokenStore(""), nil)
	_, err := c.ListActivities(context.Background(), 7)

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, 0, remoteErr.Status)
	assert.False(t, remoteErr.Unauthorized())
}

func TestClient_PlainTextErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, srv.Client(), session.NewTokenStore("tok"), nil)
	err := c.DeleteReminder(context.Background(), 7, 99)

	var remoteErr *RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusNotFound, remoteErr.Status)
	assert.Equal(t, "not found", remoteErr.Message)
}

func TestClient_NoAutomaticRetry(t *testing.T) {
	srv, reqs := newRecordingServer(t, http.StatusInternalServerError, map[string]string{"error": "boom"})
	c := New(srv.URL, srv.Client(), session.NewTokenStore("tok"), nil)

	_, err := c.GetSummary(context.Background(), 7)
	require.Error(t, err)
	assert.Len(t, *reqs, 1)
}

func TestClient_Login(t *testing.T) {
	srv, reqs := newRecordingServer(t, http.StatusOK, map[string]string{"token": "jwt-abc"})
	c := New(srv.URL, srv.Client(), session.NewTokenStore(""), nil)

	tok, err := c.Login(context.Background(), "ana@example.com", "hunter2secret")
	require.NoError(t, err)
	assert.Equal(t, "jwt-abc", tok)
	require.Len(t, *reqs, 1)
	assert.Equal(t, "/auth/login", (*reqs)[0].path)
}

func TestRemoteError_Message(t *testing.T) {
	err := &RemoteError{Status: 503, Message: "unavailable"}
	assert.Equal(t, "remote call failed: status 503: unavailable", err.Error())

	var target *RemoteError
	assert.True(t, errors.As(err, &target))
}
