package smooch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"botbridge/pkg/channel"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{
		BaseURL: server.URL,
		AppID:   "app-1",
		KeyID:   "key",
		Secret:  "secret",
		Timeout: time.Second,
	}, nil)
	require.NoError(t, err)
	return client
}

func TestSendMessage(t *testing.T) {
	t.Parallel()

	var got channel.Message
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1.1/apps/app-1/appusers/u1/messages", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "key", user)
		require.Equal(t, "secret", pass)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"message":{"_id":"msg-9","type":"text"}}`))
	})

	msg := channel.TextMessage("hello")
	msg.Role = channel.RoleAppMaker

	result, err := client.SendMessage(context.Background(), "u1", msg)
	require.NoError(t, err)
	require.Equal(t, "msg-9", result.MessageID)
	require.Equal(t, msg, got)
}

func TestGetUser(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v1.1/apps/app-1/appusers/u1", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"appUser":{"_id":"u1","clients":[
		  {"platform":"whatsapp","active":true,"primary":false},
		  {"platform":"web","active":true,"primary":true}
		]}}`))
	})

	user, err := client.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, "u1", user.ID)

	primary, ok := user.PrimaryClient()
	require.True(t, ok)
	require.Equal(t, "web", primary.Platform)
}

func TestStatusErrors(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"code":"unauthorized"}}`, http.StatusUnauthorized)
	})

	_, err := client.SendMessage(context.Background(), "u1", channel.TextMessage("x"))
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	require.Equal(t, "send message", statusErr.Operation)

	_, err = client.GetUser(context.Background(), "u1")
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, "get user", statusErr.Operation)
}

func TestNewValidatesCredentials(t *testing.T) {
	t.Parallel()

	_, err := New(Config{KeyID: "k", Secret: "s"}, nil)
	require.Error(t, err)

	_, err = New(Config{AppID: "a", KeyID: "k"}, nil)
	require.Error(t, err)

	client, err := New(Config{AppID: "a", KeyID: "k", Secret: "s", Proxy: "http://127.0.0.1:3128"}, nil)
	require.NoError(t, err)
	require.NotNil(t, client)
}
