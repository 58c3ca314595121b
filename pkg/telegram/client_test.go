package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendMessage(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"ok":true,"result":{}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "123:abc")
	err := client.SendMessage(context.Background(), 42, "hello", ParseModeMarkdownV2)
	require.NoError(t, err)

	assert.Equal(t, "/bot123:abc/sendMessage", gotPath)
	assert.Equal(t, float64(42), gotBody["chat_id"])
	assert.Equal(t, "hello", gotBody["text"])
	assert.Equal(t, "MarkdownV2", gotBody["parse_mode"])
}

func TestClient_SendMessage_NotOKIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// HTTP 200 with ok:false must still be treated as a failure.
		w.Write([]byte(`{"ok":false,"description":"Forbidden: bot was blocked"}`))
	}))
	defer server.Close()

	err := NewClient(server.URL, "t").SendMessage(context.Background(), 1, "hi", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot was blocked")
}

func TestClient_SendMessage_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"ok":false,"description":"Too Many Requests: retry after 5"}`))
	}))
	defer server.Close()

	err := NewClient(server.URL, "t").SendMessage(context.Background(), 1, "hi", "")
	assert.Error(t, err)
}

func TestClient_SendMessage_ConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	err := NewClient(server.URL, "t").SendMessage(context.Background(), 1, "hi", "")
	assert.Error(t, err)
}

func TestNewClient_DefaultHost(t *testing.T) {
	client := NewClient("", "t")
	assert.Equal(t, DefaultHost, client.host)
}
