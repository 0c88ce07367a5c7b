package whatsapp_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Meedux/ai-meal/internal/config"
	"github.com/Meedux/ai-meal/pkg/clients/whatsapp"
)

func newClient(t *testing.T, handler http.HandlerFunc) *whatsapp.APIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return whatsapp.NewClient(config.WhatsAppConfig{
		AccessToken:   "token",
		PhoneNumberID: "12345",
		BaseURL:       srv.URL + "/",
		APIVersion:    "v20.0",
	})
}

func TestSendTextMessage(t *testing.T) {
	t.Parallel()

	var got map[string]any
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v20.0/12345/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer token" {
			t.Errorf("missing bearer token")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	})

	resp, err := client.SendTextMessage(context.Background(), whatsapp.SendTextMessageRequest{To: "224600", Body: "hello"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(resp.Messages) != 1 || resp.Messages[0].ID != "wamid.1" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if got["to"] != "224600" || got["type"] != "text" {
		t.Fatalf("unexpected payload %v", got)
	}
}

func TestSendTextMessageAPIError(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid recipient","code":131026}}`))
	})

	if _, err := client.SendTextMessage(context.Background(), whatsapp.SendTextMessageRequest{To: "1", Body: "x"}); !errors.Is(err, whatsapp.ErrAPI) {
		t.Fatalf("expected api error, got %v", err)
	}
	if _, err := client.SendTextMessage(context.Background(), whatsapp.SendTextMessageRequest{Body: "x"}); err == nil {
		t.Fatalf("expected error for empty recipient")
	}
}
