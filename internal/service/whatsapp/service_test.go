package whatsapp_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/Meedux/ai-meal/internal/config"
	"github.com/Meedux/ai-meal/internal/domain/models"
	"github.com/Meedux/ai-meal/internal/service/commands"
	"github.com/Meedux/ai-meal/internal/service/whatsapp"
	client "github.com/Meedux/ai-meal/pkg/clients/whatsapp"
)

type recordingClient struct {
	mu   sync.Mutex
	sent []client.SendTextMessageRequest
	err  error
}

func (c *recordingClient) SendTextMessage(_ context.Context, req client.SendTextMessageRequest) (*client.SendTextMessageResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, req)
	return &client.SendTextMessageResponse{}, c.err
}

type directory map[string]string

func (d directory) UserIDForPhone(_ context.Context, phone string) (string, error) {
	if id, ok := d[phone]; ok {
		return id, nil
	}
	return "", models.NotFoundf("phone %s", phone)
}

type stubDispatcher struct {
	reply string
	err   error
	got   []models.Command
}

func (d *stubDispatcher) HandleCommand(_ context.Context, cmd models.Command, _ string) (string, error) {
	d.got = append(d.got, cmd)
	return d.reply, d.err
}

func textPayload(from, id, body string) models.WebhookPayload {
	return models.WebhookPayload{
		Object: "whatsapp_business_account",
		Entry: []models.WebhookEntry{{
			Changes: []models.WebhookChange{{
				Field: "messages",
				Value: models.WebhookValue{
					Messages: []models.InboundMessage{{From: from, ID: id, Type: "text", Text: &models.TextContent{Body: body}}},
				},
			}},
		}},
	}
}

func newService(dispatcher commands.Dispatcher) (*whatsapp.MetaWhatsAppService, *recordingClient) {
	rc := &recordingClient{}
	svc := whatsapp.NewMetaWhatsAppService(
		config.WhatsAppConfig{VerifyToken: "secret"},
		rc,
		directory{"224600": "u1"},
		dispatcher,
		nil,
	)
	return svc, rc
}

func TestVerifyWebhookToken(t *testing.T) {
	t.Parallel()
	svc, _ := newService(&stubDispatcher{})

	challenge, err := svc.VerifyWebhookToken("subscribe", "secret", "42")
	if err != nil || challenge != "42" {
		t.Fatalf("expected challenge echo, got %q %v", challenge, err)
	}
	if _, err := svc.VerifyWebhookToken("subscribe", "wrong", "42"); err == nil {
		t.Fatalf("expected invalid token error")
	}
	if _, err := svc.VerifyWebhookToken("unsubscribe", "secret", "42"); err == nil {
		t.Fatalf("expected unsupported mode error")
	}
}

func TestHandleWebhookDispatchesRegisteredSender(t *testing.T) {
	t.Parallel()
	dispatcher := &stubDispatcher{reply: "Logged"}
	svc, rc := newService(dispatcher)

	if err := svc.HandleWebhook(context.Background(), textPayload("224600", "wamid.7", "/log 100 1 1 1")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(dispatcher.got) != 1 || dispatcher.got[0].Type != models.CommandLog || dispatcher.got[0].MessageID != "wamid.7" {
		t.Fatalf("unexpected dispatched commands %+v", dispatcher.got)
	}
	if len(rc.sent) != 1 || rc.sent[0].To != "224600" || rc.sent[0].Body != "Logged" {
		t.Fatalf("unexpected replies %+v", rc.sent)
	}
}

func TestHandleWebhookUnknownSender(t *testing.T) {
	t.Parallel()
	dispatcher := &stubDispatcher{}
	svc, rc := newService(dispatcher)

	if err := svc.HandleWebhook(context.Background(), textPayload("999", "wamid.8", "/today")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(dispatcher.got) != 0 {
		t.Fatalf("unregistered sender must not reach the dispatcher")
	}
	if len(rc.sent) != 1 || !strings.Contains(rc.sent[0].Body, "not linked") {
		t.Fatalf("expected registration hint, got %+v", rc.sent)
	}
}

func TestHandleWebhookReportsCommandFailures(t *testing.T) {
	t.Parallel()
	dispatcher := &stubDispatcher{err: models.Persistence("add meal", errors.New("timeout"))}
	svc, rc := newService(dispatcher)

	if err := svc.HandleWebhook(context.Background(), textPayload("224600", "wamid.9", "/log 1 1 1 1")); err != nil {
		t.Fatalf("a failed command is answered, not returned: %v", err)
	}
	if len(rc.sent) != 1 || !strings.Contains(rc.sent[0].Body, "try again") {
		t.Fatalf("expected failure reply, got %+v", rc.sent)
	}
}

func TestHandleWebhookSendFailure(t *testing.T) {
	t.Parallel()
	svc, rc := newService(&stubDispatcher{reply: "ok"})
	rc.err = errors.New("meta down")

	if err := svc.HandleWebhook(context.Background(), textPayload("224600", "wamid.10", "/help")); err == nil {
		t.Fatalf("expected send error to surface")
	}
}
