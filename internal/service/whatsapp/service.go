package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Meedux/ai-meal/internal/config"
	"github.com/Meedux/ai-meal/internal/domain/models"
	"github.com/Meedux/ai-meal/internal/service/commands"
	"github.com/Meedux/ai-meal/internal/service/recipes"
	client "github.com/Meedux/ai-meal/pkg/clients/whatsapp"
)

const (
	sendTimeout = 10 * time.Second

	registrationHint = "This number is not linked to a meal planner account yet. Register it in the app to log meals here."
	textOnlyReply    = "Only text messages are supported. Send /help for the list of commands."
	failureReply     = "Something went wrong while saving your data. Please try again in a moment."
	estimateReply    = "I could not estimate that meal. Try /log <kcal> <protein> <carbs> <fat> [name]."
)

// MessagingService describes the operations the HTTP layer and scheduler can perform.
type MessagingService interface {
	VerifyWebhookToken(mode, verifyToken, challenge string) (string, error)
	HandleWebhook(ctx context.Context, payload models.WebhookPayload) error
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// UserDirectory maps a chat sender to a registered user.
type UserDirectory interface {
	UserIDForPhone(ctx context.Context, phone string) (string, error)
}

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	cfg        config.WhatsAppConfig
	client     client.Client
	users      UserDirectory
	dispatcher commands.Dispatcher
	logger     *zap.Logger
}

// NewMetaWhatsAppService wires a new service instance.
func NewMetaWhatsAppService(cfg config.WhatsAppConfig, client client.Client, users UserDirectory, dispatcher commands.Dispatcher, logger *zap.Logger) *MetaWhatsAppService {
	svc := &MetaWhatsAppService{
		cfg:        cfg,
		client:     client,
		users:      users,
		dispatcher: dispatcher,
		logger:     logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// VerifyWebhookToken validates the callback verification token.
func (s *MetaWhatsAppService) VerifyWebhookToken(mode, verifyToken, challenge string) (string, error) {
	if mode == "" || verifyToken == "" {
		return "", errors.New("missing mode or verify token")
	}

	if !strings.EqualFold(mode, "subscribe") {
		return "", fmt.Errorf("unsupported hub.mode %s", mode)
	}

	if s.cfg.VerifyToken == "" || verifyToken != s.cfg.VerifyToken {
		return "", errors.New("invalid verify token")
	}

	return challenge, nil
}

// HandleWebhook processes inbound webhook payloads. Every message is handled
// even when an earlier one fails; the first error is returned.
func (s *MetaWhatsAppService) HandleWebhook(ctx context.Context, payload models.WebhookPayload) error {
	var firstErr error

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, werr := range change.Value.Errors {
				s.logger.Warn("webhook reported error", zap.Int("code", werr.Code), zap.String("title", werr.Title), zap.String("message", werr.Message))
			}
			for _, msg := range change.Value.Messages {
				if err := s.handleInboundMessage(ctx, msg); err != nil {
					s.logger.Error("failed to handle inbound message", zap.Error(err), zap.String("message_id", msg.ID))
					if firstErr == nil {
						firstErr = err
					}
				}
			}
		}
	}

	return firstErr
}

func (s *MetaWhatsAppService) handleInboundMessage(ctx context.Context, msg models.InboundMessage) error {
	text := strings.TrimSpace(extractMessageText(msg))
	if text == "" {
		s.logger.Debug("ignoring non-text message", zap.String("type", msg.Type), zap.String("message_id", msg.ID))
		return s.send(ctx, msg.From, textOnlyReply)
	}

	userID, err := s.users.UserIDForPhone(ctx, msg.From)
	if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrValidation) {
		s.logger.Info("message from unregistered sender", zap.String("message_id", msg.ID))
		return s.send(ctx, msg.From, registrationHint)
	}
	if err != nil {
		return fmt.Errorf("resolve sender: %w", err)
	}

	cmd := models.ParseCommand(text)
	cmd.MessageID = msg.ID

	s.logger.Info("parsed inbound command",
		zap.String("user_id", userID),
		zap.String("command", string(cmd.Type)),
		zap.Strings("args", cmd.Args))

	reply, err := s.dispatcher.HandleCommand(ctx, cmd, userID)
	if err != nil {
		reply = replyForError(err)
		s.logger.Warn("command failed", zap.String("user_id", userID), zap.String("command", string(cmd.Type)), zap.Error(err))
	}

	return s.send(ctx, msg.From, reply)
}

// SendOutbound pushes a message to a phone number, used by digests and operators.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:         req.To,
		Body:       req.Message,
		PreviewURL: req.PreviewURL,
	})
	return err
}

func (s *MetaWhatsAppService) send(ctx context.Context, to, body string) error {
	return s.SendOutbound(ctx, models.OutboundMessageRequest{To: to, Message: body})
}

// replyForError turns a command failure into a message for the sender.
func replyForError(err error) string {
	switch {
	case errors.Is(err, commands.ErrInvalidArguments), errors.Is(err, models.ErrValidation):
		return "Sorry, " + err.Error()
	case errors.Is(err, recipes.ErrEstimateFailed), errors.Is(err, recipes.ErrEstimatorDisabled):
		return estimateReply
	case errors.Is(err, models.ErrNotFound):
		return "Not found: " + err.Error()
	default:
		return failureReply
	}
}

func extractMessageText(msg models.InboundMessage) string {
	if msg.Text != nil {
		return msg.Text.Body
	}

	if msg.Interactive != nil {
		if msg.Interactive.ButtonReply != nil {
			return msg.Interactive.ButtonReply.ID
		}
		if msg.Interactive.ListReply != nil {
			return msg.Interactive.ListReply.ID
		}
	}

	return ""
}
