package data

import (
	"context"
	"fmt"

	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
	"github.com/devricklin/feishu-digest-bot/internal/biz/repo"
)

// TextSender sends a text message to a Feishu chat
type TextSender interface {
	SendText(ctx context.Context, chatID, text string) error
}

// feishuSink posts reports into a Feishu chat
type feishuSink struct {
	client TextSender
	chatID string
}

// NewFeishuSink creates a delivery sink posting to chatID
func NewFeishuSink(client TextSender, chatID string) repo.DeliverySink {
	return &feishuSink{client: client, chatID: chatID}
}

func (s *feishuSink) Name() string {
	return "feishu"
}

// Validate checks the target chat and the app credentials
func (s *feishuSink) Validate() error {
	var missing []string
	if s.client == nil {
		missing = append(missing, "FEISHU_APP_ID", "FEISHU_APP_SECRET")
	}
	if s.chatID == "" {
		missing = append(missing, "FEISHU_REPORT_CHAT_ID")
	}
	if len(missing) > 0 {
		return &domain.IncompleteConfigError{Sink: s.Name(), Missing: missing}
	}
	return nil
}

// Deliver posts the subject followed by the report
func (s *feishuSink) Deliver(ctx context.Context, subject, body string) error {
	err := s.client.SendText(ctx, s.chatID, subject+"\n\n"+body)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("feishu send: %w", ctx.Err())
	}
	return domain.NewTransportError("feishu send", err)
}
