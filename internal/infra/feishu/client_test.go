package feishu

import (
	"testing"
	"time"

	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
)

func strPtr(s string) *string { return &s }

func TestParseEvent_Text(t *testing.T) {
	event := &larkim.P2MessageReceiveV1{
		Event: &larkim.P2MessageReceiveV1Data{
			Sender: &larkim.EventSender{
				SenderId:   &larkim.UserId{OpenId: strPtr("ou_alice")},
				SenderType: strPtr("user"),
			},
			Message: &larkim.EventMessage{
				MessageId:   strPtr("om_1"),
				ChatId:      strPtr("oc_1"),
				ChatType:    strPtr("group"),
				MessageType: strPtr("text"),
				CreateTime:  strPtr("1736064000000"),
				Content:     strPtr(`{"text":"@_user_1 deploy is done"}`),
				Mentions: []*larkim.MentionEvent{
					{Key: strPtr("@_user_1"), Name: strPtr("Bob")},
				},
			},
		},
	}

	msg := ParseEvent(event)
	if msg == nil {
		t.Fatal("expected message")
	}
	if msg.Content != "@Bob deploy is done" {
		t.Errorf("unexpected content %q", msg.Content)
	}
	if !msg.CreateTime.Equal(time.UnixMilli(1736064000000)) {
		t.Errorf("unexpected create time %v", msg.CreateTime)
	}
	if msg.FromBot() {
		t.Error("user message reported as bot")
	}
	if msg.Sender.SenderID != "ou_alice" {
		t.Errorf("unexpected sender %q", msg.Sender.SenderID)
	}
}

func TestParseEvent_BotAndUnsupported(t *testing.T) {
	bot := &larkim.P2MessageReceiveV1{
		Event: &larkim.P2MessageReceiveV1Data{
			Sender:  &larkim.EventSender{SenderType: strPtr("app")},
			Message: &larkim.EventMessage{MessageType: strPtr("image"), Content: strPtr(`{"image_key":"k"}`)},
		},
	}
	msg := ParseEvent(bot)
	if msg == nil || !msg.FromBot() || msg.Content != "[Image]" {
		t.Errorf("unexpected bot message %+v", msg)
	}
	if !msg.CreateTime.IsZero() {
		t.Error("expected zero create time")
	}

	sticker := &larkim.P2MessageReceiveV1{
		Event: &larkim.P2MessageReceiveV1Data{
			Message: &larkim.EventMessage{MessageType: strPtr("sticker")},
		},
	}
	if ParseEvent(sticker) != nil {
		t.Error("expected nil for unsupported type")
	}
	if ParseEvent(&larkim.P2MessageReceiveV1{}) != nil {
		t.Error("expected nil for empty event")
	}
}

func TestParsePostContent(t *testing.T) {
	content := `{"title":"Weekly","content":[[{"tag":"text","text":"ping "},{"tag":"at","user_id":"@_user_1"}],[{"tag":"img","image_key":"k"}]]}`
	got := parsePostContent(content, map[string]string{"@_user_1": "Carol"})
	if got != "Weekly\nping @Carol" {
		t.Errorf("unexpected post text %q", got)
	}
}
