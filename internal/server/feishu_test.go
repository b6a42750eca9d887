package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
	"github.com/devricklin/feishu-digest-bot/internal/biz/usecase"
	"github.com/devricklin/feishu-digest-bot/internal/infra/feishu"
)

type mockDirectory struct {
	infoCalls   int
	memberCalls int
	infoErr     error
	chatName    string
	memberByID  map[string]string
}

func (m *mockDirectory) GetChatInfo(ctx context.Context, chatID string) (*feishu.ChatInfo, error) {
	m.infoCalls++
	if m.infoErr != nil {
		return nil, m.infoErr
	}
	return &feishu.ChatInfo{ChatID: chatID, Name: m.chatName}, nil
}

func (m *mockDirectory) GetChatMembers(ctx context.Context, chatID string) ([]*feishu.ChatMember, error) {
	m.memberCalls++
	var out []*feishu.ChatMember
	for id, name := range m.memberByID {
		out = append(out, &feishu.ChatMember{MemberID: id, Name: name})
	}
	return out, nil
}

type memChannelRepo struct {
	lists map[domain.ChannelList]map[string]bool
}

func (m *memChannelRepo) Add(ctx context.Context, e *domain.ChannelEntry) error {
	m.lists[e.List][e.Name] = true
	return nil
}

func (m *memChannelRepo) Remove(ctx context.Context, list domain.ChannelList, name string) error {
	delete(m.lists[list], name)
	return nil
}

func (m *memChannelRepo) List(ctx context.Context, list domain.ChannelList) ([]*domain.ChannelEntry, error) {
	return nil, nil
}

func (m *memChannelRepo) Contains(ctx context.Context, list domain.ChannelList, name string) (bool, error) {
	return m.lists[list][name], nil
}

func (m *memChannelRepo) Close() error { return nil }

func newTestServer(dir *mockDirectory, important ...string) (*FeishuServer, *domain.MessageStore) {
	repo := &memChannelRepo{lists: map[domain.ChannelList]map[string]bool{
		domain.ListImportant: {},
		domain.ListExcluded:  {},
	}}
	for _, name := range important {
		repo.lists[domain.ListImportant][name] = true
	}
	store := domain.NewMessageStore()
	capture := usecase.NewCaptureUsecase(store, usecase.NewChannelUsecase(repo), false)
	return NewFeishuServer(nil, dir, capture, false), store
}

func textMessage(id string) *feishu.Message {
	return &feishu.Message{
		ChatID:     "oc_1",
		MsgID:      id,
		MsgType:    "text",
		Content:    "Deploy finished on staging",
		Sender:     &feishu.Sender{SenderID: "ou_alice", SenderType: "user"},
		CreateTime: time.Date(2025, 1, 5, 8, 0, 0, 0, time.UTC),
	}
}

func TestHandleMessage_ResolvesNamesAndCaptures(t *testing.T) {
	dir := &mockDirectory{chatName: "#annonces", memberByID: map[string]string{"ou_alice": "Alice"}}
	s, store := newTestServer(dir, "annonces")

	s.HandleMessage(textMessage("om_1"))
	s.HandleMessage(textMessage("om_2"))

	msgs := store.Snapshot().Messages(domain.CategoryImportant, "annonces")
	if len(msgs) != 2 {
		t.Fatalf("expected 2 important messages, got %d", len(msgs))
	}
	if msgs[0].Author != "Alice" {
		t.Errorf("expected author Alice, got %q", msgs[0].Author)
	}
	if dir.infoCalls != 1 || dir.memberCalls != 1 {
		t.Errorf("expected cached lookups, got info=%d members=%d", dir.infoCalls, dir.memberCalls)
	}
}

func TestHandleMessage_DeduplicatesRedelivery(t *testing.T) {
	s, store := newTestServer(&mockDirectory{chatName: "dev"})

	s.HandleMessage(textMessage("om_1"))
	s.HandleMessage(textMessage("om_1"))

	if n := store.Len(); n != 1 {
		t.Errorf("expected 1 message, got %d", n)
	}
}

func TestHandleMessage_SkipsBotsAndMissingTimestamps(t *testing.T) {
	s, store := newTestServer(&mockDirectory{chatName: "dev"})

	bot := textMessage("om_bot")
	bot.Sender.SenderType = "app"
	s.HandleMessage(bot)

	noTime := textMessage("om_notime")
	noTime.CreateTime = time.Time{}
	s.HandleMessage(noTime)

	if !store.Empty() {
		t.Errorf("expected empty store, got %d messages", store.Len())
	}
}

func TestHandleMessage_FallsBackToIDs(t *testing.T) {
	dir := &mockDirectory{infoErr: errors.New("forbidden")}
	s, store := newTestServer(dir)

	s.HandleMessage(textMessage("om_1"))

	msgs := store.Snapshot().Messages(domain.CategoryGeneral, "oc_1")
	if len(msgs) != 1 || msgs[0].Author != "ou_alice" {
		t.Fatalf("unexpected messages %+v", msgs)
	}
}

type fakeHistory struct {
	chats     []*feishu.ChatInfo
	messages  map[string][]*feishu.Message
	failing   map[string]bool
	requested []string
}

func (f *fakeHistory) ListChats(ctx context.Context) ([]*feishu.ChatInfo, error) {
	return f.chats, nil
}

func (f *fakeHistory) GetChatHistory(ctx context.Context, chatID string, pageSize int) ([]*feishu.Message, error) {
	f.requested = append(f.requested, chatID)
	if f.failing[chatID] {
		return nil, errors.New("no permission")
	}
	msgs := f.messages[chatID]
	if len(msgs) > pageSize {
		msgs = msgs[len(msgs)-pageSize:]
	}
	return msgs, nil
}

func historyMessage(chatID, id, content string, minute int, bot bool) *feishu.Message {
	senderType := "user"
	if bot {
		senderType = "app"
	}
	return &feishu.Message{
		ChatID:     chatID,
		MsgID:      id,
		MsgType:    "text",
		Content:    content,
		Sender:     &feishu.Sender{SenderID: "ou_alice", SenderType: senderType},
		CreateTime: time.Date(2025, 1, 5, 8, minute, 0, 0, time.UTC),
	}
}

func TestBackfill_CapturesRecentHistory(t *testing.T) {
	dir := &mockDirectory{memberByID: map[string]string{"ou_alice": "Alice"}}
	s, store := newTestServer(dir)
	ctx := context.Background()

	// random is excluded through the capture usecase's channel lists
	repo := &memChannelRepo{lists: map[domain.ChannelList]map[string]bool{
		domain.ListImportant: {"annonces": true},
		domain.ListExcluded:  {"random": true},
	}}
	s.captureUC = usecase.NewCaptureUsecase(store, usecase.NewChannelUsecase(repo), false)

	history := &fakeHistory{
		chats: []*feishu.ChatInfo{
			{ChatID: "oc_1", Name: "annonces"},
			{ChatID: "oc_2", Name: "random"},
			{ChatID: "oc_3", Name: "dev"},
			{ChatID: "oc_4", Name: "secret"},
		},
		messages: map[string][]*feishu.Message{
			"oc_1": {
				historyMessage("oc_1", "m1", "Release 2.0 is planned", 0, false),
				historyMessage("oc_1", "m2", "Release 2.0 is live", 5, false),
			},
			"oc_2": {historyMessage("oc_2", "m3", "meme", 0, false)},
			"oc_3": {
				historyMessage("oc_3", "m4", "Build passed", 1, true),
				historyMessage("oc_3", "m5", "Reviewing the parser change", 2, false),
			},
		},
		failing: map[string]bool{"oc_4": true},
	}

	captured, err := s.Backfill(ctx, history, DefaultBackfillLimit)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if captured != 3 {
		t.Errorf("Expected 3 captured messages, got %d", captured)
	}
	for _, id := range history.requested {
		if id == "oc_2" {
			t.Error("Excluded chat history should not be read")
		}
	}

	snap := store.Snapshot()
	annonces := snap.Messages(domain.CategoryImportant, "annonces")
	if len(annonces) != 2 || annonces[0].Content != "Release 2.0 is planned" {
		t.Errorf("Expected chronological important messages, got %+v", annonces)
	}
	if dev := snap.Messages(domain.CategoryGeneral, "dev"); len(dev) != 1 {
		t.Errorf("Expected bot message skipped, got %+v", dev)
	}
	if dir.infoCalls != 0 {
		t.Errorf("Chat names should come from the chat list, got %d lookups", dir.infoCalls)
	}

	// A live redelivery of a backfilled message is ignored
	s.HandleMessage(historyMessage("oc_1", "m2", "Release 2.0 is live", 5, false))
	if got := len(store.Snapshot().Messages(domain.CategoryImportant, "annonces")); got != 2 {
		t.Errorf("Expected redelivery ignored, got %d messages", got)
	}
}
