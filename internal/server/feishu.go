package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
	"github.com/devricklin/feishu-digest-bot/internal/biz/usecase"
	"github.com/devricklin/feishu-digest-bot/internal/infra/feishu"
)

const (
	dedupWindow    = 5 * time.Minute
	memberCacheTTL = 10 * time.Minute

	// DefaultBackfillLimit is the number of recent messages read per chat at startup
	DefaultBackfillLimit = 20
)

// ChatDirectory resolves chat and member names
type ChatDirectory interface {
	GetChatInfo(ctx context.Context, chatID string) (*feishu.ChatInfo, error)
	GetChatMembers(ctx context.Context, chatID string) ([]*feishu.ChatMember, error)
}

// HistorySource lists chats and their recent messages
type HistorySource interface {
	ListChats(ctx context.Context) ([]*feishu.ChatInfo, error)
	GetChatHistory(ctx context.Context, chatID string, pageSize int) ([]*feishu.Message, error)
}

type memberCache struct {
	names     map[string]string // open_id -> name
	fetchedAt time.Time
}

// FeishuServer captures Feishu group messages into the message store
type FeishuServer struct {
	feishuClient *feishu.Client
	directory    ChatDirectory
	captureUC    *usecase.CaptureUsecase
	debug        bool

	// Message deduplication cache
	seenMsgsMu sync.Mutex
	seenMsgs   map[string]time.Time // msgID -> timestamp

	namesMu   sync.Mutex
	chatNames map[string]string
	members   map[string]*memberCache
}

// NewFeishuServer creates a new Feishu server. feishuClient may be nil in tests, in which case
// Start must not be called.
func NewFeishuServer(feishuClient *feishu.Client, directory ChatDirectory, captureUC *usecase.CaptureUsecase, debug bool) *FeishuServer {
	return &FeishuServer{
		feishuClient: feishuClient,
		directory:    directory,
		captureUC:    captureUC,
		debug:        debug,
		seenMsgs:     make(map[string]time.Time),
		chatNames:    make(map[string]string),
		members:      make(map[string]*memberCache),
	}
}

// Start listens for messages until ctx is done
func (s *FeishuServer) Start(ctx context.Context) error {
	s.feishuClient.OnMessage(s.HandleMessage)
	return s.feishuClient.Start(ctx)
}

// Stop stops the server
func (s *FeishuServer) Stop() {
	s.feishuClient.Stop()
}

// Backfill captures the latest limit messages of every chat the bot belongs to, oldest first.
// Excluded chats are not read. It returns the number of captured messages.
func (s *FeishuServer) Backfill(ctx context.Context, history HistorySource, limit int) (int, error) {
	chats, err := history.ListChats(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing chats: %w", err)
	}

	captured := 0
	for _, chat := range chats {
		name := chat.Name
		if name == "" {
			name = chat.ChatID
		}
		s.namesMu.Lock()
		s.chatNames[chat.ChatID] = name
		s.namesMu.Unlock()

		excluded, err := s.captureUC.Excluded(ctx, name)
		if err != nil {
			fmt.Printf("[Server] Failed to classify %s: %v\n", name, err)
			continue
		}
		if excluded {
			continue
		}

		msgs, err := history.GetChatHistory(ctx, chat.ChatID, limit)
		if err != nil {
			// Usually a chat the bot may not read
			fmt.Printf("[Server] Skipping history of %s: %v\n", name, err)
			continue
		}
		for _, msg := range msgs {
			if s.capture(msg) {
				captured++
			}
		}
	}

	fmt.Printf("[Server] Backfilled %d messages from %d chats\n", captured, len(chats))
	return captured, nil
}

// HandleMessage captures a received message
func (s *FeishuServer) HandleMessage(msg *feishu.Message) {
	s.capture(msg)
}

// capture dedups msg and files it; it reports whether the message was stored
func (s *FeishuServer) capture(msg *feishu.Message) bool {
	if s.isMessageSeen(msg.MsgID) {
		if s.debug {
			fmt.Printf("[Server] Duplicate message ignored: %s\n", msg.MsgID)
		}
		return false
	}
	s.markMessageSeen(msg.MsgID)

	if msg.FromBot() {
		return false
	}

	ctx := context.Background()

	author := ""
	if msg.Sender != nil {
		author = s.memberName(ctx, msg.ChatID, msg.Sender.SenderID)
	}

	captured := &domain.CapturedMessage{
		MsgID:     msg.MsgID,
		Channel:   s.chatName(ctx, msg.ChatID),
		Author:    author,
		Content:   msg.Content,
		Timestamp: msg.CreateTime,
		FromBot:   msg.FromBot(),
	}

	stored, err := s.captureUC.Capture(ctx, captured)
	switch {
	case errors.Is(err, domain.ErrMissingTimestamp):
		fmt.Printf("[Server] Message %s dropped: %v\n", msg.MsgID, err)
	case err != nil:
		fmt.Printf("[Server] Failed to capture message %s: %v\n", msg.MsgID, err)
	case stored && s.debug:
		fmt.Printf("[Server] Captured %s from %s in %s\n", msg.MsgType, author, captured.Channel)
	}
	return stored && err == nil
}

// chatName returns the chat name, or the chat ID when it cannot be resolved
func (s *FeishuServer) chatName(ctx context.Context, chatID string) string {
	s.namesMu.Lock()
	name, ok := s.chatNames[chatID]
	s.namesMu.Unlock()
	if ok {
		return name
	}

	name = chatID
	info, err := s.directory.GetChatInfo(ctx, chatID)
	if err != nil {
		fmt.Printf("[Server] Failed to get chat info for %s: %v\n", chatID, err)
		// Not cached so the next message retries
		return name
	}
	if info.Name != "" {
		name = info.Name
	}

	s.namesMu.Lock()
	s.chatNames[chatID] = name
	s.namesMu.Unlock()
	return name
}

// memberName returns the display name of a sender, or its ID when unknown
func (s *FeishuServer) memberName(ctx context.Context, chatID, senderID string) string {
	s.namesMu.Lock()
	cache, ok := s.members[chatID]
	s.namesMu.Unlock()

	if ok && time.Since(cache.fetchedAt) < memberCacheTTL {
		if name, found := cache.names[senderID]; found {
			return name
		}
	}

	members, err := s.directory.GetChatMembers(ctx, chatID)
	if err != nil {
		fmt.Printf("[Server] Failed to get members of %s: %v\n", chatID, err)
		return senderID
	}

	cache = &memberCache{names: make(map[string]string, len(members)), fetchedAt: time.Now()}
	for _, m := range members {
		cache.names[m.MemberID] = m.Name
	}
	s.namesMu.Lock()
	s.members[chatID] = cache
	s.namesMu.Unlock()

	if name, found := cache.names[senderID]; found && name != "" {
		return name
	}
	return senderID
}

// isMessageSeen checks if a message has been processed
func (s *FeishuServer) isMessageSeen(msgID string) bool {
	s.seenMsgsMu.Lock()
	defer s.seenMsgsMu.Unlock()
	_, exists := s.seenMsgs[msgID]
	return exists
}

// markMessageSeen marks a message as processed
func (s *FeishuServer) markMessageSeen(msgID string) {
	s.seenMsgsMu.Lock()
	defer s.seenMsgsMu.Unlock()
	s.seenMsgs[msgID] = time.Now()

	// Drop records older than the redelivery window
	cutoff := time.Now().Add(-dedupWindow)
	for id, ts := range s.seenMsgs {
		if ts.Before(cutoff) {
			delete(s.seenMsgs, id)
		}
	}
}
