package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
)

// MaxTextRunes is the longest text sent in a single message
const MaxTextRunes = 30000

// Message represents a received Feishu message
type Message struct {
	ChatID     string
	MsgID      string
	MsgType    string            // text, image, post
	ChatType   string            // p2p (private), group
	Content    string            // Text content (extracted from all message types)
	Sender     *Sender           // Message sender info
	MentionMap map[string]string // Map from mention key (@_user_1) to real name
	CreateTime time.Time         // Zero when Feishu sent no create_time
}

// FromBot reports whether the message was sent by an app
func (m *Message) FromBot() bool {
	return m.Sender != nil && m.Sender.SenderType == "app"
}

// Sender represents the message sender
type Sender struct {
	SenderID   string // open_id
	SenderType string // user, app
	TenantKey  string
}

// ChatMember represents a member in a chat
type ChatMember struct {
	MemberID   string `json:"member_id"`
	MemberType string `json:"member_type"`
	Name       string `json:"name"`
}

// ChatInfo represents information about a chat
type ChatInfo struct {
	ChatID      string `json:"chat_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ChatType    string `json:"chat_type"` // p2p, group
	MemberCount int    `json:"user_count"`
}

// MessageHandler is the callback for received messages
type MessageHandler func(msg *Message)

// Client is the Feishu API client
type Client struct {
	appID     string
	appSecret string
	larkCli   *lark.Client
	wsCli     *larkws.Client
	onMessage MessageHandler
	cancel    context.CancelFunc
}

// NewClient creates a new Feishu client
func NewClient(appID, appSecret string) *Client {
	return &Client{
		appID:     appID,
		appSecret: appSecret,
		larkCli:   lark.NewClient(appID, appSecret),
	}
}

// OnMessage sets the message handler
func (c *Client) OnMessage(handler MessageHandler) {
	c.onMessage = handler
}

// Start connects to Feishu via WebSocket and listens for messages until ctx is done
func (c *Client) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	// Must return quickly so the SDK can ACK, otherwise Feishu redelivers the event
	eventHandler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
			go c.handleMessage(event)
			return nil
		})

	c.wsCli = larkws.NewClient(c.appID, c.appSecret,
		larkws.WithEventHandler(eventHandler),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	)

	fmt.Println("[Feishu] Starting WebSocket connection...")
	return c.wsCli.Start(ctx)
}

// Stop disconnects from Feishu
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Client) handleMessage(event *larkim.P2MessageReceiveV1) {
	msg := ParseEvent(event)
	if msg == nil {
		return
	}
	if c.onMessage != nil {
		c.onMessage(msg)
	}
}

// ParseEvent converts a receive event into a Message. It returns nil for events without a
// message or with an unsupported message type.
func ParseEvent(event *larkim.P2MessageReceiveV1) *Message {
	if event == nil || event.Event == nil || event.Event.Message == nil {
		return nil
	}
	rawMsg := event.Event.Message

	msg := &Message{
		ChatID:     stringValue(rawMsg.ChatId),
		MsgID:      stringValue(rawMsg.MessageId),
		MsgType:    stringValue(rawMsg.MessageType),
		ChatType:   stringValue(rawMsg.ChatType),
		MentionMap: make(map[string]string),
	}

	msg.CreateTime = parseCreateTime(rawMsg.CreateTime)

	if sender := event.Event.Sender; sender != nil {
		msg.Sender = &Sender{
			SenderType: stringValue(sender.SenderType),
			TenantKey:  stringValue(sender.TenantKey),
		}
		if sender.SenderId != nil {
			msg.Sender.SenderID = stringValue(sender.SenderId.OpenId)
		}
	}

	for _, mention := range rawMsg.Mentions {
		if mention.Key != nil && mention.Name != nil {
			msg.MentionMap[*mention.Key] = *mention.Name
		}
	}

	content, ok := parseContent(msg.MsgType, stringValue(rawMsg.Content), msg.MentionMap)
	if !ok {
		fmt.Printf("[Feishu] Unsupported message type: %s\n", msg.MsgType)
		return nil
	}
	msg.Content = content
	return msg
}

// parseContent extracts the readable text of a message body; ok is false for unsupported types
func parseContent(msgType, content string, mentionMap map[string]string) (string, bool) {
	switch msgType {
	case "text":
		return parseTextContent(content, mentionMap), true
	case "post":
		return parsePostContent(content, mentionMap), true
	case "image":
		return "[Image]", true
	default:
		return "", false
	}
}

// parseCreateTime parses a millisecond Unix timestamp string; zero when absent or invalid
func parseCreateTime(raw *string) time.Time {
	if raw == nil {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(*raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// parseTextContent extracts text from a text message and replaces mention placeholders
func parseTextContent(content string, mentionMap map[string]string) string {
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}
	return replaceMentions(parsed.Text, mentionMap)
}

// parsePostContent extracts the text of a rich text message
func parsePostContent(content string, mentionMap map[string]string) string {
	var parsed struct {
		Title   string `json:"title"`
		Content [][]struct {
			Tag    string `json:"tag"`
			Text   string `json:"text,omitempty"`
			UserID string `json:"user_id,omitempty"` // for "at" tags
		} `json:"content"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}

	var textParts []string
	if parsed.Title != "" {
		textParts = append(textParts, parsed.Title)
	}
	for _, line := range parsed.Content {
		var lineParts []string
		for _, elem := range line {
			switch elem.Tag {
			case "text", "a":
				if elem.Text != "" {
					lineParts = append(lineParts, elem.Text)
				}
			case "at":
				if name, ok := mentionMap[elem.UserID]; ok {
					lineParts = append(lineParts, "@"+name)
				} else if elem.UserID != "" {
					lineParts = append(lineParts, "@"+elem.UserID)
				}
			}
		}
		if len(lineParts) > 0 {
			textParts = append(textParts, strings.Join(lineParts, ""))
		}
	}
	return replaceMentions(strings.Join(textParts, "\n"), mentionMap)
}

// replaceMentions replaces mention placeholders (@_user_1, @_user_2, etc.) with real names
func replaceMentions(text string, mentionMap map[string]string) string {
	for key, name := range mentionMap {
		text = strings.ReplaceAll(text, key, "@"+name)
	}
	return text
}

// SendText sends a text message to a chat. Texts longer than MaxTextRunes are cut.
func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	if runes := []rune(text); len(runes) > MaxTextRunes {
		text = string(runes[:MaxTextRunes]) + "\n…"
	}
	contentJSON, _ := json.Marshal(map[string]string{"text": text})

	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType(larkim.MsgTypeText).
			Content(string(contentJSON)).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("send message failed: %w", err)
	}
	if !resp.Success() {
		return &APIError{Op: "send message", Code: resp.Code, Msg: resp.Msg}
	}

	fmt.Printf("[Feishu] Message sent to %s\n", chatID)
	return nil
}

// APIError is a non-success response from the Feishu open API
type APIError struct {
	Op   string
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s error %d: %s", e.Op, e.Code, e.Msg)
}

// GetChatMembers retrieves all members of a chat, following pagination
func (c *Client) GetChatMembers(ctx context.Context, chatID string) ([]*ChatMember, error) {
	var members []*ChatMember
	var pageToken string

	for {
		reqBuilder := larkim.NewGetChatMembersReqBuilder().
			MemberIdType("open_id").
			ChatId(chatID).
			PageSize(100)
		if pageToken != "" {
			reqBuilder = reqBuilder.PageToken(pageToken)
		}

		resp, err := c.larkCli.Im.ChatMembers.Get(ctx, reqBuilder.Build())
		if err != nil {
			return nil, fmt.Errorf("get chat members failed: %w", err)
		}
		if !resp.Success() {
			return nil, &APIError{Op: "get chat members", Code: resp.Code, Msg: resp.Msg}
		}

		for _, item := range resp.Data.Items {
			members = append(members, &ChatMember{
				MemberID:   stringValue(item.MemberId),
				MemberType: stringValue(item.MemberIdType),
				Name:       stringValue(item.Name),
			})
		}

		if resp.Data.PageToken == nil || *resp.Data.PageToken == "" {
			break
		}
		pageToken = *resp.Data.PageToken
	}

	return members, nil
}

// GetChatInfo retrieves information about a chat
func (c *Client) GetChatInfo(ctx context.Context, chatID string) (*ChatInfo, error) {
	req := larkim.NewGetChatReqBuilder().
		ChatId(chatID).
		Build()

	resp, err := c.larkCli.Im.Chat.Get(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("get chat info failed: %w", err)
	}
	if !resp.Success() {
		return nil, &APIError{Op: "get chat info", Code: resp.Code, Msg: resp.Msg}
	}

	info := &ChatInfo{
		ChatID:      chatID,
		Name:        stringValue(resp.Data.Name),
		Description: stringValue(resp.Data.Description),
		ChatType:    stringValue(resp.Data.ChatMode),
	}
	if resp.Data.UserCount != nil {
		info.MemberCount, _ = strconv.Atoi(*resp.Data.UserCount)
	}
	return info, nil
}

// ListChats returns the chats the bot belongs to, following pagination
func (c *Client) ListChats(ctx context.Context) ([]*ChatInfo, error) {
	var chats []*ChatInfo
	var pageToken string

	for {
		reqBuilder := larkim.NewListChatReqBuilder().PageSize(100)
		if pageToken != "" {
			reqBuilder = reqBuilder.PageToken(pageToken)
		}

		resp, err := c.larkCli.Im.Chat.List(ctx, reqBuilder.Build())
		if err != nil {
			return nil, fmt.Errorf("list chats failed: %w", err)
		}
		if !resp.Success() {
			return nil, &APIError{Op: "list chats", Code: resp.Code, Msg: resp.Msg}
		}

		for _, item := range resp.Data.Items {
			chats = append(chats, &ChatInfo{
				ChatID:      stringValue(item.ChatId),
				Name:        stringValue(item.Name),
				Description: stringValue(item.Description),
			})
		}

		if resp.Data.HasMore == nil || !*resp.Data.HasMore || resp.Data.PageToken == nil || *resp.Data.PageToken == "" {
			break
		}
		pageToken = *resp.Data.PageToken
	}

	return chats, nil
}

// GetChatHistory retrieves the latest messages of a chat in chronological order.
// pageSize is capped at 50 and defaults to 20.
func (c *Client) GetChatHistory(ctx context.Context, chatID string, pageSize int) ([]*Message, error) {
	if pageSize > 50 {
		pageSize = 50
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	// Feishu lists oldest first by default, which would return the first messages of the chat
	req := larkim.NewListMessageReqBuilder().
		ContainerIdType("chat").
		ContainerId(chatID).
		SortType("ByCreateTimeDesc").
		PageSize(pageSize).
		Build()

	resp, err := c.larkCli.Im.Message.List(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("get chat history failed: %w", err)
	}
	if !resp.Success() {
		return nil, &APIError{Op: "get chat history", Code: resp.Code, Msg: resp.Msg}
	}

	var messages []*Message
	for _, item := range resp.Data.Items {
		if item.Deleted != nil && *item.Deleted {
			continue
		}
		msg := &Message{
			ChatID:     chatID,
			MsgID:      stringValue(item.MessageId),
			MsgType:    stringValue(item.MsgType),
			ChatType:   "group",
			MentionMap: make(map[string]string),
			CreateTime: parseCreateTime(item.CreateTime),
		}
		for _, mention := range item.Mentions {
			if mention.Key != nil && mention.Name != nil {
				msg.MentionMap[*mention.Key] = *mention.Name
			}
		}

		raw := ""
		if item.Body != nil {
			raw = stringValue(item.Body.Content)
		}
		content, ok := parseContent(msg.MsgType, raw, msg.MentionMap)
		if !ok {
			continue
		}
		msg.Content = content

		if item.Sender != nil {
			msg.Sender = &Sender{
				SenderID:   stringValue(item.Sender.Id),
				SenderType: stringValue(item.Sender.SenderType),
				TenantKey:  stringValue(item.Sender.TenantKey),
			}
		}
		messages = append(messages, msg)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
