package domain

import (
	"strings"
	"time"
)

// Category is the report section a channel belongs to
type Category string

const (
	CategoryImportant Category = "important"
	CategoryGeneral   Category = "general"
)

// Categories lists the categories in rendering order
var Categories = []Category{CategoryImportant, CategoryGeneral}

// StoredMessage represents a captured chat message held until the next digest
type StoredMessage struct {
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// HasTimestamp reports whether the message carries a usable timestamp
func (m StoredMessage) HasTimestamp() bool {
	return !m.Timestamp.IsZero()
}

// IsAfter checks if the message is after the specified time
func (m StoredMessage) IsAfter(t time.Time) bool {
	return m.Timestamp.After(t)
}

// CapturedMessage is a message delivered by the chat platform before classification
type CapturedMessage struct {
	MsgID     string
	Channel   string
	Author    string
	Content   string
	Timestamp time.Time
	FromBot   bool
}

// NormalizeChannelName trims spaces and a leading '#'
func NormalizeChannelName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "#")
	return strings.TrimSpace(name)
}
