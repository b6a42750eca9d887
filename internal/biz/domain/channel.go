package domain

import "time"

// ChannelList names a persisted channel list
type ChannelList string

const (
	ListImportant ChannelList = "important"
	ListExcluded  ChannelList = "excluded"
)

// Valid reports whether the list name is known
func (l ChannelList) Valid() bool {
	return l == ListImportant || l == ListExcluded
}

// ChannelEntry represents a channel registered on a list
type ChannelEntry struct {
	ID        int64       `json:"id"`
	List      ChannelList `json:"list"`
	Name      string      `json:"name"`
	AddedBy   string      `json:"added_by"` // "env", "api" or "mcp"
	CreatedAt time.Time   `json:"created_at"`
}
