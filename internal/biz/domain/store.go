package domain

import (
	"sort"
	"sync"
	"time"
)

// MessageStore is the in-memory buffer of captured messages, keyed by category then channel.
// Insertion order is chronological order. All methods are safe for concurrent use; the lock
// is only held for the duration of a single call.
type MessageStore struct {
	mu       sync.Mutex
	channels map[Category]map[string][]StoredMessage
}

// NewMessageStore creates an empty store
func NewMessageStore() *MessageStore {
	return &MessageStore{channels: emptyChannels()}
}

func emptyChannels() map[Category]map[string][]StoredMessage {
	return map[Category]map[string][]StoredMessage{
		CategoryImportant: {},
		CategoryGeneral:   {},
	}
}

// Append adds a message at the end of the channel's sequence, creating the channel if absent.
// A channel already buffered under another category stays there until it is released, so a
// channel never sits in two categories. The category actually used is returned.
func (s *MessageStore) Append(category Category, channel string, msg StoredMessage) Category {
	s.mu.Lock()
	defer s.mu.Unlock()

	for other, byChannel := range s.channels {
		if other != category && len(byChannel[channel]) > 0 {
			category = other
			break
		}
	}

	byChannel, ok := s.channels[category]
	if !ok {
		byChannel = make(map[string][]StoredMessage)
		s.channels[category] = byChannel
	}
	byChannel[channel] = append(byChannel[channel], msg)
	return category
}

// Clear empties both categories
func (s *MessageStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels = emptyChannels()
}

// Snapshot returns a deep copy of the current content
func (s *MessageStore) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := newSnapshot()
	for category, byChannel := range s.channels {
		for channel, msgs := range byChannel {
			copied := make([]StoredMessage, len(msgs))
			copy(copied, msgs)
			snap.Channels[category][channel] = copied
		}
	}
	return snap
}

// Release removes the messages captured by snap, keeping anything appended after it was taken.
// Channels left empty are dropped.
func (s *MessageStore) Release(snap *Snapshot) {
	if snap == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for category, byChannel := range snap.Channels {
		current := s.channels[category]
		if current == nil {
			continue
		}
		for channel, taken := range byChannel {
			msgs := current[channel]
			n := len(taken)
			if n >= len(msgs) {
				delete(current, channel)
				continue
			}
			rest := make([]StoredMessage, len(msgs)-n)
			copy(rest, msgs[n:])
			current[channel] = rest
		}
	}
}

// Len returns the number of buffered messages
func (s *MessageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, byChannel := range s.channels {
		for _, msgs := range byChannel {
			total += len(msgs)
		}
	}
	return total
}

// Empty reports whether no message is buffered
func (s *MessageStore) Empty() bool {
	return s.Len() == 0
}

// Snapshot is an immutable copy of a MessageStore
type Snapshot struct {
	Channels map[Category]map[string][]StoredMessage `json:"messages"`
}

func newSnapshot() *Snapshot {
	return &Snapshot{Channels: emptyChannels()}
}

// NewSnapshot builds a snapshot from explicit content (used by loaders and tests)
func NewSnapshot(channels map[Category]map[string][]StoredMessage) *Snapshot {
	snap := newSnapshot()
	for category, byChannel := range channels {
		if snap.Channels[category] == nil {
			snap.Channels[category] = make(map[string][]StoredMessage)
		}
		for channel, msgs := range byChannel {
			snap.Channels[category][channel] = msgs
		}
	}
	return snap
}

// ChannelNames returns the channel names of a category, sorted
func (s *Snapshot) ChannelNames(category Category) []string {
	names := make([]string, 0, len(s.Channels[category]))
	for name := range s.Channels[category] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Messages returns the messages of one channel
func (s *Snapshot) Messages(category Category, channel string) []StoredMessage {
	return s.Channels[category][channel]
}

// Total returns the number of messages in the snapshot
func (s *Snapshot) Total() int {
	total := 0
	for _, byChannel := range s.Channels {
		for _, msgs := range byChannel {
			total += len(msgs)
		}
	}
	return total
}

// Empty reports whether the snapshot holds no message
func (s *Snapshot) Empty() bool {
	return s.Total() == 0
}

// Bounds returns the oldest and newest timestamps; ok is false when no message has one
func (s *Snapshot) Bounds() (oldest, newest time.Time, ok bool) {
	for _, byChannel := range s.Channels {
		for _, msgs := range byChannel {
			for _, m := range msgs {
				if !m.HasTimestamp() {
					continue
				}
				if !ok || m.Timestamp.Before(oldest) {
					oldest = m.Timestamp
				}
				if !ok || m.Timestamp.After(newest) {
					newest = m.Timestamp
				}
				ok = true
			}
		}
	}
	return oldest, newest, ok
}

// Since keeps only the messages posted at or after cutoff
func (s *Snapshot) Since(cutoff time.Time) *Snapshot {
	out := newSnapshot()
	for category, byChannel := range s.Channels {
		for channel, msgs := range byChannel {
			var kept []StoredMessage
			for _, m := range msgs {
				if m.HasTimestamp() && !m.Timestamp.Before(cutoff) {
					kept = append(kept, m)
				}
			}
			if len(kept) > 0 {
				out.Channels[category][channel] = kept
			}
		}
	}
	return out
}

// LastN keeps the n most recent messages of each channel
func (s *Snapshot) LastN(n int) *Snapshot {
	out := newSnapshot()
	if n <= 0 {
		return out
	}
	for category, byChannel := range s.Channels {
		for channel, msgs := range byChannel {
			if len(msgs) == 0 {
				continue
			}
			if len(msgs) > n {
				msgs = msgs[len(msgs)-n:]
			}
			kept := make([]StoredMessage, len(msgs))
			copy(kept, msgs)
			out.Channels[category][channel] = kept
		}
	}
	return out
}

// ChannelSummary is the buffer overview of a single channel
type ChannelSummary struct {
	Category     Category  `json:"category"`
	Channel      string    `json:"channel"`
	MessageCount int       `json:"message_count"`
	FirstMessage time.Time `json:"first_message"`
	LastMessage  time.Time `json:"last_message"`
}

// Summary returns per-channel counts, important channels first
func (s *Snapshot) Summary() []ChannelSummary {
	var out []ChannelSummary
	for _, category := range Categories {
		for _, channel := range s.ChannelNames(category) {
			msgs := s.Channels[category][channel]
			sum := ChannelSummary{Category: category, Channel: channel, MessageCount: len(msgs)}
			for _, m := range msgs {
				if !m.HasTimestamp() {
					continue
				}
				if sum.FirstMessage.IsZero() || m.Timestamp.Before(sum.FirstMessage) {
					sum.FirstMessage = m.Timestamp
				}
				if m.Timestamp.After(sum.LastMessage) {
					sum.LastMessage = m.Timestamp
				}
			}
			out = append(out, sum)
		}
	}
	return out
}
