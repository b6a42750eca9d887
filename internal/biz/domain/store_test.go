package domain

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msgAt(author, content string, ts time.Time) StoredMessage {
	return StoredMessage{Author: author, Content: content, Timestamp: ts}
}

func TestMessageStore_AppendKeepsInsertionOrder(t *testing.T) {
	s := NewMessageStore()
	base := time.Date(2025, 1, 5, 8, 0, 0, 0, time.UTC)

	s.Append(CategoryImportant, "annonces", msgAt("alice", "first", base))
	s.Append(CategoryImportant, "annonces", msgAt("bob", "second", base.Add(time.Minute)))
	s.Append(CategoryGeneral, "chitchat", msgAt("carol", "hello there", base))

	snap := s.Snapshot()
	msgs := snap.Messages(CategoryImportant, "annonces")
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []string{"chitchat"}, snap.ChannelNames(CategoryGeneral))
}

func TestMessageStore_SnapshotIsACopy(t *testing.T) {
	s := NewMessageStore()
	s.Append(CategoryGeneral, "dev", msgAt("alice", "one", time.Now()))

	snap := s.Snapshot()
	s.Append(CategoryGeneral, "dev", msgAt("alice", "two", time.Now()))

	assert.Len(t, snap.Messages(CategoryGeneral, "dev"), 1)
	assert.Equal(t, 2, s.Len())
}

func TestMessageStore_Clear(t *testing.T) {
	s := NewMessageStore()
	s.Append(CategoryImportant, "a", msgAt("x", "y", time.Now()))
	s.Append(CategoryGeneral, "b", msgAt("x", "y", time.Now()))

	s.Clear()

	assert.True(t, s.Empty())
	assert.Empty(t, s.Snapshot().ChannelNames(CategoryImportant))
}

func TestMessageStore_ReleaseKeepsLaterAppends(t *testing.T) {
	s := NewMessageStore()
	now := time.Now()
	s.Append(CategoryGeneral, "dev", msgAt("alice", "one", now))
	s.Append(CategoryImportant, "ops", msgAt("bob", "deploy", now))

	snap := s.Snapshot()
	s.Append(CategoryGeneral, "dev", msgAt("alice", "two", now.Add(time.Second)))
	s.Append(CategoryGeneral, "new", msgAt("carol", "fresh", now.Add(time.Second)))

	s.Release(snap)

	after := s.Snapshot()
	assert.Equal(t, 2, after.Total())
	require.Len(t, after.Messages(CategoryGeneral, "dev"), 1)
	assert.Equal(t, "two", after.Messages(CategoryGeneral, "dev")[0].Content)
	assert.Len(t, after.Messages(CategoryGeneral, "new"), 1)
	assert.NotContains(t, after.ChannelNames(CategoryImportant), "ops")
}

func TestMessageStore_ReleaseWithoutNewMessagesEmptiesStore(t *testing.T) {
	s := NewMessageStore()
	s.Append(CategoryGeneral, "dev", msgAt("alice", "one", time.Now()))

	s.Release(s.Snapshot())

	assert.True(t, s.Empty())
}

func TestMessageStore_ConcurrentAppend(t *testing.T) {
	s := NewMessageStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Append(CategoryGeneral, "busy", msgAt("bot", "tick", time.Now()))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, s.Len())
}

func TestSnapshot_Bounds(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := NewSnapshot(map[Category]map[string][]StoredMessage{
		CategoryImportant: {"a": {msgAt("x", "y", base.Add(time.Hour))}},
		CategoryGeneral:   {"b": {msgAt("x", "y", base), {Author: "z", Content: "no ts"}}},
	})

	oldest, newest, ok := snap.Bounds()
	require.True(t, ok)
	assert.Equal(t, base, oldest)
	assert.Equal(t, base.Add(time.Hour), newest)
	assert.Equal(t, 3, snap.Total())

	_, _, ok = NewSnapshot(nil).Bounds()
	assert.False(t, ok)
}

func TestSnapshot_SinceAndLastN(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := NewSnapshot(map[Category]map[string][]StoredMessage{
		CategoryGeneral: {"dev": {
			msgAt("a", "1", base),
			msgAt("a", "2", base.Add(time.Hour)),
			msgAt("a", "3", base.Add(2*time.Hour)),
		}},
		CategoryImportant: {"old": {msgAt("b", "ancient", base.Add(-48 * time.Hour))}},
	})

	recent := snap.Since(base.Add(30 * time.Minute))
	assert.Len(t, recent.Messages(CategoryGeneral, "dev"), 2)
	assert.Empty(t, recent.ChannelNames(CategoryImportant))

	last := snap.LastN(1)
	require.Len(t, last.Messages(CategoryGeneral, "dev"), 1)
	assert.Equal(t, "3", last.Messages(CategoryGeneral, "dev")[0].Content)
	assert.Len(t, last.Messages(CategoryImportant, "old"), 1)

	assert.True(t, snap.LastN(0).Empty())
}

func TestSnapshot_Summary(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := NewSnapshot(map[Category]map[string][]StoredMessage{
		CategoryGeneral:   {"dev": {msgAt("a", "1", base), msgAt("a", "2", base.Add(time.Hour))}},
		CategoryImportant: {"ops": {msgAt("b", "x", base)}},
	})

	sum := snap.Summary()
	require.Len(t, sum, 2)
	assert.Equal(t, CategoryImportant, sum[0].Category)
	assert.Equal(t, "dev", sum[1].Channel)
	assert.Equal(t, 2, sum[1].MessageCount)
	assert.Equal(t, base.Add(time.Hour), sum[1].LastMessage)
}

func TestNormalizeChannelName(t *testing.T) {
	assert.Equal(t, "general-info", NormalizeChannelName("  #general-info "))
	assert.Equal(t, "dev", NormalizeChannelName("dev"))
	assert.Equal(t, "", NormalizeChannelName(" # "))
}

func TestMessageStore_AppendKeepsChannelInOneCategory(t *testing.T) {
	s := NewMessageStore()
	base := time.Date(2025, 1, 5, 8, 0, 0, 0, time.UTC)

	assert.Equal(t, CategoryGeneral, s.Append(CategoryGeneral, "ops", msgAt("alice", "first", base)))
	assert.Equal(t, CategoryGeneral, s.Append(CategoryImportant, "ops", msgAt("bob", "second", base.Add(time.Minute))))

	snap := s.Snapshot()
	assert.Len(t, snap.Messages(CategoryGeneral, "ops"), 2)
	assert.Empty(t, snap.ChannelNames(CategoryImportant))

	s.Release(snap)
	assert.Equal(t, CategoryImportant, s.Append(CategoryImportant, "ops", msgAt("carol", "third", base.Add(2*time.Minute))))
	assert.Empty(t, s.Snapshot().ChannelNames(CategoryGeneral))
}
