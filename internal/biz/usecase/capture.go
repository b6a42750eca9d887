package usecase

import (
	"context"
	"fmt"

	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
)

// CaptureUsecase files incoming chat messages into the store
type CaptureUsecase struct {
	store    *domain.MessageStore
	channels *ChannelUsecase
	debug    bool
}

// NewCaptureUsecase creates a new capture usecase
func NewCaptureUsecase(store *domain.MessageStore, channels *ChannelUsecase, debug bool) *CaptureUsecase {
	return &CaptureUsecase{
		store:    store,
		channels: channels,
		debug:    debug,
	}
}

// Capture stores msg under its category. It returns false when the message is ignored
// (bot author or excluded channel).
func (uc *CaptureUsecase) Capture(ctx context.Context, msg *domain.CapturedMessage) (bool, error) {
	if msg.FromBot {
		return false, nil
	}

	channel := domain.NormalizeChannelName(msg.Channel)
	if channel == "" {
		return false, fmt.Errorf("message %s has no channel", msg.MsgID)
	}
	if msg.Timestamp.IsZero() {
		return false, fmt.Errorf("message %s in %s: %w", msg.MsgID, channel, domain.ErrMissingTimestamp)
	}

	category, excluded, err := uc.channels.Classify(ctx, channel)
	if err != nil {
		return false, fmt.Errorf("failed to classify channel %s: %w", channel, err)
	}
	if excluded {
		if uc.debug {
			fmt.Printf("[Capture] Ignoring message in excluded channel %s\n", channel)
		}
		return false, nil
	}

	category = uc.store.Append(category, channel, domain.StoredMessage{
		Author:    msg.Author,
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
	})
	if uc.debug {
		fmt.Printf("[Capture] %s/%s <- %s\n", category, channel, msg.Author)
	}
	return true, nil
}

// Excluded reports whether messages of channel are never collected
func (uc *CaptureUsecase) Excluded(ctx context.Context, channel string) (bool, error) {
	_, excluded, err := uc.channels.Classify(ctx, domain.NormalizeChannelName(channel))
	return excluded, err
}
