package repo

import (
	"context"

	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
)

// ChannelRepo is the channel list repository interface
type ChannelRepo interface {
	Add(ctx context.Context, entry *domain.ChannelEntry) error
	Remove(ctx context.Context, list domain.ChannelList, name string) error
	List(ctx context.Context, list domain.ChannelList) ([]*domain.ChannelEntry, error)
	Contains(ctx context.Context, list domain.ChannelList, name string) (bool, error)

	Close() error
}
