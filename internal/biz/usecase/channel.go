package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
	"github.com/devricklin/feishu-digest-bot/internal/biz/repo"
)

// ChannelUsecase manages the important and excluded channel lists
type ChannelUsecase struct {
	channelRepo repo.ChannelRepo
}

// NewChannelUsecase creates a new channel usecase
func NewChannelUsecase(channelRepo repo.ChannelRepo) *ChannelUsecase {
	return &ChannelUsecase{channelRepo: channelRepo}
}

func opposite(list domain.ChannelList) domain.ChannelList {
	if list == domain.ListImportant {
		return domain.ListExcluded
	}
	return domain.ListImportant
}

// Add registers a channel on a list and removes it from the other one
func (uc *ChannelUsecase) Add(ctx context.Context, list domain.ChannelList, name, addedBy string) (*domain.ChannelEntry, error) {
	if !list.Valid() {
		return nil, fmt.Errorf("unknown channel list %q", list)
	}
	name = domain.NormalizeChannelName(name)
	if name == "" {
		return nil, fmt.Errorf("channel name is required")
	}

	if err := uc.channelRepo.Remove(ctx, opposite(list), name); err != nil {
		return nil, fmt.Errorf("failed to remove %s from %s: %w", name, opposite(list), err)
	}

	entry := &domain.ChannelEntry{
		List:      list,
		Name:      name,
		AddedBy:   addedBy,
		CreatedAt: time.Now(),
	}
	if err := uc.channelRepo.Add(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to add %s to %s: %w", name, list, err)
	}
	return entry, nil
}

// Remove removes a channel from a list
func (uc *ChannelUsecase) Remove(ctx context.Context, list domain.ChannelList, name string) error {
	if !list.Valid() {
		return fmt.Errorf("unknown channel list %q", list)
	}
	return uc.channelRepo.Remove(ctx, list, domain.NormalizeChannelName(name))
}

// List returns the channels on a list
func (uc *ChannelUsecase) List(ctx context.Context, list domain.ChannelList) ([]*domain.ChannelEntry, error) {
	if !list.Valid() {
		return nil, fmt.Errorf("unknown channel list %q", list)
	}
	return uc.channelRepo.List(ctx, list)
}

// Classify returns the report category of a channel and whether it is excluded
func (uc *ChannelUsecase) Classify(ctx context.Context, name string) (domain.Category, bool, error) {
	name = domain.NormalizeChannelName(name)

	excluded, err := uc.channelRepo.Contains(ctx, domain.ListExcluded, name)
	if err != nil {
		return domain.CategoryGeneral, false, err
	}
	if excluded {
		return domain.CategoryGeneral, true, nil
	}

	important, err := uc.channelRepo.Contains(ctx, domain.ListImportant, name)
	if err != nil {
		return domain.CategoryGeneral, false, err
	}
	if important {
		return domain.CategoryImportant, false, nil
	}
	return domain.CategoryGeneral, false, nil
}

// Seed adds the channels from the environment. Existing entries are kept.
func (uc *ChannelUsecase) Seed(ctx context.Context, important, excluded []string) error {
	seed := func(list domain.ChannelList, names []string) error {
		for _, name := range names {
			name = domain.NormalizeChannelName(name)
			if name == "" {
				continue
			}
			if ok, err := uc.channelRepo.Contains(ctx, list, name); err != nil {
				return err
			} else if ok {
				continue
			}
			if _, err := uc.Add(ctx, list, name, "env"); err != nil {
				return err
			}
		}
		return nil
	}

	if err := seed(domain.ListImportant, important); err != nil {
		return err
	}
	return seed(domain.ListExcluded, excluded)
}
