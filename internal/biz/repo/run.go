package repo

import (
	"context"
	"time"

	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
)

// RunRepo keeps the history of digest runs
type RunRepo interface {
	Record(ctx context.Context, result *domain.DigestResult) error
	Recent(ctx context.Context, limit int) ([]*domain.DigestResult, error)
	CleanupOld(ctx context.Context, before time.Time) (int64, error)
}
