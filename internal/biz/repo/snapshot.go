package repo

import (
	"context"

	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
)

// SnapshotRepo persists the content of a delivered digest
type SnapshotRepo interface {
	// Persist writes the snapshot and returns where it was stored
	Persist(ctx context.Context, snap *domain.Snapshot) (string, error)

	// Load reads a previously persisted snapshot
	Load(ctx context.Context, path string) (*domain.Snapshot, error)
}
