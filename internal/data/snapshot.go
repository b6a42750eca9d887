package data

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
	"github.com/devricklin/feishu-digest-bot/internal/biz/repo"
)

const snapshotFileLayout = "digest_2006.01.02_15h04"

// SnapshotMetadata describes the content of a persisted snapshot
type SnapshotMetadata struct {
	OldestMessage *time.Time `json:"oldest_message"`
	NewestMessage *time.Time `json:"newest_message"`
	TotalMessages int        `json:"total_messages"`
	GeneratedAt   time.Time  `json:"generated_at"`
}

// snapshotFile is the on-disk layout of a snapshot
type snapshotFile struct {
	Metadata SnapshotMetadata                                      `json:"metadata"`
	Messages map[domain.Category]map[string][]domain.StoredMessage `json:"messages"`
}

// snapshotRepo writes snapshots as JSON files in a directory
type snapshotRepo struct {
	dir string
	now func() time.Time
}

// NewSnapshotRepo creates a snapshot repository writing into dir
func NewSnapshotRepo(dir string) repo.SnapshotRepo {
	if dir == "" {
		dir = "reports"
	}
	return &snapshotRepo{dir: dir, now: time.Now}
}

// Persist writes the snapshot and returns the file path
func (r *snapshotRepo) Persist(ctx context.Context, snap *domain.Snapshot) (string, error) {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	generatedAt := r.now()
	file := snapshotFile{
		Metadata: SnapshotMetadata{
			TotalMessages: snap.Total(),
			GeneratedAt:   generatedAt,
		},
		Messages: snap.Channels,
	}
	if oldest, newest, ok := snap.Bounds(); ok {
		file.Metadata.OldestMessage = &oldest
		file.Metadata.NewestMessage = &newest
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	path := r.uniquePath(generatedAt)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}

	fmt.Printf("[Snapshot] Saved %d messages to %s\n", snap.Total(), path)
	return path, nil
}

// uniquePath keeps two digests generated in the same minute from overwriting each other
func (r *snapshotRepo) uniquePath(t time.Time) string {
	base := filepath.Join(r.dir, t.Format(snapshotFileLayout))
	path := base + ".json"
	for i := 2; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = fmt.Sprintf("%s_%d.json", base, i)
	}
}

// Load reads a snapshot file
func (r *snapshotRepo) Load(ctx context.Context, path string) (*domain.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}
	return domain.NewSnapshot(file.Messages), nil
}
