package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/devricklin/feishu-digest-bot/internal/biz/domain"
	"github.com/devricklin/feishu-digest-bot/internal/biz/repo"
)

// runRepo implements the digest run history repository
type runRepo struct {
	db *sql.DB
}

// NewRunRepo creates a new run history repository
func NewRunRepo(db *sql.DB) repo.RunRepo {
	return &runRepo{db: db}
}

// Record stores the outcome of a run. The report body is not kept.
func (r *runRepo) Record(ctx context.Context, result *domain.DigestResult) error {
	warnings := ""
	if len(result.Warnings) > 0 {
		b, _ := json.Marshal(result.Warnings)
		warnings = string(b)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO digest_runs
			(run_id, status, kind, error, sink, message_count, snapshot_path, warnings, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, result.RunID, string(result.Status), string(result.Kind), result.Error, result.Sink,
		result.MessageCount, result.SnapshotPath, warnings,
		result.StartedAt.Unix(), result.FinishedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to record digest run: %w", err)
	}
	return nil
}

// Recent gets the latest runs, newest first
func (r *runRepo) Recent(ctx context.Context, limit int) ([]*domain.DigestResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT run_id, status, kind, error, sink, message_count, snapshot_path, warnings, started_at, finished_at
		FROM digest_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query digest runs: %w", err)
	}
	defer rows.Close()

	var results []*domain.DigestResult
	for rows.Next() {
		var res domain.DigestResult
		var status string
		var kind, errText, sink, snapshotPath, warnings sql.NullString
		var startedAt, finishedAt int64
		if err := rows.Scan(&res.RunID, &status, &kind, &errText, &sink, &res.MessageCount,
			&snapshotPath, &warnings, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan digest run: %w", err)
		}
		res.Status = domain.DigestStatus(status)
		res.Kind = domain.ErrorKind(kind.String)
		res.Error = errText.String
		res.Sink = sink.String
		res.SnapshotPath = snapshotPath.String
		if warnings.String != "" {
			_ = json.Unmarshal([]byte(warnings.String), &res.Warnings)
		}
		res.StartedAt = time.Unix(startedAt, 0)
		res.FinishedAt = time.Unix(finishedAt, 0)
		results = append(results, &res)
	}
	return results, rows.Err()
}

// CleanupOld removes runs started before the given time
func (r *runRepo) CleanupOld(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM digest_runs WHERE started_at < ?`, before.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup digest runs: %w", err)
	}
	return result.RowsAffected()
}
