package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/jobtracker/internal/model"
)

// AppendSyncRun inserts one terminal sync-run record. Rows are never updated.
func (s *Store) AppendSyncRun(ctx context.Context, run model.SyncRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_runs (id, owner, emails_processed, applications_added,
           applications_updated, status, error_summary, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Owner, run.EmailsProcessed, run.ApplicationsAdded,
		run.ApplicationsUpdated, string(run.Status), nullable(run.ErrorSummary),
		millis(run.CreatedAt),
	)
	return err
}

func (s *Store) ListSyncRuns(ctx context.Context, owner string, limit int) ([]model.SyncRun, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner, emails_processed, applications_added, applications_updated,
                status, error_summary, created_at
         FROM sync_runs WHERE owner = ? ORDER BY created_at DESC LIMIT ?`,
		owner, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.SyncRun{}
	for rows.Next() {
		var (
			run       model.SyncRun
			status    string
			summary   sql.NullString
			createdMs int64
		)
		if err := rows.Scan(&run.ID, &run.Owner, &run.EmailsProcessed,
			&run.ApplicationsAdded, &run.ApplicationsUpdated, &status,
			&summary, &createdMs); err != nil {
			return nil, err
		}
		run.Status = model.SyncRunStatus(status)
		run.ErrorSummary = fromNull(summary)
		run.CreatedAt = time.UnixMilli(createdMs)
		out = append(out, run)
	}
	return out, rows.Err()
}
