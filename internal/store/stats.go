package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/example/jobtracker/internal/model"
)

// GetOrCreateStats returns the owner's stats row, inserting a zeroed one on
// first use.
func (s *Store) GetOrCreateStats(ctx context.Context, owner string) (model.UserStats, error) {
	stats, err := s.getStats(ctx, owner)
	if err == nil {
		return stats, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.UserStats{}, err
	}

	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO user_stats (owner, total_points, current_streak, last_completed_date, created_at, updated_at)
         VALUES (?, 0, 0, NULL, ?, ?)`,
		owner, millis(now), millis(now),
	); err != nil {
		return model.UserStats{}, err
	}
	return model.UserStats{Owner: owner, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *Store) getStats(ctx context.Context, owner string) (model.UserStats, error) {
	var (
		stats     model.UserStats
		lastDate  sql.NullString
		createdMs int64
		updatedMs int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT owner, total_points, current_streak, last_completed_date, created_at, updated_at
         FROM user_stats WHERE owner = ?`, owner,
	).Scan(&stats.Owner, &stats.TotalPoints, &stats.CurrentStreak, &lastDate, &createdMs, &updatedMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.UserStats{}, model.ErrNotFound
		}
		return model.UserStats{}, err
	}
	stats.LastCompletedDate = fromNull(lastDate)
	stats.CreatedAt = time.UnixMilli(createdMs)
	stats.UpdatedAt = time.UnixMilli(updatedMs)
	return stats, nil
}

func (s *Store) SaveStats(ctx context.Context, stats model.UserStats) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE user_stats
         SET total_points = ?, current_streak = ?, last_completed_date = ?, updated_at = ?
         WHERE owner = ?`,
		stats.TotalPoints, stats.CurrentStreak, nullable(stats.LastCompletedDate),
		time.Now().UnixMilli(), stats.Owner,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) ListUnlocks(ctx context.Context, owner string) ([]model.AchievementUnlock, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner, achievement_id, unlocked_at FROM achievement_unlocks
         WHERE owner = ? ORDER BY unlocked_at ASC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.AchievementUnlock{}
	for rows.Next() {
		var (
			u          model.AchievementUnlock
			unlockedMs int64
		)
		if err := rows.Scan(&u.ID, &u.Owner, &u.AchievementID, &unlockedMs); err != nil {
			return nil, err
		}
		u.UnlockedAt = time.UnixMilli(unlockedMs)
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) RecordUnlock(ctx context.Context, owner, achievementID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO achievement_unlocks (id, owner, achievement_id, unlocked_at)
         VALUES (?, ?, ?, ?)`,
		uuid.NewString(), owner, achievementID, time.Now().UnixMilli(),
	)
	return err
}

// ResetOwner wipes every row belonging to the owner. Demo convenience, not
// reachable from the sync path.
func (s *Store) ResetOwner(ctx context.Context, owner string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"applications", "tasks", "achievement_unlocks", "user_stats", "sync_runs", "resumes"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE owner = ?`, owner); err != nil {
			return err
		}
	}
	return tx.Commit()
}
