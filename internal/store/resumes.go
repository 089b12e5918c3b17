package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/jobtracker/internal/model"
)

const resumeCols = `id, owner, filename, file_key, content_type, size_bytes, active, extracted_text, created_at`

func (s *Store) CreateResume(ctx context.Context, resume model.Resume) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO resumes (`+resumeCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		resume.ID, resume.Owner, resume.Filename, resume.FileKey,
		resume.ContentType, resume.SizeBytes, resume.Active,
		nullable(resume.ExtractedText), millis(resume.CreatedAt),
	)
	return err
}

func (s *Store) GetResume(ctx context.Context, owner, id string) (model.Resume, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+resumeCols+` FROM resumes WHERE owner = ? AND id = ?`, owner, id)
	return scanResume(row)
}

func (s *Store) ActiveResume(ctx context.Context, owner string) (model.Resume, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+resumeCols+` FROM resumes WHERE owner = ? AND active LIMIT 1`, owner)
	return scanResume(row)
}

func (s *Store) ListResumes(ctx context.Context, owner string) ([]model.Resume, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+resumeCols+` FROM resumes WHERE owner = ? ORDER BY created_at DESC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Resume{}
	for rows.Next() {
		resume, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, resume)
	}
	return out, rows.Err()
}

// ActivateResume flips the active flag to the given resume, deactivating any
// other resume the owner has, in one transaction.
func (s *Store) ActivateResume(ctx context.Context, owner, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE resumes SET active = 1 WHERE owner = ? AND id = ?`, owner, id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE resumes SET active = 0 WHERE owner = ? AND id != ?`, owner, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) DeleteResume(ctx context.Context, owner, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM resumes WHERE owner = ? AND id = ?`, owner, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func scanResume(row scanner) (model.Resume, error) {
	var (
		resume    model.Resume
		text      sql.NullString
		createdMs int64
	)
	err := row.Scan(&resume.ID, &resume.Owner, &resume.Filename, &resume.FileKey,
		&resume.ContentType, &resume.SizeBytes, &resume.Active, &text, &createdMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Resume{}, model.ErrNotFound
		}
		return model.Resume{}, err
	}
	resume.ExtractedText = fromNull(text)
	resume.CreatedAt = time.UnixMilli(createdMs)
	return resume, nil
}
