package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/jobtracker/internal/model"
)

const applicationCols = `id, owner, company, position, status, date_applied, salary, location,
  job_url, notes, email_message_id, auto_imported, created_at, updated_at`

func (s *Store) CreateApplication(ctx context.Context, app model.Application) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO applications (`+applicationCols+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		app.ID, app.Owner, app.Company, app.Position, string(app.Status),
		millis(app.DateApplied), nullable(app.Salary), nullable(app.Location),
		nullable(app.JobURL), nullable(app.Notes), nullable(app.EmailMessageID),
		app.AutoImported, millis(app.CreatedAt), millis(app.UpdatedAt),
	)
	return err
}

func (s *Store) GetApplication(ctx context.Context, owner, id string) (model.Application, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+applicationCols+` FROM applications WHERE owner = ? AND id = ?`,
		owner, id,
	)
	return scanApplication(row)
}

func (s *Store) ListApplications(ctx context.Context, owner string) ([]model.Application, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+applicationCols+` FROM applications
         WHERE owner = ? ORDER BY created_at DESC`,
		owner,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

func (s *Store) UpdateApplication(ctx context.Context, owner, id string, patch model.ApplicationPatch) error {
	var dateApplied any
	if patch.DateApplied != nil {
		dateApplied = millis(*patch.DateApplied)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE applications
         SET updated_at = ?,
             company = COALESCE(?, company),
             position = COALESCE(?, position),
             status = COALESCE(?, status),
             salary = COALESCE(?, salary),
             location = COALESCE(?, location),
             job_url = COALESCE(?, job_url),
             notes = COALESCE(?, notes),
             date_applied = COALESCE(?, date_applied)
         WHERE owner = ? AND id = ?`,
		time.Now().UnixMilli(),
		nullableString(patch.Company),
		nullableString(patch.Position),
		nullableStatus(patch.Status),
		nullableString(patch.Salary),
		nullableString(patch.Location),
		nullableString(patch.JobURL),
		nullableString(patch.Notes),
		dateApplied,
		owner, id,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) DeleteApplication(ctx context.Context, owner, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM applications WHERE owner = ? AND id = ?`, owner, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ImportedMessageIDs returns the set of mailbox message ids already attached
// to the owner's applications. Loaded once per sync run.
func (s *Store) ImportedMessageIDs(ctx context.Context, owner string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT email_message_id FROM applications
         WHERE owner = ? AND email_message_id IS NOT NULL`,
		owner,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// FindByCompanyPosition matches on the exact (owner, company, position)
// triple. Intentionally looser than the message-id key: a manually entered
// application can be status-updated by a later email about the same opening.
func (s *Store) FindByCompanyPosition(ctx context.Context, owner, company, position string) (model.Application, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+applicationCols+` FROM applications
         WHERE owner = ? AND company = ? AND position = ? LIMIT 1`,
		owner, company, position,
	)
	return scanApplication(row)
}

// StatusUpdate is one merge-engine status change, applied in ApplySyncBatch.
type StatusUpdate struct {
	ID     string
	Status model.Status
}

// ApplySyncBatch persists a sync run's accumulated creates and updates in one
// transaction. A crash before commit loses the whole run, never part of it.
func (s *Store) ApplySyncBatch(ctx context.Context, creates []model.Application, updates []StatusUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, app := range creates {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO applications (`+applicationCols+`)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			app.ID, app.Owner, app.Company, app.Position, string(app.Status),
			millis(app.DateApplied), nullable(app.Salary), nullable(app.Location),
			nullable(app.JobURL), nullable(app.Notes), nullable(app.EmailMessageID),
			app.AutoImported, millis(app.CreatedAt), millis(app.UpdatedAt),
		); err != nil {
			return err
		}
	}
	now := time.Now().UnixMilli()
	for _, u := range updates {
		if _, err := tx.ExecContext(ctx,
			`UPDATE applications SET status = ?, updated_at = ? WHERE id = ?`,
			string(u.Status), now, u.ID,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanApplication(row scanner) (model.Application, error) {
	var (
		app                                   model.Application
		status                                string
		dateApplied, createdMs, updatedMs     int64
		salary, location, jobURL, notes, msgID sql.NullString
	)
	err := row.Scan(&app.ID, &app.Owner, &app.Company, &app.Position, &status,
		&dateApplied, &salary, &location, &jobURL, &notes, &msgID,
		&app.AutoImported, &createdMs, &updatedMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Application{}, model.ErrNotFound
		}
		return model.Application{}, err
	}
	app.Status = model.Status(status)
	app.DateApplied = time.UnixMilli(dateApplied)
	app.CreatedAt = time.UnixMilli(createdMs)
	app.UpdatedAt = time.UnixMilli(updatedMs)
	app.Salary = fromNull(salary)
	app.Location = fromNull(location)
	app.JobURL = fromNull(jobURL)
	app.Notes = fromNull(notes)
	app.EmailMessageID = fromNull(msgID)
	return app, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func nullableString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableStatus(v *model.Status) any {
	if v == nil {
		return nil
	}
	return string(*v)
}
