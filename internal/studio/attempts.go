package studio

import (
	"context"
	"database/sql"
	"time"
)

const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Attempt is the durable log entry of one composition attempt.
type Attempt struct {
	ID         string    `json:"id"`
	TemplateID int       `json:"template_id"`
	Status     string    `json:"status"`
	Progress   int       `json:"progress"`
	OutputRef  string    `json:"output_ref,omitempty"`
	ProjectID  string    `json:"project_id,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type AttemptRepository interface {
	CreateAttempt(ctx context.Context, a *Attempt) error
	GetAttempt(ctx context.Context, id string) (*Attempt, error)
	ListAttempts(ctx context.Context, limit int) ([]*Attempt, error)
	UpdateAttemptProgress(ctx context.Context, id string, progress int) error
	FinishAttempt(ctx context.Context, id, status, outputRef, projectID, errorMsg string) error
}

type SQLiteAttemptRepository struct {
	db *sql.DB
}

func NewAttemptRepository(db *sql.DB) *SQLiteAttemptRepository {
	return &SQLiteAttemptRepository{db: db}
}

func (r *SQLiteAttemptRepository) CreateAttempt(ctx context.Context, a *Attempt) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO compositions (id, template_id, status, progress, output_ref, project_id, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.TemplateID, a.Status, a.Progress, nullString(a.OutputRef), nullString(a.ProjectID), nullString(a.Error),
		a.CreatedAt.UTC().Format(time.RFC3339), a.UpdatedAt.UTC().Format(time.RFC3339))
	return err
}

func (r *SQLiteAttemptRepository) GetAttempt(ctx context.Context, id string) (*Attempt, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, template_id, status, progress, output_ref, project_id, error, created_at, updated_at
		FROM compositions WHERE id = ?
	`, id)
	a, err := scanAttempt(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

func (r *SQLiteAttemptRepository) ListAttempts(ctx context.Context, limit int) ([]*Attempt, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, template_id, status, progress, output_ref, project_id, error, created_at, updated_at
		FROM compositions ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []*Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (r *SQLiteAttemptRepository) UpdateAttemptProgress(ctx context.Context, id string, progress int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE compositions SET progress = ?, updated_at = ? WHERE id = ?
	`, progress, time.Now().UTC().Format(time.RFC3339), id)
	return err
}

func (r *SQLiteAttemptRepository) FinishAttempt(ctx context.Context, id, status, outputRef, projectID, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE compositions
		SET status = ?, output_ref = ?, project_id = ?, error = ?, updated_at = ?,
		    progress = CASE WHEN ? = 'succeeded' THEN 100 ELSE progress END
		WHERE id = ?
	`, status, nullString(outputRef), nullString(projectID), nullString(errorMsg),
		time.Now().UTC().Format(time.RFC3339), status, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(s rowScanner) (*Attempt, error) {
	var a Attempt
	var outputRef, projectID, errMsg sql.NullString
	var createdAt, updatedAt string

	if err := s.Scan(&a.ID, &a.TemplateID, &a.Status, &a.Progress, &outputRef, &projectID, &errMsg, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a.OutputRef = outputRef.String
	a.ProjectID = projectID.String
	a.Error = errMsg.String
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
