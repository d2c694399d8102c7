package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrUndecodable marks a stored row that no longer decodes into a Project.
var ErrUndecodable = errors.New("undecodable project record")

// Repository is the durable project store. Get returns (nil, nil) for an
// absent id.
type Repository interface {
	Insert(ctx context.Context, p *Project) error
	Get(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context) ([]*Project, error)
	UpdateName(ctx context.Context, id, name string) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int, error)
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const projectColumns = `id, name, output_ref, thumbnail_ref, template_id, template_title,
	template_slot_count, template_total_duration_seconds, template_category,
	template_slot_durations_json, selected_media_json, created_at`

func (r *SQLiteRepository) Insert(ctx context.Context, p *Project) error {
	rec, err := Encode(p)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Name, rec.OutputRef, rec.ThumbnailRef, rec.TemplateID, rec.TemplateTitle,
		rec.TemplateSlotCount, rec.TemplateTotalDurationSeconds, rec.TemplateCategory,
		rec.TemplateSlotDurationsJSON, rec.SelectedMediaJSON, rec.CreatedAtEpochMillis)
	return err
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Project, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return Decode(rec)
}

// List returns every project, newest first. Rows that fail to decode are
// skipped; the readable projects come back together with an error matching
// ErrUndecodable that names the skipped rows.
func (r *SQLiteRepository) List(ctx context.Context) ([]*Project, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*Project
	var skipped []error
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		p, err := Decode(rec)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("%w: %w", ErrUndecodable, err))
			continue
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return projects, errors.Join(skipped...)
}

// UpdateName reports whether a row was changed.
func (r *SQLiteRepository) UpdateName(ctx context.Context, id, name string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE projects SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Delete reports whether a row was removed.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects").Scan(&count)
	return count, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (Record, error) {
	var rec Record
	err := s.Scan(&rec.ID, &rec.Name, &rec.OutputRef, &rec.ThumbnailRef, &rec.TemplateID, &rec.TemplateTitle,
		&rec.TemplateSlotCount, &rec.TemplateTotalDurationSeconds, &rec.TemplateCategory,
		&rec.TemplateSlotDurationsJSON, &rec.SelectedMediaJSON, &rec.CreatedAtEpochMillis)
	return rec, err
}
