package template

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/pushpipe/pkg/pg"
)

// Storage persists templates in PostgreSQL.
type Storage struct {
	pool *pgxpool.Pool
}

// NewStorage creates a Storage on the given pool.
func NewStorage(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

const templateColumns = `id, template_code, name, notification_type, language, version,
	COALESCE(subject, ''), body, COALESCE(title, ''), variables, is_active, created_at, updated_at`

func scanTemplate(row pgx.Row) (Template, error) {
	var t Template
	err := row.Scan(
		&t.ID, &t.Code, &t.Name, &t.NotificationType, &t.Language, &t.Version,
		&t.Subject, &t.Body, &t.Title, &t.Variables, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
	)
	return t, err
}

// Create inserts a new template at version 1.
func (s *Storage) Create(ctx context.Context, p CreateParams, variables []string) (Template, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO templates (template_code, name, notification_type, language, subject, body, title, variables)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, NULLIF($7, ''), $8)
		RETURNING `+templateColumns,
		p.Code, p.Name, p.NotificationType, p.Language, p.Subject, p.Body, p.Title, variables,
	)

	t, err := scanTemplate(row)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return Template{}, ErrCodeExists
		}
		return Template{}, fmt.Errorf("failed to create template: %w", err)
	}
	return t, nil
}

// Get returns the active template for a code and language.
func (s *Storage) Get(ctx context.Context, code, language string) (Template, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+templateColumns+`
		FROM templates
		WHERE template_code = $1 AND language = $2 AND is_active`,
		code, language,
	)

	t, err := scanTemplate(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return Template{}, ErrNotFound
		}
		return Template{}, fmt.Errorf("failed to get template: %w", err)
	}
	return t, nil
}

// GetByCode returns the template for a code regardless of language or active
// flag; used by update and delete paths.
func (s *Storage) GetByCode(ctx context.Context, code string) (Template, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+templateColumns+`
		FROM templates
		WHERE template_code = $1`,
		code,
	)

	t, err := scanTemplate(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return Template{}, ErrNotFound
		}
		return Template{}, fmt.Errorf("failed to get template: %w", err)
	}
	return t, nil
}

// Update applies the changed fields, bumps the version when content changed
// and returns the stored row.
func (s *Storage) Update(ctx context.Context, code string, p UpdateParams, variables []string, bumpVersion bool) (Template, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE templates SET
			name = COALESCE($2, name),
			subject = COALESCE(NULLIF($3, ''), subject),
			body = COALESCE($4, body),
			title = COALESCE(NULLIF($5, ''), title),
			is_active = COALESCE($6, is_active),
			variables = CASE WHEN $8 THEN $7 ELSE variables END,
			version = version + CASE WHEN $8 THEN 1 ELSE 0 END,
			updated_at = now()
		WHERE template_code = $1
		RETURNING `+templateColumns,
		code, p.Name, deref(p.Subject), p.Body, deref(p.Title), p.IsActive, variables, bumpVersion,
	)

	t, err := scanTemplate(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return Template{}, ErrNotFound
		}
		return Template{}, fmt.Errorf("failed to update template: %w", err)
	}
	return t, nil
}

// Delete removes a template by code.
func (s *Storage) Delete(ctx context.Context, code string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM templates WHERE template_code = $1`, code)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns one page of templates plus the unpaged total.
func (s *Storage) List(ctx context.Context, f ListFilter) ([]Template, int, error) {
	var total int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM templates
		WHERE language = $1 AND ($2 = '' OR notification_type = $2)`,
		f.Language, f.NotificationType,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count templates: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+templateColumns+`
		FROM templates
		WHERE language = $1 AND ($2 = '' OR notification_type = $2)
		ORDER BY template_code
		LIMIT $3 OFFSET $4`,
		f.Language, f.NotificationType, f.Limit, (f.Page-1)*f.Limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var out []Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan template: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate templates: %w", err)
	}
	return out, total, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
