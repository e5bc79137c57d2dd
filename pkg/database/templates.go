package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/vinizap/zapvenda/pkg/domain"
	"github.com/vinizap/zapvenda/pkg/template"
)

// TemplateRepository stores message templates.
type TemplateRepository struct {
	db *sql.DB
}

// NewTemplateRepository creates a template repository.
func NewTemplateRepository(c *Client) *TemplateRepository {
	return &TemplateRepository{db: c.SQL}
}

// Create inserts a template.
func (r *TemplateRepository) Create(ctx context.Context, t template.Template) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO templates (id, name, content, type, category, file_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.Name, t.Content, string(t.Type), t.Category, t.FileURL, t.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError("template already exists")
		}
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

// Get retrieves a template by ID.
func (r *TemplateRepository) Get(ctx context.Context, id string) (*template.Template, error) {
	var (
		t   template.Template
		typ string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, content, type, category, file_url, created_at FROM templates WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.Content, &typ, &t.Category, &t.FileURL, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("template")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch template: %w", err)
	}
	t.Type = template.Type(typ)
	return &t, nil
}

// List lists all templates ordered by name.
func (r *TemplateRepository) List(ctx context.Context) ([]template.Template, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, content, type, category, file_url, created_at FROM templates ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	result := []template.Template{}
	for rows.Next() {
		var (
			t   template.Template
			typ string
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Content, &typ, &t.Category, &t.FileURL, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		t.Type = template.Type(typ)
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return result, nil
}

// Delete deletes a template.
func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewNotFoundError("template")
	}
	return nil
}

// isUniqueViolation matches the duplicate-key errors of both drivers.
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
