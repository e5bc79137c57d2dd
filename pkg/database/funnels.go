package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vinizap/zapvenda/pkg/domain"
	"github.com/vinizap/zapvenda/pkg/funnel"
)

// FunnelRepository stores funnels and their ordered steps.
type FunnelRepository struct {
	db *sql.DB
}

// NewFunnelRepository creates a funnel repository.
func NewFunnelRepository(c *Client) *FunnelRepository {
	return &FunnelRepository{db: c.SQL}
}

// Create inserts a funnel and its steps in one transaction.
func (r *FunnelRepository) Create(ctx context.Context, f funnel.Funnel) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO funnels (id, name, description, is_active, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			f.ID, f.Name, f.Description, f.IsActive, f.CreatedAt, f.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create funnel: %w", err)
		}
		return insertSteps(ctx, tx, f)
	})
}

// Update rewrites the funnel row and replaces all of its steps.
func (r *FunnelRepository) Update(ctx context.Context, f funnel.Funnel) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE funnels SET name = $1, description = $2, is_active = $3, updated_at = $4 WHERE id = $5`,
			f.Name, f.Description, f.IsActive, f.UpdatedAt, f.ID)
		if err != nil {
			return fmt.Errorf("failed to update funnel: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.NewNotFoundError("funnel")
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM funnel_steps WHERE funnel_id = $1`, f.ID); err != nil {
			return fmt.Errorf("failed to clear funnel steps: %w", err)
		}
		return insertSteps(ctx, tx, f)
	})
}

func insertSteps(ctx context.Context, tx *sql.Tx, f funnel.Funnel) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO funnel_steps (funnel_id, id, position, name, template_id, delay_minutes, trigger_condition, custom_condition)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
	if err != nil {
		return fmt.Errorf("failed to prepare step insert: %w", err)
	}
	defer stmt.Close()

	for i, s := range f.Steps {
		if _, err := stmt.ExecContext(ctx, f.ID, s.ID, i, s.Name, s.TemplateID, s.Delay, string(s.Condition), s.CustomCondition); err != nil {
			return fmt.Errorf("failed to insert step %d: %w", i, err)
		}
	}
	return nil
}

// Get retrieves a funnel by ID with its steps in order.
func (r *FunnelRepository) Get(ctx context.Context, id string) (*funnel.Funnel, error) {
	var f funnel.Funnel
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, is_active, created_at, updated_at FROM funnels WHERE id = $1`, id).
		Scan(&f.ID, &f.Name, &f.Description, &f.IsActive, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("funnel")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch funnel: %w", err)
	}

	steps, err := r.loadSteps(ctx, `WHERE funnel_id = $1`, id)
	if err != nil {
		return nil, err
	}
	f.Steps = steps[f.ID]
	return &f, nil
}

// List lists all funnels, newest first.
func (r *FunnelRepository) List(ctx context.Context) ([]funnel.Funnel, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, is_active, created_at, updated_at FROM funnels ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list funnels: %w", err)
	}
	defer rows.Close()

	var result []funnel.Funnel
	for rows.Next() {
		var f funnel.Funnel
		if err := rows.Scan(&f.ID, &f.Name, &f.Description, &f.IsActive, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan funnel: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list funnels: %w", err)
	}

	steps, err := r.loadSteps(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range result {
		result[i].Steps = steps[result[i].ID]
	}
	return result, nil
}

func (r *FunnelRepository) loadSteps(ctx context.Context, where string, args ...any) (map[string][]funnel.Step, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT funnel_id, id, name, template_id, delay_minutes, trigger_condition, custom_condition
		 FROM funnel_steps `+where+` ORDER BY funnel_id, position`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load funnel steps: %w", err)
	}
	defer rows.Close()

	steps := make(map[string][]funnel.Step)
	for rows.Next() {
		var (
			funnelID  string
			s         funnel.Step
			condition string
		)
		if err := rows.Scan(&funnelID, &s.ID, &s.Name, &s.TemplateID, &s.Delay, &condition, &s.CustomCondition); err != nil {
			return nil, fmt.Errorf("failed to scan funnel step: %w", err)
		}
		s.Condition = funnel.Condition(condition)
		steps[funnelID] = append(steps[funnelID], s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load funnel steps: %w", err)
	}
	return steps, nil
}

// Delete deletes a funnel and its steps.
func (r *FunnelRepository) Delete(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM funnel_steps WHERE funnel_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete funnel steps: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM funnels WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete funnel: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.NewNotFoundError("funnel")
		}
		return nil
	})
}

func (r *FunnelRepository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
