package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cwsupport/crf-provisioner/internal/model"
	"github.com/cwsupport/crf-provisioner/internal/repository/base"
)

type AutoAddRepository struct {
	*base.Repository
}

func NewAutoAddRepository(pool *pgxpool.Pool) *AutoAddRepository {
	return &AutoAddRepository{Repository: base.NewRepository(pool)}
}

// Create persists a standing enrollment rule; duplicates of the same
// (school, subject, user, role) are rejected by the unique constraint.
func (r *AutoAddRepository) Create(ctx context.Context, autoAdd *model.AutoAdd) error {
	query := `
		INSERT INTO auto_adds (school_code, subject_code, pennkey, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := r.QueryRow(ctx, query,
		autoAdd.SchoolCode, autoAdd.SubjectCode, autoAdd.Pennkey, autoAdd.Role,
	).Scan(&autoAdd.ID, &autoAdd.CreatedAt, &autoAdd.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create auto add: %w", err)
	}
	return nil
}

// ListFor returns every standing rule matching a (school, subject) pair.
func (r *AutoAddRepository) ListFor(ctx context.Context, schoolCode, subjectCode string) ([]model.AutoAdd, error) {
	query := `
		SELECT id, school_code, subject_code, pennkey, role, created_at, updated_at
		FROM auto_adds
		WHERE school_code = $1 AND subject_code = $2
		ORDER BY id
	`
	rows, err := r.Query(ctx, query, schoolCode, subjectCode)
	if err != nil {
		return nil, fmt.Errorf("list auto adds: %w", err)
	}
	defer rows.Close()

	var autoAdds []model.AutoAdd
	for rows.Next() {
		var autoAdd model.AutoAdd
		err := rows.Scan(
			&autoAdd.ID,
			&autoAdd.SchoolCode,
			&autoAdd.SubjectCode,
			&autoAdd.Pennkey,
			&autoAdd.Role,
			&autoAdd.CreatedAt,
			&autoAdd.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan auto add: %w", err)
		}
		autoAdds = append(autoAdds, autoAdd)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate auto adds: %w", err)
	}
	return autoAdds, nil
}

// Delete removes a standing rule.
func (r *AutoAddRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.ExecAffected(ctx, `DELETE FROM auto_adds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete auto add: %w", err)
	}
	return nil
}
