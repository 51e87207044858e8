package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cwsupport/crf-provisioner/internal/model"
	"github.com/cwsupport/crf-provisioner/internal/repository/base"
)

type SchoolRepository struct {
	*base.Repository
}

func NewSchoolRepository(pool *pgxpool.Pool) *SchoolRepository {
	return &SchoolRepository{Repository: base.NewRepository(pool)}
}

// Upsert writes a school and pushes its visibility down to every owned
// subject in the same transaction, keeping the subject-visibility invariant.
func (r *SchoolRepository) Upsert(ctx context.Context, school *model.School) error {
	tx, err := r.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin school upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO schools (school_code, school_desc_long, visible, canvas_sub_account_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (school_code) DO UPDATE
		SET school_desc_long = EXCLUDED.school_desc_long,
		    visible = EXCLUDED.visible,
		    canvas_sub_account_id = COALESCE(EXCLUDED.canvas_sub_account_id, schools.canvas_sub_account_id)
	`
	_, err = tx.Exec(ctx, query, school.SchoolCode, school.SchoolDescLong, school.Visible, school.CanvasSubAccountID)
	if err != nil {
		return fmt.Errorf("upsert school: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE subjects SET visible = $1 WHERE school_code = $2`,
		school.Visible, school.SchoolCode,
	)
	if err != nil {
		return fmt.Errorf("propagate school visibility: %w", err)
	}

	return tx.Commit(ctx)
}

// Get returns a school by code, or nil when the store has none.
func (r *SchoolRepository) Get(ctx context.Context, schoolCode string) (*model.School, error) {
	query := `
		SELECT school_code, school_desc_long, visible, canvas_sub_account_id
		FROM schools
		WHERE school_code = $1
	`
	var school model.School
	err := r.QueryRow(ctx, query, schoolCode).Scan(
		&school.SchoolCode,
		&school.SchoolDescLong,
		&school.Visible,
		&school.CanvasSubAccountID,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get school: %w", err)
	}
	return &school, nil
}

// SetSubAccount persists the resolved Canvas sub-account for a school.
func (r *SchoolRepository) SetSubAccount(ctx context.Context, schoolCode string, subAccountID int64) error {
	_, err := r.ExecAffected(ctx,
		`UPDATE schools SET canvas_sub_account_id = $1 WHERE school_code = $2`,
		subAccountID, schoolCode,
	)
	if err != nil {
		return fmt.Errorf("set school sub account: %w", err)
	}
	return nil
}
