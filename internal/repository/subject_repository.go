package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cwsupport/crf-provisioner/internal/model"
	"github.com/cwsupport/crf-provisioner/internal/repository/base"
)

type SubjectRepository struct {
	*base.Repository
}

func NewSubjectRepository(pool *pgxpool.Pool) *SubjectRepository {
	return &SubjectRepository{Repository: base.NewRepository(pool)}
}

// Upsert writes a subject. Visibility on insert follows the owning school;
// on update it is left to school-save propagation.
func (r *SubjectRepository) Upsert(ctx context.Context, subject *model.Subject) error {
	query := `
		INSERT INTO subjects (subject_code, subject_desc_long, visible, school_code)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (subject_code) DO UPDATE
		SET subject_desc_long = EXCLUDED.subject_desc_long,
		    school_code = EXCLUDED.school_code
	`
	_, err := r.ExecAffected(ctx, query,
		subject.SubjectCode, subject.SubjectDescLong, subject.Visible, subject.SchoolCode)
	if err != nil {
		return fmt.Errorf("upsert subject: %w", err)
	}
	return nil
}

// Get returns a subject by code, or nil when the store has none.
func (r *SubjectRepository) Get(ctx context.Context, subjectCode string) (*model.Subject, error) {
	query := `
		SELECT subject_code, subject_desc_long, visible, school_code
		FROM subjects
		WHERE subject_code = $1
	`
	var subject model.Subject
	err := r.QueryRow(ctx, query, subjectCode).Scan(
		&subject.SubjectCode,
		&subject.SubjectDescLong,
		&subject.Visible,
		&subject.SchoolCode,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get subject: %w", err)
	}
	return &subject, nil
}
