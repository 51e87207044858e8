package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cwsupport/crf-provisioner/internal/model"
	"github.com/cwsupport/crf-provisioner/internal/repository/base"
)

type SectionRepository struct {
	*base.Repository
}

func NewSectionRepository(pool *pgxpool.Pool) *SectionRepository {
	return &SectionRepository{Repository: base.NewRepository(pool)}
}

const sectionColumns = `
	section_code, section_id, school_code, subject_code, course_num, section_num,
	term, title, sched_type_code, primary_course_id, primary_section_code,
	primary_subject_code, xlist_family, requested, requested_override,
	primary_crosslist, multisection_request, crosslisted_request,
	created_at, updated_at
`

func scanSection(row pgx.Row) (*model.Section, error) {
	var section model.Section
	err := row.Scan(
		&section.SectionCode,
		&section.SectionID,
		&section.SchoolCode,
		&section.SubjectCode,
		&section.CourseNum,
		&section.SectionNum,
		&section.Term,
		&section.Title,
		&section.SchedTypeCode,
		&section.PrimaryCourseID,
		&section.PrimarySectionCode,
		&section.PrimarySubjectCode,
		&section.XlistFamily,
		&section.Requested,
		&section.RequestedOverride,
		&section.PrimaryCrosslist,
		&section.MultisectionRequest,
		&section.CrosslistedRequest,
		&section.CreatedAt,
		&section.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &section, nil
}

// Upsert writes the warehouse-derived fields of a section. section_code is
// immutable; request bookkeeping fields are owned by the request side and
// left untouched on update.
func (r *SectionRepository) Upsert(ctx context.Context, section *model.Section) error {
	query := `
		INSERT INTO sections (
			section_code, section_id, school_code, subject_code, course_num,
			section_num, term, title, sched_type_code, primary_course_id,
			primary_section_code, primary_subject_code, xlist_family
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (section_code) DO UPDATE
		SET school_code = EXCLUDED.school_code,
		    subject_code = EXCLUDED.subject_code,
		    course_num = EXCLUDED.course_num,
		    section_num = EXCLUDED.section_num,
		    title = EXCLUDED.title,
		    sched_type_code = EXCLUDED.sched_type_code,
		    primary_course_id = EXCLUDED.primary_course_id,
		    primary_section_code = EXCLUDED.primary_section_code,
		    primary_subject_code = EXCLUDED.primary_subject_code,
		    xlist_family = EXCLUDED.xlist_family,
		    updated_at = now()
	`
	_, err := r.ExecAffected(ctx, query,
		section.SectionCode,
		section.SectionID,
		section.SchoolCode,
		section.SubjectCode,
		section.CourseNum,
		section.SectionNum,
		section.Term,
		section.Title,
		section.SchedTypeCode,
		section.PrimaryCourseID,
		section.PrimarySectionCode,
		section.PrimarySubjectCode,
		section.XlistFamily,
	)
	if err != nil {
		return fmt.Errorf("upsert section: %w", err)
	}
	return nil
}

// Get returns a section by its section code, or nil when unknown.
func (r *SectionRepository) Get(ctx context.Context, sectionCode string) (*model.Section, error) {
	query := fmt.Sprintf(`SELECT %s FROM sections WHERE section_code = $1`, sectionColumns)
	section, err := scanSection(r.QueryRow(ctx, query, sectionCode))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get section: %w", err)
	}
	return section, nil
}

// GetByID returns a section by (section_id, term), or nil when unknown.
func (r *SectionRepository) GetByID(ctx context.Context, sectionID string, term int) (*model.Section, error) {
	query := fmt.Sprintf(`SELECT %s FROM sections WHERE section_id = $1 AND term = $2`, sectionColumns)
	section, err := scanSection(r.QueryRow(ctx, query, sectionID, term))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get section by id: %w", err)
	}
	return section, nil
}

// Delete removes a section; relation rows cascade in the schema.
func (r *SectionRepository) Delete(ctx context.Context, sectionCode string) error {
	_, err := r.ExecAffected(ctx, `DELETE FROM sections WHERE section_code = $1`, sectionCode)
	if err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	return nil
}

// ReplaceInstructors swaps the full instructor set of a section atomically.
func (r *SectionRepository) ReplaceInstructors(ctx context.Context, sectionCode string, pennkeys []string) error {
	return r.replaceRelation(ctx, "section_instructors", "pennkey", sectionCode, pennkeys)
}

// ReplaceAlsoOfferedAs swaps the crosslist-family relation of a section.
func (r *SectionRepository) ReplaceAlsoOfferedAs(ctx context.Context, sectionCode string, relatedCodes []string) error {
	return r.replaceRelation(ctx, "also_offered_as", "related_section_code", sectionCode, relatedCodes)
}

// ReplaceCourseSections swaps the sibling-section relation of a section.
func (r *SectionRepository) ReplaceCourseSections(ctx context.Context, sectionCode string, relatedCodes []string) error {
	return r.replaceRelation(ctx, "course_sections", "related_section_code", sectionCode, relatedCodes)
}

func (r *SectionRepository) replaceRelation(ctx context.Context, table, column, sectionCode string, values []string) error {
	tx, err := r.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace %s: %w", table, err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE section_code = $1`, table), sectionCode)
	if err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	for _, value := range values {
		if value == sectionCode {
			continue
		}
		_, err = tx.Exec(ctx,
			fmt.Sprintf(`INSERT INTO %s (section_code, %s) VALUES ($1, $2) ON CONFLICT DO NOTHING`, table, column),
			sectionCode, value,
		)
		if err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}

// Instructors returns the instructor users of a section.
func (r *SectionRepository) Instructors(ctx context.Context, sectionCode string) ([]model.User, error) {
	query := `
		SELECT users.pennkey, users.penn_id, users.first_name, users.last_name, users.email, users.created_at
		FROM section_instructors
		JOIN users ON users.pennkey = section_instructors.pennkey
		WHERE section_instructors.section_code = $1
		ORDER BY users.pennkey
	`
	rows, err := r.Query(ctx, query, sectionCode)
	if err != nil {
		return nil, fmt.Errorf("get section instructors: %w", err)
	}
	defer rows.Close()

	var instructors []model.User
	for rows.Next() {
		var user model.User
		err := rows.Scan(&user.Pennkey, &user.PennID, &user.FirstName, &user.LastName, &user.Email, &user.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan instructor: %w", err)
		}
		instructors = append(instructors, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instructors: %w", err)
	}
	return instructors, nil
}

// CourseSectionCodes returns the sibling-section codes of a section in
// insertion order.
func (r *SectionRepository) CourseSectionCodes(ctx context.Context, sectionCode string) ([]string, error) {
	return r.relationCodes(ctx, "course_sections", sectionCode)
}

// AlsoOfferedAsCodes returns the crosslist-family member codes of a section.
func (r *SectionRepository) AlsoOfferedAsCodes(ctx context.Context, sectionCode string) ([]string, error) {
	return r.relationCodes(ctx, "also_offered_as", sectionCode)
}

func (r *SectionRepository) relationCodes(ctx context.Context, table, sectionCode string) ([]string, error) {
	query := fmt.Sprintf(
		`SELECT related_section_code FROM %s WHERE section_code = $1 ORDER BY id`, table)
	rows, err := r.Query(ctx, query, sectionCode)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", table, err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return codes, nil
}

// ListUnrequested returns the bulk-driver candidates of a term: sections
// never requested, not overridden, not crosslist children, whose school is
// visible. An empty schoolCode matches every school.
func (r *SectionRepository) ListUnrequested(ctx context.Context, term int, schoolCode string) ([]model.Section, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM sections
		WHERE term = $1
		AND requested = false
		AND requested_override = false
		AND primary_crosslist = ''
		AND school_code IN (SELECT school_code FROM schools WHERE visible = true)
		AND ($2 = '' OR school_code = $2)
		ORDER BY created_at, section_code
	`, sectionColumns)
	rows, err := r.Query(ctx, query, term, schoolCode)
	if err != nil {
		return nil, fmt.Errorf("list unrequested sections: %w", err)
	}
	defer rows.Close()

	var sections []model.Section
	for rows.Next() {
		section, err := scanSection(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unrequested section: %w", err)
		}
		sections = append(sections, *section)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unrequested sections: %w", err)
	}
	return sections, nil
}

// SetRequested flags or unflags a section as requested.
func (r *SectionRepository) SetRequested(ctx context.Context, sectionCode string, requested bool) error {
	_, err := r.ExecAffected(ctx,
		`UPDATE sections SET requested = $1, updated_at = now() WHERE section_code = $2`,
		requested, sectionCode,
	)
	if err != nil {
		return fmt.Errorf("set section requested: %w", err)
	}
	return nil
}

// SetRequestRefs stamps the sections folded into a multi-section or
// crosslisted request with the owning request's key.
func (r *SectionRepository) SetRequestRefs(ctx context.Context, requestSectionCode string, sectionCodes []string, crosslisted bool) error {
	column := "multisection_request"
	if crosslisted {
		column = "crosslisted_request"
	}
	query := fmt.Sprintf(`
		UPDATE sections
		SET %s = $1, requested = true, updated_at = now()
		WHERE section_code = ANY($2)
	`, column)
	_, err := r.ExecAffected(ctx, query, requestSectionCode, sectionCodes)
	if err != nil {
		return fmt.Errorf("set request refs: %w", err)
	}
	return nil
}
