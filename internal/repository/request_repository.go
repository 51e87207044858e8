package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cwsupport/crf-provisioner/internal/model"
	"github.com/cwsupport/crf-provisioner/internal/repository/base"
)

type RequestRepository struct {
	*base.Repository
}

func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{Repository: base.NewRepository(pool)}
}

const requestColumns = `
	section_code, requester, proxy_requester, title_override, copy_from_course,
	reserves, lps_online, exclude_announcements, additional_instructions,
	admin_additional_instructions, process_notes, status, created_at, updated_at
`

func scanRequest(row pgx.Row) (*model.Request, error) {
	var request model.Request
	err := row.Scan(
		&request.SectionCode,
		&request.Requester,
		&request.ProxyRequester,
		&request.TitleOverride,
		&request.CopyFromCourse,
		&request.Reserves,
		&request.LPSOnline,
		&request.ExcludeAnnouncements,
		&request.AdditionalInstructions,
		&request.AdminAdditionalInstructions,
		&request.ProcessNotes,
		&request.Status,
		&request.CreatedAt,
		&request.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// Create persists a request together with its included-section set. The
// requested section and every included sibling get flagged as requested.
func (r *RequestRepository) Create(ctx context.Context, request *model.Request) error {
	tx, err := r.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create request: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO requests (
			section_code, requester, proxy_requester, title_override,
			copy_from_course, reserves, lps_online, exclude_announcements,
			additional_instructions, admin_additional_instructions, process_notes, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = tx.Exec(ctx, query,
		request.SectionCode,
		request.Requester,
		request.ProxyRequester,
		request.TitleOverride,
		request.CopyFromCourse,
		request.Reserves,
		request.LPSOnline,
		request.ExcludeAnnouncements,
		request.AdditionalInstructions,
		request.AdminAdditionalInstructions,
		request.ProcessNotes,
		request.Status,
	)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	for _, sectionCode := range request.IncludedSections {
		_, err = tx.Exec(ctx,
			`INSERT INTO request_included_sections (request_section_code, section_code) VALUES ($1, $2)`,
			request.SectionCode, sectionCode,
		)
		if err != nil {
			return fmt.Errorf("attach included section: %w", err)
		}
	}

	sectionCodes := append([]string{request.SectionCode}, request.IncludedSections...)
	_, err = tx.Exec(ctx,
		`UPDATE sections SET requested = true, updated_at = now() WHERE section_code = ANY($1)`,
		sectionCodes,
	)
	if err != nil {
		return fmt.Errorf("flag requested sections: %w", err)
	}

	return tx.Commit(ctx)
}

// Get returns a request with its included sections, or nil when unknown.
func (r *RequestRepository) Get(ctx context.Context, sectionCode string) (*model.Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM requests WHERE section_code = $1`, requestColumns)
	request, err := scanRequest(r.QueryRow(ctx, query, sectionCode))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	if err := r.loadIncludedSections(ctx, request); err != nil {
		return nil, err
	}
	return request, nil
}

func (r *RequestRepository) loadIncludedSections(ctx context.Context, request *model.Request) error {
	rows, err := r.Query(ctx,
		`SELECT section_code FROM request_included_sections WHERE request_section_code = $1 ORDER BY id`,
		request.SectionCode,
	)
	if err != nil {
		return fmt.Errorf("get included sections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return fmt.Errorf("scan included section: %w", err)
		}
		request.IncludedSections = append(request.IncludedSections, code)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate included sections: %w", err)
	}
	return nil
}

// ListByStatus returns every request in the given status, oldest first.
func (r *RequestRepository) ListByStatus(ctx context.Context, status model.RequestStatus) ([]model.Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM requests WHERE status = $1 ORDER BY created_at`, requestColumns)
	rows, err := r.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("list requests by status: %w", err)
	}
	defer rows.Close()

	var requests []model.Request
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, *request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}

	for i := range requests {
		if err := r.loadIncludedSections(ctx, &requests[i]); err != nil {
			return nil, err
		}
	}
	return requests, nil
}

// SetStatus writes a status atomically.
func (r *RequestRepository) SetStatus(ctx context.Context, sectionCode string, status model.RequestStatus) error {
	_, err := r.ExecAffected(ctx,
		`UPDATE requests SET status = $1, updated_at = now() WHERE section_code = $2`,
		status, sectionCode,
	)
	if err != nil {
		return fmt.Errorf("set request status: %w", err)
	}
	return nil
}

// ClaimApproved is the compare-and-set that a builder runs before touching a
// request: the status moves Approved to In Process only if it is still
// Approved, and the return value reports whether this caller won the claim.
func (r *RequestRepository) ClaimApproved(ctx context.Context, sectionCode string) (bool, error) {
	affected, err := r.ExecAffected(ctx,
		`UPDATE requests SET status = $1, updated_at = now() WHERE section_code = $2 AND status = $3`,
		model.StatusInProcess, sectionCode, model.StatusApproved,
	)
	if err != nil {
		return false, fmt.Errorf("claim request: %w", err)
	}
	return affected == 1, nil
}

// AppendProcessNote appends to the running note, comma-separating entries.
func (r *RequestRepository) AppendProcessNote(ctx context.Context, sectionCode, note string) error {
	query := `
		UPDATE requests
		SET process_notes = CASE
			WHEN process_notes = '' THEN $1
			ELSE process_notes || ', ' || $1
		END,
		updated_at = now()
		WHERE section_code = $2
	`
	_, err := r.ExecAffected(ctx, query, note, sectionCode)
	if err != nil {
		return fmt.Errorf("append process note: %w", err)
	}
	return nil
}

// ClearProcessNotes wipes the note trail after a completed build.
func (r *RequestRepository) ClearProcessNotes(ctx context.Context, sectionCode string) error {
	_, err := r.ExecAffected(ctx,
		`UPDATE requests SET process_notes = '', updated_at = now() WHERE section_code = $1`,
		sectionCode,
	)
	if err != nil {
		return fmt.Errorf("clear process notes: %w", err)
	}
	return nil
}

// ClearCopyFromCourse drops the migration source so a rerun of a completed
// build does not copy content again.
func (r *RequestRepository) ClearCopyFromCourse(ctx context.Context, sectionCode string) error {
	_, err := r.ExecAffected(ctx,
		`UPDATE requests SET copy_from_course = NULL, updated_at = now() WHERE section_code = $1`,
		sectionCode,
	)
	if err != nil {
		return fmt.Errorf("clear copy from course: %w", err)
	}
	return nil
}

// Delete removes a request, its enrollments and included-section rows, and
// resets every section that referenced it.
func (r *RequestRepository) Delete(ctx context.Context, sectionCode string) error {
	tx, err := r.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete request: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE sections
		SET multisection_request = '',
		    crosslisted_request = '',
		    requested = false,
		    updated_at = now()
		WHERE multisection_request = $1 OR crosslisted_request = $1 OR section_code = $1
		   OR section_code IN (
			SELECT section_code FROM request_included_sections WHERE request_section_code = $1
		)
	`, sectionCode)
	if err != nil {
		return fmt.Errorf("reset request sections: %w", err)
	}

	_, err = tx.Exec(ctx, `DELETE FROM requests WHERE section_code = $1`, sectionCode)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}

	return tx.Commit(ctx)
}

// AdditionalEnrollments returns the extra people attached to a request.
func (r *RequestRepository) AdditionalEnrollments(ctx context.Context, sectionCode string) ([]model.SectionEnrollment, error) {
	rows, err := r.Query(ctx,
		`SELECT request_section_code, pennkey, role FROM section_enrollments WHERE request_section_code = $1 ORDER BY id`,
		sectionCode,
	)
	if err != nil {
		return nil, fmt.Errorf("get additional enrollments: %w", err)
	}
	defer rows.Close()

	var enrollments []model.SectionEnrollment
	for rows.Next() {
		var enrollment model.SectionEnrollment
		if err := rows.Scan(&enrollment.RequestSectionCode, &enrollment.Pennkey, &enrollment.Role); err != nil {
			return nil, fmt.Errorf("scan additional enrollment: %w", err)
		}
		enrollments = append(enrollments, enrollment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate additional enrollments: %w", err)
	}
	return enrollments, nil
}

// AddEnrollment attaches one extra person to a request.
func (r *RequestRepository) AddEnrollment(ctx context.Context, enrollment *model.SectionEnrollment) error {
	query := `
		INSERT INTO section_enrollments (request_section_code, pennkey, role)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
	`
	_, err := r.ExecAffected(ctx, query,
		enrollment.RequestSectionCode, enrollment.Pennkey, enrollment.Role)
	if err != nil {
		return fmt.Errorf("add section enrollment: %w", err)
	}
	return nil
}
