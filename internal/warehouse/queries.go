package warehouse

import (
	"context"
	"fmt"
	"strings"

	"github.com/cwsupport/crf-provisioner/internal/model"
)

// Canonical SELECTs against the warehouse views. The section query bakes in
// the excluded schedule types and the schools that never reach Canvas.
const (
	scheduleTypeQuery = `
		SELECT sched_type_code, sched_type_desc
		FROM dwngss.v_sched_type
	`

	schoolQuery = `
		SELECT school_code, school_desc_long
		FROM dwngss.v_school
	`

	subjectQuery = `
		SELECT subject_code, subject_desc_long, school_code
		FROM dwngss.v_subject
	`

	instructorQuery = `
		SELECT
			employee.pennkey,
			instructor.instructor_first_name,
			instructor.instructor_last_name,
			instructor.instructor_penn_id,
			instructor.instructor_email
		FROM dwngss_ps.crse_sect_instructor instructor
		JOIN employee_general_v employee
		ON instructor.instructor_penn_id = employee.penn_id
		WHERE instructor.section_id = $1
		AND term = $2
	`

	xlistFamilyQuery = `
		SELECT section_id
		FROM dwngss_ps.crse_section
		WHERE xlist_family = $1
	`

	courseSectionsQuery = `
		SELECT section_id
		FROM dwngss_ps.crse_section
		WHERE term = $1
		AND course_id = $2
		AND section_id != $3
	`
)

// sectionQuery folds the excluded schedule types into the WHERE clause so
// sections that never become course sites are dropped at the source.
var sectionQuery = fmt.Sprintf(`
		SELECT
			section_id || term,
			section_id,
			school,
			subject,
			course_num,
			section_num,
			term,
			title,
			schedule_type,
			section_status,
			primary_course_id,
			primary_section_id,
			primary_subject,
			course_id,
			xlist_family
		FROM dwngss_ps.crse_section
		WHERE schedule_type NOT IN (%s)
		AND school NOT IN ('W', 'L', 'P')
	`, quoteList(model.ExcludedScheduleTypes))

func quoteList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = "'" + v + "'"
	}
	return strings.Join(quoted, ", ")
}

type ScheduleTypeRow struct {
	SchedTypeCode string
	SchedTypeDesc string
}

type SchoolRow struct {
	SchoolCode     string
	SchoolDescLong string
}

type SubjectRow struct {
	SubjectCode     string
	SubjectDescLong string
	SchoolCode      string
}

// SectionRow is the normalized shape of one crse_section row. Optional
// warehouse columns arrive as empty strings.
type SectionRow struct {
	SectionCode      string
	SectionID        string
	SchoolCode       string
	SubjectCode      string
	CourseNum        string
	SectionNum       string
	Term             int
	Title            string
	SchedTypeCode    string
	SectionStatus    string
	PrimaryCourseID  string
	PrimarySectionID string
	PrimarySubject   string
	CourseID         string
	XlistFamily      string
}

type InstructorRow struct {
	Pennkey   string
	FirstName string
	LastName  string
	PennID    *int64
	Email     string
}

// ScheduleTypes returns every schedule type the warehouse knows.
func (c *Client) ScheduleTypes(ctx context.Context) ([]ScheduleTypeRow, error) {
	return c.scheduleTypes(ctx, scheduleTypeQuery)
}

// ScheduleType returns a single schedule type by code.
func (c *Client) ScheduleType(ctx context.Context, code string) ([]ScheduleTypeRow, error) {
	return c.scheduleTypes(ctx, scheduleTypeQuery+" WHERE sched_type_code = $1", code)
}

func (c *Client) scheduleTypes(ctx context.Context, sql string, args ...any) ([]ScheduleTypeRow, error) {
	rows, cancel, err := c.query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer rows.Close()

	var result []ScheduleTypeRow
	for rows.Next() {
		var row ScheduleTypeRow
		if err := rows.Scan(&row.SchedTypeCode, &row.SchedTypeDesc); err != nil {
			return nil, fmt.Errorf("scan schedule type: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &UnavailableError{Err: err}
	}
	return result, nil
}

// Schools returns every school the warehouse knows.
func (c *Client) Schools(ctx context.Context) ([]SchoolRow, error) {
	return c.schools(ctx, schoolQuery)
}

// School returns a single school by code.
func (c *Client) School(ctx context.Context, schoolCode string) ([]SchoolRow, error) {
	return c.schools(ctx, schoolQuery+" WHERE school_code = $1", schoolCode)
}

func (c *Client) schools(ctx context.Context, sql string, args ...any) ([]SchoolRow, error) {
	rows, cancel, err := c.query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer rows.Close()

	var result []SchoolRow
	for rows.Next() {
		var row SchoolRow
		if err := rows.Scan(&row.SchoolCode, &row.SchoolDescLong); err != nil {
			return nil, fmt.Errorf("scan school: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &UnavailableError{Err: err}
	}
	return result, nil
}

// Subjects returns every subject the warehouse knows.
func (c *Client) Subjects(ctx context.Context) ([]SubjectRow, error) {
	return c.subjects(ctx, subjectQuery)
}

// Subject returns a single subject by code.
func (c *Client) Subject(ctx context.Context, subjectCode string) ([]SubjectRow, error) {
	return c.subjects(ctx, subjectQuery+" WHERE subject_code = $1", subjectCode)
}

func (c *Client) subjects(ctx context.Context, sql string, args ...any) ([]SubjectRow, error) {
	rows, cancel, err := c.query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer rows.Close()

	var result []SubjectRow
	for rows.Next() {
		var row SubjectRow
		var desc, school *string
		if err := rows.Scan(&row.SubjectCode, &desc, &school); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		row.SubjectDescLong = deref(desc)
		row.SchoolCode = deref(school)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &UnavailableError{Err: err}
	}
	return result, nil
}

// Sections returns every section row for the given terms. The term list is
// expanded into positional bindings; nothing is interpolated into the SQL.
func (c *Client) Sections(ctx context.Context, terms []int) ([]SectionRow, error) {
	placeholders := make([]string, len(terms))
	args := make([]any, len(terms))
	for i, term := range terms {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = term
	}
	sql := fmt.Sprintf("%s AND term IN (%s)", sectionQuery, strings.Join(placeholders, ","))
	return c.sections(ctx, sql, args...)
}

// SectionByID returns the section row matching a section id within a term.
func (c *Client) SectionByID(ctx context.Context, sectionID string, term int) ([]SectionRow, error) {
	return c.sections(ctx, sectionQuery+" AND term = $1 AND section_id = $2", term, sectionID)
}

func (c *Client) sections(ctx context.Context, sql string, args ...any) ([]SectionRow, error) {
	rows, cancel, err := c.query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer rows.Close()

	var result []SectionRow
	for rows.Next() {
		var row SectionRow
		var title, primaryCourseID, primarySectionID, primarySubject, courseID, xlistFamily *string
		err := rows.Scan(
			&row.SectionCode,
			&row.SectionID,
			&row.SchoolCode,
			&row.SubjectCode,
			&row.CourseNum,
			&row.SectionNum,
			&row.Term,
			&title,
			&row.SchedTypeCode,
			&row.SectionStatus,
			&primaryCourseID,
			&primarySectionID,
			&primarySubject,
			&courseID,
			&xlistFamily,
		)
		if err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		row.Title = deref(title)
		row.PrimaryCourseID = deref(primaryCourseID)
		row.PrimarySectionID = deref(primarySectionID)
		row.PrimarySubject = deref(primarySubject)
		row.CourseID = deref(courseID)
		row.XlistFamily = deref(xlistFamily)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &UnavailableError{Err: err}
	}
	return result, nil
}

// Instructors returns the instructor roster for one section.
func (c *Client) Instructors(ctx context.Context, sectionID string, term int) ([]InstructorRow, error) {
	rows, cancel, err := c.query(ctx, instructorQuery, sectionID, term)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer rows.Close()

	var result []InstructorRow
	for rows.Next() {
		var row InstructorRow
		var firstName, lastName, email *string
		if err := rows.Scan(&row.Pennkey, &firstName, &lastName, &row.PennID, &email); err != nil {
			return nil, fmt.Errorf("scan instructor: %w", err)
		}
		row.FirstName = deref(firstName)
		row.LastName = deref(lastName)
		row.Email = deref(email)
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &UnavailableError{Err: err}
	}
	return result, nil
}

// XlistFamilySectionIDs returns the section ids sharing a crosslist family.
func (c *Client) XlistFamilySectionIDs(ctx context.Context, xlistFamily string) ([]string, error) {
	return c.sectionIDs(ctx, xlistFamilyQuery, xlistFamily)
}

// CourseSectionIDs returns sibling section ids of the same course in a term.
func (c *Client) CourseSectionIDs(ctx context.Context, term int, courseID, sectionID string) ([]string, error) {
	return c.sectionIDs(ctx, courseSectionsQuery, term, courseID, sectionID)
}

func (c *Client) sectionIDs(ctx context.Context, sql string, args ...any) ([]string, error) {
	rows, cancel, err := c.query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer rows.Close()

	var result []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan section id: %w", err)
		}
		result = append(result, id)
	}
	if err := rows.Err(); err != nil {
		return nil, &UnavailableError{Err: err}
	}
	return result, nil
}
