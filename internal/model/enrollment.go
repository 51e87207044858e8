package model

import "time"

// Role is the set of roles a person can be given on a course site.
type Role string

const (
	RoleTA         Role = "TA"
	RoleInstructor Role = "Instructor"
	RoleDesigner   Role = "Designer"
	RoleLibrarian  Role = "Librarian"
)

// LibrarianRoleID is the custom Canvas role id attached to librarian
// enrollments on top of the designer enrollment type.
const LibrarianRoleID int64 = 1383

// CanvasEnrollmentType maps a role to the Canvas enrollment type. Librarians
// enroll as designers; the distinction is carried by LibrarianRoleID.
func (r Role) CanvasEnrollmentType() string {
	switch r {
	case RoleTA:
		return "TaEnrollment"
	case RoleInstructor:
		return "TeacherEnrollment"
	case RoleDesigner, RoleLibrarian:
		return "DesignerEnrollment"
	default:
		return "TaEnrollment"
	}
}

// SectionEnrollment is one extra person attached to a specific Request.
type SectionEnrollment struct {
	RequestSectionCode string `json:"request_section_code"`
	Pennkey            string `json:"pennkey"`
	Role               Role   `json:"role"`
}

// AutoAdd is a standing rule: the user gets the role on every Request whose
// section belongs to the (school, subject) pair. Unique on all four fields.
type AutoAdd struct {
	ID          int64     `json:"id"`
	SchoolCode  string    `json:"school_code"`
	SubjectCode string    `json:"subject_code"`
	Pennkey     string    `json:"pennkey"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
