package canvas

import (
	"context"
	"fmt"
)

type enrollmentParams struct {
	UserID          int64  `json:"user_id"`
	Type            string `json:"type"`
	EnrollmentState string `json:"enrollment_state"`
	CourseSectionID int64  `json:"course_section_id,omitempty"`
	RoleID          int64  `json:"role_id,omitempty"`
}

type enrollmentBody struct {
	Enrollment enrollmentParams `json:"enrollment"`
}

// EnrollmentOptions narrows an enrollment to a section and, for custom
// roles, overrides the role id.
type EnrollmentOptions struct {
	CourseSectionID int64
	RoleID          int64
}

// EnrollUser enrolls a user in a course as active. Canvas treats a repeated
// enrollment of the same (user, type, section) as a no-op.
func (c *Client) EnrollUser(ctx context.Context, courseID, userID int64, enrollmentType string, opts EnrollmentOptions) error {
	body := enrollmentBody{Enrollment: enrollmentParams{
		UserID:          userID,
		Type:            enrollmentType,
		EnrollmentState: "active",
		CourseSectionID: opts.CourseSectionID,
		RoleID:          opts.RoleID,
	}}
	path := fmt.Sprintf("/courses/%d/enrollments", courseID)
	return c.send(ctx, "POST", path, body, nil)
}
