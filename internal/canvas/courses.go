package canvas

import (
	"context"
	"fmt"
)

type Course struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	SISCourseID string `json:"sis_course_id"`
}

// CourseParams is the payload for course creation and update. Omitted fields
// are left untouched by Canvas on update.
type CourseParams struct {
	Name           string `json:"name,omitempty"`
	SISCourseID    string `json:"sis_course_id,omitempty"`
	CourseCode     string `json:"course_code,omitempty"`
	TermID         int64  `json:"term_id,omitempty"`
	StorageQuotaMB int    `json:"storage_quota_mb,omitempty"`
	Event          string `json:"event,omitempty"`
}

type courseBody struct {
	Course CourseParams `json:"course"`
}

// CreateCourse creates a course under a sub-account.
func (c *Client) CreateCourse(ctx context.Context, accountID int64, params CourseParams) (*Course, error) {
	var course Course
	path := fmt.Sprintf("/accounts/%d/courses", accountID)
	if err := c.send(ctx, "POST", path, courseBody{Course: params}, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// GetCourseBySISID fetches a course by its SIS course id.
func (c *Client) GetCourseBySISID(ctx context.Context, sisID string) (*Course, error) {
	var course Course
	if err := c.get(ctx, "/courses/"+sisCourseID(sisID), nil, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// UpdateCourse updates a course by its internal id.
func (c *Client) UpdateCourse(ctx context.Context, courseID int64, params CourseParams) error {
	path := fmt.Sprintf("/courses/%d", courseID)
	return c.send(ctx, "PUT", path, courseBody{Course: params}, nil)
}

// PublishCourse offers the course to students.
func (c *Client) PublishCourse(ctx context.Context, courseID int64) error {
	return c.UpdateCourse(ctx, courseID, CourseParams{Event: "offer"})
}
