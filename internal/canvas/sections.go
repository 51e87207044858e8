package canvas

import (
	"context"
	"fmt"
)

type CourseSection struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	SISSectionID string `json:"sis_section_id"`
}

type createSectionRequest struct {
	CourseSection         sectionParams `json:"course_section"`
	EnableSISReactivation bool          `json:"enable_sis_reactivation"`
}

type sectionParams struct {
	Name         string `json:"name"`
	SISSectionID string `json:"sis_section_id"`
}

// CreateSection creates a section inside a course, reactivating a previously
// deleted SIS section of the same id if one exists.
func (c *Client) CreateSection(ctx context.Context, courseID int64, name, sisID string) (*CourseSection, error) {
	body := createSectionRequest{
		CourseSection:         sectionParams{Name: name, SISSectionID: sisID},
		EnableSISReactivation: true,
	}
	var section CourseSection
	path := fmt.Sprintf("/courses/%d/sections", courseID)
	if err := c.send(ctx, "POST", path, body, &section); err != nil {
		return nil, err
	}
	return &section, nil
}

// GetSectionBySISID fetches a section by its SIS section id. A missing
// section is (nil, nil).
func (c *Client) GetSectionBySISID(ctx context.Context, sisID string) (*CourseSection, error) {
	var section CourseSection
	if err := c.get(ctx, "/sections/"+sisSectionID(sisID), nil, &section); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &section, nil
}

// ListSections returns the sections of a course.
func (c *Client) ListSections(ctx context.Context, courseID int64) ([]CourseSection, error) {
	var sections []CourseSection
	path := fmt.Sprintf("/courses/%d/sections", courseID)
	query := map[string]string{"per_page": "100"}
	if err := c.get(ctx, path, query, &sections); err != nil {
		return nil, err
	}
	return sections, nil
}
