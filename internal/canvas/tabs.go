package canvas

import (
	"context"
	"fmt"
)

type Tab struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Visibility string `json:"visibility"`
	Hidden     bool   `json:"hidden"`
	Position   int    `json:"position"`
}

// ListTabs returns the navigation tabs of a course.
func (c *Client) ListTabs(ctx context.Context, courseID int64) ([]Tab, error) {
	var tabs []Tab
	path := fmt.Sprintf("/courses/%d/tabs", courseID)
	if err := c.get(ctx, path, nil, &tabs); err != nil {
		return nil, err
	}
	return tabs, nil
}

// UpdateTab changes a tab's visibility and, when position is non-zero, its
// placement in the course navigation.
func (c *Client) UpdateTab(ctx context.Context, courseID int64, tabID string, hidden bool, position int) error {
	query := map[string]string{"hidden": fmt.Sprintf("%t", hidden)}
	if position > 0 {
		query["position"] = fmt.Sprintf("%d", position)
	}
	path := fmt.Sprintf("/courses/%d/tabs/%s", courseID, tabID)
	req := c.http.R().SetContext(ctx).SetQueryParams(query)
	return wrap(req.Put(path))
}
