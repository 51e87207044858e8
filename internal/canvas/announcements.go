package canvas

import (
	"context"
	"fmt"
)

type DiscussionTopic struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// ListAnnouncements returns the announcement-type discussion topics of a
// course.
func (c *Client) ListAnnouncements(ctx context.Context, courseID int64) ([]DiscussionTopic, error) {
	var topics []DiscussionTopic
	path := fmt.Sprintf("/courses/%d/discussion_topics", courseID)
	query := map[string]string{"only_announcements": "true", "per_page": "100"}
	if err := c.get(ctx, path, query, &topics); err != nil {
		return nil, err
	}
	return topics, nil
}

// DeleteAnnouncement deletes one announcement.
func (c *Client) DeleteAnnouncement(ctx context.Context, courseID, topicID int64) error {
	path := fmt.Sprintf("/courses/%d/discussion_topics/%d", courseID, topicID)
	return c.send(ctx, "DELETE", path, nil, nil)
}
