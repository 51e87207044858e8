package canvas

import (
	"context"
	"fmt"
	"strings"
)

type CalendarEvent struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	LocationName string `json:"location_name"`
}

// IsZoomEvent reports whether any human-readable field of the event mentions
// Zoom. Migrated courses drag stale Zoom meetings along; these are deleted
// after a content migration.
func (e *CalendarEvent) IsZoomEvent() bool {
	return containsZoom(e.LocationName) || containsZoom(e.Description) || containsZoom(e.Title)
}

func containsZoom(s string) bool {
	return strings.Contains(strings.ToLower(s), "zoom")
}

// ListCalendarEvents enumerates every calendar event in a course context.
func (c *Client) ListCalendarEvents(ctx context.Context, courseID int64) ([]CalendarEvent, error) {
	var events []CalendarEvent
	query := map[string]string{
		"context_codes[]": fmt.Sprintf("course_%d", courseID),
		"all_events":      "true",
		"per_page":        "100",
	}
	if err := c.get(ctx, "/calendar_events", query, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// DeleteCalendarEvent deletes one event, recording the cancellation reason.
func (c *Client) DeleteCalendarEvent(ctx context.Context, eventID int64, cancelReason string) error {
	path := fmt.Sprintf("/calendar_events/%d", eventID)
	req := c.http.R().SetContext(ctx).SetQueryParam("cancel_reason", cancelReason)
	return wrap(req.Delete(path))
}
