package canvas

import (
	"context"
	"fmt"
)

// ContentMigration is the handle returned when a course copy is started.
type ContentMigration struct {
	ID int64 `json:"id"`
}

// Migration progress states. Queued and running are the only valid
// intermediate states; complete is the only terminal success.
const (
	MigrationQueued   = "queued"
	MigrationRunning  = "running"
	MigrationComplete = "complete"
)

type migrationRequest struct {
	MigrationType string            `json:"migration_type"`
	Settings      migrationSettings `json:"settings"`
}

type migrationSettings struct {
	SourceCourseID int64 `json:"source_course_id"`
}

type migrationProgress struct {
	WorkflowState string `json:"workflow_state"`
}

// StartCourseCopy starts a course_copy_importer migration pulling content
// from sourceCourseID into courseID.
func (c *Client) StartCourseCopy(ctx context.Context, courseID, sourceCourseID int64) (*ContentMigration, error) {
	body := migrationRequest{
		MigrationType: "course_copy_importer",
		Settings:      migrationSettings{SourceCourseID: sourceCourseID},
	}
	var migration ContentMigration
	path := fmt.Sprintf("/courses/%d/content_migrations", courseID)
	if err := c.send(ctx, "POST", path, body, &migration); err != nil {
		return nil, err
	}
	return &migration, nil
}

// MigrationState polls the workflow state of a running migration.
func (c *Client) MigrationState(ctx context.Context, courseID, migrationID int64) (string, error) {
	var progress migrationProgress
	path := fmt.Sprintf("/courses/%d/content_migrations/%d/progress", courseID, migrationID)
	if err := c.get(ctx, path, nil, &progress); err != nil {
		return "", err
	}
	if progress.WorkflowState == "" {
		return MigrationQueued, nil
	}
	return progress.WorkflowState, nil
}
