package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/cwsupport/crf-provisioner/internal/canvas"
	"github.com/cwsupport/crf-provisioner/internal/model"
)

const (
	migrationPollInterval = 5 * time.Second
	migrationMaxPolls     = 180
)

var errMigrationRunning = errors.New("content migration still running")

// BuilderService turns an approved request into a Canvas course site: the
// course itself, its sections, enrollments, content copy and the reserves
// tab. Every step is idempotent so an errored request can be retried.
type BuilderService struct {
	requests  RequestStore
	sections  SectionStore
	schools   SchoolStore
	autoAdds  AutoAddStore
	directory Directory
	canvas    Canvas
	logger    *zap.Logger
}

func NewBuilderService(
	requests RequestStore,
	sections SectionStore,
	schools SchoolStore,
	autoAdds AutoAddStore,
	directory Directory,
	cv Canvas,
	logger *zap.Logger,
) *BuilderService {
	return &BuilderService{
		requests:  requests,
		sections:  sections,
		schools:   schools,
		autoAdds:  autoAdds,
		directory: directory,
		canvas:    cv,
		logger:    logger,
	}
}

// BuildAllApproved drains the approved queue, isolating failures per
// request.
func (s *BuilderService) BuildAllApproved(ctx context.Context) error {
	approved, err := s.requests.ListByStatus(ctx, model.StatusApproved)
	if err != nil {
		return fmt.Errorf("list approved requests: %w", err)
	}
	for _, request := range approved {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Build(ctx, request.SectionCode); err != nil {
			s.logger.Error("Site build failed",
				zap.String("section_code", request.SectionCode),
				zap.Error(err),
			)
		}
	}
	return nil
}

// Build provisions the course site for one approved request. The request is
// claimed with a compare-and-set on its status, so concurrent builders never
// process the same request twice; an unclaimed request is a silent no-op.
func (s *BuilderService) Build(ctx context.Context, sectionCode string) error {
	claimed, err := s.requests.ClaimApproved(ctx, sectionCode)
	if err != nil {
		return fmt.Errorf("claim request %s: %w", sectionCode, err)
	}
	if !claimed {
		s.logger.Info("Request not in approved status, skipping", zap.String("section_code", sectionCode))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return s.fail(ctx, sectionCode, "", err)
	}

	request, err := s.requests.Get(ctx, sectionCode)
	if err != nil {
		return s.fail(ctx, sectionCode, "", err)
	}
	section, err := s.sections.Get(ctx, sectionCode)
	if err != nil || section == nil {
		if err == nil {
			err = &DataInvariantError{Reason: fmt.Sprintf("request %s has no section", sectionCode)}
		}
		return s.fail(ctx, sectionCode, "", err)
	}

	accountID, err := s.resolveAccount(ctx, request, section)
	if err != nil {
		return s.fail(ctx, sectionCode, "failed to locate Canvas Account", err)
	}

	course, err := s.ensureCourse(ctx, accountID, request, section)
	if err != nil {
		return s.fail(ctx, sectionCode, "course site creation failed--check if it already exists", err)
	}

	related, err := s.relatedSections(ctx, request, section)
	if err != nil {
		return s.fail(ctx, sectionCode, "", err)
	}
	if err := s.ensureSections(ctx, course, request, section, related); err != nil {
		return s.fail(ctx, sectionCode, "failed to create section", err)
	}
	if err := s.recordRequestRefs(ctx, section, related); err != nil {
		return s.fail(ctx, sectionCode, "", err)
	}

	if err := s.enroll(ctx, course, request, section, related); err != nil {
		return s.fail(ctx, sectionCode, "failed to enroll user", err)
	}

	if request.CopyFromCourse != nil {
		if err := s.copyContent(ctx, course, request); err != nil {
			return s.fail(ctx, sectionCode, "content migration failed", err)
		}
	}

	if request.Reserves {
		if err := s.canvas.UpdateTab(ctx, course.ID, model.ReservesTabID, false, 0); err != nil {
			return s.fail(ctx, sectionCode, "failed to enable reserves", err)
		}
	}

	if err := s.requests.ClearProcessNotes(ctx, sectionCode); err != nil {
		return fmt.Errorf("clear process notes %s: %w", sectionCode, err)
	}
	if err := s.requests.SetStatus(ctx, sectionCode, model.StatusCompleted); err != nil {
		return fmt.Errorf("complete request %s: %w", sectionCode, err)
	}
	s.logger.Info("Provisioned course site",
		zap.String("section_code", sectionCode),
		zap.Int64("course_id", course.ID),
	)
	return nil
}

// fail records the failure on the request and moves it to Error. A build
// interrupted by shutdown is noted as "cancelled" instead of the step
// message. The writes run on a context detached from cancellation so that a
// shutdown mid-build still leaves the request in a truthful state.
func (s *BuilderService) fail(ctx context.Context, sectionCode, note string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		note = "cancelled"
	}
	ctx = context.WithoutCancel(ctx)
	if note != "" {
		if noteErr := s.requests.AppendProcessNote(ctx, sectionCode, note); noteErr != nil {
			s.logger.Error("Failed to record process note", zap.String("section_code", sectionCode), zap.Error(noteErr))
		}
	}
	if statusErr := s.requests.SetStatus(ctx, sectionCode, model.StatusError); statusErr != nil {
		s.logger.Error("Failed to set error status", zap.String("section_code", sectionCode), zap.Error(statusErr))
	}
	return err
}

// resolveAccount picks the Canvas sub-account the course is created under.
// The LPS-Online account only applies to SAS sections; the flag is ignored
// for every other school.
func (s *BuilderService) resolveAccount(ctx context.Context, request *model.Request, section *model.Section) (int64, error) {
	if request.LPSOnline && section.SchoolCode == model.SASSchoolCode {
		return model.LPSOnlineAccountID, nil
	}
	school, err := s.schools.Get(ctx, section.SchoolCode)
	if err != nil {
		return 0, err
	}
	if school == nil || school.CanvasSubAccountID == nil {
		return 0, &DataInvariantError{Reason: fmt.Sprintf("school %s has no Canvas sub-account", section.SchoolCode)}
	}
	return *school.CanvasSubAccountID, nil
}

// ensureCourse creates the course site, or adopts an existing site carrying
// the same SIS id so that an errored build can resume.
func (s *BuilderService) ensureCourse(ctx context.Context, accountID int64, request *model.Request, section *model.Section) (*canvas.Course, error) {
	termID, err := s.canvas.TermID(ctx, section.Term)
	if err != nil {
		return nil, fmt.Errorf("resolve enrollment term %d: %w", section.Term, err)
	}
	params := canvas.CourseParams{
		Name:           section.CanvasName(request.TitleOverride, false),
		SISCourseID:    section.SISID(),
		CourseCode:     section.CourseCode(false, false),
		TermID:         termID,
		StorageQuotaMB: model.StorageQuotaMB,
	}

	course, err := s.canvas.CreateCourse(ctx, accountID, params)
	if err == nil {
		return course, nil
	}
	if !canvas.IsConflict(err) {
		return nil, fmt.Errorf("create course %s: %w", section.SISID(), err)
	}

	existing, getErr := s.canvas.GetCourseBySISID(ctx, section.SISID())
	if getErr != nil {
		if canvas.IsNotFound(getErr) {
			return nil, fmt.Errorf("create course %s: %w", section.SISID(), err)
		}
		return nil, fmt.Errorf("look up course %s: %w", section.SISID(), getErr)
	}
	if updateErr := s.canvas.UpdateCourse(ctx, existing.ID, params); updateErr != nil {
		return nil, fmt.Errorf("update course %s: %w", section.SISID(), updateErr)
	}
	s.logger.Info("Adopted existing course site",
		zap.String("sis_course_id", section.SISID()),
		zap.Int64("course_id", existing.ID),
	)
	return existing, nil
}

// relatedSections resolves the sections that share the course site: every
// sibling of the same course plus the sections the requester folded in.
func (s *BuilderService) relatedSections(ctx context.Context, request *model.Request, section *model.Section) ([]*model.Section, error) {
	codes, err := s.sections.CourseSectionCodes(ctx, section.SectionCode)
	if err != nil {
		return nil, err
	}
	codes = append(codes, request.IncludedSections...)

	seen := map[string]bool{section.SectionCode: true}
	var related []*model.Section
	for _, code := range codes {
		if seen[code] {
			continue
		}
		seen[code] = true
		rel, err := s.sections.Get(ctx, code)
		if err != nil {
			return nil, err
		}
		if rel == nil {
			return nil, &DataInvariantError{Reason: fmt.Sprintf("related section %s does not exist", code)}
		}
		related = append(related, rel)
	}
	return related, nil
}

func (s *BuilderService) ensureSections(ctx context.Context, course *canvas.Course, request *model.Request, section *model.Section, related []*model.Section) error {
	if err := s.ensureSection(ctx, course.ID, section.CanvasName(request.TitleOverride, false), section.SISID()); err != nil {
		return err
	}
	for _, rel := range related {
		if err := s.ensureSection(ctx, course.ID, rel.CanvasName(request.TitleOverride, true), rel.SISID()); err != nil {
			return err
		}
	}
	return nil
}

func (s *BuilderService) ensureSection(ctx context.Context, courseID int64, name, sisID string) error {
	_, err := s.canvas.CreateSection(ctx, courseID, name, sisID)
	if err == nil || canvas.IsConflict(err) {
		return nil
	}
	return fmt.Errorf("create section %s: %w", sisID, err)
}

// recordRequestRefs back-links the related sections to the request: same
// course siblings as a multisection claim, crosslisted sections as a
// crosslist claim.
func (s *BuilderService) recordRequestRefs(ctx context.Context, section *model.Section, related []*model.Section) error {
	var multisection, crosslisted []string
	for _, rel := range related {
		if rel.SubjectCode == section.SubjectCode && rel.CourseNum == section.CourseNum {
			multisection = append(multisection, rel.SectionCode)
		} else {
			crosslisted = append(crosslisted, rel.SectionCode)
		}
	}
	if err := s.sections.SetRequestRefs(ctx, section.SectionCode, multisection, false); err != nil {
		return err
	}
	return s.sections.SetRequestRefs(ctx, section.SectionCode, crosslisted, true)
}

func (s *BuilderService) enroll(ctx context.Context, course *canvas.Course, request *model.Request, section *model.Section, related []*model.Section) error {
	canvasSections, err := s.canvas.ListSections(ctx, course.ID)
	if err != nil {
		return fmt.Errorf("list course sections: %w", err)
	}
	sectionIDByName := make(map[string]int64, len(canvasSections))
	for _, cs := range canvasSections {
		sectionIDByName[cs.Name] = cs.ID
	}

	enrollInto := func(target *model.Section, relatedSection bool, pennkey string, role model.Role) error {
		canvasID, err := s.directory.GetCanvasID(ctx, pennkey)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", pennkey, err)
		}
		name := target.CanvasName(request.TitleOverride, relatedSection)
		sectionID, ok := sectionIDByName[name]
		if !ok {
			return &DataInvariantError{Reason: fmt.Sprintf("course %d has no section named %q", course.ID, name)}
		}
		opts := canvas.EnrollmentOptions{
			CourseSectionID: sectionID,
		}
		if role == model.RoleLibrarian {
			opts.RoleID = model.LibrarianRoleID
		}
		if err := s.canvas.EnrollUser(ctx, course.ID, canvasID, role.CanvasEnrollmentType(), opts); err != nil {
			return fmt.Errorf("enroll %s as %s: %w", pennkey, role, err)
		}
		return nil
	}

	enrollInstructors := func(target *model.Section, relatedSection bool) error {
		instructors, err := s.sections.Instructors(ctx, target.SectionCode)
		if err != nil {
			return err
		}
		for _, instructor := range instructors {
			if err := enrollInto(target, relatedSection, instructor.Pennkey, model.RoleInstructor); err != nil {
				return err
			}
		}
		return nil
	}

	if err := enrollInstructors(section, false); err != nil {
		return err
	}
	for _, rel := range related {
		if err := enrollInstructors(rel, true); err != nil {
			return err
		}
	}

	additional, err := s.requests.AdditionalEnrollments(ctx, request.SectionCode)
	if err != nil {
		return err
	}
	for _, enrollment := range additional {
		if err := enrollInto(section, false, enrollment.Pennkey, enrollment.Role); err != nil {
			return err
		}
	}

	autoAdds, err := s.autoAdds.ListFor(ctx, section.SchoolCode, section.SubjectCode)
	if err != nil {
		return err
	}
	for _, rule := range autoAdds {
		if err := enrollInto(section, false, rule.Pennkey, rule.Role); err != nil {
			return err
		}
	}
	return nil
}

// copyContent runs the course copy and waits for it to finish, then strips
// artifacts that never belong in a fresh site: stale Zoom calendar events
// and, when the requester asked, old announcements. The source course is
// cleared afterwards so a retry of a later failing step does not copy twice.
func (s *BuilderService) copyContent(ctx context.Context, course *canvas.Course, request *model.Request) error {
	migration, err := s.canvas.StartCourseCopy(ctx, course.ID, *request.CopyFromCourse)
	if err != nil {
		return fmt.Errorf("start course copy: %w", err)
	}

	backoff := retry.WithMaxRetries(migrationMaxPolls, retry.NewConstant(migrationPollInterval))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		state, err := s.canvas.MigrationState(ctx, course.ID, migration.ID)
		if err != nil {
			if canvas.IsTransient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		switch state {
		case canvas.MigrationComplete:
			return nil
		case canvas.MigrationQueued, canvas.MigrationRunning:
			return retry.RetryableError(errMigrationRunning)
		default:
			return fmt.Errorf("course copy ended in state %q", state)
		}
	})
	if err != nil {
		return fmt.Errorf("course copy from %d: %w", *request.CopyFromCourse, err)
	}

	if err := s.deleteZoomEvents(ctx, course.ID); err != nil {
		return err
	}
	if request.ExcludeAnnouncements {
		if err := s.deleteAnnouncements(ctx, course.ID); err != nil {
			return err
		}
	}
	if err := s.requests.ClearCopyFromCourse(ctx, request.SectionCode); err != nil {
		return err
	}
	return nil
}

func (s *BuilderService) deleteZoomEvents(ctx context.Context, courseID int64) error {
	events, err := s.canvas.ListCalendarEvents(ctx, courseID)
	if err != nil {
		return fmt.Errorf("list calendar events: %w", err)
	}
	for _, event := range events {
		if !event.IsZoomEvent() {
			continue
		}
		if err := s.canvas.DeleteCalendarEvent(ctx, event.ID, "Content migration"); err != nil {
			return fmt.Errorf("delete calendar event %d: %w", event.ID, err)
		}
		s.logger.Info("Deleted migrated Zoom event", zap.Int64("event_id", event.ID), zap.String("title", event.Title))
	}
	return nil
}

func (s *BuilderService) deleteAnnouncements(ctx context.Context, courseID int64) error {
	topics, err := s.canvas.ListAnnouncements(ctx, courseID)
	if err != nil {
		return fmt.Errorf("list announcements: %w", err)
	}
	for _, topic := range topics {
		if err := s.canvas.DeleteAnnouncement(ctx, courseID, topic.ID); err != nil {
			return fmt.Errorf("delete announcement %d: %w", topic.ID, err)
		}
	}
	return nil
}
