package service

import (
	"context"

	"github.com/cwsupport/crf-provisioner/internal/canvas"
	"github.com/cwsupport/crf-provisioner/internal/model"
	"github.com/cwsupport/crf-provisioner/internal/warehouse"
)

// The interfaces below are the seams between the services and their
// collaborators. The pgx repositories and the warehouse and Canvas clients
// satisfy them; tests substitute in-memory fakes.

type SchoolStore interface {
	Upsert(ctx context.Context, school *model.School) error
	Get(ctx context.Context, schoolCode string) (*model.School, error)
	SetSubAccount(ctx context.Context, schoolCode string, subAccountID int64) error
}

type SubjectStore interface {
	Upsert(ctx context.Context, subject *model.Subject) error
	Get(ctx context.Context, subjectCode string) (*model.Subject, error)
}

type ScheduleTypeStore interface {
	Upsert(ctx context.Context, scheduleType *model.ScheduleType) error
	Get(ctx context.Context, code string) (*model.ScheduleType, error)
}

type UserStore interface {
	Upsert(ctx context.Context, user *model.User) error
	GetByPennkey(ctx context.Context, pennkey string) (*model.User, error)
}

type SectionStore interface {
	Upsert(ctx context.Context, section *model.Section) error
	Get(ctx context.Context, sectionCode string) (*model.Section, error)
	GetByID(ctx context.Context, sectionID string, term int) (*model.Section, error)
	Delete(ctx context.Context, sectionCode string) error
	ReplaceInstructors(ctx context.Context, sectionCode string, pennkeys []string) error
	ReplaceAlsoOfferedAs(ctx context.Context, sectionCode string, relatedCodes []string) error
	ReplaceCourseSections(ctx context.Context, sectionCode string, relatedCodes []string) error
	Instructors(ctx context.Context, sectionCode string) ([]model.User, error)
	CourseSectionCodes(ctx context.Context, sectionCode string) ([]string, error)
	AlsoOfferedAsCodes(ctx context.Context, sectionCode string) ([]string, error)
	ListByTerm(ctx context.Context, term int) ([]model.Section, error)
	ListUnrequested(ctx context.Context, term int, schoolCode string) ([]model.Section, error)
	SetRequested(ctx context.Context, sectionCode string, requested bool) error
	SetRequestRefs(ctx context.Context, requestSectionCode string, sectionCodes []string, crosslisted bool) error
}

type RequestStore interface {
	Create(ctx context.Context, request *model.Request) error
	Get(ctx context.Context, sectionCode string) (*model.Request, error)
	ListByStatus(ctx context.Context, status model.RequestStatus) ([]model.Request, error)
	SetStatus(ctx context.Context, sectionCode string, status model.RequestStatus) error
	ClaimApproved(ctx context.Context, sectionCode string) (bool, error)
	AppendProcessNote(ctx context.Context, sectionCode, note string) error
	ClearProcessNotes(ctx context.Context, sectionCode string) error
	ClearCopyFromCourse(ctx context.Context, sectionCode string) error
	Delete(ctx context.Context, sectionCode string) error
	AdditionalEnrollments(ctx context.Context, sectionCode string) ([]model.SectionEnrollment, error)
	AddEnrollment(ctx context.Context, enrollment *model.SectionEnrollment) error
}

type AutoAddStore interface {
	ListFor(ctx context.Context, schoolCode, subjectCode string) ([]model.AutoAdd, error)
}

// RequestCreator validates and stores new requests.
type RequestCreator interface {
	Create(ctx context.Context, request *model.Request) error
}

// SiteBuilder provisions the course site for one approved request.
type SiteBuilder interface {
	Build(ctx context.Context, sectionCode string) error
}

// Directory resolves pennkeys to Canvas user ids, creating accounts on
// demand.
type Directory interface {
	GetCanvasID(ctx context.Context, pennkey string) (int64, error)
}

// Warehouse is the read-only Student Records gateway.
type Warehouse interface {
	ScheduleTypes(ctx context.Context) ([]warehouse.ScheduleTypeRow, error)
	ScheduleType(ctx context.Context, code string) ([]warehouse.ScheduleTypeRow, error)
	Schools(ctx context.Context) ([]warehouse.SchoolRow, error)
	School(ctx context.Context, schoolCode string) ([]warehouse.SchoolRow, error)
	Subjects(ctx context.Context) ([]warehouse.SubjectRow, error)
	Subject(ctx context.Context, subjectCode string) ([]warehouse.SubjectRow, error)
	Sections(ctx context.Context, terms []int) ([]warehouse.SectionRow, error)
	SectionByID(ctx context.Context, sectionID string, term int) ([]warehouse.SectionRow, error)
	Instructors(ctx context.Context, sectionID string, term int) ([]warehouse.InstructorRow, error)
	XlistFamilySectionIDs(ctx context.Context, xlistFamily string) ([]string, error)
	CourseSectionIDs(ctx context.Context, term int, courseID, sectionID string) ([]string, error)
	FindUserByPennkey(ctx context.Context, pennkey string) (*warehouse.Person, error)
	FindUserByPennID(ctx context.Context, pennID int64) (*warehouse.Person, error)
}

// Canvas is the LMS gateway surface the services rely on.
type Canvas interface {
	SubAccounts(ctx context.Context) ([]canvas.Account, error)
	TermID(ctx context.Context, term int) (int64, error)

	GetUserBySISLogin(ctx context.Context, loginID string) (*canvas.User, error)
	CreateUser(ctx context.Context, pennkey string, pennID *int64, fullName, email string) (*canvas.User, error)

	CreateCourse(ctx context.Context, accountID int64, params canvas.CourseParams) (*canvas.Course, error)
	GetCourseBySISID(ctx context.Context, sisID string) (*canvas.Course, error)
	UpdateCourse(ctx context.Context, courseID int64, params canvas.CourseParams) error
	PublishCourse(ctx context.Context, courseID int64) error

	CreateSection(ctx context.Context, courseID int64, name, sisID string) (*canvas.CourseSection, error)
	GetSectionBySISID(ctx context.Context, sisID string) (*canvas.CourseSection, error)
	ListSections(ctx context.Context, courseID int64) ([]canvas.CourseSection, error)

	EnrollUser(ctx context.Context, courseID, userID int64, enrollmentType string, opts canvas.EnrollmentOptions) error

	ListTabs(ctx context.Context, courseID int64) ([]canvas.Tab, error)
	UpdateTab(ctx context.Context, courseID int64, tabID string, hidden bool, position int) error

	StartCourseCopy(ctx context.Context, courseID, sourceCourseID int64) (*canvas.ContentMigration, error)
	MigrationState(ctx context.Context, courseID, migrationID int64) (string, error)

	ListCalendarEvents(ctx context.Context, courseID int64) ([]canvas.CalendarEvent, error)
	DeleteCalendarEvent(ctx context.Context, eventID int64, cancelReason string) error

	ListAnnouncements(ctx context.Context, courseID int64) ([]canvas.DiscussionTopic, error)
	DeleteAnnouncement(ctx context.Context, courseID, topicID int64) error
}
