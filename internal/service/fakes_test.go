package service

import (
	"context"
	"fmt"

	"github.com/cwsupport/crf-provisioner/internal/canvas"
	"github.com/cwsupport/crf-provisioner/internal/model"
	"github.com/cwsupport/crf-provisioner/internal/warehouse"
)

// In-memory stand-ins for the repositories and gateways. They mirror the
// persistence semantics the services rely on: copy-on-read, requested-flag
// bookkeeping on request creation and deletion.

type fakeSchoolStore struct {
	schools map[string]*model.School
}

func newFakeSchoolStore() *fakeSchoolStore {
	return &fakeSchoolStore{schools: map[string]*model.School{}}
}

func (f *fakeSchoolStore) Upsert(_ context.Context, school *model.School) error {
	clone := *school
	f.schools[school.SchoolCode] = &clone
	return nil
}

func (f *fakeSchoolStore) Get(_ context.Context, schoolCode string) (*model.School, error) {
	school, ok := f.schools[schoolCode]
	if !ok {
		return nil, nil
	}
	clone := *school
	return &clone, nil
}

func (f *fakeSchoolStore) SetSubAccount(_ context.Context, schoolCode string, subAccountID int64) error {
	if school, ok := f.schools[schoolCode]; ok {
		school.CanvasSubAccountID = &subAccountID
	}
	return nil
}

type fakeSubjectStore struct {
	subjects map[string]*model.Subject
}

func newFakeSubjectStore() *fakeSubjectStore {
	return &fakeSubjectStore{subjects: map[string]*model.Subject{}}
}

func (f *fakeSubjectStore) Upsert(_ context.Context, subject *model.Subject) error {
	clone := *subject
	f.subjects[subject.SubjectCode] = &clone
	return nil
}

func (f *fakeSubjectStore) Get(_ context.Context, subjectCode string) (*model.Subject, error) {
	subject, ok := f.subjects[subjectCode]
	if !ok {
		return nil, nil
	}
	clone := *subject
	return &clone, nil
}

type fakeScheduleTypeStore struct {
	types map[string]*model.ScheduleType
}

func newFakeScheduleTypeStore() *fakeScheduleTypeStore {
	return &fakeScheduleTypeStore{types: map[string]*model.ScheduleType{}}
}

func (f *fakeScheduleTypeStore) Upsert(_ context.Context, scheduleType *model.ScheduleType) error {
	clone := *scheduleType
	f.types[scheduleType.SchedTypeCode] = &clone
	return nil
}

func (f *fakeScheduleTypeStore) Get(_ context.Context, code string) (*model.ScheduleType, error) {
	scheduleType, ok := f.types[code]
	if !ok {
		return nil, nil
	}
	clone := *scheduleType
	return &clone, nil
}

type fakeUserStore struct {
	users map[string]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*model.User{}}
}

func (f *fakeUserStore) Upsert(_ context.Context, user *model.User) error {
	clone := *user
	f.users[user.Pennkey] = &clone
	return nil
}

func (f *fakeUserStore) GetByPennkey(_ context.Context, pennkey string) (*model.User, error) {
	user, ok := f.users[pennkey]
	if !ok {
		return nil, nil
	}
	clone := *user
	return &clone, nil
}

type fakeSectionStore struct {
	users *fakeUserStore

	sections       map[string]*model.Section
	order          []string
	instructors    map[string][]string
	alsoOfferedAs  map[string][]string
	courseSections map[string][]string
}

func newFakeSectionStore(users *fakeUserStore) *fakeSectionStore {
	return &fakeSectionStore{
		users:          users,
		sections:       map[string]*model.Section{},
		instructors:    map[string][]string{},
		alsoOfferedAs:  map[string][]string{},
		courseSections: map[string][]string{},
	}
}

func (f *fakeSectionStore) Upsert(_ context.Context, section *model.Section) error {
	clone := *section
	if existing, ok := f.sections[section.SectionCode]; ok {
		clone.Requested = existing.Requested
		clone.RequestedOverride = existing.RequestedOverride
		clone.PrimaryCrosslist = existing.PrimaryCrosslist
		clone.MultisectionRequest = existing.MultisectionRequest
		clone.CrosslistedRequest = existing.CrosslistedRequest
	} else {
		f.order = append(f.order, section.SectionCode)
	}
	f.sections[section.SectionCode] = &clone
	return nil
}

func (f *fakeSectionStore) Get(_ context.Context, sectionCode string) (*model.Section, error) {
	section, ok := f.sections[sectionCode]
	if !ok {
		return nil, nil
	}
	clone := *section
	return &clone, nil
}

func (f *fakeSectionStore) GetByID(_ context.Context, sectionID string, term int) (*model.Section, error) {
	for _, section := range f.sections {
		if section.SectionID == sectionID && section.Term == term {
			clone := *section
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeSectionStore) Delete(_ context.Context, sectionCode string) error {
	delete(f.sections, sectionCode)
	for i, code := range f.order {
		if code == sectionCode {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeSectionStore) ReplaceInstructors(_ context.Context, sectionCode string, pennkeys []string) error {
	f.instructors[sectionCode] = pennkeys
	return nil
}

func (f *fakeSectionStore) ReplaceAlsoOfferedAs(_ context.Context, sectionCode string, relatedCodes []string) error {
	f.alsoOfferedAs[sectionCode] = relatedCodes
	return nil
}

func (f *fakeSectionStore) ReplaceCourseSections(_ context.Context, sectionCode string, relatedCodes []string) error {
	f.courseSections[sectionCode] = relatedCodes
	return nil
}

func (f *fakeSectionStore) Instructors(_ context.Context, sectionCode string) ([]model.User, error) {
	var users []model.User
	for _, pennkey := range f.instructors[sectionCode] {
		if user, ok := f.users.users[pennkey]; ok {
			users = append(users, *user)
			continue
		}
		users = append(users, model.User{Pennkey: pennkey})
	}
	return users, nil
}

func (f *fakeSectionStore) CourseSectionCodes(_ context.Context, sectionCode string) ([]string, error) {
	return f.courseSections[sectionCode], nil
}

func (f *fakeSectionStore) AlsoOfferedAsCodes(_ context.Context, sectionCode string) ([]string, error) {
	return f.alsoOfferedAs[sectionCode], nil
}

func (f *fakeSectionStore) ListByTerm(_ context.Context, term int) ([]model.Section, error) {
	var sections []model.Section
	for _, code := range f.order {
		if section := f.sections[code]; section.Term == term {
			sections = append(sections, *section)
		}
	}
	return sections, nil
}

func (f *fakeSectionStore) ListUnrequested(_ context.Context, term int, schoolCode string) ([]model.Section, error) {
	var sections []model.Section
	for _, code := range f.order {
		section := f.sections[code]
		if section.Term != term || section.Requested || section.RequestedOverride || section.PrimaryCrosslist != "" {
			continue
		}
		if schoolCode != "" && section.SchoolCode != schoolCode {
			continue
		}
		sections = append(sections, *section)
	}
	return sections, nil
}

func (f *fakeSectionStore) SetRequested(_ context.Context, sectionCode string, requested bool) error {
	if section, ok := f.sections[sectionCode]; ok {
		section.Requested = requested
	}
	return nil
}

func (f *fakeSectionStore) SetRequestRefs(_ context.Context, requestSectionCode string, sectionCodes []string, crosslisted bool) error {
	for _, code := range sectionCodes {
		section, ok := f.sections[code]
		if !ok {
			continue
		}
		section.Requested = true
		if crosslisted {
			section.CrosslistedRequest = requestSectionCode
		} else {
			section.MultisectionRequest = requestSectionCode
		}
	}
	return nil
}

type fakeRequestStore struct {
	sections *fakeSectionStore

	requests    map[string]*model.Request
	enrollments map[string][]model.SectionEnrollment
}

func newFakeRequestStore(sections *fakeSectionStore) *fakeRequestStore {
	return &fakeRequestStore{
		sections:    sections,
		requests:    map[string]*model.Request{},
		enrollments: map[string][]model.SectionEnrollment{},
	}
}

func (f *fakeRequestStore) Create(ctx context.Context, request *model.Request) error {
	clone := *request
	f.requests[request.SectionCode] = &clone
	f.sections.SetRequested(ctx, request.SectionCode, true)
	for _, code := range request.IncludedSections {
		f.sections.SetRequested(ctx, code, true)
	}
	return nil
}

func (f *fakeRequestStore) Get(_ context.Context, sectionCode string) (*model.Request, error) {
	request, ok := f.requests[sectionCode]
	if !ok {
		return nil, nil
	}
	clone := *request
	return &clone, nil
}

func (f *fakeRequestStore) ListByStatus(_ context.Context, status model.RequestStatus) ([]model.Request, error) {
	var requests []model.Request
	for _, request := range f.requests {
		if request.Status == status {
			requests = append(requests, *request)
		}
	}
	return requests, nil
}

func (f *fakeRequestStore) SetStatus(_ context.Context, sectionCode string, status model.RequestStatus) error {
	request, ok := f.requests[sectionCode]
	if !ok {
		return fmt.Errorf("request %s not found", sectionCode)
	}
	request.Status = status
	return nil
}

func (f *fakeRequestStore) ClaimApproved(_ context.Context, sectionCode string) (bool, error) {
	request, ok := f.requests[sectionCode]
	if !ok || request.Status != model.StatusApproved {
		return false, nil
	}
	request.Status = model.StatusInProcess
	return true, nil
}

func (f *fakeRequestStore) AppendProcessNote(_ context.Context, sectionCode, note string) error {
	request, ok := f.requests[sectionCode]
	if !ok {
		return fmt.Errorf("request %s not found", sectionCode)
	}
	request.AppendProcessNote(note)
	return nil
}

func (f *fakeRequestStore) ClearProcessNotes(_ context.Context, sectionCode string) error {
	if request, ok := f.requests[sectionCode]; ok {
		request.ProcessNotes = ""
	}
	return nil
}

func (f *fakeRequestStore) ClearCopyFromCourse(_ context.Context, sectionCode string) error {
	if request, ok := f.requests[sectionCode]; ok {
		request.CopyFromCourse = nil
	}
	return nil
}

func (f *fakeRequestStore) Delete(ctx context.Context, sectionCode string) error {
	request, ok := f.requests[sectionCode]
	if !ok {
		return nil
	}
	f.sections.SetRequested(ctx, sectionCode, false)
	for _, code := range request.IncludedSections {
		f.sections.SetRequested(ctx, code, false)
	}
	for _, section := range f.sections.sections {
		if section.MultisectionRequest == sectionCode || section.CrosslistedRequest == sectionCode {
			section.MultisectionRequest = ""
			section.CrosslistedRequest = ""
			section.Requested = false
		}
	}
	delete(f.requests, sectionCode)
	return nil
}

func (f *fakeRequestStore) AdditionalEnrollments(_ context.Context, sectionCode string) ([]model.SectionEnrollment, error) {
	return f.enrollments[sectionCode], nil
}

func (f *fakeRequestStore) AddEnrollment(_ context.Context, enrollment *model.SectionEnrollment) error {
	code := enrollment.RequestSectionCode
	f.enrollments[code] = append(f.enrollments[code], *enrollment)
	return nil
}

type fakeAutoAddStore struct {
	rules []model.AutoAdd
}

func (f *fakeAutoAddStore) ListFor(_ context.Context, schoolCode, subjectCode string) ([]model.AutoAdd, error) {
	var matched []model.AutoAdd
	for _, rule := range f.rules {
		if rule.SchoolCode == schoolCode && rule.SubjectCode == subjectCode {
			matched = append(matched, rule)
		}
	}
	return matched, nil
}

type fakeWarehouse struct {
	err error

	scheduleTypes []warehouse.ScheduleTypeRow
	schools       []warehouse.SchoolRow
	subjects      []warehouse.SubjectRow
	sections      []warehouse.SectionRow
	instructors   map[string][]warehouse.InstructorRow
	xlistFamilies map[string][]string
	courses       map[string][]string
	people        map[string]*warehouse.Person
}

func (f *fakeWarehouse) ScheduleTypes(context.Context) ([]warehouse.ScheduleTypeRow, error) {
	return f.scheduleTypes, f.err
}

func (f *fakeWarehouse) ScheduleType(_ context.Context, code string) ([]warehouse.ScheduleTypeRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	var rows []warehouse.ScheduleTypeRow
	for _, row := range f.scheduleTypes {
		if row.SchedTypeCode == code {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (f *fakeWarehouse) Schools(context.Context) ([]warehouse.SchoolRow, error) {
	return f.schools, f.err
}

func (f *fakeWarehouse) School(_ context.Context, schoolCode string) ([]warehouse.SchoolRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	var rows []warehouse.SchoolRow
	for _, row := range f.schools {
		if row.SchoolCode == schoolCode {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (f *fakeWarehouse) Subjects(context.Context) ([]warehouse.SubjectRow, error) {
	return f.subjects, f.err
}

func (f *fakeWarehouse) Subject(_ context.Context, subjectCode string) ([]warehouse.SubjectRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	var rows []warehouse.SubjectRow
	for _, row := range f.subjects {
		if row.SubjectCode == subjectCode {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (f *fakeWarehouse) Sections(_ context.Context, terms []int) ([]warehouse.SectionRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	var rows []warehouse.SectionRow
	for _, row := range f.sections {
		for _, term := range terms {
			if row.Term == term {
				rows = append(rows, row)
			}
		}
	}
	return rows, nil
}

func (f *fakeWarehouse) SectionByID(_ context.Context, sectionID string, term int) ([]warehouse.SectionRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	var rows []warehouse.SectionRow
	for _, row := range f.sections {
		if row.SectionID == sectionID && row.Term == term {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (f *fakeWarehouse) Instructors(_ context.Context, sectionID string, term int) ([]warehouse.InstructorRow, error) {
	return f.instructors[fmt.Sprintf("%s%d", sectionID, term)], f.err
}

func (f *fakeWarehouse) XlistFamilySectionIDs(_ context.Context, xlistFamily string) ([]string, error) {
	return f.xlistFamilies[xlistFamily], f.err
}

func (f *fakeWarehouse) CourseSectionIDs(_ context.Context, term int, courseID, sectionID string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var ids []string
	for _, id := range f.courses[courseID] {
		if id != sectionID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeWarehouse) FindUserByPennkey(_ context.Context, pennkey string) (*warehouse.Person, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.people[pennkey], nil
}

func (f *fakeWarehouse) FindUserByPennID(_ context.Context, pennID int64) (*warehouse.Person, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, person := range f.people {
		if person.PennID != nil && *person.PennID == pennID {
			return person, nil
		}
	}
	return nil, nil
}

type fakeEnrollment struct {
	CourseID        int64
	UserID          int64
	Type            string
	CourseSectionID int64
	RoleID          int64
}

type fakeTabUpdate struct {
	CourseID int64
	TabID    string
	Hidden   bool
	Position int
}

type fakeCourseCopy struct {
	CourseID       int64
	SourceCourseID int64
}

type fakeCanvas struct {
	subAccounts []canvas.Account
	termIDs     map[int]int64

	usersBySIS   map[string]*canvas.User
	createdUsers []string
	nextUserID   int64

	coursesBySIS    map[string]*canvas.Course
	courseAccounts  map[int64]int64
	courseParams    map[int64]canvas.CourseParams
	updatedCourses  map[int64]canvas.CourseParams
	published       []int64
	nextCourseID    int64
	createCourseErr error

	sectionsByCourse map[int64][]canvas.CourseSection
	nextSectionID    int64
	createSectionErr map[string]error

	enrollments []fakeEnrollment

	tabs        map[int64][]canvas.Tab
	tabUpdates  []fakeTabUpdate
	listTabsErr error

	courseCopies    []fakeCourseCopy
	migrationStates []string

	calendarEvents       map[int64][]canvas.CalendarEvent
	deletedEvents        []int64
	eventCancelReasons   map[int64]string
	announcements        map[int64][]canvas.DiscussionTopic
	deletedAnnouncements []int64
}

func newFakeCanvas() *fakeCanvas {
	return &fakeCanvas{
		termIDs:            map[int]int64{},
		usersBySIS:         map[string]*canvas.User{},
		coursesBySIS:       map[string]*canvas.Course{},
		courseAccounts:     map[int64]int64{},
		courseParams:       map[int64]canvas.CourseParams{},
		updatedCourses:     map[int64]canvas.CourseParams{},
		sectionsByCourse:   map[int64][]canvas.CourseSection{},
		createSectionErr:   map[string]error{},
		tabs:               map[int64][]canvas.Tab{},
		calendarEvents:     map[int64][]canvas.CalendarEvent{},
		eventCancelReasons: map[int64]string{},
		announcements:      map[int64][]canvas.DiscussionTopic{},
		nextUserID:         100,
		nextCourseID:       1000,
		nextSectionID:      5000,
	}
}

func (f *fakeCanvas) SubAccounts(context.Context) ([]canvas.Account, error) {
	return f.subAccounts, nil
}

func (f *fakeCanvas) TermID(_ context.Context, term int) (int64, error) {
	if id, ok := f.termIDs[term]; ok {
		return id, nil
	}
	return 41, nil
}

func (f *fakeCanvas) GetUserBySISLogin(_ context.Context, loginID string) (*canvas.User, error) {
	return f.usersBySIS[loginID], nil
}

func (f *fakeCanvas) CreateUser(_ context.Context, pennkey string, _ *int64, fullName, _ string) (*canvas.User, error) {
	f.nextUserID++
	user := &canvas.User{ID: f.nextUserID, Name: fullName}
	f.usersBySIS[pennkey] = user
	f.createdUsers = append(f.createdUsers, pennkey)
	return user, nil
}

func (f *fakeCanvas) CreateCourse(_ context.Context, accountID int64, params canvas.CourseParams) (*canvas.Course, error) {
	if f.createCourseErr != nil {
		return nil, f.createCourseErr
	}
	if _, exists := f.coursesBySIS[params.SISCourseID]; exists {
		return nil, &canvas.APIError{StatusCode: 400, Message: "sis id already in use"}
	}
	f.nextCourseID++
	course := &canvas.Course{ID: f.nextCourseID, Name: params.Name, SISCourseID: params.SISCourseID}
	f.coursesBySIS[params.SISCourseID] = course
	f.courseAccounts[course.ID] = accountID
	f.courseParams[course.ID] = params
	return course, nil
}

func (f *fakeCanvas) GetCourseBySISID(_ context.Context, sisID string) (*canvas.Course, error) {
	course, ok := f.coursesBySIS[sisID]
	if !ok {
		return nil, &canvas.APIError{StatusCode: 404, Message: "course not found"}
	}
	clone := *course
	return &clone, nil
}

func (f *fakeCanvas) UpdateCourse(_ context.Context, courseID int64, params canvas.CourseParams) error {
	f.updatedCourses[courseID] = params
	return nil
}

func (f *fakeCanvas) PublishCourse(_ context.Context, courseID int64) error {
	f.published = append(f.published, courseID)
	return nil
}

func (f *fakeCanvas) CreateSection(_ context.Context, courseID int64, name, sisID string) (*canvas.CourseSection, error) {
	if err := f.createSectionErr[sisID]; err != nil {
		return nil, err
	}
	for _, existing := range f.sectionsByCourse[courseID] {
		if existing.SISSectionID == sisID {
			return nil, &canvas.APIError{StatusCode: 400, Message: "sis id already in use"}
		}
	}
	f.nextSectionID++
	section := canvas.CourseSection{ID: f.nextSectionID, Name: name, SISSectionID: sisID}
	f.sectionsByCourse[courseID] = append(f.sectionsByCourse[courseID], section)
	return &section, nil
}

func (f *fakeCanvas) GetSectionBySISID(_ context.Context, sisID string) (*canvas.CourseSection, error) {
	for _, sections := range f.sectionsByCourse {
		for _, section := range sections {
			if section.SISSectionID == sisID {
				clone := section
				return &clone, nil
			}
		}
	}
	return nil, nil
}

func (f *fakeCanvas) ListSections(_ context.Context, courseID int64) ([]canvas.CourseSection, error) {
	return f.sectionsByCourse[courseID], nil
}

func (f *fakeCanvas) EnrollUser(_ context.Context, courseID, userID int64, enrollmentType string, opts canvas.EnrollmentOptions) error {
	f.enrollments = append(f.enrollments, fakeEnrollment{
		CourseID:        courseID,
		UserID:          userID,
		Type:            enrollmentType,
		CourseSectionID: opts.CourseSectionID,
		RoleID:          opts.RoleID,
	})
	return nil
}

func (f *fakeCanvas) ListTabs(_ context.Context, courseID int64) ([]canvas.Tab, error) {
	return f.tabs[courseID], f.listTabsErr
}

func (f *fakeCanvas) UpdateTab(_ context.Context, courseID int64, tabID string, hidden bool, position int) error {
	f.tabUpdates = append(f.tabUpdates, fakeTabUpdate{CourseID: courseID, TabID: tabID, Hidden: hidden, Position: position})
	return nil
}

func (f *fakeCanvas) StartCourseCopy(_ context.Context, courseID, sourceCourseID int64) (*canvas.ContentMigration, error) {
	f.courseCopies = append(f.courseCopies, fakeCourseCopy{CourseID: courseID, SourceCourseID: sourceCourseID})
	return &canvas.ContentMigration{ID: int64(len(f.courseCopies))}, nil
}

func (f *fakeCanvas) MigrationState(context.Context, int64, int64) (string, error) {
	if len(f.migrationStates) == 0 {
		return canvas.MigrationComplete, nil
	}
	state := f.migrationStates[0]
	f.migrationStates = f.migrationStates[1:]
	return state, nil
}

func (f *fakeCanvas) ListCalendarEvents(_ context.Context, courseID int64) ([]canvas.CalendarEvent, error) {
	return f.calendarEvents[courseID], nil
}

func (f *fakeCanvas) DeleteCalendarEvent(_ context.Context, eventID int64, cancelReason string) error {
	f.deletedEvents = append(f.deletedEvents, eventID)
	f.eventCancelReasons[eventID] = cancelReason
	return nil
}

func (f *fakeCanvas) ListAnnouncements(_ context.Context, courseID int64) ([]canvas.DiscussionTopic, error) {
	return f.announcements[courseID], nil
}

func (f *fakeCanvas) DeleteAnnouncement(_ context.Context, _ int64, topicID int64) error {
	f.deletedAnnouncements = append(f.deletedAnnouncements, topicID)
	return nil
}
