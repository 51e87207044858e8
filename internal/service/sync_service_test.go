package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cwsupport/crf-provisioner/internal/canvas"
	"github.com/cwsupport/crf-provisioner/internal/model"
	"github.com/cwsupport/crf-provisioner/internal/warehouse"
)

type syncFixture struct {
	warehouse *fakeWarehouse
	canvas    *fakeCanvas
	schools   *fakeSchoolStore
	subjects  *fakeSubjectStore
	types     *fakeScheduleTypeStore
	users     *fakeUserStore
	sections  *fakeSectionStore
	sync      *SyncService
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()

	wh := &fakeWarehouse{
		instructors:   map[string][]warehouse.InstructorRow{},
		xlistFamilies: map[string][]string{},
		courses:       map[string][]string{},
		people:        map[string]*warehouse.Person{},
	}
	cv := newFakeCanvas()
	schools := newFakeSchoolStore()
	subjects := newFakeSubjectStore()
	types := newFakeScheduleTypeStore()
	users := newFakeUserStore()
	sections := newFakeSectionStore(users)

	return &syncFixture{
		warehouse: wh,
		canvas:    cv,
		schools:   schools,
		subjects:  subjects,
		types:     types,
		users:     users,
		sections:  sections,
		sync:      NewSyncService(wh, cv, schools, subjects, types, users, sections, zap.NewNop()),
	}
}

func historyRow() warehouse.SectionRow {
	return warehouse.SectionRow{
		SectionCode:   "HIST1700001202510",
		SectionID:     "HIST1700001",
		SchoolCode:    "A",
		SubjectCode:   "HIST",
		CourseNum:     "1700",
		SectionNum:    "001",
		Term:          202510,
		Title:         "American Capitalism",
		SchedTypeCode: "LEC",
		SectionStatus: "A",
		CourseID:      "HIST1700",
	}
}

func (f *syncFixture) seedCatalog() {
	f.warehouse.schools = []warehouse.SchoolRow{{SchoolCode: "A", SchoolDescLong: "School of Arts & Sciences"}}
	f.warehouse.subjects = []warehouse.SubjectRow{{SubjectCode: "HIST", SubjectDescLong: "History", SchoolCode: "A"}}
	f.warehouse.scheduleTypes = []warehouse.ScheduleTypeRow{{SchedTypeCode: "LEC", SchedTypeDesc: "Lecture"}}
	f.canvas.subAccounts = []canvas.Account{{ID: 78, Name: "School of Arts and Sciences"}}
}

func TestSyncService_SyncSchools(t *testing.T) {
	f := newSyncFixture(t)
	f.warehouse.schools = []warehouse.SchoolRow{
		{SchoolCode: "A", SchoolDescLong: "School of Arts & Sciences"},
		{SchoolCode: "V", SchoolDescLong: "School of Veterinary Medicine"},
		{SchoolCode: "L", SchoolDescLong: "Law School"},
	}
	f.canvas.subAccounts = []canvas.Account{
		{ID: 78, Name: "School of Arts and Sciences"},
		{ID: 132, Name: "Penn Vet"},
	}

	require.NoError(t, f.sync.SyncSchools(context.Background()))

	sas, _ := f.schools.Get(context.Background(), "A")
	require.NotNil(t, sas)
	require.NotNil(t, sas.CanvasSubAccountID)
	assert.Equal(t, int64(78), *sas.CanvasSubAccountID)

	// Vet is named differently in Canvas.
	vet, _ := f.schools.Get(context.Background(), "V")
	require.NotNil(t, vet)
	require.NotNil(t, vet.CanvasSubAccountID)
	assert.Equal(t, int64(132), *vet.CanvasSubAccountID)

	// Law runs its own instance and is never stored.
	law, _ := f.schools.Get(context.Background(), "L")
	assert.Nil(t, law)
}

func TestSyncService_SyncSchools_PreservesVisibility(t *testing.T) {
	f := newSyncFixture(t)
	f.schools.schools["A"] = &model.School{SchoolCode: "A", SchoolDescLong: "School of Arts & Sciences", Visible: false}
	f.warehouse.schools = []warehouse.SchoolRow{{SchoolCode: "A", SchoolDescLong: "School of Arts & Sciences"}}

	require.NoError(t, f.sync.SyncSchools(context.Background()))

	school, _ := f.schools.Get(context.Background(), "A")
	assert.False(t, school.Visible)
}

func TestSyncService_SyncSubjects_InheritsSchoolVisibility(t *testing.T) {
	f := newSyncFixture(t)
	f.seedCatalog()
	f.schools.schools["A"] = &model.School{SchoolCode: "A", SchoolDescLong: "School of Arts & Sciences", Visible: false}

	require.NoError(t, f.sync.SyncSubjects(context.Background()))

	subject, _ := f.subjects.Get(context.Background(), "HIST")
	require.NotNil(t, subject)
	assert.False(t, subject.Visible)
	assert.Equal(t, "A", subject.SchoolCode)
}

func TestSyncService_SyncSections(t *testing.T) {
	f := newSyncFixture(t)
	f.seedCatalog()
	f.warehouse.sections = []warehouse.SectionRow{historyRow()}
	f.warehouse.instructors["HIST1700001202510"] = []warehouse.InstructorRow{
		{Pennkey: "lincoln", FirstName: "Abe", LastName: "Lincoln", Email: "lincoln@upenn.edu"},
	}

	require.NoError(t, f.sync.SyncSections(context.Background(), []int{202510}))

	section, _ := f.sections.Get(context.Background(), "HIST1700001202510")
	require.NotNil(t, section)
	assert.Equal(t, "HIST", section.SubjectCode)
	assert.Equal(t, "HIST", section.PrimarySubjectCode)

	// Catalog dependencies were pulled on demand.
	school, _ := f.schools.Get(context.Background(), "A")
	assert.NotNil(t, school)
	subject, _ := f.subjects.Get(context.Background(), "HIST")
	assert.NotNil(t, subject)

	assert.Equal(t, []string{"lincoln"}, f.sections.instructors["HIST1700001202510"])
	user, _ := f.users.GetByPennkey(context.Background(), "lincoln")
	require.NotNil(t, user)
	assert.Equal(t, "lincoln@upenn.edu", user.Email)
}

func TestSyncService_SyncSections_DeletesInactive(t *testing.T) {
	f := newSyncFixture(t)
	f.seedCatalog()
	f.sections.Upsert(context.Background(), historySection())

	row := historyRow()
	row.SectionStatus = "X"
	f.warehouse.sections = []warehouse.SectionRow{row}

	require.NoError(t, f.sync.SyncSections(context.Background(), []int{202510}))

	section, _ := f.sections.Get(context.Background(), "HIST1700001202510")
	assert.Nil(t, section)
}

func TestSyncService_SyncSections_ResolvesPrimarySection(t *testing.T) {
	f := newSyncFixture(t)
	f.seedCatalog()

	primary := historyRow()
	child := historyRow()
	child.SectionCode = "HIST1700201202510"
	child.SectionID = "HIST1700201"
	child.SectionNum = "201"
	child.PrimarySectionID = "HIST1700001"

	// Only the child arrives in this batch; the primary is pulled by id.
	f.warehouse.sections = []warehouse.SectionRow{child, primary}
	require.NoError(t, f.sync.SyncSection(context.Background(), "HIST1700201", 202510, true))

	stored, _ := f.sections.Get(context.Background(), "HIST1700201202510")
	require.NotNil(t, stored)
	assert.Equal(t, "HIST1700001202510", stored.PrimarySectionCode)

	// The primary itself was stored along the way.
	storedPrimary, _ := f.sections.Get(context.Background(), "HIST1700001202510")
	assert.NotNil(t, storedPrimary)
}

func TestSyncService_SyncSections_CrosslistFamily(t *testing.T) {
	f := newSyncFixture(t)
	f.seedCatalog()
	f.warehouse.subjects = append(f.warehouse.subjects,
		warehouse.SubjectRow{SubjectCode: "AFRC", SubjectDescLong: "Africana Studies", SchoolCode: "A"},
	)

	main := historyRow()
	main.XlistFamily = "X123"
	twin := historyRow()
	twin.SectionCode = "AFRC1700001202510"
	twin.SectionID = "AFRC1700001"
	twin.SubjectCode = "AFRC"
	twin.XlistFamily = "X123"
	twin.CourseID = "AFRC1700"

	f.warehouse.sections = []warehouse.SectionRow{main, twin}
	f.warehouse.xlistFamilies["X123"] = []string{"HIST1700001", "AFRC1700001"}

	require.NoError(t, f.sync.SyncSection(context.Background(), "HIST1700001", 202510, true))

	assert.Equal(t, []string{"AFRC1700001202510"}, f.sections.alsoOfferedAs["HIST1700001202510"])
}

func TestSyncService_SweepCanceled(t *testing.T) {
	f := newSyncFixture(t)
	f.seedCatalog()

	f.sections.Upsert(context.Background(), historySection())
	gone := historySection()
	gone.SectionCode = "HIST1700201202510"
	gone.SectionID = "HIST1700201"
	gone.SectionNum = "201"
	f.sections.Upsert(context.Background(), gone)

	// Only the first section is still active in the warehouse.
	f.warehouse.sections = []warehouse.SectionRow{historyRow()}

	require.NoError(t, f.sync.SweepCanceled(context.Background(), []int{202510}))

	kept, _ := f.sections.Get(context.Background(), "HIST1700001202510")
	assert.NotNil(t, kept)
	deleted, _ := f.sections.Get(context.Background(), "HIST1700201202510")
	assert.Nil(t, deleted)
}

func TestSyncService_SyncAll_WarehouseOutage(t *testing.T) {
	f := newSyncFixture(t)
	f.warehouse.err = &warehouse.UnavailableError{Err: errors.New("connection refused")}

	err := f.sync.SyncAll(context.Background(), []int{202510})
	require.Error(t, err)
	assert.True(t, warehouse.IsUnavailable(err))
}
