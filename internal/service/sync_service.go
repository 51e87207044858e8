package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cwsupport/crf-provisioner/internal/model"
	"github.com/cwsupport/crf-provisioner/internal/warehouse"
)

// SyncService reconciles the local catalog against the Student Records
// warehouse: schedule types, schools, subjects and the full section graph
// with instructors and crosslist relations.
type SyncService struct {
	warehouse     Warehouse
	canvas        Canvas
	schools       SchoolStore
	subjects      SubjectStore
	scheduleTypes ScheduleTypeStore
	users         UserStore
	sections      SectionStore
	logger        *zap.Logger
}

func NewSyncService(
	wh Warehouse,
	cv Canvas,
	schools SchoolStore,
	subjects SubjectStore,
	scheduleTypes ScheduleTypeStore,
	users UserStore,
	sections SectionStore,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		warehouse:     wh,
		canvas:        cv,
		schools:       schools,
		subjects:      subjects,
		scheduleTypes: scheduleTypes,
		users:         users,
		sections:      sections,
		logger:        logger,
	}
}

// SyncAll runs a full catalog sync for the given terms (current and next
// term when empty). A warehouse outage aborts the remaining work; per-row
// failures are logged and skipped.
func (s *SyncService) SyncAll(ctx context.Context, terms []int) error {
	if len(terms) == 0 {
		terms = model.DefaultTerms(time.Now())
	}
	if err := s.SyncScheduleTypes(ctx); err != nil {
		return err
	}
	if err := s.SyncSchools(ctx); err != nil {
		return err
	}
	if err := s.SyncSubjects(ctx); err != nil {
		return err
	}
	return s.SyncSections(ctx, terms)
}

// SyncScheduleTypes pulls every schedule type from the warehouse.
func (s *SyncService) SyncScheduleTypes(ctx context.Context) error {
	s.logger.Info("Syncing schedule types")
	rows, err := s.warehouse.ScheduleTypes(ctx)
	if err != nil {
		return fmt.Errorf("sync schedule types: %w", err)
	}
	for _, row := range rows {
		s.upsertScheduleType(ctx, row)
	}
	return nil
}

func (s *SyncService) upsertScheduleType(ctx context.Context, row warehouse.ScheduleTypeRow) {
	scheduleType := &model.ScheduleType{
		SchedTypeCode: row.SchedTypeCode,
		SchedTypeDesc: row.SchedTypeDesc,
	}
	if err := s.scheduleTypes.Upsert(ctx, scheduleType); err != nil {
		s.logger.Error("Failed to upsert schedule type",
			zap.String("sched_type_code", row.SchedTypeCode),
			zap.Error(err),
		)
	}
}

// SyncSchools pulls every school, skipping the ones with no Canvas presence,
// and resolves each school's Canvas sub-account by name.
func (s *SyncService) SyncSchools(ctx context.Context) error {
	s.logger.Info("Syncing schools")
	rows, err := s.warehouse.Schools(ctx)
	if err != nil {
		return fmt.Errorf("sync schools: %w", err)
	}
	for _, row := range rows {
		s.upsertSchool(ctx, row)
	}
	return nil
}

func (s *SyncService) upsertSchool(ctx context.Context, row warehouse.SchoolRow) {
	if !model.IsCanvasSchool(row.SchoolCode) {
		s.logger.Info("Skipping school not in Canvas", zap.String("school", row.SchoolDescLong))
		return
	}

	school := &model.School{
		SchoolCode:     row.SchoolCode,
		SchoolDescLong: row.SchoolDescLong,
		Visible:        true,
	}
	existing, err := s.schools.Get(ctx, row.SchoolCode)
	if err != nil {
		s.logger.Error("Failed to look up school", zap.String("school_code", row.SchoolCode), zap.Error(err))
		return
	}
	if existing != nil {
		school.Visible = existing.Visible
		school.CanvasSubAccountID = existing.CanvasSubAccountID
	}

	if err := s.schools.Upsert(ctx, school); err != nil {
		s.logger.Error("Failed to upsert school", zap.String("school_code", row.SchoolCode), zap.Error(err))
		return
	}
	s.resolveSubAccount(ctx, school)
}

// resolveSubAccount matches the school's cleaned name against the cached
// Canvas sub-accounts and persists the first hit. The account name is
// matched as a substring of the school name, which tolerates Canvas naming
// like "Arts and Sciences" under "School of Arts and Sciences".
func (s *SyncService) resolveSubAccount(ctx context.Context, school *model.School) {
	accounts, err := s.canvas.SubAccounts(ctx)
	if err != nil {
		s.logger.Error("Failed to enumerate Canvas sub-accounts", zap.Error(err))
		return
	}
	schoolName := school.CanvasSchoolName()
	for _, account := range accounts {
		if strings.Contains(schoolName, account.Name) {
			if err := s.schools.SetSubAccount(ctx, school.SchoolCode, account.ID); err != nil {
				s.logger.Error("Failed to persist sub-account",
					zap.String("school_code", school.SchoolCode),
					zap.Error(err),
				)
			}
			return
		}
	}
	s.logger.Warn("No Canvas sub-account matched school",
		zap.String("school_code", school.SchoolCode),
		zap.String("school_name", schoolName),
	)
}

// SyncSubjects pulls every subject, resolving the owning school with a stub
// sync when it is not yet stored.
func (s *SyncService) SyncSubjects(ctx context.Context) error {
	s.logger.Info("Syncing subjects")
	rows, err := s.warehouse.Subjects(ctx)
	if err != nil {
		return fmt.Errorf("sync subjects: %w", err)
	}
	for _, row := range rows {
		s.upsertSubject(ctx, row)
	}
	return nil
}

func (s *SyncService) upsertSubject(ctx context.Context, row warehouse.SubjectRow) {
	school, err := s.GetSchool(ctx, row.SchoolCode)
	if err != nil {
		s.logger.Error("Failed to resolve school for subject",
			zap.String("subject_code", row.SubjectCode),
			zap.String("school_code", row.SchoolCode),
			zap.Error(err),
		)
		return
	}
	subject := &model.Subject{
		SubjectCode:     row.SubjectCode,
		SubjectDescLong: row.SubjectDescLong,
		Visible:         true,
		SchoolCode:      row.SchoolCode,
	}
	if school != nil {
		subject.Visible = school.Visible
	}
	if err := s.subjects.Upsert(ctx, subject); err != nil {
		s.logger.Error("Failed to upsert subject", zap.String("subject_code", row.SubjectCode), zap.Error(err))
	}
}

// GetSchool returns a school from the store, syncing it from the warehouse
// on a miss.
func (s *SyncService) GetSchool(ctx context.Context, schoolCode string) (*model.School, error) {
	school, err := s.schools.Get(ctx, schoolCode)
	if err != nil || school != nil {
		return school, err
	}
	rows, err := s.warehouse.School(ctx, schoolCode)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		s.upsertSchool(ctx, row)
	}
	return s.schools.Get(ctx, schoolCode)
}

// GetSubject returns a subject from the store, syncing it on a miss.
func (s *SyncService) GetSubject(ctx context.Context, subjectCode string) (*model.Subject, error) {
	subject, err := s.subjects.Get(ctx, subjectCode)
	if err != nil || subject != nil {
		return subject, err
	}
	rows, err := s.warehouse.Subject(ctx, subjectCode)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		s.upsertSubject(ctx, row)
	}
	return s.subjects.Get(ctx, subjectCode)
}

// GetScheduleType returns a schedule type from the store, syncing it on a
// miss.
func (s *SyncService) GetScheduleType(ctx context.Context, code string) (*model.ScheduleType, error) {
	scheduleType, err := s.scheduleTypes.Get(ctx, code)
	if err != nil || scheduleType != nil {
		return scheduleType, err
	}
	rows, err := s.warehouse.ScheduleType(ctx, code)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		s.upsertScheduleType(ctx, row)
	}
	return s.scheduleTypes.Get(ctx, code)
}

// SyncSections pulls every section row for the given terms.
func (s *SyncService) SyncSections(ctx context.Context, terms []int) error {
	s.logger.Info("Syncing sections", zap.Ints("terms", terms))
	rows, err := s.warehouse.Sections(ctx, terms)
	if err != nil {
		return fmt.Errorf("sync sections: %w", err)
	}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.syncSectionRow(ctx, row, true)
	}
	return nil
}

// SyncSection syncs one section by id within a term. syncRelated gates the
// instructor and relation re-derivation; recursive calls pass false so that
// resolving a crosslist primary cannot walk the family graph forever.
func (s *SyncService) SyncSection(ctx context.Context, sectionID string, term int, syncRelated bool) error {
	rows, err := s.warehouse.SectionByID(ctx, sectionID, term)
	if err != nil {
		return fmt.Errorf("sync section %s: %w", sectionID, err)
	}
	for _, row := range rows {
		s.syncSectionRow(ctx, row, syncRelated)
	}
	return nil
}

func (s *SyncService) syncSectionRow(ctx context.Context, row warehouse.SectionRow, syncRelated bool) {
	if row.SectionStatus != model.ActiveSectionStatus {
		s.deleteCanceledSection(ctx, row.SectionCode)
		return
	}

	if _, err := s.GetSchool(ctx, row.SchoolCode); err != nil {
		s.logger.Error("Failed to resolve school", zap.String("section_code", row.SectionCode), zap.Error(err))
		return
	}
	if _, err := s.GetSubject(ctx, row.SubjectCode); err != nil {
		s.logger.Error("Failed to resolve subject", zap.String("section_code", row.SectionCode), zap.Error(err))
		return
	}
	if _, err := s.GetScheduleType(ctx, row.SchedTypeCode); err != nil {
		s.logger.Error("Failed to resolve schedule type", zap.String("section_code", row.SectionCode), zap.Error(err))
		return
	}

	primarySubject := row.PrimarySubject
	if primarySubject == "" {
		primarySubject = row.SubjectCode
	}
	if _, err := s.GetSubject(ctx, primarySubject); err != nil {
		s.logger.Error("Failed to resolve primary subject", zap.String("section_code", row.SectionCode), zap.Error(err))
		return
	}

	primarySectionCode := ""
	if row.PrimarySectionID != "" && row.PrimarySectionID != row.SectionID {
		primary, err := s.getSection(ctx, row.PrimarySectionID, row.Term, false)
		if err != nil {
			s.logger.Error("Failed to resolve primary section",
				zap.String("section_code", row.SectionCode),
				zap.String("primary_section_id", row.PrimarySectionID),
				zap.Error(err),
			)
		} else if primary != nil {
			primarySectionCode = primary.SectionCode
		}
	}

	primaryCourseID := row.PrimaryCourseID
	if primaryCourseID == "" {
		primaryCourseID = row.CourseID
	}

	section := &model.Section{
		SectionCode:        row.SectionCode,
		SectionID:          row.SectionID,
		SchoolCode:         row.SchoolCode,
		SubjectCode:        row.SubjectCode,
		CourseNum:          row.CourseNum,
		SectionNum:         row.SectionNum,
		Term:               row.Term,
		Title:              row.Title,
		SchedTypeCode:      row.SchedTypeCode,
		PrimaryCourseID:    primaryCourseID,
		PrimarySectionCode: primarySectionCode,
		PrimarySubjectCode: primarySubject,
		XlistFamily:        row.XlistFamily,
	}
	if err := s.sections.Upsert(ctx, section); err != nil {
		s.logger.Error("Failed to upsert section", zap.String("section_code", row.SectionCode), zap.Error(err))
		return
	}

	if syncRelated {
		s.syncInstructors(ctx, section)
		s.syncAlsoOfferedAs(ctx, section)
		s.syncCourseSections(ctx, section)
	}

	s.logger.Info("Synced section", zap.String("section_code", row.SectionCode))
}

func (s *SyncService) deleteCanceledSection(ctx context.Context, sectionCode string) {
	existing, err := s.sections.Get(ctx, sectionCode)
	if err != nil {
		s.logger.Error("Failed to look up canceled section", zap.String("section_code", sectionCode), zap.Error(err))
		return
	}
	if existing == nil {
		return
	}
	if err := s.sections.Delete(ctx, sectionCode); err != nil {
		s.logger.Error("Failed to delete canceled section", zap.String("section_code", sectionCode), zap.Error(err))
		return
	}
	s.logger.Info("Deleted canceled section", zap.String("section_code", sectionCode))
}

// getSection returns a section from the store, syncing it from the
// warehouse on a miss.
func (s *SyncService) getSection(ctx context.Context, sectionID string, term int, syncRelated bool) (*model.Section, error) {
	section, err := s.sections.GetByID(ctx, sectionID, term)
	if err != nil || section != nil {
		return section, err
	}
	if err := s.SyncSection(ctx, sectionID, term, syncRelated); err != nil {
		return nil, err
	}
	return s.sections.GetByID(ctx, sectionID, term)
}

// syncInstructors re-derives the instructor roster of a section and swaps
// the stored set atomically.
func (s *SyncService) syncInstructors(ctx context.Context, section *model.Section) {
	rows, err := s.warehouse.Instructors(ctx, section.SectionID, section.Term)
	if err != nil {
		s.logger.Error("Failed to pull instructors", zap.String("section_code", section.SectionCode), zap.Error(err))
		return
	}

	var pennkeys []string
	for _, row := range rows {
		if row.Pennkey == "" {
			err := &DataInvariantError{Reason: fmt.Sprintf("instructor without pennkey on %s", section.SectionCode)}
			s.logger.Error("Skipping instructor", zap.Error(err))
			continue
		}
		user := &model.User{
			Pennkey:   row.Pennkey,
			PennID:    row.PennID,
			FirstName: row.FirstName,
			LastName:  row.LastName,
			Email:     row.Email,
		}
		if err := s.users.Upsert(ctx, user); err != nil {
			s.logger.Error("Failed to upsert instructor", zap.String("pennkey", row.Pennkey), zap.Error(err))
			continue
		}
		pennkeys = append(pennkeys, row.Pennkey)
	}

	if err := s.sections.ReplaceInstructors(ctx, section.SectionCode, pennkeys); err != nil {
		s.logger.Error("Failed to replace instructors", zap.String("section_code", section.SectionCode), zap.Error(err))
	}
}

// syncAlsoOfferedAs re-derives the crosslist family members of a section.
func (s *SyncService) syncAlsoOfferedAs(ctx context.Context, section *model.Section) {
	if section.XlistFamily == "" {
		if err := s.sections.ReplaceAlsoOfferedAs(ctx, section.SectionCode, nil); err != nil {
			s.logger.Error("Failed to clear crosslist relations", zap.String("section_code", section.SectionCode), zap.Error(err))
		}
		return
	}
	ids, err := s.warehouse.XlistFamilySectionIDs(ctx, section.XlistFamily)
	if err != nil {
		s.logger.Error("Failed to pull crosslist family", zap.String("section_code", section.SectionCode), zap.Error(err))
		return
	}
	codes := s.resolveRelatedSections(ctx, section, ids)
	if err := s.sections.ReplaceAlsoOfferedAs(ctx, section.SectionCode, codes); err != nil {
		s.logger.Error("Failed to replace crosslist relations", zap.String("section_code", section.SectionCode), zap.Error(err))
	}
}

// syncCourseSections re-derives the sibling sections sharing the section's
// course within the term.
func (s *SyncService) syncCourseSections(ctx context.Context, section *model.Section) {
	courseID := section.SubjectCode + section.CourseNum
	ids, err := s.warehouse.CourseSectionIDs(ctx, section.Term, courseID, section.SectionID)
	if err != nil {
		s.logger.Error("Failed to pull course sections", zap.String("section_code", section.SectionCode), zap.Error(err))
		return
	}
	codes := s.resolveRelatedSections(ctx, section, ids)
	if err := s.sections.ReplaceCourseSections(ctx, section.SectionCode, codes); err != nil {
		s.logger.Error("Failed to replace course sections", zap.String("section_code", section.SectionCode), zap.Error(err))
	}
}

// resolveRelatedSections maps warehouse section ids to stored section codes,
// syncing missing sections without recursing into their own relations.
func (s *SyncService) resolveRelatedSections(ctx context.Context, section *model.Section, sectionIDs []string) []string {
	var codes []string
	for _, id := range sectionIDs {
		if id == section.SectionID {
			continue
		}
		related, err := s.getSection(ctx, id, section.Term, false)
		if err != nil {
			s.logger.Error("Failed to resolve related section",
				zap.String("section_code", section.SectionCode),
				zap.String("related_section_id", id),
				zap.Error(err),
			)
			continue
		}
		if related != nil {
			codes = append(codes, related.SectionCode)
		}
	}
	return codes
}

// SweepCanceled reconciles stored sections of the given terms against the
// warehouse, deleting any that dropped out of active status.
func (s *SyncService) SweepCanceled(ctx context.Context, terms []int) error {
	if len(terms) == 0 {
		terms = model.DefaultTerms(time.Now())
	}
	for _, term := range terms {
		stored, err := s.sections.ListByTerm(ctx, term)
		if err != nil {
			return fmt.Errorf("sweep canceled sections: %w", err)
		}
		for _, section := range stored {
			if err := ctx.Err(); err != nil {
				return err
			}
			rows, err := s.warehouse.SectionByID(ctx, section.SectionID, term)
			if err != nil {
				return fmt.Errorf("sweep canceled sections: %w", err)
			}
			active := false
			for _, row := range rows {
				if row.SectionStatus == model.ActiveSectionStatus {
					active = true
				}
			}
			if !active {
				s.deleteCanceledSection(ctx, section.SectionCode)
			}
		}
	}
	return nil
}
