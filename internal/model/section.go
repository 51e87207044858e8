package model

import (
	"fmt"
	"time"
)

// ActiveSectionStatus is the only section_status worth persisting; any other
// status observed during a sync deletes the section.
const ActiveSectionStatus = "A"

// Section is one scheduled offering. SectionCode (section_id || term) is the
// primary key and immutable after creation. Relations to other sections are
// stored as section codes rather than object references; the crosslist graph
// is cyclic and is walked through the store.
type Section struct {
	SectionCode        string `json:"section_code"`
	SectionID          string `json:"section_id"`
	SchoolCode         string `json:"school_code"`
	SubjectCode        string `json:"subject_code"`
	CourseNum          string `json:"course_num"`
	SectionNum         string `json:"section_num"`
	Term               int    `json:"term"`
	Title              string `json:"title"`
	SchedTypeCode      string `json:"sched_type_code"`
	PrimaryCourseID    string `json:"primary_course_id"`
	PrimarySectionCode string `json:"primary_section_code"`
	PrimarySubjectCode string `json:"primary_subject_code"`
	XlistFamily        string `json:"xlist_family"`

	Requested           bool   `json:"requested"`
	RequestedOverride   bool   `json:"requested_override"`
	PrimaryCrosslist    string `json:"primary_crosslist"`
	MultisectionRequest string `json:"multisection_request"`
	CrosslistedRequest  string `json:"crosslisted_request"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Section) String() string {
	return s.SectionCode
}

// CourseCode renders the human-readable course code, e.g.
// "SUBJ 1000-200 202410". With sisFormat the subject is joined with a dash
// for use inside SIS ids. With includeScheduleType, non-lecture sections get
// their schedule type code appended, which keeps related Canvas sections
// distinguishable.
func (s *Section) CourseCode(sisFormat, includeScheduleType bool) string {
	divider := " "
	if sisFormat {
		divider = "-"
	}
	code := fmt.Sprintf("%s%s%s-%s %d", s.SubjectCode, divider, s.CourseNum, s.SectionNum, s.Term)
	if includeScheduleType && s.SchedTypeCode != LectureCode {
		code = fmt.Sprintf("%s %s", code, s.SchedTypeCode)
	}
	return code
}

// SISID renders the external-system-stable Canvas id for the section's
// course site, e.g. "BAN_SUBJ-1000-200 202410".
func (s *Section) SISID() string {
	return fmt.Sprintf("BAN_%s", s.CourseCode(true, false))
}

// CanvasName renders the course-site or section name. An empty titleOverride
// falls back to the section title. Related sections carry their schedule
// type code.
func (s *Section) CanvasName(titleOverride string, relatedSection bool) string {
	title := s.Title
	if titleOverride != "" {
		title = titleOverride
	}
	return fmt.Sprintf("%s %s", s.CourseCode(false, relatedSection), title)
}
