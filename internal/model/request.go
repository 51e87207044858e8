package model

import "time"

// RequestStatus is a closed enum; all writes go through transition checks.
type RequestStatus string

const (
	StatusSubmitted RequestStatus = "Submitted"
	StatusApproved  RequestStatus = "Approved"
	StatusLocked    RequestStatus = "Locked"
	StatusCanceled  RequestStatus = "Canceled"
	StatusInProcess RequestStatus = "In Process"
	StatusError     RequestStatus = "Error"
	StatusCompleted RequestStatus = "Completed"
)

// transitions is the allowed status graph. Locked is an administrative hold
// reachable from and releasable to any non-terminal state; Canceled is
// terminal until the reaper deletes the request.
var transitions = map[RequestStatus][]RequestStatus{
	StatusSubmitted: {StatusApproved, StatusCanceled, StatusLocked},
	StatusApproved:  {StatusInProcess, StatusCanceled, StatusLocked},
	StatusInProcess: {StatusCompleted, StatusError},
	StatusLocked:    {StatusSubmitted, StatusApproved, StatusCanceled, StatusInProcess, StatusError, StatusCompleted},
	StatusError:     {StatusApproved, StatusLocked, StatusCanceled},
	StatusCompleted: {StatusLocked},
	StatusCanceled:  {},
}

// CanTransitionTo reports whether the status graph permits the move.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	if next == StatusLocked && s != StatusCanceled {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

const (
	// StorageQuotaMB is the raised quota applied to every provisioned site.
	StorageQuotaMB = 2000

	ReservesTabID    = "context_external_tool_139969"
	ReservesTabLabel = "Course Materials @ Penn Libraries"
)

// Request records the intent to create one Canvas course site. It is keyed
// by the section it requests; IncludedSections carries the sibling sections
// folded into a multi-section build.
type Request struct {
	SectionCode    string `json:"section_code"`
	Requester      string `json:"requester"`
	ProxyRequester string `json:"proxy_requester"`

	TitleOverride        string `json:"title_override"`
	CopyFromCourse       *int64 `json:"copy_from_course"`
	Reserves             bool   `json:"reserves"`
	LPSOnline            bool   `json:"lps_online"`
	ExcludeAnnouncements bool   `json:"exclude_announcements"`

	AdditionalInstructions      string `json:"additional_instructions"`
	AdminAdditionalInstructions string `json:"admin_additional_instructions"`
	ProcessNotes                string `json:"process_notes"`

	Status           RequestStatus `json:"status"`
	IncludedSections []string      `json:"included_sections"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *Request) String() string {
	return r.SectionCode
}

// AppendProcessNote appends to the running note, comma-separating entries.
func (r *Request) AppendProcessNote(note string) {
	if r.ProcessNotes != "" {
		r.ProcessNotes += ", "
	}
	r.ProcessNotes += note
}
