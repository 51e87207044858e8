package model

type Subject struct {
	SubjectCode     string `json:"subject_code"`
	SubjectDescLong string `json:"subject_desc_long"`
	Visible         bool   `json:"visible"`
	SchoolCode      string `json:"school_code"`
}

func (s *Subject) String() string {
	return s.SubjectDescLong + " (" + s.SubjectCode + ")"
}
