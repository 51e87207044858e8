package model

import "strings"

const (
	DentalMedicineCode = "D"
	DentalMedicineName = "Penn Dental Medicine"
	LawSchoolCode      = "L"
	ProvostCenterCode  = "P"
	SASSchoolCode      = "A"
	VetMedicineCode    = "V"
	VetMedicineName    = "Penn Vet"

	// LPSOnlineAccountID is the Canvas sub-account used instead of the SAS
	// sub-account for LPS Online requests.
	LPSOnlineAccountID int64 = 132413
)

type School struct {
	SchoolCode         string `json:"school_code"`
	SchoolDescLong     string `json:"school_desc_long"`
	Visible            bool   `json:"visible"`
	CanvasSubAccountID *int64 `json:"canvas_sub_account_id"`
}

func (s *School) String() string {
	return s.SchoolDescLong + " (" + s.SchoolCode + ")"
}

// CanvasSchoolName returns the name to match against Canvas sub-accounts.
// Two schools are named differently in Canvas; ampersands are spelled out.
func (s *School) CanvasSchoolName() string {
	switch s.SchoolCode {
	case VetMedicineCode:
		return VetMedicineName
	case DentalMedicineCode:
		return DentalMedicineName
	default:
		return strings.ReplaceAll(s.SchoolDescLong, "&", "and")
	}
}

// IsCanvasSchool reports whether a school has a Canvas presence at all.
// Law and the Provost Center run their own instances and are never synced.
func IsCanvasSchool(schoolCode string) bool {
	return schoolCode != LawSchoolCode && schoolCode != ProvostCenterCode
}
