package model

type ScheduleType struct {
	SchedTypeCode string `json:"sched_type_code"`
	SchedTypeDesc string `json:"sched_type_desc"`
}

func (s *ScheduleType) String() string {
	return s.SchedTypeDesc + " (" + s.SchedTypeCode + ")"
}

// LectureCode is the only schedule type whose code is omitted from related
// Canvas section names.
const LectureCode = "LEC"

// ExcludedScheduleTypes never become Sections; the warehouse queries filter
// them out at the source.
var ExcludedScheduleTypes = []string{
	"MED", "DIS", "FLD",
	"F01", "F02", "F03", "F04",
	"IND",
	"I01", "I02", "I03", "I04",
	"MST", "SRT",
}
