package models

import "time"

// AttendanceStatus tracks the approval state of a submission.
type AttendanceStatus string

const (
	AttendanceStatusPending  AttendanceStatus = "PENDING"
	AttendanceStatusApproved AttendanceStatus = "APPROVED"
	AttendanceStatusRejected AttendanceStatus = "REJECTED"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPending, AttendanceStatusApproved, AttendanceStatusRejected:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status permits no further transitions.
func (s AttendanceStatus) Terminal() bool {
	return s == AttendanceStatusApproved || s == AttendanceStatusRejected
}

// Period labels one of the three tracked class sessions of a day.
type Period string

const (
	Period1 Period = "period1"
	Period2 Period = "period2"
	Period3 Period = "period3"
)

// Valid returns true when the period is a supported value.
func (p Period) Valid() bool {
	switch p {
	case Period1, Period2, Period3:
		return true
	default:
		return false
	}
}

// Attendance is one submission event for a (class, date, period) triple.
// The unique index on the triple is what serializes concurrent submissions;
// TotalStudents and PresentCount are snapshots taken at submission time.
type Attendance struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	Date          time.Time        `gorm:"type:date;uniqueIndex:idx_attendances_triple;not null" json:"date"`
	Period        Period           `gorm:"size:16;uniqueIndex:idx_attendances_triple;not null" json:"period"`
	ClassID       uint             `gorm:"uniqueIndex:idx_attendances_triple;not null" json:"class_id"`
	SubmittedByID uint             `gorm:"not null" json:"submitted_by_id"`
	ApprovedByID  *uint            `json:"approved_by_id,omitempty"`
	Status        AttendanceStatus `gorm:"size:16;not null;default:PENDING" json:"status"`
	TotalStudents int              `gorm:"not null" json:"total_students"`
	PresentCount  int              `gorm:"not null" json:"present_count"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// AttendanceDetail is the per-student row under one attendance event,
// carrying presence flags and optional absence reasons for all three periods.
type AttendanceDetail struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	AttendanceID   uint    `gorm:"uniqueIndex:idx_attendance_details_student;not null" json:"attendance_id"`
	StudentID      uint    `gorm:"uniqueIndex:idx_attendance_details_student;not null" json:"student_id"`
	Period1Present bool    `gorm:"not null;default:true" json:"period1_present"`
	Period1Reason  *string `gorm:"size:255" json:"period1_reason,omitempty"`
	Period2Present bool    `gorm:"not null;default:true" json:"period2_present"`
	Period2Reason  *string `gorm:"size:255" json:"period2_reason,omitempty"`
	Period3Present bool    `gorm:"not null;default:true" json:"period3_present"`
	Period3Reason  *string `gorm:"size:255" json:"period3_reason,omitempty"`
}

// PresentFor reports the presence flag for the given period.
func (d AttendanceDetail) PresentFor(p Period) bool {
	switch p {
	case Period1:
		return d.Period1Present
	case Period2:
		return d.Period2Present
	case Period3:
		return d.Period3Present
	default:
		return false
	}
}
