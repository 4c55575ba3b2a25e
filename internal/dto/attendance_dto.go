package dto

import (
	"time"

	"github.com/noah-isme/chulseok-go-api/internal/models"
)

const dateLayout = "2006-01-02"

// AttendanceEntryRequest carries one student's presence flags for a
// submission. Nil flags default to present, mirroring a full-attendance day.
type AttendanceEntryRequest struct {
	StudentID      string  `json:"student_id" validate:"required"`
	Period1Present *bool   `json:"period1_present"`
	Period1Reason  *string `json:"period1_reason"`
	Period2Present *bool   `json:"period2_present"`
	Period2Reason  *string `json:"period2_reason"`
	Period3Present *bool   `json:"period3_present"`
	Period3Reason  *string `json:"period3_reason"`
}

// AttendanceSubmitRequest describes a student's submission for one
// class/date/period triple.
type AttendanceSubmitRequest struct {
	ClassID  uint                     `json:"class_id" validate:"required"`
	Date     string                   `json:"date" validate:"required,datetime=2006-01-02"`
	Period   string                   `json:"period" validate:"required,oneof=period1 period2 period3"`
	Students []AttendanceEntryRequest `json:"students" validate:"dive"`
}

// AttendanceResponse is the serialized attendance event returned to clients.
type AttendanceResponse struct {
	ID            uint      `json:"id"`
	Date          string    `json:"date"`
	Period        string    `json:"period"`
	ClassID       uint      `json:"class_id"`
	SubmittedByID uint      `json:"submitted_by_id"`
	ApprovedByID  *uint     `json:"approved_by_id,omitempty"`
	Status        string    `json:"status"`
	TotalStudents int       `json:"total_students"`
	PresentCount  int       `json:"present_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewAttendanceResponse converts a model into a DTO.
func NewAttendanceResponse(model models.Attendance) AttendanceResponse {
	return AttendanceResponse{
		ID:            model.ID,
		Date:          model.Date.Format(dateLayout),
		Period:        string(model.Period),
		ClassID:       model.ClassID,
		SubmittedByID: model.SubmittedByID,
		ApprovedByID:  model.ApprovedByID,
		Status:        string(model.Status),
		TotalStudents: model.TotalStudents,
		PresentCount:  model.PresentCount,
		CreatedAt:     model.CreatedAt,
	}
}

// NewAttendanceResponseSlice converts a slice of models into DTOs.
func NewAttendanceResponseSlice(attendances []models.Attendance) []AttendanceResponse {
	responses := make([]AttendanceResponse, 0, len(attendances))
	for _, attendance := range attendances {
		responses = append(responses, NewAttendanceResponse(attendance))
	}

	return responses
}

// AttendanceDetailResponse is the per-student row under an attendance event.
type AttendanceDetailResponse struct {
	StudentID      uint    `json:"student_id"`
	Period1Present bool    `json:"period1_present"`
	Period1Reason  *string `json:"period1_reason,omitempty"`
	Period2Present bool    `json:"period2_present"`
	Period2Reason  *string `json:"period2_reason,omitempty"`
	Period3Present bool    `json:"period3_present"`
	Period3Reason  *string `json:"period3_reason,omitempty"`
}

// NewAttendanceDetailResponse converts a detail model into a DTO.
func NewAttendanceDetailResponse(model models.AttendanceDetail) AttendanceDetailResponse {
	return AttendanceDetailResponse{
		StudentID:      model.StudentID,
		Period1Present: model.Period1Present,
		Period1Reason:  model.Period1Reason,
		Period2Present: model.Period2Present,
		Period2Reason:  model.Period2Reason,
		Period3Present: model.Period3Present,
		Period3Reason:  model.Period3Reason,
	}
}

// AttendanceWithDetailsResponse combines the event with its detail rows.
type AttendanceWithDetailsResponse struct {
	Attendance AttendanceResponse         `json:"attendance"`
	Details    []AttendanceDetailResponse `json:"details"`
}

// NewAttendanceWithDetailsResponse converts an event and its rows into a DTO.
func NewAttendanceWithDetailsResponse(attendance models.Attendance, details []models.AttendanceDetail) AttendanceWithDetailsResponse {
	converted := make([]AttendanceDetailResponse, 0, len(details))
	for _, detail := range details {
		converted = append(converted, NewAttendanceDetailResponse(detail))
	}

	return AttendanceWithDetailsResponse{
		Attendance: NewAttendanceResponse(attendance),
		Details:    converted,
	}
}

// PeriodSummary aggregates one period's submission state for a class/date.
type PeriodSummary struct {
	Period       string `json:"period"`
	Submitted    bool   `json:"submitted"`
	Status       string `json:"status,omitempty"`
	PresentCount int    `json:"present_count"`
}

// ClassSummaryResponse is the cached per-class daily attendance overview.
type ClassSummaryResponse struct {
	ClassID       uint            `json:"class_id"`
	Date          string          `json:"date"`
	TotalStudents int             `json:"total_students"`
	Periods       []PeriodSummary `json:"periods"`
}
