package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/chulseok-go-api/internal/dto"
	"github.com/noah-isme/chulseok-go-api/internal/models"
	"github.com/noah-isme/chulseok-go-api/internal/observability"
	"github.com/noah-isme/chulseok-go-api/internal/repository"
)

var (
	// ErrForbidden indicates a role or class-ownership mismatch.
	ErrForbidden = errors.New("operation not permitted for this user")
	// ErrValidation indicates a malformed submission payload.
	ErrValidation = errors.New("invalid submission payload")
	// ErrDuplicateSubmission indicates the (class, date, period) triple is taken.
	ErrDuplicateSubmission = errors.New("attendance already submitted for this class, date and period")
	// ErrInvalidState indicates an approve/reject on a non-pending record.
	ErrInvalidState = errors.New("attendance is not in a pending state")
	// ErrAttendanceNotFound indicates an unknown attendance id.
	ErrAttendanceNotFound = errors.New("attendance not found")
	// ErrClassNotFound indicates an unknown class id.
	ErrClassNotFound = errors.New("class not found")
)

const attendanceDateLayout = "2006-01-02"

// AttendanceListFilter narrows the List operation. Zero values mean "any".
type AttendanceListFilter struct {
	ClassID uint
	Date    string
	Status  string
}

// AttendanceService enforces the submission/approval state machine.
//
// One submission may exist per (class, date, period) triple; the storage
// layer's unique index decides races between concurrent submitters. Status
// moves PENDING → APPROVED or PENDING → REJECTED and nowhere else.
type AttendanceService interface {
	Submit(ctx context.Context, userID uint, req dto.AttendanceSubmitRequest) (dto.AttendanceResponse, error)
	Approve(ctx context.Context, userID uint, attendanceID uint) (dto.AttendanceResponse, error)
	Reject(ctx context.Context, userID uint, attendanceID uint) (dto.AttendanceResponse, error)
	Get(ctx context.Context, userID uint, role models.Role, attendanceID uint) (dto.AttendanceWithDetailsResponse, error)
	List(ctx context.Context, userID uint, role models.Role, filter AttendanceListFilter) ([]dto.AttendanceResponse, error)
	ClassSummary(ctx context.Context, classID uint, date string) (dto.ClassSummaryResponse, error)
}

type attendanceService struct {
	attendances repository.AttendanceRepository
	students    repository.StudentRepository
	teachers    repository.TeacherRepository
	classes     repository.ClassRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewAttendanceService builds the attendance ledger service.
func NewAttendanceService(
	attendances repository.AttendanceRepository,
	students repository.StudentRepository,
	teachers repository.TeacherRepository,
	classes repository.ClassRepository,
	cache *redis.Client,
	cacheTTL time.Duration,
	logger zerolog.Logger,
) AttendanceService {
	return &attendanceService{
		attendances: attendances,
		students:    students,
		teachers:    teachers,
		classes:     classes,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger.With().Str("component", "attendance_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/chulseok-go-api/internal/service/attendance"),
	}
}

func (s *attendanceService) Submit(ctx context.Context, userID uint, req dto.AttendanceSubmitRequest) (dto.AttendanceResponse, error) {
	ctx, span := s.tracer.Start(ctx, "attendance.submit")
	defer span.End()
	span.SetAttributes(
		attribute.Int("attendance.class_id", int(req.ClassID)),
		attribute.String("attendance.period", req.Period),
	)

	student, err := s.students.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttendanceResponse{}, fmt.Errorf("%w: no student profile", ErrForbidden)
		}
		return dto.AttendanceResponse{}, err
	}

	class, err := s.classes.GetByID(ctx, req.ClassID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttendanceResponse{}, ErrClassNotFound
		}
		return dto.AttendanceResponse{}, err
	}

	if student.Grade != class.Grade || student.ClassNumber != class.ClassNumber {
		return dto.AttendanceResponse{}, fmt.Errorf("%w: student does not belong to class", ErrForbidden)
	}

	period := models.Period(req.Period)
	if !period.Valid() {
		return dto.AttendanceResponse{}, fmt.Errorf("%w: unknown period %q", ErrValidation, req.Period)
	}

	date, err := time.Parse(attendanceDateLayout, req.Date)
	if err != nil {
		return dto.AttendanceResponse{}, fmt.Errorf("%w: invalid date %q", ErrValidation, req.Date)
	}

	roster, err := s.students.ListByClass(ctx, class.Grade, class.ClassNumber)
	if err != nil {
		return dto.AttendanceResponse{}, err
	}

	details, presentCount, err := buildDetails(roster, req.Students, period)
	if err != nil {
		return dto.AttendanceResponse{}, err
	}

	attendance := models.Attendance{
		Date:          date,
		Period:        period,
		ClassID:       class.ID,
		SubmittedByID: student.ID,
		Status:        models.AttendanceStatusPending,
		TotalStudents: len(roster),
		PresentCount:  presentCount,
	}

	if err := s.attendances.CreateWithDetails(ctx, &attendance, details); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			span.SetStatus(codes.Error, "duplicate submission")
			return dto.AttendanceResponse{}, ErrDuplicateSubmission
		}
		span.RecordError(err)
		return dto.AttendanceResponse{}, err
	}

	observability.AttendanceSubmitted().Inc()
	s.invalidateSummary(ctx, class.ID, req.Date)
	s.logger.Info().
		Uint("attendance_id", attendance.ID).
		Uint("class_id", class.ID).
		Str("period", string(period)).
		Int("present", presentCount).
		Int("total", len(roster)).
		Msg("attendance submitted")

	return dto.NewAttendanceResponse(attendance), nil
}

// buildDetails expands the submitted entries over the class roster.
// Entries referencing students outside the roster, and duplicate entries,
// are rejected; roster members without an entry default to present for all
// periods.
func buildDetails(roster []models.Student, entries []dto.AttendanceEntryRequest, period models.Period) ([]models.AttendanceDetail, int, error) {
	byExternalID := make(map[string]models.Student, len(roster))
	for _, student := range roster {
		byExternalID[student.ExternalID] = student
	}

	submitted := make(map[uint]models.AttendanceDetail, len(entries))
	for _, entry := range entries {
		student, ok := byExternalID[entry.StudentID]
		if !ok {
			return nil, 0, fmt.Errorf("%w: student %q is not in the class roster", ErrValidation, entry.StudentID)
		}
		if _, dup := submitted[student.ID]; dup {
			return nil, 0, fmt.Errorf("%w: duplicate entry for student %q", ErrValidation, entry.StudentID)
		}

		detail := models.AttendanceDetail{
			StudentID:      student.ID,
			Period1Present: boolOrDefault(entry.Period1Present, true),
			Period1Reason:  entry.Period1Reason,
			Period2Present: boolOrDefault(entry.Period2Present, true),
			Period2Reason:  entry.Period2Reason,
			Period3Present: boolOrDefault(entry.Period3Present, true),
			Period3Reason:  entry.Period3Reason,
		}
		submitted[student.ID] = detail
	}

	details := make([]models.AttendanceDetail, 0, len(roster))
	presentCount := 0
	for _, student := range roster {
		detail, ok := submitted[student.ID]
		if !ok {
			detail = models.AttendanceDetail{
				StudentID:      student.ID,
				Period1Present: true,
				Period2Present: true,
				Period3Present: true,
			}
		}
		if detail.PresentFor(period) {
			presentCount++
		}
		details = append(details, detail)
	}

	return details, presentCount, nil
}

func boolOrDefault(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

func (s *attendanceService) Approve(ctx context.Context, userID uint, attendanceID uint) (dto.AttendanceResponse, error) {
	return s.decide(ctx, userID, attendanceID, models.AttendanceStatusApproved)
}

func (s *attendanceService) Reject(ctx context.Context, userID uint, attendanceID uint) (dto.AttendanceResponse, error) {
	return s.decide(ctx, userID, attendanceID, models.AttendanceStatusRejected)
}

func (s *attendanceService) decide(ctx context.Context, userID uint, attendanceID uint, status models.AttendanceStatus) (dto.AttendanceResponse, error) {
	ctx, span := s.tracer.Start(ctx, "attendance.decide")
	defer span.End()
	span.SetAttributes(
		attribute.Int("attendance.id", int(attendanceID)),
		attribute.String("attendance.decision", string(status)),
	)

	teacher, err := s.teachers.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttendanceResponse{}, fmt.Errorf("%w: no teacher profile", ErrForbidden)
		}
		return dto.AttendanceResponse{}, err
	}

	attendance, err := s.attendances.GetByID(ctx, attendanceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttendanceResponse{}, ErrAttendanceNotFound
		}
		return dto.AttendanceResponse{}, err
	}

	class, err := s.classes.GetByID(ctx, attendance.ClassID)
	if err != nil {
		return dto.AttendanceResponse{}, err
	}

	if teacher.Grade != class.Grade || teacher.ClassNumber != class.ClassNumber {
		return dto.AttendanceResponse{}, fmt.Errorf("%w: teacher is not assigned to class", ErrForbidden)
	}

	// Compare-and-set so two teachers racing on the same record cannot both
	// finalize it.
	transitioned, err := s.attendances.TransitionFromPending(ctx, attendanceID, status, teacher.ID)
	if err != nil {
		span.RecordError(err)
		return dto.AttendanceResponse{}, err
	}
	if !transitioned {
		span.SetStatus(codes.Error, "not pending")
		return dto.AttendanceResponse{}, ErrInvalidState
	}

	attendance, err = s.attendances.GetByID(ctx, attendanceID)
	if err != nil {
		return dto.AttendanceResponse{}, err
	}

	observability.AttendanceDecided().WithLabelValues(string(status)).Inc()
	s.invalidateSummary(ctx, attendance.ClassID, attendance.Date.Format(attendanceDateLayout))
	s.logger.Info().
		Uint("attendance_id", attendanceID).
		Uint("teacher_id", teacher.ID).
		Str("status", string(status)).
		Msg("attendance decided")

	return dto.NewAttendanceResponse(attendance), nil
}

func (s *attendanceService) Get(ctx context.Context, userID uint, role models.Role, attendanceID uint) (dto.AttendanceWithDetailsResponse, error) {
	attendance, err := s.attendances.GetByID(ctx, attendanceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttendanceWithDetailsResponse{}, ErrAttendanceNotFound
		}
		return dto.AttendanceWithDetailsResponse{}, err
	}

	if err := s.authorizeRead(ctx, userID, role, attendance); err != nil {
		return dto.AttendanceWithDetailsResponse{}, err
	}

	details, err := s.attendances.ListDetails(ctx, attendanceID)
	if err != nil {
		return dto.AttendanceWithDetailsResponse{}, err
	}

	return dto.NewAttendanceWithDetailsResponse(attendance, details), nil
}

// authorizeRead restricts detail reads to the submitting student, a teacher
// assigned to the class, or an admin.
func (s *attendanceService) authorizeRead(ctx context.Context, userID uint, role models.Role, attendance models.Attendance) error {
	switch role {
	case models.RoleAdmin:
		return nil
	case models.RoleStudent:
		student, err := s.students.GetByUserID(ctx, userID)
		if err != nil {
			return fmt.Errorf("%w: no student profile", ErrForbidden)
		}
		if student.ID != attendance.SubmittedByID {
			return fmt.Errorf("%w: not the submitting student", ErrForbidden)
		}
		return nil
	case models.RoleTeacher:
		teacher, err := s.teachers.GetByUserID(ctx, userID)
		if err != nil {
			return fmt.Errorf("%w: no teacher profile", ErrForbidden)
		}
		class, err := s.classes.GetByID(ctx, attendance.ClassID)
		if err != nil {
			return err
		}
		if teacher.Grade != class.Grade || teacher.ClassNumber != class.ClassNumber {
			return fmt.Errorf("%w: teacher is not assigned to class", ErrForbidden)
		}
		return nil
	default:
		return ErrForbidden
	}
}

func (s *attendanceService) List(ctx context.Context, userID uint, role models.Role, filter AttendanceListFilter) ([]dto.AttendanceResponse, error) {
	repoFilter := repository.AttendanceFilter{ClassID: filter.ClassID}

	if filter.Date != "" {
		date, err := time.Parse(attendanceDateLayout, filter.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid date %q", ErrValidation, filter.Date)
		}
		repoFilter.Date = &date
	}

	if filter.Status != "" {
		status := models.AttendanceStatus(filter.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, filter.Status)
		}
		repoFilter.Status = status
	}

	// Non-admin callers only see their own section's ledger.
	switch role {
	case models.RoleAdmin:
	case models.RoleStudent:
		student, err := s.students.GetByUserID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("%w: no student profile", ErrForbidden)
		}
		class, err := s.classes.GetByGradeClass(ctx, student.Grade, student.ClassNumber)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return []dto.AttendanceResponse{}, nil
			}
			return nil, err
		}
		repoFilter.ClassID = class.ID
	case models.RoleTeacher:
		teacher, err := s.teachers.GetByUserID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("%w: no teacher profile", ErrForbidden)
		}
		class, err := s.classes.GetByGradeClass(ctx, teacher.Grade, teacher.ClassNumber)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return []dto.AttendanceResponse{}, nil
			}
			return nil, err
		}
		repoFilter.ClassID = class.ID
	default:
		return nil, ErrForbidden
	}

	attendances, err := s.attendances.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	return dto.NewAttendanceResponseSlice(attendances), nil
}

func (s *attendanceService) ClassSummary(ctx context.Context, classID uint, date string) (dto.ClassSummaryResponse, error) {
	if _, err := time.Parse(attendanceDateLayout, date); err != nil {
		return dto.ClassSummaryResponse{}, fmt.Errorf("%w: invalid date %q", ErrValidation, date)
	}

	cacheKey := summaryCacheKey(classID, date)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.ClassSummaryResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("class_id", classID).Str("date", date).Msg("summary cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read summary cache")
		}
	}

	class, err := s.classes.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ClassSummaryResponse{}, ErrClassNotFound
		}
		return dto.ClassSummaryResponse{}, err
	}

	parsed, _ := time.Parse(attendanceDateLayout, date)
	attendances, err := s.attendances.List(ctx, repository.AttendanceFilter{ClassID: classID, Date: &parsed})
	if err != nil {
		return dto.ClassSummaryResponse{}, err
	}

	byPeriod := make(map[models.Period]models.Attendance, len(attendances))
	for _, attendance := range attendances {
		byPeriod[attendance.Period] = attendance
	}

	periods := make([]dto.PeriodSummary, 0, 3)
	for _, period := range []models.Period{models.Period1, models.Period2, models.Period3} {
		summary := dto.PeriodSummary{Period: string(period)}
		if attendance, ok := byPeriod[period]; ok {
			summary.Submitted = true
			summary.Status = string(attendance.Status)
			summary.PresentCount = attendance.PresentCount
		}
		periods = append(periods, summary)
	}

	response := dto.ClassSummaryResponse{
		ClassID:       class.ID,
		Date:          date,
		TotalStudents: class.TotalStudents,
		Periods:       periods,
	}

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store summary cache")
			}
		}
	}

	return response, nil
}

func (s *attendanceService) invalidateSummary(ctx context.Context, classID uint, date string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, summaryCacheKey(classID, date)).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate summary cache")
	}
}

func summaryCacheKey(classID uint, date string) string {
	return fmt.Sprintf("attendance:summary:%d:%s", classID, date)
}
