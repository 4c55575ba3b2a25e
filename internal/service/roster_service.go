package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/chulseok-go-api/internal/dto"
	"github.com/noah-isme/chulseok-go-api/internal/models"
	"github.com/noah-isme/chulseok-go-api/internal/observability"
	"github.com/noah-isme/chulseok-go-api/internal/repository"
)

var (
	// ErrUnknownSheetType indicates an upload type outside students/teachers.
	ErrUnknownSheetType = errors.New("unknown sheet type")
	// ErrMissingColumns indicates required semantic columns absent from the sheet.
	ErrMissingColumns = errors.New("required columns missing")
	// ErrImportFailure wraps parse or per-row failures during an import.
	ErrImportFailure = errors.New("roster import failed")
)

// Sheet types accepted by the importer.
const (
	SheetStudents = "students"
	SheetTeachers = "teachers"
)

// Semantic column labels, matched by substring against sheet headers.
var (
	studentColumns = []string{"학번", "이름", "학년", "반", "번호"}
	teacherColumns = []string{"이름", "학년", "반"}
)

// RosterService ingests tabular roster uploads into identity records.
//
// Imports are at-least-effort: a failing row aborts the remaining rows but
// already-committed rows stay, and re-importing the same sheet is idempotent.
type RosterService interface {
	Import(ctx context.Context, sheetType, filename string, payload []byte) (dto.ImportResult, error)
}

type rosterService struct {
	users    repository.UserRepository
	students repository.StudentRepository
	teachers repository.TeacherRepository
	classes  repository.ClassRepository
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewRosterService builds the roster importer.
func NewRosterService(
	users repository.UserRepository,
	students repository.StudentRepository,
	teachers repository.TeacherRepository,
	classes repository.ClassRepository,
	logger zerolog.Logger,
) RosterService {
	return &rosterService{
		users:    users,
		students: students,
		teachers: teachers,
		classes:  classes,
		logger:   logger.With().Str("component", "roster_service").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/chulseok-go-api/internal/service/roster"),
	}
}

func (s *rosterService) Import(ctx context.Context, sheetType, filename string, payload []byte) (dto.ImportResult, error) {
	ctx, span := s.tracer.Start(ctx, "roster.import")
	defer span.End()
	span.SetAttributes(
		attribute.String("roster.sheet_type", sheetType),
		attribute.String("roster.filename", filename),
	)

	if sheetType != SheetStudents && sheetType != SheetTeachers {
		span.SetStatus(codes.Error, "unknown sheet type")
		return dto.ImportResult{}, fmt.Errorf("%w: %q", ErrUnknownSheetType, sheetType)
	}

	sheet, err := parseRosterSheet(payload)
	if err != nil {
		observability.RosterImportFailures().WithLabelValues(sheetType).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return dto.ImportResult{}, fmt.Errorf("%w: sheet %q: %v", ErrImportFailure, filename, err)
	}

	var result dto.ImportResult
	if sheetType == SheetStudents {
		result, err = s.importStudents(ctx, sheet)
	} else {
		result, err = s.importTeachers(ctx, sheet)
	}
	if err != nil {
		observability.RosterImportFailures().WithLabelValues(sheetType).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "import failed")
		return dto.ImportResult{}, err
	}

	span.SetAttributes(
		attribute.Int("roster.rows_created", result.Created),
		attribute.Int("roster.rows_updated", result.Updated),
	)
	s.logger.Info().
		Str("sheet_type", sheetType).
		Str("filename", filename).
		Int("created", result.Created).
		Int("updated", result.Updated).
		Msg("roster imported")

	return result, nil
}

func (s *rosterService) importStudents(ctx context.Context, sheet RosterSheet) (dto.ImportResult, error) {
	columns, missing := sheet.resolveColumns(studentColumns)
	if len(missing) > 0 {
		return dto.ImportResult{}, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	var result dto.ImportResult
	for i, row := range sheet.Rows {
		created, err := s.importStudentRow(ctx, row, columns)
		if err != nil {
			return result, fmt.Errorf("%w: students row %d: %v", ErrImportFailure, i+2, err)
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
		observability.RosterRowsImported().WithLabelValues(SheetStudents).Inc()
	}

	return result, nil
}

func (s *rosterService) importStudentRow(ctx context.Context, row RosterRow, columns map[string]string) (bool, error) {
	externalID := row[columns["학번"]]
	name := row[columns["이름"]]
	grade := row[columns["학년"]]
	classNumber := row[columns["반"]]
	rollValue := row[columns["번호"]]

	if externalID == "" || name == "" || grade == "" || classNumber == "" {
		return false, fmt.Errorf("row has empty required cells")
	}

	rollNumber, err := strconv.Atoi(rollValue)
	if err != nil {
		return false, fmt.Errorf("invalid roll number %q: %w", rollValue, err)
	}

	class, _, err := s.classes.GetOrCreate(ctx, grade, classNumber)
	if err != nil {
		return false, err
	}

	user, err := s.ensureUser(ctx, externalID, name, models.RoleStudent)
	if err != nil {
		return false, err
	}

	student, err := s.students.GetByExternalID(ctx, externalID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return false, err
		}

		student = models.Student{
			UserID:      user.ID,
			ExternalID:  externalID,
			Grade:       grade,
			ClassNumber: classNumber,
			RollNumber:  rollNumber,
		}
		if err := s.students.Create(ctx, &student); err != nil {
			return false, err
		}
		if err := s.classes.AdjustTotalStudents(ctx, class.ID, 1); err != nil {
			return false, err
		}

		return true, nil
	}

	// Re-import of a known student: when the section changed, move the
	// denormalized counter from the old class so it keeps matching the
	// student rows.
	if student.Grade != grade || student.ClassNumber != classNumber {
		oldClass, _, err := s.classes.GetOrCreate(ctx, student.Grade, student.ClassNumber)
		if err != nil {
			return false, err
		}
		if err := s.classes.AdjustTotalStudents(ctx, oldClass.ID, -1); err != nil {
			return false, err
		}
		if err := s.classes.AdjustTotalStudents(ctx, class.ID, 1); err != nil {
			return false, err
		}
	}

	student.Grade = grade
	student.ClassNumber = classNumber
	student.RollNumber = rollNumber
	if err := s.students.Update(ctx, &student); err != nil {
		return false, err
	}

	return false, nil
}

func (s *rosterService) importTeachers(ctx context.Context, sheet RosterSheet) (dto.ImportResult, error) {
	columns, missing := sheet.resolveColumns(teacherColumns)
	if len(missing) > 0 {
		return dto.ImportResult{}, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	var result dto.ImportResult
	for i, row := range sheet.Rows {
		created, err := s.importTeacherRow(ctx, row, columns)
		if err != nil {
			return result, fmt.Errorf("%w: teachers row %d: %v", ErrImportFailure, i+2, err)
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
		observability.RosterRowsImported().WithLabelValues(SheetTeachers).Inc()
	}

	return result, nil
}

func (s *rosterService) importTeacherRow(ctx context.Context, row RosterRow, columns map[string]string) (bool, error) {
	name := row[columns["이름"]]
	grade := row[columns["학년"]]
	classNumber := row[columns["반"]]

	if name == "" || grade == "" || classNumber == "" {
		return false, fmt.Errorf("row has empty required cells")
	}

	// The synthesized id admits one homeroom teacher per section;
	// co-teachers of the same section collide (kept as upstream behaves).
	externalID := models.TeacherExternalID(grade, classNumber)

	if _, _, err := s.classes.GetOrCreate(ctx, grade, classNumber); err != nil {
		return false, err
	}

	user, err := s.ensureUser(ctx, externalID, name, models.RoleTeacher)
	if err != nil {
		return false, err
	}

	teacher, err := s.teachers.GetByExternalID(ctx, externalID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return false, err
		}

		teacher = models.Teacher{
			UserID:      user.ID,
			ExternalID:  externalID,
			Grade:       grade,
			ClassNumber: classNumber,
		}
		if err := s.teachers.Create(ctx, &teacher); err != nil {
			return false, err
		}

		return true, nil
	}

	teacher.Grade = grade
	teacher.ClassNumber = classNumber
	if err := s.teachers.Update(ctx, &teacher); err != nil {
		return false, err
	}

	return false, nil
}

// ensureUser get-or-creates the login account for an imported identity.
// The default password equals the external id; existing accounts keep their
// password and display name.
func (s *rosterService) ensureUser(ctx context.Context, externalID, name string, role models.Role) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(externalID), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash default password: %w", err)
	}

	user, _, err := s.users.GetOrCreate(ctx, models.User{
		ExternalID:   externalID,
		PasswordHash: string(hash),
		Name:         name,
		Role:         role,
	})
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}
