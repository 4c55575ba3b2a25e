package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/chulseok-go-api/internal/models"
)

func seedAttendance(t *testing.T, db *gorm.DB, repo AttendanceRepository, period models.Period) models.Attendance {
	t.Helper()

	attendance := models.Attendance{
		Date:          time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Period:        period,
		ClassID:       1,
		SubmittedByID: 10,
		Status:        models.AttendanceStatusPending,
		TotalStudents: 2,
		PresentCount:  1,
	}
	reason := "병원"
	details := []models.AttendanceDetail{
		{StudentID: 1, Period1Present: true, Period2Present: true, Period3Present: true},
		{StudentID: 2, Period1Present: false, Period1Reason: &reason, Period2Present: true, Period3Present: true},
	}
	require.NoError(t, repo.CreateWithDetails(context.Background(), &attendance, details))

	return attendance
}

func TestAttendanceRepositoryCreateWithDetails(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAttendanceRepository(db)

	attendance := seedAttendance(t, db, repo, models.Period1)
	require.NotZero(t, attendance.ID)

	details, err := repo.ListDetails(context.Background(), attendance.ID)
	require.NoError(t, err)
	require.Len(t, details, 2)
	require.Equal(t, uint(1), details[0].StudentID)
	require.Equal(t, uint(2), details[1].StudentID)
	require.False(t, details[1].Period1Present)
	require.NotNil(t, details[1].Period1Reason)
	require.Equal(t, "병원", *details[1].Period1Reason)
}

func TestAttendanceRepositoryDuplicateTriple(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAttendanceRepository(db)

	first := seedAttendance(t, db, repo, models.Period1)

	duplicate := models.Attendance{
		Date:          first.Date,
		Period:        first.Period,
		ClassID:       first.ClassID,
		SubmittedByID: 11,
		Status:        models.AttendanceStatusPending,
	}
	err := repo.CreateWithDetails(context.Background(), &duplicate, nil)
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// A different period on the same day is a distinct submission.
	other := models.Attendance{
		Date:          first.Date,
		Period:        models.Period2,
		ClassID:       first.ClassID,
		SubmittedByID: 11,
		Status:        models.AttendanceStatusPending,
	}
	require.NoError(t, repo.CreateWithDetails(context.Background(), &other, nil))
}

func TestAttendanceRepositoryDuplicateLeavesNoDetails(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAttendanceRepository(db)

	seedAttendance(t, db, repo, models.Period1)

	duplicate := models.Attendance{
		Date:          time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Period:        models.Period1,
		ClassID:       1,
		SubmittedByID: 11,
		Status:        models.AttendanceStatusPending,
	}
	details := []models.AttendanceDetail{{StudentID: 3}}
	err := repo.CreateWithDetails(context.Background(), &duplicate, details)
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	var count int64
	require.NoError(t, db.Model(&models.AttendanceDetail{}).Where("student_id = ?", 3).Count(&count).Error)
	require.Zero(t, count)
}

func TestAttendanceRepositoryTransitionFromPending(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAttendanceRepository(db)

	attendance := seedAttendance(t, db, repo, models.Period1)

	transitioned, err := repo.TransitionFromPending(context.Background(), attendance.ID, models.AttendanceStatusApproved, 5)
	require.NoError(t, err)
	require.True(t, transitioned)

	got, err := repo.GetByID(context.Background(), attendance.ID)
	require.NoError(t, err)
	require.Equal(t, models.AttendanceStatusApproved, got.Status)
	require.NotNil(t, got.ApprovedByID)
	require.Equal(t, uint(5), *got.ApprovedByID)

	// Terminal states cannot be decided again.
	transitioned, err = repo.TransitionFromPending(context.Background(), attendance.ID, models.AttendanceStatusRejected, 6)
	require.NoError(t, err)
	require.False(t, transitioned)

	got, err = repo.GetByID(context.Background(), attendance.ID)
	require.NoError(t, err)
	require.Equal(t, models.AttendanceStatusApproved, got.Status)
	require.Equal(t, uint(5), *got.ApprovedByID)
}

func TestAttendanceRepositoryList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAttendanceRepository(db)

	first := seedAttendance(t, db, repo, models.Period2)
	second := seedAttendance(t, db, repo, models.Period1)
	otherClass := models.Attendance{
		Date:          first.Date,
		Period:        models.Period1,
		ClassID:       2,
		SubmittedByID: 12,
		Status:        models.AttendanceStatusPending,
	}
	require.NoError(t, repo.CreateWithDetails(context.Background(), &otherClass, nil))

	listed, err := repo.List(context.Background(), AttendanceFilter{ClassID: first.ClassID})
	require.NoError(t, err)
	require.Len(t, listed, 2)
	require.Equal(t, second.ID, listed[0].ID)
	require.Equal(t, first.ID, listed[1].ID)

	date := first.Date
	listed, err = repo.List(context.Background(), AttendanceFilter{Date: &date})
	require.NoError(t, err)
	require.Len(t, listed, 3)

	require.NoError(t, db.Model(&models.Attendance{}).
		Where("id = ?", first.ID).
		Update("status", models.AttendanceStatusApproved).Error)

	listed, err = repo.List(context.Background(), AttendanceFilter{Status: models.AttendanceStatusApproved})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, first.ID, listed[0].ID)
}
