package service

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/chulseok-go-api/internal/models"
	"github.com/noah-isme/chulseok-go-api/internal/repository"
)

type testEnv struct {
	db          *gorm.DB
	users       repository.UserRepository
	students    repository.StudentRepository
	teachers    repository.TeacherRepository
	classes     repository.ClassRepository
	attendances repository.AttendanceRepository
	logger      zerolog.Logger
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Student{},
		&models.Teacher{},
		&models.Class{},
		&models.Attendance{},
		&models.AttendanceDetail{},
	))

	return &testEnv{
		db:          db,
		users:       repository.NewUserRepository(db),
		students:    repository.NewStudentRepository(db),
		teachers:    repository.NewTeacherRepository(db),
		classes:     repository.NewClassRepository(db),
		attendances: repository.NewAttendanceRepository(db),
		logger:      zerolog.Nop(),
	}
}

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	server := miniredis.RunT(t)

	return redis.NewClient(&redis.Options{Addr: server.Addr()})
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	return string(hash)
}

func (e *testEnv) seedClass(t *testing.T, grade, classNumber string) models.Class {
	t.Helper()

	class, _, err := e.classes.GetOrCreate(context.Background(), grade, classNumber)
	require.NoError(t, err)

	return class
}

func (e *testEnv) seedStudent(t *testing.T, externalID, name, grade, classNumber string, rollNumber int) (models.User, models.Student) {
	t.Helper()

	class := e.seedClass(t, grade, classNumber)
	user, _, err := e.users.GetOrCreate(context.Background(), models.User{
		ExternalID:   externalID,
		PasswordHash: hashPassword(t, externalID),
		Name:         name,
		Role:         models.RoleStudent,
	})
	require.NoError(t, err)

	student := models.Student{
		UserID:      user.ID,
		ExternalID:  externalID,
		Grade:       grade,
		ClassNumber: classNumber,
		RollNumber:  rollNumber,
	}
	require.NoError(t, e.students.Create(context.Background(), &student))
	require.NoError(t, e.classes.AdjustTotalStudents(context.Background(), class.ID, 1))

	return user, student
}

func (e *testEnv) seedTeacher(t *testing.T, name, grade, classNumber string) (models.User, models.Teacher) {
	t.Helper()

	e.seedClass(t, grade, classNumber)
	externalID := models.TeacherExternalID(grade, classNumber)
	user, _, err := e.users.GetOrCreate(context.Background(), models.User{
		ExternalID:   externalID,
		PasswordHash: hashPassword(t, externalID),
		Name:         name,
		Role:         models.RoleTeacher,
	})
	require.NoError(t, err)

	teacher := models.Teacher{
		UserID:      user.ID,
		ExternalID:  externalID,
		Grade:       grade,
		ClassNumber: classNumber,
	}
	require.NoError(t, e.teachers.Create(context.Background(), &teacher))

	return user, teacher
}
