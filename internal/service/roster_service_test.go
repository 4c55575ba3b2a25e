package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/chulseok-go-api/internal/models"
)

func newTestRosterService(t *testing.T, env *testEnv) RosterService {
	t.Helper()

	return NewRosterService(env.users, env.students, env.teachers, env.classes, env.logger)
}

const studentSheetCSV = "학번,이름,학년,반,번호\n" +
	"10101,김철수,1,1,1\n" +
	"10102,이영희,1,1,2\n"

func TestRosterServiceImportStudents(t *testing.T) {
	env := setupTestEnv(t)
	svc := newTestRosterService(t, env)

	result, err := svc.Import(context.Background(), SheetStudents, "students.csv", []byte(studentSheetCSV))
	require.NoError(t, err)
	require.Equal(t, 2, result.Created)
	require.Zero(t, result.Updated)

	class, err := env.classes.GetByGradeClass(context.Background(), "1", "1")
	require.NoError(t, err)
	require.Equal(t, "1학년 1반", class.Name)
	require.Equal(t, 2, class.TotalStudents)

	student, err := env.students.GetByExternalID(context.Background(), "10102")
	require.NoError(t, err)
	require.Equal(t, 2, student.RollNumber)

	user, err := env.users.GetByExternalID(context.Background(), "10101")
	require.NoError(t, err)
	require.Equal(t, models.RoleStudent, user.Role)
	require.Equal(t, "김철수", user.Name)
	// The default password is the student's own id.
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("10101")))
}

func TestRosterServiceReimportIsIdempotent(t *testing.T) {
	env := setupTestEnv(t)
	svc := newTestRosterService(t, env)

	_, err := svc.Import(context.Background(), SheetStudents, "students.csv", []byte(studentSheetCSV))
	require.NoError(t, err)

	result, err := svc.Import(context.Background(), SheetStudents, "students.csv", []byte(studentSheetCSV))
	require.NoError(t, err)
	require.Zero(t, result.Created)
	require.Equal(t, 2, result.Updated)

	class, err := env.classes.GetByGradeClass(context.Background(), "1", "1")
	require.NoError(t, err)
	require.Equal(t, 2, class.TotalStudents)
}

func TestRosterServiceImportMovesStudentBetweenClasses(t *testing.T) {
	env := setupTestEnv(t)
	svc := newTestRosterService(t, env)

	_, err := svc.Import(context.Background(), SheetStudents, "students.csv", []byte(studentSheetCSV))
	require.NoError(t, err)

	moved := "학번,이름,학년,반,번호\n10102,이영희,1,2,1\n"
	result, err := svc.Import(context.Background(), SheetStudents, "students.csv", []byte(moved))
	require.NoError(t, err)
	require.Equal(t, 1, result.Updated)

	oldClass, err := env.classes.GetByGradeClass(context.Background(), "1", "1")
	require.NoError(t, err)
	require.Equal(t, 1, oldClass.TotalStudents)

	newClass, err := env.classes.GetByGradeClass(context.Background(), "1", "2")
	require.NoError(t, err)
	require.Equal(t, 1, newClass.TotalStudents)

	student, err := env.students.GetByExternalID(context.Background(), "10102")
	require.NoError(t, err)
	require.Equal(t, "2", student.ClassNumber)
	require.Equal(t, 1, student.RollNumber)
}

func TestRosterServiceImportMissingColumns(t *testing.T) {
	env := setupTestEnv(t)
	svc := newTestRosterService(t, env)

	payload := "학번,이름\n10101,김철수\n"
	_, err := svc.Import(context.Background(), SheetStudents, "students.csv", []byte(payload))
	require.ErrorIs(t, err, ErrMissingColumns)
}

func TestRosterServiceImportBadRowKeepsEarlierRows(t *testing.T) {
	env := setupTestEnv(t)
	svc := newTestRosterService(t, env)

	payload := "학번,이름,학년,반,번호\n" +
		"10101,김철수,1,1,1\n" +
		"10102,이영희,1,1,abc\n"
	_, err := svc.Import(context.Background(), SheetStudents, "students.csv", []byte(payload))
	require.ErrorIs(t, err, ErrImportFailure)

	_, err = env.students.GetByExternalID(context.Background(), "10101")
	require.NoError(t, err)
}

func TestRosterServiceImportUnknownSheetType(t *testing.T) {
	env := setupTestEnv(t)
	svc := newTestRosterService(t, env)

	_, err := svc.Import(context.Background(), "aliens", "roster.csv", []byte(studentSheetCSV))
	require.ErrorIs(t, err, ErrUnknownSheetType)
}

func TestRosterServiceImportTeachers(t *testing.T) {
	env := setupTestEnv(t)
	svc := newTestRosterService(t, env)

	payload := "이름,학년,반\n박선생,1,1\n"
	result, err := svc.Import(context.Background(), SheetTeachers, "teachers.csv", []byte(payload))
	require.NoError(t, err)
	require.Equal(t, 1, result.Created)

	teacher, err := env.teachers.GetByExternalID(context.Background(), "T11000")
	require.NoError(t, err)
	require.Equal(t, "1", teacher.Grade)
	require.Equal(t, "1", teacher.ClassNumber)

	user, err := env.users.GetByExternalID(context.Background(), "T11000")
	require.NoError(t, err)
	require.Equal(t, models.RoleTeacher, user.Role)
	require.Equal(t, "박선생", user.Name)

	again, err := svc.Import(context.Background(), SheetTeachers, "teachers.csv", []byte(payload))
	require.NoError(t, err)
	require.Equal(t, 1, again.Updated)
}

func TestRosterServiceImportExcelWorkbook(t *testing.T) {
	env := setupTestEnv(t)
	svc := newTestRosterService(t, env)

	workbook := excelize.NewFile()
	sheet := workbook.GetSheetName(0)
	rows := [][]interface{}{
		{"학번", "이름", "학년", "반", "번호"},
		{"10101", "김철수", "1", "1", "1"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, workbook.SetSheetRow(sheet, cell, &row))
	}
	buffer, err := workbook.WriteToBuffer()
	require.NoError(t, err)

	result, err := svc.Import(context.Background(), SheetStudents, "students.xlsx", buffer.Bytes())
	require.NoError(t, err)
	require.Equal(t, 1, result.Created)

	student, err := env.students.GetByExternalID(context.Background(), "10101")
	require.NoError(t, err)
	require.Equal(t, "1", student.Grade)
}
