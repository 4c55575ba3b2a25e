package models

import "fmt"

// Student is the school profile owned by a user with RoleStudent.
type Student struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	UserID      uint   `gorm:"uniqueIndex;not null" json:"user_id"`
	ExternalID  string `gorm:"size:64;uniqueIndex;not null" json:"external_id"`
	Grade       string `gorm:"size:8;not null" json:"grade"`
	ClassNumber string `gorm:"size:8;not null" json:"class_number"`
	RollNumber  int    `gorm:"not null" json:"roll_number"`
}

// Teacher is the school profile owned by a user with RoleTeacher. Grade and
// ClassNumber record the homeroom section the teacher is assigned to.
type Teacher struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	UserID      uint   `gorm:"uniqueIndex;not null" json:"user_id"`
	ExternalID  string `gorm:"size:64;uniqueIndex;not null" json:"external_id"`
	Grade       string `gorm:"size:8;not null" json:"grade"`
	ClassNumber string `gorm:"size:8;not null" json:"class_number"`
}

// TeacherExternalID synthesizes the login id for a homeroom teacher.
// The scheme admits only one teacher per grade/section pair; co-teachers
// for the same section would collide.
func TeacherExternalID(grade, classNumber string) string {
	return fmt.Sprintf("T%s%s000", grade, classNumber)
}
