package models

import "fmt"

// Class is one homeroom section. TotalStudents is a denormalized counter
// maintained by the roster importer, not recomputed from student rows.
type Class struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	Name          string `gorm:"size:64;uniqueIndex;not null" json:"name"`
	Grade         string `gorm:"size:8;uniqueIndex:idx_classes_grade_class;not null" json:"grade"`
	ClassNumber   string `gorm:"size:8;uniqueIndex:idx_classes_grade_class;not null" json:"class_number"`
	TotalStudents int    `gorm:"not null;default:0" json:"total_students"`
}

// ClassName derives the canonical display name for a grade/section pair.
func ClassName(grade, classNumber string) string {
	return fmt.Sprintf("%s학년 %s반", grade, classNumber)
}
