package models

import "time"

// Course is the top-level catalog unit owned by a teacher. The catalog itself
// is authored elsewhere; the assessment engine only reads ownership and
// enrollment from these tables.
type Course struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	TeacherID uint      `gorm:"not null;index" json:"teacher_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CourseModule groups lessons inside a course.
type CourseModule struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"not null;index" json:"course_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Course    Course    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"course"`
}

// Lesson is a single teachable unit inside a module.
type Lesson struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	ModuleID  uint         `gorm:"not null;index" json:"module_id"`
	Title     string       `gorm:"size:255;not null" json:"title"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Module    CourseModule `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"module"`
}

// CourseEnrollment grants a student full access to a course.
type CourseEnrollment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StudentID uint      `gorm:"not null;index:idx_course_enrollment,unique" json:"student_id"`
	CourseID  uint      `gorm:"not null;index:idx_course_enrollment,unique" json:"course_id"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	Course    Course    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"course"`
}

// ModuleEnrollment grants a student access to a single module.
type ModuleEnrollment struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	StudentID uint         `gorm:"not null;index:idx_module_enrollment,unique" json:"student_id"`
	ModuleID  uint         `gorm:"not null;index:idx_module_enrollment,unique" json:"module_id"`
	IsActive  bool         `gorm:"not null" json:"is_active"`
	CreatedAt time.Time    `json:"created_at"`
	Module    CourseModule `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"module"`
}
