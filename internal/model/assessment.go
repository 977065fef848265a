package model

import "time"

// Assessment is a gradable piece of work (assignment, exam) with a deadline.
type Assessment struct {
	ID        uint `gorm:"primaryKey"`
	Title     string
	DueAt     time.Time `gorm:"index"`
	Remark    string    `gorm:"default:''"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Subtasks  []Subtask `gorm:"foreignKey:AssessmentID;constraint:OnDelete:CASCADE"`
}
