package model

import "time"

// Subtask is one decomposition step of an Assessment. Its due date should stay
// before the parent's deadline, but that is a UI nicety: the store accepts any.
type Subtask struct {
	ID           uint `gorm:"primaryKey"`
	AssessmentID uint `gorm:"index"`
	Name         string
	DueAt        time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
