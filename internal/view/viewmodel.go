package view

import (
	"time"

	"study-planner/internal/model"
)

// SubtaskView is the flattened subtask shape screens render.
type SubtaskView struct {
	ID    uint
	Name  string
	DueAt time.Time
}

// AssessmentView is the flattened assessment shape screens render, with its
// subtasks in creation order.
type AssessmentView struct {
	ID       uint
	Title    string
	DueAt    time.Time
	Remark   string
	Subtasks []SubtaskView
}

// toViews maps a store snapshot into fresh view models. It allocates new
// slices on every call; emitted snapshots are never mutated in place.
func toViews(items []model.Assessment) []AssessmentView {
	views := make([]AssessmentView, 0, len(items))
	for _, a := range items {
		subtasks := make([]SubtaskView, 0, len(a.Subtasks))
		for _, st := range a.Subtasks {
			subtasks = append(subtasks, SubtaskView{ID: st.ID, Name: st.Name, DueAt: st.DueAt})
		}
		views = append(views, AssessmentView{
			ID:       a.ID,
			Title:    a.Title,
			DueAt:    a.DueAt,
			Remark:   a.Remark,
			Subtasks: subtasks,
		})
	}
	return views
}
