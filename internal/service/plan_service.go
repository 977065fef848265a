package service

import (
	"context"
	"time"

	"study-planner/internal/model"
	"study-planner/internal/repository"
)

// PlanService is the application-facing face of the plan store. It forwards
// mutations one-to-one and exposes the store's listing stream; it performs no
// validation and translates no errors, so store faults reach callers as-is.
type PlanService struct {
	store *repository.PlanStore
}

func NewPlanService(store *repository.PlanStore) *PlanService {
	return &PlanService{store: store}
}

// Items returns the live snapshot stream of assessments with their subtasks.
func (s *PlanService) Items(ctx context.Context) (<-chan []model.Assessment, func(), error) {
	return s.store.Watch(ctx)
}

func (s *PlanService) AddAssessment(ctx context.Context, title string, dueAt time.Time) (uint, error) {
	return s.store.AddAssessment(ctx, title, dueAt)
}

func (s *PlanService) UpdateAssessment(ctx context.Context, id uint, title string, dueAt time.Time) error {
	return s.store.UpdateAssessment(ctx, id, title, dueAt)
}

func (s *PlanService) UpdateRemark(ctx context.Context, assessmentID uint, remark string) error {
	return s.store.UpdateRemark(ctx, assessmentID, remark)
}

// DeleteAssessment relies on the store removing the assessment's subtasks in
// the same transaction as the assessment itself.
func (s *PlanService) DeleteAssessment(ctx context.Context, id uint) error {
	return s.store.DeleteAssessment(ctx, id)
}

func (s *PlanService) AddSubtask(ctx context.Context, assessmentID uint, name string, dueAt time.Time) (uint, error) {
	return s.store.AddSubtask(ctx, assessmentID, name, dueAt)
}

// UpdateSubtask takes the parent assessment id for interface symmetry with
// the other subtask calls; the store keys subtasks by their own id.
func (s *PlanService) UpdateSubtask(ctx context.Context, assessmentID, subtaskID uint, name string, dueAt time.Time) error {
	return s.store.UpdateSubtask(ctx, subtaskID, name, dueAt)
}

func (s *PlanService) DeleteSubtask(ctx context.Context, assessmentID, subtaskID uint) error {
	return s.store.DeleteSubtask(ctx, subtaskID)
}

func (s *PlanService) CountAssessments(ctx context.Context) (int64, error) {
	return s.store.CountAssessments(ctx)
}
