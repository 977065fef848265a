package service

import (
	"context"
	"fmt"
	"time"

	"study-planner/internal/repository"
)

// SeedService populates an empty store with a few sample assessments so a
// first run has something on screen.
type SeedService struct {
	store *repository.PlanStore
}

func NewSeedService(store *repository.PlanStore) *SeedService {
	return &SeedService{store: store}
}

// SeedIfEmpty inserts the samples when the store holds no assessments yet.
// It reports whether seeding happened.
func (s *SeedService) SeedIfEmpty(ctx context.Context, now time.Time) (bool, error) {
	count, err := s.store.CountAssessments(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	samples := []struct {
		title    string
		dueIn    time.Duration
		subtasks []struct {
			name  string
			dueIn time.Duration
		}
	}{
		{
			title: "Algorithms assignment 1",
			dueIn: 7 * 24 * time.Hour,
			subtasks: []struct {
				name  string
				dueIn time.Duration
			}{
				{name: "Read problem set", dueIn: 2 * 24 * time.Hour},
				{name: "Draft solutions", dueIn: 5 * 24 * time.Hour},
			},
		},
		{
			title: "Statistics midterm",
			dueIn: 14 * 24 * time.Hour,
			subtasks: []struct {
				name  string
				dueIn time.Duration
			}{
				{name: "Revise lecture notes", dueIn: 10 * 24 * time.Hour},
			},
		},
	}

	for _, sample := range samples {
		id, err := s.store.AddAssessment(ctx, sample.title, now.Add(sample.dueIn))
		if err != nil {
			return false, fmt.Errorf("seed assessment %q: %w", sample.title, err)
		}
		for _, st := range sample.subtasks {
			if _, err := s.store.AddSubtask(ctx, id, st.name, now.Add(st.dueIn)); err != nil {
				return false, fmt.Errorf("seed subtask %q: %w", st.name, err)
			}
		}
	}
	return true, nil
}
