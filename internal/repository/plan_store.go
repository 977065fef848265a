package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"study-planner/internal/model"
)

// PlanStore handles CRUD for assessments and their subtasks and lets callers
// watch the full listing. Every successful mutation re-runs the listing query
// and pushes a fresh snapshot to all watchers.
type PlanStore struct {
	db  *gorm.DB
	log zerolog.Logger

	mu   sync.Mutex
	subs map[chan []model.Assessment]struct{}

	// notifyMu serializes the listing re-query with the fan-out. Without it,
	// two concurrent mutations could query in one order and deliver in the
	// other, handing watchers an older snapshot after a newer one.
	notifyMu sync.Mutex
}

func NewPlanStore(db *gorm.DB, log zerolog.Logger) *PlanStore {
	return &PlanStore{
		db:   db,
		log:  log,
		subs: make(map[chan []model.Assessment]struct{}),
	}
}

// ListAggregates returns every assessment joined with its subtasks, ordered by
// ascending due date. Subtasks come back in creation order.
func (s *PlanStore) ListAggregates(ctx context.Context) ([]model.Assessment, error) {
	var assessments []model.Assessment
	if err := s.db.WithContext(ctx).
		Preload("Subtasks", func(db *gorm.DB) *gorm.DB {
			return db.Order("subtasks.id ASC")
		}).
		Order("due_at ASC").
		Find(&assessments).Error; err != nil {
		return nil, fmt.Errorf("list aggregates: %w", err)
	}
	return assessments, nil
}

func (s *PlanStore) CountAssessments(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Assessment{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count assessments: %w", err)
	}
	return count, nil
}

func (s *PlanStore) AddAssessment(ctx context.Context, title string, dueAt time.Time) (uint, error) {
	assessment := model.Assessment{Title: title, DueAt: dueAt}
	if err := s.db.WithContext(ctx).Create(&assessment).Error; err != nil {
		return 0, fmt.Errorf("create assessment: %w", err)
	}
	s.notify(ctx)
	return assessment.ID, nil
}

// UpdateAssessment changes title and due date only; the remark column is left
// alone. A missing id is a silent no-op and emits no snapshot.
func (s *PlanStore) UpdateAssessment(ctx context.Context, id uint, title string, dueAt time.Time) error {
	result := s.db.WithContext(ctx).Model(&model.Assessment{}).Where("id = ?", id).
		Updates(map[string]interface{}{"title": title, "due_at": dueAt})
	if result.Error != nil {
		return fmt.Errorf("update assessment: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		s.notify(ctx)
	}
	return nil
}

// UpdateRemark changes the remark column only. A missing id is a silent no-op
// and emits no snapshot.
func (s *PlanStore) UpdateRemark(ctx context.Context, id uint, remark string) error {
	result := s.db.WithContext(ctx).Model(&model.Assessment{}).Where("id = ?", id).
		Update("remark", remark)
	if result.Error != nil {
		return fmt.Errorf("update remark: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		s.notify(ctx)
	}
	return nil
}

// DeleteAssessment removes an assessment and all its subtasks in one
// transaction, so no snapshot can observe an orphaned subtask. The schema
// also declares ON DELETE CASCADE, but the explicit delete keeps the
// behavior independent of the driver honoring the pragma.
func (s *PlanStore) DeleteAssessment(ctx context.Context, id uint) error {
	var removed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("assessment_id = ?", id).Delete(&model.Subtask{})
		if result.Error != nil {
			return result.Error
		}
		removed += result.RowsAffected
		result = tx.Delete(&model.Assessment{}, id)
		if result.Error != nil {
			return result.Error
		}
		removed += result.RowsAffected
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete assessment: %w", err)
	}
	if removed > 0 {
		s.notify(ctx)
	}
	return nil
}

func (s *PlanStore) AddSubtask(ctx context.Context, assessmentID uint, name string, dueAt time.Time) (uint, error) {
	subtask := model.Subtask{AssessmentID: assessmentID, Name: name, DueAt: dueAt}
	if err := s.db.WithContext(ctx).Create(&subtask).Error; err != nil {
		return 0, fmt.Errorf("create subtask: %w", err)
	}
	s.notify(ctx)
	return subtask.ID, nil
}

// UpdateSubtask changes name and due date. A missing id is a silent no-op and
// emits no snapshot.
func (s *PlanStore) UpdateSubtask(ctx context.Context, subtaskID uint, name string, dueAt time.Time) error {
	result := s.db.WithContext(ctx).Model(&model.Subtask{}).Where("id = ?", subtaskID).
		Updates(map[string]interface{}{"name": name, "due_at": dueAt})
	if result.Error != nil {
		return fmt.Errorf("update subtask: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		s.notify(ctx)
	}
	return nil
}

// DeleteSubtask removes a single subtask. Deleting an id that is already gone
// is a no-op and emits no snapshot.
func (s *PlanStore) DeleteSubtask(ctx context.Context, subtaskID uint) error {
	result := s.db.WithContext(ctx).Delete(&model.Subtask{}, subtaskID)
	if result.Error != nil {
		return fmt.Errorf("delete subtask: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		s.notify(ctx)
	}
	return nil
}

// Maintain compacts the SQLite file: truncates the WAL and refreshes query
// planner statistics. Run periodically, not on the request path.
func (s *PlanStore) Maintain(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.Exec("PRAGMA wal_checkpoint(TRUNCATE)").Error; err != nil {
		return fmt.Errorf("wal checkpoint: %w", err)
	}
	if err := db.Exec("PRAGMA optimize").Error; err != nil {
		return fmt.Errorf("optimize: %w", err)
	}
	return nil
}

// Watch returns a channel that carries the current listing immediately and a
// fresh full snapshot after every mutation. The channel holds one pending
// snapshot; when a watcher lags, older pending snapshots are replaced by
// newer ones, never the other way around. The returned stop func detaches
// the watcher and closes the channel.
func (s *PlanStore) Watch(ctx context.Context) (<-chan []model.Assessment, func(), error) {
	ch := make(chan []model.Assessment, 1)

	// Register before the initial query so a mutation committing in between
	// still reaches this watcher.
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	stop := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
			close(ch)
			close(done)
		})
	}

	// The initial query and offer run under notifyMu like any notify, so no
	// mutation's fan-out can interleave and end up ordered behind this older
	// snapshot. The offer never displaces a queued one: that one is newer.
	s.notifyMu.Lock()
	snapshot, err := s.ListAggregates(ctx)
	if err != nil {
		s.notifyMu.Unlock()
		stop()
		return nil, nil, err
	}
	s.mu.Lock()
	if _, ok := s.subs[ch]; ok {
		select {
		case ch <- snapshot:
		default:
		}
	}
	s.mu.Unlock()
	s.notifyMu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			stop()
		case <-done:
		}
	}()

	return ch, stop, nil
}

// notify re-queries the listing and fans it out to all watchers. Query and
// fan-out run as one unit under notifyMu: a notify that starts later queries
// at-least-as-new state and delivers after, so snapshots reach every watcher
// in non-regressing order even when mutations race.
func (s *PlanStore) notify(ctx context.Context) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	active := len(s.subs)
	s.mu.Unlock()
	if active == 0 {
		return
	}

	snapshot, err := s.ListAggregates(context.WithoutCancel(ctx))
	if err != nil {
		s.log.Error().Err(err).Msg("re-query listing for watchers")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		sendLatest(ch, snapshot)
	}
}

// sendLatest delivers a snapshot without blocking. When a watcher has not yet
// drained the previous one, the pending snapshot is replaced so the channel
// always holds the newest state.
func sendLatest(ch chan []model.Assessment, snapshot []model.Assessment) {
	select {
	case ch <- snapshot:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snapshot:
		default:
		}
	}
}
