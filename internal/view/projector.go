package view

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"study-planner/internal/model"
)

// DefaultIdleGrace is how long the projector keeps its store subscription
// alive after the last observer detaches. Brief teardown/reattach cycles
// (a screen being rebuilt) then reuse the live subscription instead of
// re-running the listing query.
const DefaultIdleGrace = 5 * time.Second

// ErrClosed is returned by Subscribe after the projector's session ended.
var ErrClosed = errors.New("projector closed")

// PlanRepository is what the projector needs from the plan service. Tests
// substitute a fake.
type PlanRepository interface {
	Items(ctx context.Context) (<-chan []model.Assessment, func(), error)
	AddAssessment(ctx context.Context, title string, dueAt time.Time) (uint, error)
	UpdateAssessment(ctx context.Context, id uint, title string, dueAt time.Time) error
	UpdateRemark(ctx context.Context, assessmentID uint, remark string) error
	DeleteAssessment(ctx context.Context, id uint) error
	AddSubtask(ctx context.Context, assessmentID uint, name string, dueAt time.Time) (uint, error)
	UpdateSubtask(ctx context.Context, assessmentID, subtaskID uint, name string, dueAt time.Time) error
	DeleteSubtask(ctx context.Context, assessmentID, subtaskID uint) error
}

// Projector holds the one view-state snapshot all screens observe. It maps
// every repository emission into view models and republishes them; mutation
// intents go down to the repository and never touch the cached snapshot
// directly, so observers only ever see committed store state.
type Projector struct {
	repo  PlanRepository
	log   zerolog.Logger
	grace time.Duration

	mu           sync.Mutex
	snapshot     []AssessmentView
	observers    map[chan []AssessmentView]struct{}
	upstreamStop func()
	// upstreamGen identifies the current upstream subscription; a pump from a
	// torn-down subscription carries an older generation and its leftover
	// emissions are discarded instead of overwriting newer state.
	upstreamGen uint64
	idleTimer   *time.Timer
	closed      bool

	primed    chan struct{}
	primeOnce sync.Once
}

// NewProjector subscribes to the repository's item stream and starts serving
// snapshots. The initial snapshot is empty until the first emission lands.
func NewProjector(repo PlanRepository, grace time.Duration, log zerolog.Logger) (*Projector, error) {
	if grace <= 0 {
		grace = DefaultIdleGrace
	}
	p := &Projector{
		repo:      repo,
		log:       log,
		grace:     grace,
		snapshot:  []AssessmentView{},
		observers: make(map[chan []AssessmentView]struct{}),
		primed:    make(chan struct{}),
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.startUpstream(); err != nil {
		return nil, err
	}
	p.armIdleTimer()
	return p, nil
}

// Snapshot returns the last published view state. Never nil.
func (p *Projector) Snapshot() []AssessmentView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot
}

// WaitReady blocks until the first store emission has been projected, so a
// one-shot consumer reading Snapshot right after startup does not see the
// pre-emission empty state. Returns immediately once primed.
func (p *Projector) WaitReady(ctx context.Context) error {
	select {
	case <-p.primed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers an observer. The returned channel immediately carries
// the current snapshot and then every newer one; a slow observer skips
// intermediate snapshots but never receives an older one after a newer one.
// The cancel func detaches the observer.
func (p *Projector) Subscribe() (<-chan []AssessmentView, func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, nil, ErrClosed
	}

	if p.idleTimer != nil {
		p.idleTimer.Stop()
		p.idleTimer = nil
	}
	if p.upstreamStop == nil {
		if err := p.startUpstream(); err != nil {
			return nil, nil, err
		}
	}

	ch := make(chan []AssessmentView, 1)
	ch <- p.snapshot
	p.observers[ch] = struct{}{}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			if _, ok := p.observers[ch]; !ok {
				return
			}
			delete(p.observers, ch)
			close(ch)
			if len(p.observers) == 0 && !p.closed {
				p.armIdleTimer()
			}
		})
	}
	return ch, cancel, nil
}

// Close ends the projector's session. Mutation intents already in flight are
// unaffected; they complete against the store on their own contexts.
func (p *Projector) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.primeOnce.Do(func() { close(p.primed) })
	if p.idleTimer != nil {
		p.idleTimer.Stop()
		p.idleTimer = nil
	}
	if p.upstreamStop != nil {
		p.upstreamStop()
		p.upstreamStop = nil
		p.upstreamGen++
	}
	for ch := range p.observers {
		delete(p.observers, ch)
		close(ch)
	}
}

func (p *Projector) AddAssessment(ctx context.Context, title string, dueAt time.Time) (uint, error) {
	return p.repo.AddAssessment(ctx, title, dueAt)
}

func (p *Projector) UpdateAssessment(ctx context.Context, id uint, title string, dueAt time.Time) error {
	return p.repo.UpdateAssessment(ctx, id, title, dueAt)
}

func (p *Projector) UpdateRemark(ctx context.Context, assessmentID uint, remark string) error {
	return p.repo.UpdateRemark(ctx, assessmentID, remark)
}

func (p *Projector) DeleteAssessment(ctx context.Context, id uint) error {
	return p.repo.DeleteAssessment(ctx, id)
}

func (p *Projector) AddSubtask(ctx context.Context, assessmentID uint, name string, dueAt time.Time) (uint, error) {
	return p.repo.AddSubtask(ctx, assessmentID, name, dueAt)
}

func (p *Projector) UpdateSubtask(ctx context.Context, assessmentID, subtaskID uint, name string, dueAt time.Time) error {
	return p.repo.UpdateSubtask(ctx, assessmentID, subtaskID, name, dueAt)
}

func (p *Projector) DeleteSubtask(ctx context.Context, assessmentID, subtaskID uint) error {
	return p.repo.DeleteSubtask(ctx, assessmentID, subtaskID)
}

// startUpstream opens the repository stream and pumps it. Caller holds p.mu.
func (p *Projector) startUpstream() error {
	ctx, cancel := context.WithCancel(context.Background())
	ch, stop, err := p.repo.Items(ctx)
	if err != nil {
		cancel()
		return err
	}
	p.upstreamStop = func() {
		cancel()
		stop()
	}
	p.upstreamGen++
	go p.pump(ch, p.upstreamGen)
	return nil
}

// pump maps upstream emissions into view models and fans them out. It exits
// when the upstream channel closes (idle teardown or projector close). Once
// its subscription is no longer current, remaining buffered emissions are
// drained without being applied.
func (p *Projector) pump(ch <-chan []model.Assessment, gen uint64) {
	for items := range ch {
		views := toViews(items)
		p.mu.Lock()
		if gen != p.upstreamGen {
			p.mu.Unlock()
			continue
		}
		p.snapshot = views
		for obs := range p.observers {
			publishLatest(obs, views)
		}
		p.mu.Unlock()
		p.primeOnce.Do(func() { close(p.primed) })
	}
}

// armIdleTimer schedules upstream teardown once no observer has appeared for
// the grace window. Caller holds p.mu.
func (p *Projector) armIdleTimer() {
	timer := time.AfterFunc(p.grace, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed || len(p.observers) > 0 || p.upstreamStop == nil {
			return
		}
		p.log.Debug().Dur("grace", p.grace).Msg("no observers, pausing store subscription")
		p.upstreamStop()
		p.upstreamStop = nil
		p.upstreamGen++
	})
	p.idleTimer = timer
}

// publishLatest delivers a snapshot without blocking, replacing any pending
// older snapshot the observer has not drained yet.
func publishLatest(ch chan []AssessmentView, views []AssessmentView) {
	select {
	case ch <- views:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- views:
		default:
		}
	}
}
