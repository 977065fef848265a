package view

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"study-planner/internal/model"
)

// fakeRepo implements PlanRepository in memory and pushes a full snapshot to
// every open stream after each mutation, like the real store does.
type fakeRepo struct {
	mu         sync.Mutex
	items      []model.Assessment
	subs       map[chan []model.Assessment]struct{}
	nextAID    uint
	nextSID    uint
	itemsCalls int
	addErr     error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{subs: make(map[chan []model.Assessment]struct{}), nextAID: 1, nextSID: 1}
}

func (f *fakeRepo) Items(ctx context.Context) (<-chan []model.Assessment, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.itemsCalls++
	ch := make(chan []model.Assessment, 8)
	ch <- f.snapshotLocked()
	f.subs[ch] = struct{}{}
	var once sync.Once
	stop := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, ch)
			f.mu.Unlock()
			close(ch)
		})
	}
	return ch, stop, nil
}

func (f *fakeRepo) snapshotLocked() []model.Assessment {
	out := make([]model.Assessment, len(f.items))
	copy(out, f.items)
	return out
}

func (f *fakeRepo) publishLocked() {
	snap := f.snapshotLocked()
	for ch := range f.subs {
		ch <- snap
	}
}

func (f *fakeRepo) openStreams() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *fakeRepo) streamCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.itemsCalls
}

func (f *fakeRepo) AddAssessment(ctx context.Context, title string, dueAt time.Time) (uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return 0, f.addErr
	}
	id := f.nextAID
	f.nextAID++
	f.items = append(f.items, model.Assessment{ID: id, Title: title, DueAt: dueAt, Subtasks: []model.Subtask{}})
	f.publishLocked()
	return id, nil
}

func (f *fakeRepo) UpdateAssessment(ctx context.Context, id uint, title string, dueAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Title = title
			f.items[i].DueAt = dueAt
		}
	}
	f.publishLocked()
	return nil
}

func (f *fakeRepo) UpdateRemark(ctx context.Context, assessmentID uint, remark string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == assessmentID {
			f.items[i].Remark = remark
		}
	}
	f.publishLocked()
	return nil
}

func (f *fakeRepo) DeleteAssessment(ctx context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.items[:0]
	for _, a := range f.items {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	f.items = kept
	f.publishLocked()
	return nil
}

func (f *fakeRepo) AddSubtask(ctx context.Context, assessmentID uint, name string, dueAt time.Time) (uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextSID
	f.nextSID++
	for i := range f.items {
		if f.items[i].ID == assessmentID {
			f.items[i].Subtasks = append(f.items[i].Subtasks,
				model.Subtask{ID: id, AssessmentID: assessmentID, Name: name, DueAt: dueAt})
		}
	}
	f.publishLocked()
	return id, nil
}

func (f *fakeRepo) UpdateSubtask(ctx context.Context, assessmentID, subtaskID uint, name string, dueAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		for j := range f.items[i].Subtasks {
			if f.items[i].Subtasks[j].ID == subtaskID {
				f.items[i].Subtasks[j].Name = name
				f.items[i].Subtasks[j].DueAt = dueAt
			}
		}
	}
	f.publishLocked()
	return nil
}

func (f *fakeRepo) DeleteSubtask(ctx context.Context, assessmentID, subtaskID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		kept := f.items[i].Subtasks[:0]
		for _, st := range f.items[i].Subtasks {
			if st.ID != subtaskID {
				kept = append(kept, st)
			}
		}
		f.items[i].Subtasks = kept
	}
	f.publishLocked()
	return nil
}

func newTestProjector(t *testing.T, repo PlanRepository, grace time.Duration) *Projector {
	t.Helper()
	p, err := NewProjector(repo, grace, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func due(day int) time.Time {
	return time.Date(2030, time.January, day, 9, 0, 0, 0, time.Local)
}

func TestSnapshotStartsEmpty(t *testing.T) {
	p := newTestProjector(t, newFakeRepo(), time.Minute)

	snap := p.Snapshot()
	require.NotNil(t, snap)
	assert.Empty(t, snap)
}

func TestMutationsFlowThroughStream(t *testing.T) {
	repo := newFakeRepo()
	p := newTestProjector(t, repo, time.Minute)

	ch, cancel, err := p.Subscribe()
	require.NoError(t, err)
	defer cancel()

	id, err := p.AddAssessment(context.Background(), "Essay", due(10))
	require.NoError(t, err)

	views := waitFor(t, ch, func(v []AssessmentView) bool { return len(v) == 1 })
	assert.Equal(t, id, views[0].ID)
	assert.Equal(t, "Essay", views[0].Title)
	assert.True(t, views[0].DueAt.Equal(due(10)))
	assert.Empty(t, views[0].Remark)
	assert.Empty(t, views[0].Subtasks)

	stID, err := p.AddSubtask(context.Background(), id, "Outline", due(5))
	require.NoError(t, err)
	views = waitFor(t, ch, func(v []AssessmentView) bool {
		return len(v) == 1 && len(v[0].Subtasks) == 1
	})
	assert.Equal(t, stID, views[0].Subtasks[0].ID)
	assert.Equal(t, "Outline", views[0].Subtasks[0].Name)

	require.NoError(t, p.UpdateRemark(context.Background(), id, "cite sources"))
	views = waitFor(t, ch, func(v []AssessmentView) bool {
		return len(v) == 1 && v[0].Remark == "cite sources"
	})
	assert.Equal(t, "Essay", views[0].Title, "remark update must not touch the title")

	require.NoError(t, p.DeleteAssessment(context.Background(), id))
	waitFor(t, ch, func(v []AssessmentView) bool { return len(v) == 0 })
}

func TestSnapshotTracksLatestEmission(t *testing.T) {
	repo := newFakeRepo()
	p := newTestProjector(t, repo, time.Minute)

	_, err := p.AddAssessment(context.Background(), "Quiz", due(3))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap := p.Snapshot()
		return len(snap) == 1 && snap[0].Title == "Quiz"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestIntentErrorsPassThroughUnchanged(t *testing.T) {
	repo := newFakeRepo()
	repo.addErr = errors.New("disk gone")
	p := newTestProjector(t, repo, time.Minute)

	_, err := p.AddAssessment(context.Background(), "X", due(1))
	require.ErrorIs(t, err, repo.addErr)

	// Failed intents never dirty the published state.
	assert.Empty(t, p.Snapshot())
}

func TestIdleGraceTearsDownAndResumes(t *testing.T) {
	repo := newFakeRepo()
	p := newTestProjector(t, repo, 30*time.Millisecond)

	require.Equal(t, 1, repo.streamCalls(), "projector subscribes on construction")

	// No observer ever attached: the upstream subscription goes idle.
	require.Eventually(t, func() bool { return repo.openStreams() == 0 },
		2*time.Second, 5*time.Millisecond)

	// State changed while idle.
	_, err := p.AddAssessment(context.Background(), "Lab report", due(7))
	require.NoError(t, err)

	// A new observer resubscribes and still sees the latest state.
	ch, cancel, err := p.Subscribe()
	require.NoError(t, err)
	defer cancel()
	require.Equal(t, 2, repo.streamCalls())
	views := waitFor(t, ch, func(v []AssessmentView) bool { return len(v) == 1 })
	assert.Equal(t, "Lab report", views[0].Title)
}

func TestObserverKeepsUpstreamAlive(t *testing.T) {
	repo := newFakeRepo()
	p := newTestProjector(t, repo, 20*time.Millisecond)

	_, cancel, err := p.Subscribe()
	require.NoError(t, err)

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 1, repo.openStreams(), "subscription must stay while observed")

	cancel()
	require.Eventually(t, func() bool { return repo.openStreams() == 0 },
		2*time.Second, 5*time.Millisecond)
}

func TestBriefDetachReusesSubscription(t *testing.T) {
	repo := newFakeRepo()
	p := newTestProjector(t, repo, 200*time.Millisecond)

	_, cancel, err := p.Subscribe()
	require.NoError(t, err)
	cancel()

	// Reattach within the grace window: no churn upstream.
	_, cancel2, err := p.Subscribe()
	require.NoError(t, err)
	defer cancel2()
	assert.Equal(t, 1, repo.streamCalls())
	assert.Equal(t, 1, repo.openStreams())
}

func TestSubscribeDeliversCurrentSnapshotFirst(t *testing.T) {
	repo := newFakeRepo()
	p := newTestProjector(t, repo, time.Minute)

	_, err := p.AddAssessment(context.Background(), "Presentation", due(20))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(p.Snapshot()) == 1 },
		2*time.Second, 10*time.Millisecond)

	ch, cancel, err := p.Subscribe()
	require.NoError(t, err)
	defer cancel()

	views := waitFor(t, ch, func(v []AssessmentView) bool { return len(v) == 1 })
	assert.Equal(t, "Presentation", views[0].Title)
}

func TestOutdatedPumpCannotOverwriteNewerSnapshot(t *testing.T) {
	repo := newFakeRepo()
	p := newTestProjector(t, repo, time.Minute)

	_, err := p.AddAssessment(context.Background(), "Current", due(5))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(p.Snapshot()) == 1 },
		2*time.Second, 10*time.Millisecond)

	// A leftover buffered emission from a subscription torn down before its
	// pump drained. Generation 0 predates the live subscription, so the
	// emission must be discarded, not applied.
	leftovers := make(chan []model.Assessment, 1)
	leftovers <- []model.Assessment{}
	close(leftovers)

	done := make(chan struct{})
	go func() {
		p.pump(leftovers, 0)
		close(done)
	}()
	<-done

	snap := p.Snapshot()
	require.Len(t, snap, 1, "outdated emission overwrote the newer snapshot")
	assert.Equal(t, "Current", snap[0].Title)
}

func TestWaitReadyBlocksUntilFirstEmission(t *testing.T) {
	repo := newFakeRepo()
	_, err := repo.AddAssessment(context.Background(), "Seeded", due(2))
	require.NoError(t, err)

	p := newTestProjector(t, repo, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, p.WaitReady(ctx))

	snap := p.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "Seeded", snap[0].Title)
}

func TestWaitReadyHonorsContext(t *testing.T) {
	// A repo whose stream never emits.
	repo := newFakeRepo()
	p, err := NewProjector(silentRepo{repo}, time.Minute, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(p.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, p.WaitReady(ctx), context.DeadlineExceeded)
}

// silentRepo opens a stream that never emits, to exercise pre-emission state.
type silentRepo struct {
	*fakeRepo
}

func (s silentRepo) Items(ctx context.Context) (<-chan []model.Assessment, func(), error) {
	ch := make(chan []model.Assessment)
	var once sync.Once
	stop := func() { once.Do(func() { close(ch) }) }
	return ch, stop, nil
}

func TestCloseEndsSession(t *testing.T) {
	repo := newFakeRepo()
	p, err := NewProjector(repo, time.Minute, zerolog.Nop())
	require.NoError(t, err)

	ch, _, err := p.Subscribe()
	require.NoError(t, err)

	p.Close()
	p.Close() // safe twice

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond, "observer channel must close")

	assert.Zero(t, repo.openStreams())

	_, _, err = p.Subscribe()
	require.ErrorIs(t, err, ErrClosed)
}

func TestToViewsIsPureAndTotal(t *testing.T) {
	in := []model.Assessment{
		{ID: 2, Title: "B", DueAt: due(2), Remark: "r", Subtasks: []model.Subtask{
			{ID: 7, AssessmentID: 2, Name: "s", DueAt: due(1)},
		}},
		{ID: 3, Title: "C", DueAt: due(4), Subtasks: nil},
	}

	out := toViews(in)
	require.Len(t, out, 2)
	assert.Equal(t, uint(2), out[0].ID)
	assert.Equal(t, "r", out[0].Remark)
	require.Len(t, out[0].Subtasks, 1)
	assert.Equal(t, uint(7), out[0].Subtasks[0].ID)
	assert.NotNil(t, out[1].Subtasks, "nil subtask slices map to empty, not nil")
	assert.Empty(t, out[1].Subtasks)

	// Mutating the output never leaks back into the input.
	out[0].Subtasks[0].Name = "changed"
	assert.Equal(t, "s", in[0].Subtasks[0].Name)

	assert.Empty(t, toViews(nil))
}

func waitFor(t *testing.T, ch <-chan []AssessmentView, ok func([]AssessmentView) bool) []AssessmentView {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case views, open := <-ch:
			if !open {
				t.Fatal("stream closed while waiting for condition")
			}
			if ok(views) {
				return views
			}
		case <-deadline:
			t.Fatal("timed out waiting for matching snapshot")
		}
	}
}
