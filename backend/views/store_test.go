package views

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"miniapp/backend/courseprogress"
	"miniapp/backend/models"

	"github.com/go-co-op/gocron"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu        sync.Mutex
	course    models.Course
	getErr    error
	commitErr error
	failFor   map[string]error
	gate      chan struct{} // when set, CompleteLesson waits for a value
	commits   []string
	tokens    []string
	inFlight  int
	maxFlight int
}

func (f *fakeSource) GetCourse(ctx context.Context, token, courseID string) (models.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	if f.getErr != nil {
		return models.Course{}, f.getErr
	}
	return f.course.Clone(), nil
}

func (f *fakeSource) CompleteLesson(ctx context.Context, token, courseID, lessonID string) error {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxFlight {
		f.maxFlight = f.inFlight
	}
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	f.commits = append(f.commits, courseID+"/"+lessonID)
	if err, ok := f.failFor[lessonID]; ok {
		return err
	}
	return f.commitErr
}

func demoCourse() models.Course {
	return models.Course{
		ID:    "go",
		Title: "Go",
		Sections: []models.Section{
			{ID: "s1", Lessons: []models.Lesson{
				{ID: "a", Completed: true},
				{ID: "b"},
			}},
			{ID: "s2", Lessons: []models.Lesson{{ID: "c"}}},
		},
	}
}

func newTestStore(src Source) *Store {
	return NewStore(src, log.New(io.Discard, "", 0), time.Second, time.Minute)
}

func waitResult(t *testing.T, p *Pending) Result {
	t.Helper()
	select {
	case r := <-p.Done():
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("toggle commit did not resolve")
		return Result{}
	}
}

func TestOpenReady(t *testing.T) {
	src := &fakeSource{course: demoCourse()}
	s := newTestStore(src)

	snap := s.Open(context.Background(), "tok", "go")

	assert.Equal(t, Ready, snap.State)
	assert.NotEmpty(t, snap.ViewID)
	require.NotNil(t, snap.Course)
	assert.Equal(t, 33, snap.Course.Progress)
	assert.Equal(t, 33, snap.Progress)
	assert.Equal(t, 3, snap.Total)
	assert.Len(t, snap.Lessons, 3)
	assert.Equal(t, []string{"tok"}, src.tokens)
}

func TestOpenFailureIsErrorState(t *testing.T) {
	src := &fakeSource{getErr: fiber.NewError(fiber.StatusForbidden, "no access")}
	s := newTestStore(src)

	snap := s.Open(context.Background(), "tok", "go")

	assert.Equal(t, Failed, snap.State)
	assert.Equal(t, "no access", snap.Error)
	assert.Equal(t, fiber.StatusForbidden, snap.Status)
	assert.Nil(t, snap.Course)

	// No automatic retry: Get returns the same error state.
	again := s.Get(context.Background(), "tok", "go")
	assert.Equal(t, Failed, again.State)
	assert.Len(t, src.tokens, 1)
}

func TestGetReusesView(t *testing.T) {
	src := &fakeSource{course: demoCourse()}
	s := newTestStore(src)

	first := s.Get(context.Background(), "tok", "go")
	second := s.Get(context.Background(), "tok", "go")

	assert.Equal(t, first.ViewID, second.ViewID)
	assert.Len(t, src.tokens, 1)

	other := s.Get(context.Background(), "someone-else", "go")
	assert.NotEqual(t, first.ViewID, other.ViewID)
	assert.Equal(t, 2, s.Len())
}

func TestToggleIsOptimistic(t *testing.T) {
	src := &fakeSource{course: demoCourse(), gate: make(chan struct{})}
	s := newTestStore(src)
	s.Open(context.Background(), "tok", "go")

	p, err := s.Toggle(context.Background(), "tok", "go", "b")
	require.NoError(t, err)

	// Visible before the course API has answered.
	assert.Equal(t, 67, p.Snapshot.Progress)
	assert.Equal(t, 67, s.Get(context.Background(), "tok", "go").Progress)

	src.gate <- struct{}{}
	r := waitResult(t, p)
	assert.NoError(t, r.Err)
	assert.Equal(t, courseprogress.Confirmed, r.State)
	assert.Equal(t, 67, s.Get(context.Background(), "tok", "go").Progress)
	assert.Equal(t, []string{"go/b"}, src.commits)
}

func TestToggleFailureRollsBackWithNotice(t *testing.T) {
	src := &fakeSource{course: demoCourse(), commitErr: errors.New("boom")}
	s := newTestStore(src)
	before := s.Open(context.Background(), "tok", "go")

	p, err := s.Toggle(context.Background(), "tok", "go", "a")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Snapshot.Progress)

	r := waitResult(t, p)
	assert.Equal(t, courseprogress.RolledBack, r.State)
	assert.EqualError(t, r.Err, "boom")

	after := s.Get(context.Background(), "tok", "go")
	assert.Equal(t, before.Course, after.Course)
	assert.Equal(t, before.Progress, after.Progress)
	require.Len(t, after.Notices, 1)
	assert.Equal(t, NoticeCompletionFailed, after.Notices[0].Kind)
	assert.Equal(t, "a", after.Notices[0].LessonID)

	// Notices are delivered once.
	assert.Empty(t, s.Get(context.Background(), "tok", "go").Notices)
}

func TestStaleRollbackIgnoredAfterReopen(t *testing.T) {
	src := &fakeSource{course: demoCourse(), gate: make(chan struct{}), commitErr: errors.New("late failure")}
	s := newTestStore(src)
	s.Open(context.Background(), "tok", "go")

	p, err := s.Toggle(context.Background(), "tok", "go", "b")
	require.NoError(t, err)

	// The user navigated away and came back: a fresh view replaces the old one.
	src.mu.Lock()
	src.course.Sections[0].Lessons[1].Completed = true
	src.mu.Unlock()
	fresh := s.Open(context.Background(), "tok", "go")
	assert.Equal(t, 67, fresh.Progress)

	src.gate <- struct{}{}
	r := waitResult(t, p)
	assert.Equal(t, courseprogress.RolledBack, r.State)

	now := s.Get(context.Background(), "tok", "go")
	assert.Equal(t, fresh.ViewID, now.ViewID)
	assert.Equal(t, 67, now.Progress, "rollback must not touch the new view")
	assert.Empty(t, now.Notices)
}

func TestRollbackKeepsOtherLessons(t *testing.T) {
	src := &fakeSource{
		course:  demoCourse(),
		gate:    make(chan struct{}),
		failFor: map[string]error{"b": errors.New("boom")},
	}
	s := newTestStore(src)
	s.Open(context.Background(), "tok", "go")

	pb, err := s.Toggle(context.Background(), "tok", "go", "b")
	require.NoError(t, err)
	pc, err := s.Toggle(context.Background(), "tok", "go", "c")
	require.NoError(t, err)
	assert.Equal(t, 100, pc.Snapshot.Progress)

	src.gate <- struct{}{}
	src.gate <- struct{}{}
	assert.Equal(t, courseprogress.RolledBack, waitResult(t, pb).State)
	assert.Equal(t, courseprogress.Confirmed, waitResult(t, pc).State)

	snap := s.Get(context.Background(), "tok", "go")
	require.Len(t, snap.Lessons, 3)
	assert.True(t, snap.Lessons[0].Completed)
	assert.False(t, snap.Lessons[1].Completed)
	assert.True(t, snap.Lessons[2].Completed)
	assert.Equal(t, 67, snap.Progress)
}

func TestTogglesOfSameLessonAreSerialized(t *testing.T) {
	src := &fakeSource{course: demoCourse(), gate: make(chan struct{})}
	s := newTestStore(src)
	s.Open(context.Background(), "tok", "go")

	first, err := s.Toggle(context.Background(), "tok", "go", "b")
	require.NoError(t, err)

	secondCh := make(chan *Pending, 1)
	go func() {
		p, err := s.Toggle(context.Background(), "tok", "go", "b")
		assert.NoError(t, err)
		secondCh <- p
	}()

	select {
	case <-secondCh:
		t.Fatal("second toggle of the same lesson must wait for the first commit")
	case <-time.After(50 * time.Millisecond):
	}

	src.gate <- struct{}{}
	waitResult(t, first)

	var second *Pending
	select {
	case second = <-secondCh:
	case <-time.After(2 * time.Second):
		t.Fatal("second toggle never started")
	}
	assert.Equal(t, 33, second.Snapshot.Progress, "b flips back to not completed")

	src.gate <- struct{}{}
	waitResult(t, second)

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.Equal(t, 1, src.maxFlight)
}

func TestTogglesOfSameLessonAreSerializedAcrossReopen(t *testing.T) {
	src := &fakeSource{course: demoCourse(), gate: make(chan struct{})}
	s := newTestStore(src)
	s.Open(context.Background(), "tok", "go")

	first, err := s.Toggle(context.Background(), "tok", "go", "b")
	require.NoError(t, err)

	// The user leaves and opens the course again while b is still saving.
	fresh := s.Open(context.Background(), "tok", "go")
	assert.Equal(t, 33, fresh.Progress)

	secondCh := make(chan *Pending, 1)
	go func() {
		p, err := s.Toggle(context.Background(), "tok", "go", "b")
		assert.NoError(t, err)
		secondCh <- p
	}()

	select {
	case <-secondCh:
		t.Fatal("toggle in the reopened view must wait for the earlier commit of the same lesson")
	case <-time.After(50 * time.Millisecond):
	}

	src.gate <- struct{}{}
	waitResult(t, first)

	var second *Pending
	select {
	case second = <-secondCh:
	case <-time.After(2 * time.Second):
		t.Fatal("second toggle never started")
	}
	assert.Equal(t, fresh.ViewID, second.Snapshot.ViewID)
	assert.Equal(t, 67, second.Snapshot.Progress)

	src.gate <- struct{}{}
	waitResult(t, second)

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.Equal(t, 1, src.maxFlight)
	assert.Equal(t, []string{"go/b", "go/b"}, src.commits)
}

func TestLessonLocksAreReleased(t *testing.T) {
	src := &fakeSource{course: demoCourse()}
	s := newTestStore(src)
	s.Open(context.Background(), "tok", "go")

	for _, id := range []string{"x1", "x2", "x3"} {
		_, err := s.Toggle(context.Background(), "tok", "go", id)
		assert.ErrorIs(t, err, courseprogress.ErrLessonNotFound)
	}

	p, err := s.Toggle(context.Background(), "tok", "go", "b")
	require.NoError(t, err)
	waitResult(t, p)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Empty(t, s.locks)
}

func TestPeekKeepsNotices(t *testing.T) {
	src := &fakeSource{course: demoCourse(), commitErr: errors.New("boom")}
	s := newTestStore(src)
	s.Open(context.Background(), "tok", "go")

	p, err := s.Toggle(context.Background(), "tok", "go", "b")
	require.NoError(t, err)
	waitResult(t, p)

	assert.Len(t, s.Peek(context.Background(), "tok", "go").Notices, 1)
	assert.Len(t, s.Peek(context.Background(), "tok", "go").Notices, 1)
	assert.Len(t, s.Get(context.Background(), "tok", "go").Notices, 1)
	assert.Empty(t, s.Peek(context.Background(), "tok", "go").Notices)
}

func TestToggleWaitHonoursContext(t *testing.T) {
	src := &fakeSource{course: demoCourse(), gate: make(chan struct{})}
	s := newTestStore(src)
	s.Open(context.Background(), "tok", "go")

	first, err := s.Toggle(context.Background(), "tok", "go", "b")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Toggle(ctx, "tok", "go", "b")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	src.gate <- struct{}{}
	waitResult(t, first)

	s.mu.Lock()
	defer s.mu.Unlock()
	assert.Empty(t, s.locks)
}

func TestToggleErrors(t *testing.T) {
	src := &fakeSource{course: demoCourse()}
	s := newTestStore(src)

	_, err := s.Toggle(context.Background(), "tok", "go", "a")
	assert.ErrorIs(t, err, ErrNotReady)

	s.Open(context.Background(), "tok", "go")
	_, err = s.Toggle(context.Background(), "tok", "go", "missing")
	assert.ErrorIs(t, err, courseprogress.ErrLessonNotFound)

	// The lesson lock was released, so a second attempt does not block.
	p, err := s.Toggle(context.Background(), "tok", "go", "missing")
	assert.ErrorIs(t, err, courseprogress.ErrLessonNotFound)
	assert.Nil(t, p)
}

func TestDiscard(t *testing.T) {
	src := &fakeSource{course: demoCourse(), gate: make(chan struct{}), commitErr: errors.New("boom")}
	s := newTestStore(src)
	s.Open(context.Background(), "tok", "go")

	p, err := s.Toggle(context.Background(), "tok", "go", "b")
	require.NoError(t, err)

	assert.True(t, s.Discard("tok", "go"))
	assert.False(t, s.Discard("tok", "go"))
	assert.Equal(t, 0, s.Len())

	src.gate <- struct{}{}
	waitResult(t, p)
	assert.Equal(t, 0, s.Len())
}

func TestSweep(t *testing.T) {
	src := &fakeSource{course: demoCourse()}
	s := newTestStore(src)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	s.Open(context.Background(), "old", "go")

	now = now.Add(45 * time.Second)
	s.Open(context.Background(), "new", "go")

	now = now.Add(30 * time.Second)
	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())

	snap := s.Get(context.Background(), "new", "go")
	assert.Equal(t, Ready, snap.State)
}

func TestScheduleSweep(t *testing.T) {
	s := newTestStore(&fakeSource{course: demoCourse()})
	scheduler := gocron.NewScheduler(time.UTC)

	require.NoError(t, s.ScheduleSweep(scheduler, time.Minute))
	assert.Len(t, scheduler.Jobs(), 1)
}
