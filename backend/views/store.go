// Package views keeps the course document of every open course view and
// reconciles optimistic completion toggles with the course API.
package views

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"miniapp/backend/client"
	"miniapp/backend/courseprogress"
	"miniapp/backend/models"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
)

type State string

const (
	Idle    State = "idle"
	Loading State = "loading"
	Ready   State = "ready"
	Failed  State = "error"
)

var (
	ErrNotReady = errors.New("course view is not ready")
	ErrViewGone = errors.New("course view was closed")
)

// Source is the part of the course API the store needs.
type Source interface {
	GetCourse(ctx context.Context, token, courseID string) (models.Course, error)
	CompleteLesson(ctx context.Context, token, courseID, lessonID string) error
}

type Notice struct {
	Kind     string `json:"kind"`
	LessonID string `json:"lesson_id,omitempty"`
	Message  string `json:"message"`
}

const NoticeCompletionFailed = "completion_failed"

// Snapshot is a copy of a view safe to hand to a response encoder.
type Snapshot struct {
	ViewID   string                     `json:"view_id"`
	CourseID string                     `json:"course_id"`
	State    State                      `json:"state"`
	Course   *models.Course             `json:"course,omitempty"`
	Lessons  []courseprogress.LessonRef `json:"lessons,omitempty"`
	courseprogress.Summary
	Error   string   `json:"error,omitempty"`
	Status  int      `json:"-"`
	Notices []Notice `json:"notices,omitempty"`
}

type key struct {
	viewer   string
	courseID string
}

type view struct {
	id      string
	key     key
	state   State
	course  models.Course
	err     error
	notices []Notice
	touched time.Time
}

type lessonKey struct {
	key
	lessonID string
}

// lessonLock serializes commits of one lesson for one viewer. It outlives
// the views of the course and is dropped once nobody holds or waits for it.
type lessonLock struct {
	id   lessonKey
	ch   chan struct{}
	refs int
}

type Store struct {
	mu     sync.Mutex
	views  map[key]*view
	locks  map[lessonKey]*lessonLock
	source Source
	logger *log.Logger

	commitTimeout time.Duration
	ttl           time.Duration
	now           func() time.Time
}

func NewStore(source Source, logger *log.Logger, commitTimeout, ttl time.Duration) *Store {
	return &Store{
		views:         make(map[key]*view),
		locks:         make(map[lessonKey]*lessonLock),
		source:        source,
		logger:        logger,
		commitTimeout: commitTimeout,
		ttl:           ttl,
		now:           time.Now,
	}
}

// Open starts a new view of a course and fetches its document. A view that
// was replaced or discarded while its fetch was in flight never becomes
// visible again.
func (s *Store) Open(ctx context.Context, token, courseID string) Snapshot {
	k := key{viewer: token, courseID: courseID}
	v := &view{
		id:    uuid.NewString(),
		key:   k,
		state: Loading,
	}

	s.mu.Lock()
	v.touched = s.now()
	s.views[k] = v
	s.mu.Unlock()

	course, err := s.source.GetCourse(ctx, token, courseID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		v.state = Failed
		v.err = err
	} else {
		if course.ID == "" {
			course.ID = courseID
		}
		course.Progress = courseprogress.Summarize(course).Progress
		v.state = Ready
		v.course = course
	}
	if s.views[k] != v {
		s.logger.Printf("views: dropping stale load of course %s (view %s)", courseID, v.id)
	}
	return v.snapshot(false)
}

// Get returns the current view of a course, opening one when none exists.
// Pending notices are delivered and cleared.
func (s *Store) Get(ctx context.Context, token, courseID string) Snapshot {
	return s.current(ctx, token, courseID, true)
}

// Peek is Get without delivering the notices.
func (s *Store) Peek(ctx context.Context, token, courseID string) Snapshot {
	return s.current(ctx, token, courseID, false)
}

func (s *Store) current(ctx context.Context, token, courseID string, drain bool) Snapshot {
	k := key{viewer: token, courseID: courseID}

	s.mu.Lock()
	if v, ok := s.views[k]; ok {
		v.touched = s.now()
		snap := v.snapshot(drain)
		s.mu.Unlock()
		return snap
	}
	s.mu.Unlock()

	return s.Open(ctx, token, courseID)
}

// Discard drops a view. In-flight toggles of a discarded view resolve
// without touching any later view.
func (s *Store) Discard(token, courseID string) bool {
	k := key{viewer: token, courseID: courseID}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.views[k]
	delete(s.views, k)
	return ok
}

type Result struct {
	State courseprogress.ToggleState
	Err   error
}

// Pending is an optimistic toggle whose commit is still running.
type Pending struct {
	Snapshot Snapshot
	done     chan Result
}

// Done yields the outcome once the course API has answered.
func (p *Pending) Done() <-chan Result { return p.done }

// Toggle flips a lesson's completion in the view right away and commits it in
// the background. Toggles of the same lesson by the same viewer run one at a
// time, also across a reopened view: a second call waits until the first
// commit has resolved and then applies to the current view.
func (s *Store) Toggle(ctx context.Context, token, courseID, lessonID string) (*Pending, error) {
	k := key{viewer: token, courseID: courseID}

	s.mu.Lock()
	v, ok := s.views[k]
	if !ok || v.state != Ready {
		s.mu.Unlock()
		return nil, ErrNotReady
	}
	if courseprogress.Locate(courseprogress.Flatten(v.course), lessonID).Index < 0 {
		s.mu.Unlock()
		return nil, courseprogress.ErrLessonNotFound
	}
	lock := s.lockFor(lessonKey{key: k, lessonID: lessonID})
	s.mu.Unlock()

	select {
	case lock.ch <- struct{}{}:
	case <-ctx.Done():
		s.mu.Lock()
		s.dropLock(lock)
		s.mu.Unlock()
		return nil, ctx.Err()
	}

	s.mu.Lock()
	v, ok = s.views[k]
	if !ok || v.state != Ready {
		s.unlockLesson(lock)
		s.mu.Unlock()
		return nil, ErrViewGone
	}
	committer := courseprogress.CommitterFunc(func(ctx context.Context, courseID, lessonID string) error {
		return s.source.CompleteLesson(ctx, token, courseID, lessonID)
	})
	toggle, err := courseprogress.ToggleCompletion(v.course, lessonID, committer)
	if err != nil {
		s.unlockLesson(lock)
		s.mu.Unlock()
		return nil, err
	}
	v.course = toggle.Optimistic
	v.touched = s.now()
	p := &Pending{Snapshot: v.snapshot(false), done: make(chan Result, 1)}
	s.mu.Unlock()

	go s.commit(context.WithoutCancel(ctx), v, toggle, lock, p.done)
	return p, nil
}

func (s *Store) commit(ctx context.Context, v *view, toggle *courseprogress.Toggle, lock *lessonLock, done chan<- Result) {
	ctx, cancel := context.WithTimeout(ctx, s.commitTimeout)
	err := toggle.Commit(ctx)
	cancel()

	s.mu.Lock()
	if err != nil && s.views[v.key] == v {
		v.course = toggle.Revert(v.course)
		v.notices = append(v.notices, Notice{
			Kind:     NoticeCompletionFailed,
			LessonID: toggle.LessonID,
			Message:  "Не удалось сохранить статус урока. Пожалуйста, попробуйте еще раз.",
		})
	}
	s.unlockLesson(lock)
	s.mu.Unlock()

	if err != nil {
		s.logger.Printf("views: completion of %s/%s rolled back: %v", toggle.CourseID, toggle.LessonID, err)
	}

	done <- Result{State: toggle.State(), Err: err}
	close(done)
}

// lockFor must be called with s.mu held.
func (s *Store) lockFor(id lessonKey) *lessonLock {
	lock, ok := s.locks[id]
	if !ok {
		lock = &lessonLock{id: id, ch: make(chan struct{}, 1)}
		s.locks[id] = lock
	}
	lock.refs++
	return lock
}

// dropLock must be called with s.mu held.
func (s *Store) dropLock(lock *lessonLock) {
	lock.refs--
	if lock.refs == 0 {
		delete(s.locks, lock.id)
	}
}

// unlockLesson releases a held lock. It must be called with s.mu held.
func (s *Store) unlockLesson(lock *lessonLock) {
	<-lock.ch
	s.dropLock(lock)
}

// Sweep removes views idle for longer than the TTL and reports how many went.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for k, v := range s.views {
		if v.touched.Before(cutoff) {
			delete(s.views, k)
			removed++
		}
	}
	return removed
}

// ScheduleSweep registers Sweep on a gocron scheduler.
func (s *Store) ScheduleSweep(scheduler *gocron.Scheduler, every time.Duration) error {
	_, err := scheduler.Every(every).Do(func() {
		if n := s.Sweep(); n > 0 {
			s.logger.Printf("views: evicted %d idle course views", n)
		}
	})
	return err
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

// snapshot must be called with s.mu held.
func (v *view) snapshot(drain bool) Snapshot {
	snap := Snapshot{
		ViewID:   v.id,
		CourseID: v.key.courseID,
		State:    v.state,
	}
	switch v.state {
	case Ready:
		course := v.course.Clone()
		snap.Course = &course
		snap.Lessons = courseprogress.Flatten(course)
		snap.Summary = courseprogress.Summarize(course)
	case Failed:
		snap.Error = v.err.Error()
		snap.Status = client.StatusCode(v.err)
	}
	if len(v.notices) > 0 {
		snap.Notices = append([]Notice(nil), v.notices...)
		if drain {
			v.notices = nil
		}
	}
	return snap
}
