// Package courseprogress derives the navigable lesson sequence and progress of a
// course document and manages optimistic completion toggles.
package courseprogress

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"miniapp/backend/models"
)

var ErrLessonNotFound = errors.New("lesson not found in course")

// LessonRef is a lesson in flattened course order.
type LessonRef struct {
	models.Lesson
	SectionID string `json:"section_id"`
	Index     int    `json:"index"`
}

// Position is the result of Locate. Index is -1 when the lesson is absent.
type Position struct {
	Index int        `json:"index"`
	Prev  *LessonRef `json:"prev"`
	Next  *LessonRef `json:"next"`
}

// Summary holds the aggregate counters of a course.
type Summary struct {
	Completed int `json:"completed_lessons"`
	Total     int `json:"total_lessons"`
	Progress  int `json:"progress"`
}

// Flatten lists the lessons of a course section by section.
//
// Lessons keep their array order unless every lesson in the course has a
// sort_order, in which case each section is sorted by it (stable). Sections
// always keep their array order.
func Flatten(course models.Course) []LessonRef {
	bySortOrder := hasSortOrder(course)

	total := 0
	for _, s := range course.Sections {
		total += len(s.Lessons)
	}

	list := make([]LessonRef, 0, total)
	for _, s := range course.Sections {
		lessons := s.Lessons
		if bySortOrder {
			lessons = make([]models.Lesson, len(s.Lessons))
			copy(lessons, s.Lessons)
			sort.SliceStable(lessons, func(i, j int) bool {
				return *lessons[i].SortOrder < *lessons[j].SortOrder
			})
		}
		for _, l := range lessons {
			list = append(list, LessonRef{Lesson: l, SectionID: s.ID, Index: len(list)})
		}
	}
	return list
}

func hasSortOrder(course models.Course) bool {
	seen := false
	for _, s := range course.Sections {
		for _, l := range s.Lessons {
			if l.SortOrder == nil {
				return false
			}
			seen = true
		}
	}
	return seen
}

// Locate finds a lesson and its neighbours. Navigation never wraps around.
func Locate(list []LessonRef, lessonID string) Position {
	for i := range list {
		if list[i].ID != lessonID {
			continue
		}
		pos := Position{Index: i}
		if i > 0 {
			prev := list[i-1]
			pos.Prev = &prev
		}
		if i < len(list)-1 {
			next := list[i+1]
			pos.Next = &next
		}
		return pos
	}
	return Position{Index: -1}
}

// ComputeProgress returns round(100*completed/total), or 0 for an empty list.
func ComputeProgress(list []LessonRef) int {
	completed := 0
	for _, l := range list {
		if l.Completed {
			completed++
		}
	}
	return Percent(completed, len(list))
}

// Percent is the rounding rule shared by every progress figure.
func Percent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(100 * float64(completed) / float64(total)))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Summarize counts the lessons of a course.
func Summarize(course models.Course) Summary {
	var s Summary
	for _, sec := range course.Sections {
		for _, l := range sec.Lessons {
			s.Total++
			if l.Completed {
				s.Completed++
			}
		}
	}
	s.Progress = Percent(s.Completed, s.Total)
	return s
}

// Committer persists a completion toggle on the course API.
type Committer interface {
	CompleteLesson(ctx context.Context, courseID, lessonID string) error
}

// CommitterFunc adapts a function to Committer.
type CommitterFunc func(ctx context.Context, courseID, lessonID string) error

func (f CommitterFunc) CompleteLesson(ctx context.Context, courseID, lessonID string) error {
	return f(ctx, courseID, lessonID)
}

type ToggleState int

const (
	Optimistic ToggleState = iota
	Confirmed
	RolledBack
)

func (s ToggleState) String() string {
	switch s {
	case Optimistic:
		return "optimistic"
	case Confirmed:
		return "confirmed"
	case RolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Toggle is one optimistic completion change. Optimistic is what the view
// renders right away; Rollback is the course as it was before the change.
type Toggle struct {
	CourseID   string
	LessonID   string
	Optimistic models.Course
	Rollback   models.Course

	prior     bool
	committer Committer

	mu    sync.Mutex
	state ToggleState
	err   error
}

// ToggleCompletion flips the completion flag of one lesson and recomputes
// progress. Neither input is modified.
func ToggleCompletion(course models.Course, lessonID string, committer Committer) (*Toggle, error) {
	optimistic := course.Clone()
	prior, ok := setCompleted(&optimistic, lessonID, nil)
	if !ok {
		return nil, ErrLessonNotFound
	}
	optimistic.Progress = Summarize(optimistic).Progress

	return &Toggle{
		CourseID:   course.ID,
		LessonID:   lessonID,
		Optimistic: optimistic,
		Rollback:   course.Clone(),
		prior:      prior,
		committer:  committer,
	}, nil
}

// setCompleted sets the flag of lessonID to *value, or flips it when value is
// nil, and reports the previous flag.
func setCompleted(course *models.Course, lessonID string, value *bool) (bool, bool) {
	for si := range course.Sections {
		lessons := course.Sections[si].Lessons
		for li := range lessons {
			if lessons[li].ID != lessonID {
				continue
			}
			prior := lessons[li].Completed
			if value == nil {
				lessons[li].Completed = !prior
			} else {
				lessons[li].Completed = *value
			}
			return prior, true
		}
	}
	return false, false
}

// Commit sends the toggle to the course API. A nil error confirms the toggle;
// otherwise the toggle is rolled back and the caller must render Rollback (or
// Revert its current course) and surface the error.
func (t *Toggle) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != Optimistic {
		return t.err
	}

	err := t.committer.CompleteLesson(ctx, t.CourseID, t.LessonID)
	if err != nil {
		t.state = RolledBack
		t.err = err
		return err
	}
	t.state = Confirmed
	return nil
}

func (t *Toggle) State() ToggleState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Prior is the completion flag the lesson had before the toggle.
func (t *Toggle) Prior() bool { return t.prior }

// Revert restores the lesson's prior flag on a later version of the course,
// keeping any other changes made since the toggle.
func (t *Toggle) Revert(current models.Course) models.Course {
	out := current.Clone()
	prior := t.prior
	if _, ok := setCompleted(&out, t.LessonID, &prior); ok {
		out.Progress = Summarize(out).Progress
	}
	return out
}
