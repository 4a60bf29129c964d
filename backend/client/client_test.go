package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Token  string
}

func newUpstream(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *[]recorded) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, recorded{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Token:  r.Header.Get(HeaderInitData),
		})
		mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestGetCoursePassesTokenThrough(t *testing.T) {
	srv, seen := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"id":       "go",
			"title":    "Go",
			"progress": 50,
			"sections": []map[string]interface{}{
				{"id": "s1", "title": "Intro", "lessons": []map[string]interface{}{
					{"id": "l1", "title": "Hello", "completed": true, "sort_order": 2},
					{"id": "l2", "title": "World", "completed": false, "video_url": "https://v/2"},
				}},
			},
		})
	})

	c := New(srv.URL+"/", time.Second)
	course, err := c.GetCourse(context.Background(), "query_id=abc&hash=xyz", "go")
	require.NoError(t, err)

	assert.Equal(t, "Go", course.Title)
	assert.Equal(t, 50, course.Progress)
	require.Len(t, course.Sections, 1)
	require.Len(t, course.Sections[0].Lessons, 2)
	require.NotNil(t, course.Sections[0].Lessons[0].SortOrder)
	assert.Equal(t, 2, *course.Sections[0].Lessons[0].SortOrder)
	assert.Equal(t, "https://v/2", course.Sections[0].Lessons[1].VideoURL)

	require.Len(t, *seen, 1)
	assert.Equal(t, "/api/courses/go", (*seen)[0].Path)
	assert.Equal(t, "query_id=abc&hash=xyz", (*seen)[0].Token)
}

func TestCompleteLessonPosts(t *testing.T) {
	srv, seen := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	err := New(srv.URL, time.Second).CompleteLesson(context.Background(), "tok", "go", "l1")
	require.NoError(t, err)

	require.Len(t, *seen, 1)
	assert.Equal(t, http.MethodPost, (*seen)[0].Method)
	assert.Equal(t, "/api/courses/go/lessons/l1/complete", (*seen)[0].Path)
}

func TestNon2xxBecomesFiberError(t *testing.T) {
	srv, _ := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Course not found"})
	})

	_, err := New(srv.URL, time.Second).GetCourse(context.Background(), "tok", "missing")
	require.Error(t, err)

	var fe *fiber.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, fiber.StatusNotFound, fe.Code)
	assert.Equal(t, "Course not found", fe.Message)
	assert.Equal(t, fiber.StatusNotFound, StatusCode(err))
}

func TestErrorBodyWithoutMessage(t *testing.T) {
	srv, _ := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := New(srv.URL, time.Second).CompleteLesson(context.Background(), "tok", "c", "l")
	require.Error(t, err)
	assert.Equal(t, "course api responded with status 502", err.Error())
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := New(addr, time.Second).GetMe(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 0, StatusCode(err))
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New("http://127.0.0.1:1", time.Second).GetRanks(ctx, "tok")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLeaderboardQuery(t *testing.T) {
	srv, seen := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"top_users":    []map[string]interface{}{{"rank": 1, "user_id": 7, "score": 40}},
			"current_user": map[string]int{"rank": 1, "score": 40},
		})
	})

	board, err := New(srv.URL, time.Second).GetLeaderboard(context.Background(), "tok", "30d")
	require.NoError(t, err)

	require.Len(t, board.TopUsers, 1)
	assert.Equal(t, int64(7), board.TopUsers[0].UserID)
	require.NotNil(t, board.CurrentUser)
	assert.Equal(t, 40, board.CurrentUser.Score)
	assert.Equal(t, "period=30d", (*seen)[0].Query)
}

func TestRequestTimeoutFollowsDeadline(t *testing.T) {
	c := New("http://x", 10*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.LessOrEqual(t, c.requestTimeout(ctx), time.Second)
	assert.Equal(t, 10*time.Second, c.requestTimeout(context.Background()))
}
