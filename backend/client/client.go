// Package client talks to the course REST API on behalf of a Mini-App user.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"miniapp/backend/models"

	"github.com/gofiber/fiber/v2"
)

// HeaderInitData carries the identity token issued by the host chat platform.
const HeaderInitData = "X-Init-Data"

// ErrUnavailable wraps transport failures (no HTTP status was received).
var ErrUnavailable = errors.New("course api unavailable")

type Client struct {
	baseURL string
	timeout time.Duration
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout}
}

func (c *Client) GetCourse(ctx context.Context, token, courseID string) (models.Course, error) {
	var course models.Course
	err := c.do(ctx, fiber.MethodGet, token, "/api/courses/"+url.PathEscape(courseID), &course)
	return course, err
}

func (c *Client) GetLesson(ctx context.Context, token, courseID, lessonID string) (models.LessonContent, error) {
	var lesson models.LessonContent
	path := "/api/courses/" + url.PathEscape(courseID) + "/lessons/" + url.PathEscape(lessonID)
	err := c.do(ctx, fiber.MethodGet, token, path, &lesson)
	return lesson, err
}

// CompleteLesson toggles the completion of a lesson for the token's owner.
func (c *Client) CompleteLesson(ctx context.Context, token, courseID, lessonID string) error {
	path := "/api/courses/" + url.PathEscape(courseID) + "/lessons/" + url.PathEscape(lessonID) + "/complete"
	return c.do(ctx, fiber.MethodPost, token, path, nil)
}

func (c *Client) ListCourses(ctx context.Context, token string) ([]models.CourseSummary, error) {
	var courses []models.CourseSummary
	err := c.do(ctx, fiber.MethodGet, token, "/api/courses", &courses)
	return courses, err
}

func (c *Client) GetMe(ctx context.Context, token string) (models.Profile, error) {
	var profile models.Profile
	err := c.do(ctx, fiber.MethodGet, token, "/api/me", &profile)
	return profile, err
}

func (c *Client) GetRanks(ctx context.Context, token string) ([]models.RankInfo, error) {
	var list []models.RankInfo
	err := c.do(ctx, fiber.MethodGet, token, "/api/ranks", &list)
	return list, err
}

func (c *Client) GetLeaderboard(ctx context.Context, token, period string) (models.Leaderboard, error) {
	var board models.Leaderboard
	err := c.do(ctx, fiber.MethodGet, token, "/api/leaderboard?period="+url.QueryEscape(period), &board)
	return board, err
}

func (c *Client) do(ctx context.Context, method, token, path string, out interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var agent *fiber.Agent
	switch method {
	case fiber.MethodPost:
		agent = fiber.Post(c.baseURL + path)
	default:
		agent = fiber.Get(c.baseURL + path)
	}
	agent.Set(HeaderInitData, token)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if timeout := c.requestTimeout(ctx); timeout > 0 {
		agent.Timeout(timeout)
	}

	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", ErrUnavailable, errors.Join(errs...))
	}
	if code < 200 || code > 299 {
		return fiber.NewError(code, upstreamMessage(code, body))
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// requestTimeout is the configured timeout, shortened to the context deadline.
func (c *Client) requestTimeout(ctx context.Context) time.Duration {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			left = time.Millisecond
		}
		if timeout <= 0 || left < timeout {
			timeout = left
		}
	}
	return timeout
}

// upstreamMessage extracts "detail", "message" or "error" from an error body.
func upstreamMessage(code int, body []byte) string {
	var payload struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		for _, m := range []string{payload.Detail, payload.Message, payload.Error} {
			if m != "" {
				return m
			}
		}
	}
	return fmt.Sprintf("course api responded with status %d", code)
}

// StatusCode reports the upstream HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return 0
}
