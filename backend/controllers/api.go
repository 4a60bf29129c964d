package controllers

import (
	"context"

	"miniapp/backend/models"
)

// CourseAPI is the read side of the course REST API used by the handlers.
// *client.Client implements it.
type CourseAPI interface {
	GetLesson(ctx context.Context, token, courseID, lessonID string) (models.LessonContent, error)
	ListCourses(ctx context.Context, token string) ([]models.CourseSummary, error)
	GetMe(ctx context.Context, token string) (models.Profile, error)
	GetRanks(ctx context.Context, token string) ([]models.RankInfo, error)
	GetLeaderboard(ctx context.Context, token, period string) (models.Leaderboard, error)
}
