// Package courseapi serves course documents, completions, ranks and the
// leaderboard out of the database the collector bot fills.
package courseapi

import (
	"errors"
	"time"

	"miniapp/backend/courseprogress"
	"miniapp/backend/models"
	"miniapp/backend/ranks"
	"miniapp/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// PointsPerMessage is what one group message is worth.
const PointsPerMessage = 2

const leaderboardSize = 20

var leaderboardWindows = map[string]time.Duration{
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"all": 0,
}

type Controller struct {
	DB  *gorm.DB
	now func() time.Time
}

func NewController(db *gorm.DB) *Controller {
	return &Controller{DB: db, now: time.Now}
}

// points is the all-time score of a user: two per message counted.
func (cc *Controller) points(userID int64) (int, *models.Subscriber, error) {
	var sub models.Subscriber
	err := cc.DB.Where("telegram_id = ?", userID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil, nil
	}
	if err != nil {
		return 0, nil, err
	}
	return sub.MessageCount * PointsPerMessage, &sub, nil
}

// GetMe godoc
// @Summary Profile of the caller
// @Tags users
// @Produce json
// @Success 200 {object} models.Profile
// @Failure 401 {object} utils.ErrorResponse
// @Router /me [get]
func (cc *Controller) GetMe(c *fiber.Ctx) error {
	user := CurrentUser(c)
	points, sub, err := cc.points(user.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, err)
	}

	profile := models.Profile{
		ID:        user.ID,
		FirstName: user.FirstName,
		Username:  user.Username,
		Points:    points,
	}
	if sub != nil {
		profile.FirstName, profile.Username = sub.FirstName, sub.Username
	}
	ranks.Profile(&profile)
	return c.JSON(profile)
}

// GetRanks godoc
// @Summary Rank ladder with the caller's unlocked ranks
// @Tags users
// @Produce json
// @Success 200 {array} models.RankInfo
// @Router /ranks [get]
func (cc *Controller) GetRanks(c *fiber.Ctx) error {
	points, _, err := cc.points(CurrentUser(c).ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(ranks.List(points))
}

type courseCount struct {
	CourseID uint
	N        int
}

// ListCourses godoc
// @Summary Course catalog
// @Tags courses
// @Produce json
// @Success 200 {array} models.CourseSummary
// @Router /courses [get]
func (cc *Controller) ListCourses(c *fiber.Ctx) error {
	user := CurrentUser(c)
	points, _, err := cc.points(user.ID)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, err)
	}
	level := ranks.Level(points)

	var courses []models.CourseRecord
	if err := cc.DB.Order("sort_order, id").Find(&courses).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, err)
	}

	var totals, done []courseCount
	if err := cc.DB.Model(&models.LessonRecord{}).
		Select("course_id, COUNT(*) AS n").
		Group("course_id").
		Scan(&totals).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, err)
	}
	if err := cc.DB.Table("lesson_completions").
		Joins("JOIN lessons ON lessons.id = lesson_completions.lesson_id AND lessons.deleted_at IS NULL").
		Where("lesson_completions.user_id = ?", user.ID).
		Select("lessons.course_id AS course_id, COUNT(*) AS n").
		Group("lessons.course_id").
		Scan(&done).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, err)
	}

	total := make(map[uint]int, len(totals))
	for _, row := range totals {
		total[row.CourseID] = row.N
	}
	completed := make(map[uint]int, len(done))
	for _, row := range done {
		completed[row.CourseID] = row.N
	}

	result := make([]models.CourseSummary, 0, len(courses))
	for _, course := range courses {
		result = append(result, models.CourseSummary{
			ID:               course.Slug,
			Title:            course.Title,
			Description:      course.Description,
			Progress:         courseprogress.Percent(completed[course.ID], total[course.ID]),
			TotalLessons:     total[course.ID],
			CompletedLessons: completed[course.ID],
			RankRequired:     course.RankRequired,
			IsUnlocked:       course.RankRequired <= level,
		})
	}
	return c.JSON(result)
}

// loadCourse finds a course by slug and checks the caller may open it.
func (cc *Controller) loadCourse(c *fiber.Ctx, withLessons bool) (*models.CourseRecord, int, error) {
	points, _, err := cc.points(CurrentUser(c).ID)
	if err != nil {
		return nil, 0, fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	level := ranks.Level(points)

	query := cc.DB
	if withLessons {
		query = query.
			Preload("Sections", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order, id") }).
			Preload("Sections.Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order, id") })
	}

	var course models.CourseRecord
	err = query.Where("slug = ?", c.Params("courseId")).First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, level, fiber.NewError(fiber.StatusNotFound, "Course not found")
	}
	if err != nil {
		return nil, level, fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	if course.RankRequired > level {
		return nil, level, fiber.NewError(fiber.StatusForbidden, "You do not have high enough rank to view this content")
	}
	return &course, level, nil
}

// GetCourse godoc
// @Summary Course document
// @Description Sections and lessons with the caller's completion flags
// @Tags courses
// @Produce json
// @Success 200 {object} models.Course
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /courses/{courseId} [get]
func (cc *Controller) GetCourse(c *fiber.Ctx) error {
	course, _, err := cc.loadCourse(c, true)
	if err != nil {
		return utils.ErrorHandler(c, err)
	}

	var completedIDs []uint
	if err := cc.DB.Model(&models.LessonCompletion{}).
		Where("user_id = ?", CurrentUser(c).ID).
		Pluck("lesson_id", &completedIDs).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, err)
	}
	completed := make(map[uint]bool, len(completedIDs))
	for _, id := range completedIDs {
		completed[id] = true
	}

	doc := models.Course{
		ID:          course.Slug,
		Title:       course.Title,
		Description: course.Description,
		Sections:    make([]models.Section, 0, len(course.Sections)),
	}
	for _, s := range course.Sections {
		section := models.Section{ID: s.Slug, Title: s.Title, Lessons: make([]models.Lesson, 0, len(s.Lessons))}
		for _, l := range s.Lessons {
			sortOrder, rankRequired := l.SortOrder, l.RankRequired
			section.Lessons = append(section.Lessons, models.Lesson{
				ID:           l.Slug,
				Title:        l.Title,
				Completed:    completed[l.ID],
				VideoURL:     l.VideoURL,
				SortOrder:    &sortOrder,
				RankRequired: &rankRequired,
			})
		}
		doc.Sections = append(doc.Sections, section)
	}
	doc.Progress = courseprogress.Summarize(doc).Progress
	return c.JSON(doc)
}

func (cc *Controller) findLesson(course *models.CourseRecord, slug string) (*models.LessonRecord, error) {
	var lesson models.LessonRecord
	err := cc.DB.Where("course_id = ? AND slug = ?", course.ID, slug).First(&lesson).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fiber.NewError(fiber.StatusNotFound, "Lesson not found")
	}
	if err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return &lesson, nil
}

// GetLesson godoc
// @Summary Lesson body
// @Tags courses
// @Produce json
// @Success 200 {object} models.LessonContent
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /courses/{courseId}/lessons/{lessonId} [get]
func (cc *Controller) GetLesson(c *fiber.Ctx) error {
	course, level, err := cc.loadCourse(c, false)
	if err != nil {
		return utils.ErrorHandler(c, err)
	}
	lesson, err := cc.findLesson(course, c.Params("lessonId"))
	if err != nil {
		return utils.ErrorHandler(c, err)
	}
	if lesson.RankRequired > level {
		return utils.Forbidden(c, "You do not have high enough rank to view this content")
	}

	return c.JSON(models.LessonContent{
		ID:       lesson.Slug,
		Title:    lesson.Title,
		Content:  lesson.Content,
		VideoURL: lesson.VideoURL,
	})
}

// CompleteLesson godoc
// @Summary Toggle lesson completion
// @Description Marks the lesson completed, or clears the mark when it is already set
// @Tags progress
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponse
// @Router /courses/{courseId}/lessons/{lessonId}/complete [post]
func (cc *Controller) CompleteLesson(c *fiber.Ctx) error {
	course, _, err := cc.loadCourse(c, false)
	if err != nil {
		return utils.ErrorHandler(c, err)
	}
	lesson, err := cc.findLesson(course, c.Params("lessonId"))
	if err != nil {
		return utils.ErrorHandler(c, err)
	}
	userID := CurrentUser(c).ID

	var completed bool
	err = cc.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND lesson_id = ?", userID, lesson.ID).Delete(&models.LessonCompletion{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		completed = true
		return tx.Create(&models.LessonCompletion{UserID: userID, LessonID: lesson.ID}).Error
	})
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(fiber.Map{
		"course_id": course.Slug,
		"lesson_id": lesson.Slug,
		"completed": completed,
	})
}

type scoreRow struct {
	UserID    int64
	FirstName *string
	Username  *string
	Score     int
}

// GetLeaderboard godoc
// @Summary Top users for a period
// @Tags leaderboard
// @Produce json
// @Param period query string false "7d, 30d or all" default(7d)
// @Success 200 {object} models.Leaderboard
// @Failure 400 {object} utils.ErrorResponse
// @Router /leaderboard [get]
func (cc *Controller) GetLeaderboard(c *fiber.Ctx) error {
	period := c.Query("period", "7d")
	window, ok := leaderboardWindows[period]
	if !ok {
		return utils.BadRequest(c, "period must be one of 7d, 30d, all")
	}

	var rows []scoreRow
	var err error
	if window == 0 {
		err = cc.DB.Model(&models.Subscriber{}).
			Select("telegram_id AS user_id, first_name, username, message_count * ? AS score", PointsPerMessage).
			Where("is_active = ?", true).
			Order("message_count DESC, telegram_id").
			Scan(&rows).Error
	} else {
		since := cc.now().UTC().Add(-window)
		err = cc.DB.Table("messages").
			Select("messages.user_id AS user_id, cs.first_name AS first_name, cs.username AS username, SUM(messages.points) AS score").
			Joins("JOIN channel_subscribers cs ON cs.telegram_id = messages.user_id").
			Where("messages.message_date >= ?", since).
			Group("messages.user_id, cs.first_name, cs.username").
			Order("score DESC, messages.user_id").
			Scan(&rows).Error
	}
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, err)
	}

	return c.JSON(buildLeaderboard(rows, CurrentUser(c).ID))
}

// buildLeaderboard ranks rows already ordered by score and user id.
func buildLeaderboard(rows []scoreRow, userID int64) models.Leaderboard {
	board := models.Leaderboard{TopUsers: []models.LeaderboardRow{}}
	for i, row := range rows {
		rank := i + 1
		if i < leaderboardSize {
			board.TopUsers = append(board.TopUsers, models.LeaderboardRow{
				Rank:      rank,
				UserID:    row.UserID,
				FirstName: row.FirstName,
				Username:  row.Username,
				Score:     row.Score,
			})
		}
		if row.UserID == userID {
			board.CurrentUser = &models.CurrentUserRank{Rank: rank, Score: row.Score}
		}
	}
	return board
}
