package controllers

import (
	"errors"

	"miniapp/backend/courseprogress"
	"miniapp/backend/middleware"
	"miniapp/backend/models"
	"miniapp/backend/render"
	"miniapp/backend/utils"
	"miniapp/backend/views"

	"github.com/gofiber/fiber/v2"
)

// CatalogPath is where a failed course view sends the user back to.
const CatalogPath = "/content"

type CoursesController struct {
	API      CourseAPI
	Views    *views.Store
	Markdown *render.Markdown
}

func NewCoursesController(api CourseAPI, store *views.Store, md *render.Markdown) *CoursesController {
	return &CoursesController{API: api, Views: store, Markdown: md}
}

// LessonPage is everything the reader pane needs for one lesson.
type LessonPage struct {
	ViewID       string                    `json:"view_id"`
	CourseID     string                    `json:"course_id"`
	Lesson       courseprogress.LessonRef  `json:"lesson"`
	HTML         string                    `json:"html,omitempty"`
	VideoURL     string                    `json:"video_url,omitempty"`
	ContentError string                    `json:"content_error,omitempty"`
	Prev         *courseprogress.LessonRef `json:"prev"`
	Next         *courseprogress.LessonRef `json:"next"`
	Index        int                       `json:"index"`
	Total        int                       `json:"total"`
	Progress     int                       `json:"progress"`
	Notices      []views.Notice            `json:"notices,omitempty"`
}

// ListCourses godoc
// @Summary Course catalog
// @Tags courses
// @Produce json
// @Success 200 {array} models.CourseSummary
// @Router /courses [get]
func (cc *CoursesController) ListCourses(c *fiber.Ctx) error {
	courses, err := cc.API.ListCourses(c.UserContext(), middleware.InitData(c))
	if err != nil {
		return utils.Upstream(c, err)
	}
	if courses == nil {
		courses = []models.CourseSummary{}
	}
	return c.JSON(courses)
}

// GetCourseView godoc
// @Summary Open a course view
// @Description Fetches the course tree and starts a new view of it
// @Tags courses
// @Produce json
// @Success 200 {object} views.Snapshot
// @Failure 404 {object} utils.ErrorResponse
// @Router /view/courses/{courseId} [get]
func (cc *CoursesController) GetCourseView(c *fiber.Ctx) error {
	snap := cc.Views.Open(c.UserContext(), middleware.InitData(c), c.Params("courseId"))
	if snap.State != views.Ready {
		return courseViewError(c, snap)
	}
	return c.JSON(snap)
}

// CloseCourseView drops the view when the user leaves the course.
func (cc *CoursesController) CloseCourseView(c *fiber.Ctx) error {
	cc.Views.Discard(middleware.InitData(c), c.Params("courseId"))
	return c.SendStatus(fiber.StatusNoContent)
}

// GetLesson godoc
// @Summary Lesson page
// @Description Lesson body with previous/next navigation inside the course view
// @Tags courses
// @Produce json
// @Success 200 {object} LessonPage
// @Failure 404 {object} utils.ErrorResponse
// @Router /view/courses/{courseId}/lessons/{lessonId} [get]
func (cc *CoursesController) GetLesson(c *fiber.Ctx) error {
	token := middleware.InitData(c)
	courseID, lessonID := c.Params("courseId"), c.Params("lessonId")

	snap := cc.Views.Get(c.UserContext(), token, courseID)
	if snap.State != views.Ready {
		return courseViewError(c, snap)
	}

	pos := courseprogress.Locate(snap.Lessons, lessonID)
	if pos.Index < 0 {
		return utils.NotFound(c, "Урок не найден")
	}
	meta := snap.Lessons[pos.Index]

	page := LessonPage{
		ViewID:   snap.ViewID,
		CourseID: courseID,
		Lesson:   meta,
		VideoURL: meta.VideoURL,
		Prev:     pos.Prev,
		Next:     pos.Next,
		Index:    pos.Index,
		Total:    snap.Total,
		Progress: snap.Progress,
		Notices:  snap.Notices,
	}

	// A failed content fetch only blanks the reader pane; navigation stays.
	content, err := cc.API.GetLesson(c.UserContext(), token, courseID, lessonID)
	if err != nil {
		page.ContentError = lessonContentError(err)
		return c.JSON(page)
	}
	if page.VideoURL == "" {
		page.VideoURL = content.VideoURL
	}
	page.HTML, err = cc.Markdown.HTML(content.Content)
	if err != nil {
		page.ContentError = "Не удалось отобразить урок"
	}
	return c.JSON(page)
}

func courseViewError(c *fiber.Ctx, snap views.Snapshot) error {
	status := snap.Status
	message := "Не удалось загрузить курс"
	switch status {
	case fiber.StatusNotFound:
		message = "Курс не найден"
	case fiber.StatusForbidden:
		message = "Недостаточно прав для доступа к курсу"
	case fiber.StatusUnauthorized:
		message = "Ошибка авторизации. Перезапустите приложение."
	case 0:
		status = fiber.StatusBadGateway
	}
	if snap.State == views.Loading {
		status, message = fiber.StatusConflict, "Курс еще загружается"
	}
	return utils.ErrorWithBack(c, status, message, CatalogPath)
}

func lessonContentError(err error) string {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code == fiber.StatusNotFound {
		return "Урок не найден"
	}
	return "Не удалось загрузить контент урока"
}
