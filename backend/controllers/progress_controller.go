package controllers

import (
	"errors"

	"miniapp/backend/courseprogress"
	"miniapp/backend/middleware"
	"miniapp/backend/utils"
	"miniapp/backend/views"

	"github.com/gofiber/fiber/v2"
)

type ProgressController struct {
	Views *views.Store
}

func NewProgressController(store *views.Store) *ProgressController {
	return &ProgressController{Views: store}
}

type ToggleResponse struct {
	LessonID string         `json:"lesson_id"`
	State    string         `json:"state"`
	Error    string         `json:"error,omitempty"`
	View     views.Snapshot `json:"view"`
}

// ToggleLesson godoc
// @Summary Toggle lesson completion
// @Description Applies the change to the course view at once and saves it in the background.
// @Description With wait=1 the response is sent after the course API has answered.
// @Tags progress
// @Produce json
// @Param wait query bool false "wait for the course API"
// @Success 200 {object} ToggleResponse
// @Success 202 {object} ToggleResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /view/courses/{courseId}/lessons/{lessonId}/toggle [post]
func (pc *ProgressController) ToggleLesson(c *fiber.Ctx) error {
	token := middleware.InitData(c)
	courseID, lessonID := c.Params("courseId"), c.Params("lessonId")
	ctx := c.UserContext()

	if snap := pc.Views.Peek(ctx, token, courseID); snap.State != views.Ready {
		return courseViewError(c, snap)
	}

	pending, err := pc.Views.Toggle(ctx, token, courseID, lessonID)
	switch {
	case errors.Is(err, courseprogress.ErrLessonNotFound):
		return utils.NotFound(c, "Урок не найден")
	case errors.Is(err, views.ErrNotReady), errors.Is(err, views.ErrViewGone):
		return utils.Error(c, fiber.StatusConflict, err)
	case err != nil:
		return utils.Error(c, fiber.StatusRequestTimeout, err)
	}

	if !c.QueryBool("wait") {
		return c.Status(fiber.StatusAccepted).JSON(ToggleResponse{
			LessonID: lessonID,
			State:    courseprogress.Optimistic.String(),
			View:     pending.Snapshot,
		})
	}

	var result views.Result
	select {
	case result = <-pending.Done():
	case <-ctx.Done():
		return utils.Error(c, fiber.StatusRequestTimeout, ctx.Err())
	}

	resp := ToggleResponse{
		LessonID: lessonID,
		State:    result.State.String(),
		View:     pc.Views.Get(ctx, token, courseID),
	}
	if result.Err != nil {
		resp.Error = "Не удалось сохранить статус урока. Пожалуйста, попробуйте еще раз."
	}
	return c.JSON(resp)
}
