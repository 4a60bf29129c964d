package routes

import (
	"miniapp/backend/controllers"
	"miniapp/backend/middleware"
	"miniapp/backend/render"
	"miniapp/backend/views"

	"github.com/gofiber/fiber/v2"
)

func SetupRoutes(app *fiber.App, api controllers.CourseAPI, store *views.Store, md *render.Markdown) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	group := app.Group("/api", middleware.InitDataMiddleware())

	// Profile routes
	userController := controllers.NewUserController(api)
	group.Get("/me", userController.GetProfile)
	group.Get("/ranks", userController.GetRanks)

	// Leaderboard routes
	leaderboardController := controllers.NewLeaderboardController(api)
	group.Get("/leaderboard", leaderboardController.GetLeaderboard)

	// Catalog and course view routes
	coursesController := controllers.NewCoursesController(api, store, md)
	group.Get("/courses", coursesController.ListCourses)

	courseViews := group.Group("/view/courses/:courseId")
	courseViews.Get("/", coursesController.GetCourseView)
	courseViews.Delete("/", coursesController.CloseCourseView)
	courseViews.Get("/lessons/:lessonId", coursesController.GetLesson)

	// Progress routes
	progressController := controllers.NewProgressController(store)
	courseViews.Post("/lessons/:lessonId/toggle", progressController.ToggleLesson)
}
