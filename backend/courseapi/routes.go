package courseapi

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, botToken string) *Controller {
	controller := NewController(db)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", Authenticate(botToken))

	// Profile
	api.Get("/me", controller.GetMe)
	api.Get("/ranks", controller.GetRanks)
	api.Get("/leaderboard", controller.GetLeaderboard)

	// Courses
	api.Get("/courses", controller.ListCourses)
	api.Get("/courses/:courseId", controller.GetCourse)
	api.Get("/courses/:courseId/lessons/:lessonId", controller.GetLesson)
	api.Post("/courses/:courseId/lessons/:lessonId/complete", controller.CompleteLesson)

	return controller
}
