package main

import (
	"log"
	"time"

	"miniapp/backend/client"
	"miniapp/backend/config"
	"miniapp/backend/middleware"
	"miniapp/backend/render"
	"miniapp/backend/routes"
	"miniapp/backend/utils"
	"miniapp/backend/views"

	"github.com/go-co-op/gocron"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize logger
	logger := utils.InitLogger(utils.LoggerConfig{EnableColors: true})

	// Course API and course views
	api := client.New(cfg.UpstreamURL, cfg.UpstreamTimeout)
	store := views.NewStore(api, logger, cfg.CommitTimeout, cfg.ViewTTL)

	scheduler := gocron.NewScheduler(time.UTC)
	if err := store.ScheduleSweep(scheduler, time.Minute); err != nil {
		log.Fatalf("Error scheduling view eviction: %v", err)
	}
	scheduler.StartAsync()
	defer scheduler.Stop()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Mini-App API",
		ErrorHandler: utils.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, " + client.HeaderInitData,
	}))
	app.Use(middleware.LoggingMiddleware(logger, true))

	// Setup routes
	routes.SetupRoutes(app, api, store, render.NewMarkdown())

	logger.Printf("Proxying course API at %s", cfg.UpstreamURL)
	log.Fatal(app.Listen(":" + cfg.ServerPort))
}
