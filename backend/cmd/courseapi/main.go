package main

import (
	"log"

	"miniapp/backend/client"
	"miniapp/backend/config"
	"miniapp/backend/courseapi"
	"miniapp/backend/middleware"
	"miniapp/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	logger := utils.InitLogger(utils.LoggerConfig{Prefix: "[Course-API] ", EnableColors: true})

	if err := courseapi.CheckVerification(cfg.BotToken, cfg.InsecureInitData); err != nil {
		log.Fatal(err)
	}

	db, err := utils.InitDB(cfg)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}

	if cfg.SeedDemo {
		created, err := courseapi.Seed(db)
		if err != nil {
			log.Fatalf("Error seeding demo course: %v", err)
		}
		if created {
			logger.Printf("Demo course %q created", courseapi.DemoCourseSlug)
		}
	}
	if cfg.BotToken == "" {
		logger.Println("INSECURE_INIT_DATA is set: init data signatures are not checked")
	}

	app := fiber.New(fiber.Config{
		AppName:      "Course API",
		ErrorHandler: utils.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, " + client.HeaderInitData,
	}))
	app.Use(middleware.LoggingMiddleware(logger, true))

	courseapi.SetupRoutes(app, db, cfg.BotToken)

	log.Fatal(app.Listen(":" + cfg.CourseAPIPort))
}
