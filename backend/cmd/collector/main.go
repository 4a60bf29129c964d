package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"miniapp/backend/collector"
	"miniapp/backend/config"
	"miniapp/backend/utils"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	if cfg.BotToken == "" || cfg.GroupID == 0 {
		log.Fatal("BOT_TOKEN and GROUP_ID are required")
	}

	logger := utils.InitLogger(utils.LoggerConfig{Prefix: "[Collector] "})

	db, err := utils.InitDB(cfg)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("Unable to create bot: %v", err)
	}
	logger.Printf("Authorized on account %s", bot.Self.UserName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector.New(db, cfg.GroupID, logger).Run(ctx, bot)
	logger.Println("Collector stopped")
}
