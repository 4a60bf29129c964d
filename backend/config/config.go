package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort      string
	UpstreamURL     string
	UpstreamTimeout time.Duration
	CommitTimeout   time.Duration
	ViewTTL         time.Duration
	AllowOrigins    string

	DBDriver   string // postgres, sqlite
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPath     string

	BotToken         string
	InsecureInitData bool // accept unsigned init data when BotToken is empty
	GroupID          int64
	CourseAPIPort    string
	SeedDemo         bool
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	groupID, err := strconv.ParseInt(getEnv("GROUP_ID", "0"), 10, 64)
	if err != nil {
		return nil, err
	}

	return &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		UpstreamURL:     getEnv("UPSTREAM_URL", "http://localhost:8081"),
		UpstreamTimeout: getDuration("UPSTREAM_TIMEOUT", 10*time.Second),
		CommitTimeout:   getDuration("COMMIT_TIMEOUT", 15*time.Second),
		ViewTTL:         getDuration("VIEW_TTL", 30*time.Minute),
		AllowOrigins:    getEnv("ALLOW_ORIGINS", "*"),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "miniapp"),
		DBPath:     getEnv("DB_PATH", "miniapp.db"),

		BotToken:         getEnv("BOT_TOKEN", ""),
		InsecureInitData: getEnv("INSECURE_INIT_DATA", "false") == "true",
		GroupID:          groupID,
		CourseAPIPort:    getEnv("COURSEAPI_PORT", "8081"),
		SeedDemo:         getEnv("SEED_DEMO", "false") == "true",
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getDuration accepts Go duration strings ("90s", "15m").
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid duration in %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
