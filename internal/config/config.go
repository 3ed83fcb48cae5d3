package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	TelegramBotToken  string
	GeminiAPIKey      string
	GeminiModel       string
	DatabaseURL       string
	HTTPPort          string
	LogLevel          string
	LLMWorkers        int
	LLMTimeoutSeconds int
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Info().Msg("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		TelegramBotToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		DatabaseURL:       getEnv("DATABASE_URL", "replybot.db"),
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LLMWorkers:        getEnvAsInt("LLM_WORKERS", 8),
		LLMTimeoutSeconds: getEnvAsInt("LLM_TIMEOUT_SECONDS", 30),
	}

	if AppConfig.TelegramBotToken == "" {
		log.Fatal().Msg("TELEGRAM_BOT_TOKEN environment variable is required")
	}

	// An empty GEMINI_API_KEY is allowed: the bot starts and answers every
	// question with the service-unavailable message until a key is provided.
	if AppConfig.GeminiAPIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set, remote model is disabled")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
