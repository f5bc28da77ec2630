package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// OpenAI
	OpenAIAPIKey    string
	ChatModel       string
	RealtimeModel   string
	RealtimeBaseURL string

	// Redis (conversation history)
	RedisAddr     string
	RedisPassword string

	// Flat-file stores
	AppointmentsFile string
	DoctorsFile      string

	// Scheduling. The suggestion/booking gap pair is intentionally
	// asymmetric; see internal/scheduling.GapPolicy.
	SuggestionGapMinutes int
	BookingGapMinutes    int
	SlotDurationMinutes  int
	SameDayLeadMinutes   int

	// Text-mode turn resolution
	MaxToolIterations int
	Temperature       float32
	MaxOutputTokens   int

	// Realtime voice session
	VADThreshold        float64
	VADPrefixPadding    time.Duration
	VADSilenceDuration  time.Duration
	SpeechEnergyFloor   float64
	SpeechSilenceWindow time.Duration
	Voice               string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		ChatModel:       getEnv("CHAT_MODEL", "gpt-4o-mini"),
		RealtimeModel:   getEnv("REALTIME_MODEL", "gpt-4o-mini-realtime-preview-2024-12-17"),
		RealtimeBaseURL: getEnv("REALTIME_BASE_URL", "https://api.openai.com/v1/realtime"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		AppointmentsFile: getEnv("APPOINTMENTS_FILE", "database/appointments.json"),
		DoctorsFile:      getEnv("DOCTORS_FILE", ""),

		SuggestionGapMinutes: getEnvAsInt("SUGGESTION_GAP_MINUTES", 5),
		BookingGapMinutes:    getEnvAsInt("BOOKING_GAP_MINUTES", 30),
		SlotDurationMinutes:  getEnvAsInt("SLOT_DURATION_MINUTES", 20),
		SameDayLeadMinutes:   getEnvAsInt("SAME_DAY_LEAD_MINUTES", 10),

		MaxToolIterations: getEnvAsInt("MAX_TOOL_ITERATIONS", 8),
		Temperature:       float32(getEnvAsFloat("TEMPERATURE", 0.7)),
		MaxOutputTokens:   getEnvAsInt("MAX_OUTPUT_TOKENS", 500),

		VADThreshold:        getEnvAsFloat("VAD_THRESHOLD", 0.8),
		VADPrefixPadding:    getEnvAsDuration("VAD_PREFIX_PADDING", 500*time.Millisecond),
		VADSilenceDuration:  getEnvAsDuration("VAD_SILENCE_DURATION", time.Second),
		SpeechEnergyFloor:   getEnvAsFloat("SPEECH_ENERGY_FLOOR", 0.01),
		SpeechSilenceWindow: getEnvAsDuration("SPEECH_SILENCE_WINDOW", 500*time.Millisecond),
		Voice:               getEnv("REALTIME_VOICE", "sage"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
