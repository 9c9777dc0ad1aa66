package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// SchedulingDefaults are the fallback scheduling rules used when neither the user
// nor the workspace has an override.
type SchedulingDefaults struct {
	BufferMinutes                 int
	WorkingHoursStart             string // "HH:MM"
	WorkingHoursEnd               string // "HH:MM"
	NoMeetingDays                 []int  // time.Weekday values
	DefaultMeetingDurationMinutes int
	Timezone                      string
}

type Config struct {
	Port             string
	DatabaseURL      string
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration
	EncryptionKey    string

	GoogleClientID      string
	GoogleClientSecret  string
	GoogleRedirectURI   string
	GoogleProjectID     string
	GoogleCredentials   string
	FirebaseCredentials string
	LifecycleTopic      string

	// AI
	AIProvider           string
	GeminiApiKey         string
	GeminiModel          string
	GeminiEmbeddingModel string
	OllamaBaseURL        string
	OllamaModel          string
	OllamaEmbeddingModel string
	EmbeddingCacheSize   int

	// Chroma
	ChromaAPIKey   string
	ChromaTenant   string
	ChromaDatabase string

	// Assistant
	DefaultTimezone   string
	MaxToolIterations int
	HistoryLimit      int
	BackfillWorkers   int

	SchedulingDefaults SchedulingDefaults
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	accessExpiry := getDuration("JWT_ACCESS_EXPIRY", 15*time.Minute)
	refreshExpiry := getDuration("JWT_REFRESH_EXPIRY", 168*time.Hour) // 7 days

	defaultTimezone := getEnv("DEFAULT_TIMEZONE", "UTC")

	return &Config{
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=nexus port=5432 sslmode=disable"),
		JWTSecret:        getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTAccessExpiry:  accessExpiry,
		JWTRefreshExpiry: refreshExpiry,
		EncryptionKey:    getEnv("ENCRYPTION_KEY", ""),

		GoogleClientID:      getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:  getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:   getEnv("GOOGLE_REDIRECT_URI", "http://localhost:8080/api/auth/google/callback"),
		GoogleProjectID:     getEnv("GOOGLE_PROJECT_ID", ""),
		GoogleCredentials:   getEnv("GOOGLE_CREDENTIALS", ""),
		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),
		LifecycleTopic:      getEnv("LIFECYCLE_PUBSUB_TOPIC", "assistant-lifecycle"),

		AIProvider:           getEnv("AI_PROVIDER", "auto"),
		GeminiApiKey:         getEnv("GEMINI_API_KEY", ""),
		GeminiModel:          getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiEmbeddingModel: getEnv("GEMINI_EMBEDDING_MODEL", "text-embedding-004"),
		OllamaBaseURL:        getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:          getEnv("OLLAMA_MODEL", "llama3.1"),
		OllamaEmbeddingModel: getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
		EmbeddingCacheSize:   getInt("EMBEDDING_CACHE_SIZE", 2048),

		ChromaAPIKey:   getEnv("CHROMA_API_KEY", ""),
		ChromaTenant:   getEnv("CHROMA_TENANT", ""),
		ChromaDatabase: getEnv("CHROMA_DATABASE", ""),

		DefaultTimezone:   defaultTimezone,
		MaxToolIterations: getInt("ASSISTANT_MAX_ITERATIONS", 5),
		HistoryLimit:      getInt("ASSISTANT_HISTORY_LIMIT", 20),
		BackfillWorkers:   getInt("BACKFILL_WORKERS", 3),

		SchedulingDefaults: SchedulingDefaults{
			BufferMinutes:                 getInt("SCHEDULING_BUFFER_MINUTES", 15),
			WorkingHoursStart:             getEnv("SCHEDULING_WORK_START", "09:00"),
			WorkingHoursEnd:               getEnv("SCHEDULING_WORK_END", "17:00"),
			NoMeetingDays:                 getIntList("SCHEDULING_NO_MEETING_DAYS"),
			DefaultMeetingDurationMinutes: getInt("SCHEDULING_DEFAULT_DURATION_MINUTES", 30),
			Timezone:                      defaultTimezone,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			return parsed
		}
		log.Printf("[Config] Invalid duration for %s: %q, using %s", key, raw, defaultValue)
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if raw := os.Getenv(key); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			return parsed
		}
		log.Printf("[Config] Invalid integer for %s: %q, using %d", key, raw, defaultValue)
	}
	return defaultValue
}

// getIntList parses a comma separated list such as "0,6".
func getIntList(key string) []int {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []int
	for _, part := range strings.Split(raw, ",") {
		if v, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			out = append(out, v)
		}
	}
	return out
}
