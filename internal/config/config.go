package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	UseMemoryQueue bool
	WorkerCount    int
	DatabaseURL    string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	ReplyQueueURL       string
	ReplyJobsTable      string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	DedupTTL      time.Duration

	// Inbound/outbound SMS collaborator (webhook gateway)
	WebhookSecret      string
	BillingSecret      string
	OutboundWebhookURL string
	OutboundAuthToken  string
	SMSPartDelay       time.Duration

	// Entitlement gating
	TrialDays      int
	EnforceSignup  bool
	DevBypassPhone string

	// Generator collaborators
	GeneratorProvider string
	GeminiAPIKey      string
	GeminiModelID     string
	BedrockModelID    string

	// Product search collaborator
	ProductSearchURL string
	ProductSearchKey string

	// Affiliate / promotion
	AmazonAssociateTag string
	SYLPublisherID     string
	VIPPitchEnabled    bool
	VIPDailyMax        int
	VIPCooldown        time.Duration
	VIPCheckoutURL     string
	QuizURL            string

	ReengageEnabled  bool
	ReengageAfter    time.Duration
	ReengageInterval time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	// Missing .env is fine; containers inject real env vars.
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		UseMemoryQueue: getEnvAsBool("USE_MEMORY_QUEUE", false),
		WorkerCount:    getEnvAsInt("WORKER_COUNT", 2),
		DatabaseURL:    getEnv("DATABASE_URL", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		ReplyQueueURL:       getEnv("REPLY_QUEUE_URL", ""),
		ReplyJobsTable:      getEnv("REPLY_JOBS_TABLE", "reply_jobs"),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		DedupTTL:      getEnvAsDuration("DEDUP_TTL", 120*time.Second),

		WebhookSecret:      getEnv("WEBHOOK_SECRET", ""),
		BillingSecret:      getEnv("BILLING_WEBHOOK_SECRET", ""),
		OutboundWebhookURL: getEnv("OUTBOUND_WEBHOOK_URL", ""),
		OutboundAuthToken:  getEnv("OUTBOUND_AUTH_TOKEN", ""),
		SMSPartDelay:       getEnvAsDuration("SMS_PART_DELAY", 900*time.Millisecond),

		TrialDays:      getEnvAsInt("TRIAL_DAYS", 7),
		EnforceSignup:  getEnvAsBool("ENFORCE_SIGNUP", true),
		DevBypassPhone: getEnv("DEV_BYPASS_PHONE", ""),

		GeneratorProvider: strings.ToLower(strings.TrimSpace(getEnv("GENERATOR_PROVIDER", "gemini"))),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:     getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		BedrockModelID:    getEnv("BEDROCK_MODEL_ID", ""),

		ProductSearchURL: getEnv("PRODUCT_SEARCH_URL", ""),
		ProductSearchKey: getEnv("PRODUCT_SEARCH_KEY", ""),

		AmazonAssociateTag: getEnv("AMAZON_ASSOCIATE_TAG", ""),
		SYLPublisherID:     getEnv("SYL_PUBLISHER_ID", ""),
		VIPPitchEnabled:    getEnvAsBool("VIP_PITCH_ENABLED", true),
		VIPDailyMax:        getEnvAsInt("VIP_DAILY_MAX", 2),
		VIPCooldown:        getEnvAsDuration("VIP_COOLDOWN", 240*time.Minute),
		VIPCheckoutURL:     getEnv("VIP_CHECKOUT_URL", "https://bestie.gumroad.com/l/vip"),
		QuizURL:            getEnv("QUIZ_URL", ""),

		ReengageEnabled:  getEnvAsBool("REENGAGE_ENABLED", false),
		ReengageAfter:    getEnvAsDuration("REENGAGE_AFTER", 48*time.Hour),
		ReengageInterval: getEnvAsDuration("REENGAGE_INTERVAL", 1*time.Hour),
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

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
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
