package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string
	PubNubUserID       string

	// Matchmaking configuration
	MatchCost         int
	FallbackWindow    time.Duration
	VideoHistoryDepth int

	// Participant configuration
	SignupBonus int
	PresenceTTL time.Duration

	// Checkout configuration
	CheckoutNotifyChannel string
	StripeAPIURL          string
	StripeSecretKey       string
	IyzicoAPIURL          string
	IyzicoSecretKey       string

	// Background task configuration
	QueueMetricsInterval time.Duration

	// Monitoring
	EnableMetrics bool
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),
		PubNubUserID:       getEnv("PUBNUB_USER_ID", "videochat-server"),

		// Matchmaking
		MatchCost:         getEnvAsInt("MATCH_COST", 5),
		FallbackWindow:    getEnvAsDuration("FALLBACK_WINDOW", "3s"),
		VideoHistoryDepth: getEnvAsInt("VIDEO_HISTORY_DEPTH", 10),

		// Participants
		SignupBonus: getEnvAsInt("SIGNUP_BONUS", 10),
		PresenceTTL: getEnvAsDuration("PRESENCE_TTL", "60s"),

		// Checkout
		CheckoutNotifyChannel: getEnv("CHECKOUT_NOTIFY_CHANNEL", "checkout-payment-notifications"),
		StripeAPIURL:          getEnv("STRIPE_API_URL", "https://api.stripe.com"),
		StripeSecretKey:       getEnv("STRIPE_SECRET_KEY", ""),
		IyzicoAPIURL:          getEnv("IYZICO_API_URL", "https://api.iyzipay.com"),
		IyzicoSecretKey:       getEnv("IYZICO_SECRET_KEY", ""),

		// Background tasks
		QueueMetricsInterval: getEnvAsDuration("QUEUE_METRICS_INTERVAL", "15s"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
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

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
