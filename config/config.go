package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
// Values come from the environment (optionally via a .env file) with
// development-friendly defaults.
type Config struct {
	ServerAddr string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MinIO object storage for beat audio, covers and delivered tracks.
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	// JWT
	JWTSecret     string
	JWTTTLMinutes int

	// Payment gateway (redirect flow).
	GatewayShopID    string
	GatewaySecretKey string
	GatewayAPIURL    string
	GatewayReturnURL string
	GatewayCurrency  string

	// Loyalty discount: DiscountPercent off after DiscountThreshold paid recordings.
	DiscountThreshold int
	DiscountPercent   int

	// A beat/recording with a pending payment younger than this many minutes
	// rejects a new checkout instead of overwriting the payment id.
	PendingPaymentWindowMin int

	// Directory watched for finished studio tracks, named <recordingID>.<ext>.
	DeliveryDir string

	LogPath string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // no hardcoded default for passwords
		DBName:     getEnv("DB_NAME", "beatstudio"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "beatstudio"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		JWTSecret:     getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTTTLMinutes: getEnvInt("JWT_TTL_MINUTES", 60*24),

		GatewayShopID:    os.Getenv("GATEWAY_SHOP_ID"),
		GatewaySecretKey: os.Getenv("GATEWAY_SECRET_KEY"),
		GatewayAPIURL:    getEnv("GATEWAY_API_URL", "https://api.yookassa.ru/v3/payments"),
		GatewayReturnURL: getEnv("GATEWAY_RETURN_URL", "http://localhost:3000/payment/result"),
		GatewayCurrency:  getEnv("GATEWAY_CURRENCY", "RUB"),

		DiscountThreshold: getEnvInt("DISCOUNT_THRESHOLD", 5),
		DiscountPercent:   getEnvInt("DISCOUNT_PERCENT", 50),

		PendingPaymentWindowMin: getEnvInt("PENDING_PAYMENT_WINDOW_MIN", 15),

		DeliveryDir: getEnv("DELIVERY_DIR", "delivery"),

		LogPath: getEnv("LOG_PATH", ""),
	}
}
