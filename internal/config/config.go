package config

import (
	"os"      // For environment variables
	"strconv" // For string to number conversion
	"time"    // For durations

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort    string // Application port
	DBDriver   string // Database driver: mysql or sqlite
	DBUser     string // Database user
	DBPassword string // Database password
	DBHost     string // Database host
	DBPort     string // Database port
	DBName     string // Database name
	DBPath     string // SQLite file path when DBDriver is sqlite
	JWTSecret  string // JWT secret key
	JWTTTL     time.Duration
	RedisAddr  string // Redis server address; empty disables caching
	RedisPass  string // Redis password
	RedisDB    int    // Redis database number
	IsProd     bool   // Is production environment
	LogLevel   string // logrus level name
	LogFile    string // Rotated log file; empty logs to stderr

	Currency         string // Wallet and order currency
	ShippingFlatFee  int64  // Flat shipping fee per order, minor units
	FreeShippingOver int64  // Subtotal at which shipping is waived; 0 disables
	TaxRate          string // Decimal tax rate applied to the subtotal, e.g. "0.18"

	PendingOrderTTL time.Duration // Pending orders older than this are cancelled
	ExpiryInterval  time.Duration // How often stale pending orders are swept

	AuthRatePerMinute float64 // Login/register requests per minute per client
	AuthRateBurst     int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	return &Config{
		AppPort:    getEnv("APP_PORT", "8080"),
		DBDriver:   getEnv("DB_DRIVER", "mysql"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBName:     getEnv("DB_NAME", "bebamart"),
		DBPath:     getEnv("DB_PATH", "bebamart.db"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		JWTTTL:     getDuration("JWT_TTL", 24*time.Hour),
		RedisAddr:  os.Getenv("REDIS_ADDR"),
		RedisPass:  os.Getenv("REDIS_PASS"),
		RedisDB:    int(getInt("REDIS_DB", 0)),
		IsProd:     os.Getenv("IS_PROD") == "true",
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFile:    os.Getenv("LOG_FILE"),

		Currency:         getEnv("CURRENCY", "UGX"),
		ShippingFlatFee:  getInt("SHIPPING_FLAT_FEE", 5000),
		FreeShippingOver: getInt("FREE_SHIPPING_OVER", 0),
		TaxRate:          getEnv("TAX_RATE", "0"),

		PendingOrderTTL: getDuration("PENDING_ORDER_TTL", 48*time.Hour),
		ExpiryInterval:  getDuration("EXPIRY_INTERVAL", 10*time.Minute),

		AuthRatePerMinute: getFloat("AUTH_RATE_PER_MINUTE", 30),
		AuthRateBurst:     int(getInt("AUTH_RATE_BURST", 10)),
	}
}

// DSN builds the MySQL data source name
func (c *Config) DSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int64) int64 {
	if v, err := strconv.ParseInt(os.Getenv(key), 10, 64); err == nil {
		return v
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return def
}
