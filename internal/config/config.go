package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"reports-service/internal/importer"
	"reports-service/internal/models"
	"reports-service/internal/repository"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// AutoMigrate runs schema migration at startup
	AutoMigrate bool

	// Server
	Port          string
	Environment   string
	StorageDriver string
	CORSOrigins   []string

	// Auth
	JWTSecret string

	// Services
	RedisURL string
	NATSURL  string

	// Uploads
	UploadDir   string
	MaxUploadMB int

	// Import pipeline
	ImportLargeThreshold   int
	ImportMediumThreshold  int
	ImportLargeBatch       int
	ImportMediumBatch      int
	ImportSmallBatch       int
	ImportMaxErrors        int
	ImportSegmentFallback  string
	ImportDefaultStatus    string
	ImportProgressInterval time.Duration
}

func Load() *Config {
	return &Config{
		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "reports_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		AutoMigrate: getEnvBool("DB_AUTO_MIGRATE", true),

		// Server
		Port:          getEnv("PORT", "8085"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", StoragePostgres)),
		CORSOrigins:   getEnvList("CORS_ORIGINS"),

		// Auth
		JWTSecret: os.Getenv("JWT_SECRET"),

		// Services
		RedisURL: os.Getenv("REDIS_URL"),
		NATSURL:  os.Getenv("NATS_URL"),

		// Uploads
		UploadDir:   getEnv("UPLOAD_DIR", os.TempDir()),
		MaxUploadMB: getEnvInt("MAX_UPLOAD_MB", 25),

		// Import pipeline
		ImportLargeThreshold:   getEnvInt("IMPORT_LARGE_THRESHOLD", 500),
		ImportMediumThreshold:  getEnvInt("IMPORT_MEDIUM_THRESHOLD", 100),
		ImportLargeBatch:       getEnvInt("IMPORT_LARGE_BATCH", 25),
		ImportMediumBatch:      getEnvInt("IMPORT_MEDIUM_BATCH", 50),
		ImportSmallBatch:       getEnvInt("IMPORT_SMALL_BATCH", 100),
		ImportMaxErrors:        getEnvInt("IMPORT_MAX_ERRORS", 50),
		ImportSegmentFallback:  getEnv("IMPORT_SEGMENT_FALLBACK", string(importer.SegmentFallbackOverview)),
		ImportDefaultStatus:    getEnv("IMPORT_DEFAULT_STATUS", string(models.ReportStatusPublished)),
		ImportProgressInterval: getEnvDuration("IMPORT_PROGRESS_INTERVAL", 5*time.Second),
	}
}

// ImportOptions maps the IMPORT_* settings onto pipeline options
func (c *Config) ImportOptions() importer.Options {
	opts := importer.DefaultOptions()
	opts.LargeThreshold = c.ImportLargeThreshold
	opts.MediumThreshold = c.ImportMediumThreshold
	opts.LargeBatch = c.ImportLargeBatch
	opts.MediumBatch = c.ImportMediumBatch
	opts.SmallBatch = c.ImportSmallBatch
	opts.MaxErrors = c.ImportMaxErrors
	opts.SegmentFallback = importer.ParseSegmentFallback(c.ImportSegmentFallback)
	opts.DefaultStatus = models.ParseReportStatus(c.ImportDefaultStatus, models.ReportStatusPublished)
	opts.ProgressInterval = c.ImportProgressInterval
	return opts
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	logLevel := logger.Info
	if cfg.Environment == "production" {
		logLevel = logger.Error
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if !cfg.AutoMigrate {
		return db, nil
	}
	if err := repository.Migrate(db); err != nil {
		return nil, err
	}
	log.Println("✓ Database schema migration completed")

	return db, nil
}

// InitRedis connects to REDIS_URL. It returns nil when Redis is not configured
// or unreachable, which disables caching.
func InitRedis(cfg *Config) *redis.Client {
	if cfg.RedisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (caching will be disabled)", err)
		return nil
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("WARNING: Failed to connect to Redis: %v (caching will be disabled)", err)
		client.Close()
		return nil
	}
	log.Println("✓ Redis connected successfully")
	return client
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("WARNING: %s=%q is not an integer, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("WARNING: %s=%q is not a duration, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
