package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	ListenAddr string
	Title      string
	DisplayTZ  string // IANA name for "played at" times, empty means local

	// 数据源
	FeedSource   string // file, http, redis, minio
	FeedPath     string // local JSON document, also the collector's file sink
	FeedURL      string
	FeedWatch    bool
	PollInterval time.Duration
	TickInterval time.Duration

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisFeedKey  string

	// MinIO配置
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioUseSSL     bool
	MinioRegion     string
	MinioBucket     string
	MinioFeedObject string

	// 播放历史归档 (MySQL)
	HistoryEnabled bool
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string

	// Spotify 采集器
	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRedirectURI  string
	SpotifyRefreshToken string
	SpotifyMaxRetries   int
	SpotifyBackoff      time.Duration
	CollectInterval     time.Duration
	StatsInterval       time.Duration
	RecentLimit         int
	TopLimit            int

	// 日志
	LogLevel      string
	LogFile       string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int
	LogCompress   bool
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

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("10s", "12h").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
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
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		Title:      getEnv("DASHBOARD_TITLE", "Listening Dashboard"),
		DisplayTZ:  getEnv("DISPLAY_TZ", ""),

		FeedSource:   getEnv("FEED_SOURCE", "file"),
		FeedPath:     getEnv("FEED_PATH", "data/data.json"),
		FeedURL:      getEnv("FEED_URL", ""),
		FeedWatch:    getEnvBool("FEED_WATCH", true),
		PollInterval: getEnvDuration("POLL_INTERVAL", 10*time.Second),
		TickInterval: getEnvDuration("TICK_INTERVAL", time.Second),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""), // 默认无密码
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisFeedKey:  getEnv("REDIS_FEED_KEY", "listenboard:feed"),

		MinioEndpoint:   getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey:  getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:  getEnv("MINIO_SECRET_KEY", ""),
		MinioUseSSL:     getEnvBool("MINIO_USE_SSL", false),
		MinioRegion:     getEnv("MINIO_REGION", "us-east-1"),
		MinioBucket:     getEnv("MINIO_BUCKET", "listenboard"),
		MinioFeedObject: getEnv("MINIO_FEED_OBJECT", "feed/data.json"),

		HistoryEnabled: getEnvBool("HISTORY_ENABLED", false),
		DBHost:         getEnv("DB_HOST", "127.0.0.1"),
		DBPort:         getEnv("DB_PORT", "3306"),
		DBUser:         getEnv("DB_USER", "root"),
		DBPassword:     os.Getenv("DB_PASSWORD"), // no hardcoded default for passwords
		DBName:         getEnv("DB_NAME", "listenboard"),

		SpotifyClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
		SpotifyRedirectURI:  getEnv("SPOTIFY_REDIRECT_URI", "http://127.0.0.1:8888/callback"),
		SpotifyRefreshToken: os.Getenv("SPOTIFY_REFRESH_TOKEN"),
		SpotifyMaxRetries:   getEnvInt("SPOTIFY_MAX_RETRIES", 3),
		SpotifyBackoff:      time.Duration(getEnvInt("SPOTIFY_RETRY_BACKOFF_MS", 500)) * time.Millisecond,
		CollectInterval:     getEnvDuration("COLLECT_INTERVAL", 10*time.Second),
		StatsInterval:       getEnvDuration("STATS_INTERVAL", 12*time.Hour),
		RecentLimit:         getEnvInt("RECENT_LIMIT", 50),
		TopLimit:            getEnvInt("TOP_LIMIT", 20),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
		LogMaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
		LogMaxAge:     getEnvInt("LOG_MAX_AGE", 28),
		LogCompress:   getEnvBool("LOG_COMPRESS", true),
	}
}

// RedisConfigured reports whether the redis source or sink should be used.
func (c *Config) RedisConfigured() bool {
	return c.FeedSource == "redis" || os.Getenv("REDIS_HOST") != ""
}

// Location resolves DisplayTZ, falling back to the local zone.
func (c *Config) Location() *time.Location {
	if c.DisplayTZ == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.DisplayTZ)
	if err != nil {
		log.Printf("Invalid DISPLAY_TZ %q, using local time: %v", c.DisplayTZ, err)
		return time.Local
	}
	return loc
}

// MinioConfigured 是否配置了 MinIO
func (c *Config) MinioConfigured() bool {
	return c.MinioEndpoint != ""
}
