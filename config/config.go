package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	HTTPAddr string

	// 登录
	WebPassword     string
	WebPasswordHash string // bcrypt hash, takes precedence over WebPassword
	SessionSecret   string
	CookieSecure    bool

	// 对象存储 (S3 compatible)
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageRegion    string
	StorageUseSSL    bool

	// Azure 语音合成
	SpeechKey          string
	SpeechRegion       string
	SpeechEndpoint     string
	SpeechVoice        string
	SpeechPollInterval time.Duration
	SpeechPollTimeout  time.Duration // 0 = poll until the job finishes
	SpeechURLTTL       time.Duration

	// Hoarder 书签服务
	HoarderURL    string
	HoarderAPIKey string

	// Home Assistant
	HassURL         string
	HassAccessToken string
	HassACEntity    string
	HassLightScenes []string

	// Google Tasks
	TasksClientID     string
	TasksClientSecret string
	TasksRefreshToken string
	TasksList         string

	// 文本缓存: memory | redis
	TextCache     string
	TextCacheSize int

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// 日志
	LogLevel      string
	LogFile       string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int
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
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration gets an environment variable as a duration or returns a default value.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma separated environment variable.
func getEnvList(key string, fallback []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	return &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		WebPassword:     os.Getenv("WEB_PASSWORD"),
		WebPasswordHash: os.Getenv("WEB_PASSWORD_HASH"),
		SessionSecret:   os.Getenv("SESSION_SECRET"),
		CookieSecure:    getEnvBool("COOKIE_SECURE", false),

		StorageEndpoint:  os.Getenv("STORAGE_ENDPOINT"),
		StorageAccessKey: os.Getenv("STORAGE_AK"),
		StorageSecretKey: os.Getenv("STORAGE_SK"),
		StorageBucket:    getEnv("STORAGE_BUCKET", "reader"),
		StorageRegion:    getEnv("STORAGE_REGION", ""),
		StorageUseSSL:    getEnvBool("STORAGE_USE_SSL", true),

		SpeechKey:          os.Getenv("AZURE_SPEECH_KEY"),
		SpeechRegion:       getEnv("AZURE_SPEECH_REGION", "eastus"),
		SpeechEndpoint:     os.Getenv("AZURE_SPEECH_ENDPOINT"),
		SpeechVoice:        getEnv("TTS_VOICE", "en-US-CoraMultilingualNeural"),
		SpeechPollInterval: getEnvDuration("TTS_POLL_INTERVAL", 5*time.Second),
		SpeechPollTimeout:  getEnvDuration("TTS_POLL_TIMEOUT", 0),
		SpeechURLTTL:       getEnvDuration("TTS_URL_TTL", 72*time.Hour),

		HoarderURL:    os.Getenv("HOARDER_URL"),
		HoarderAPIKey: os.Getenv("HOARDER_API_KEY"),

		HassURL:         os.Getenv("HASS_URL"),
		HassAccessToken: os.Getenv("HASS_ACCESS_TOKEN"),
		HassACEntity:    getEnv("HASS_AC_ENTITY", "switch.ac"),
		HassLightScenes: getEnvList("HASS_LIGHT_SCENES", []string{
			"scene.lights_off",
			"scene.lights_dimmed",
			"scene.lights_normal",
			"scene.lights_white",
		}),

		TasksClientID:     os.Getenv("GOOGLE_TASKS_CLIENT_ID"),
		TasksClientSecret: os.Getenv("GOOGLE_TASKS_CLIENT_SECRET"),
		TasksRefreshToken: os.Getenv("GOOGLE_TASKS_REFRESH_TOKEN"),
		TasksList:         getEnv("GOOGLE_TASKS_LIST", "@default"),

		TextCache:     getEnv("TEXT_CACHE", "memory"),
		TextCacheSize: getEnvInt("TEXT_CACHE_SIZE", 256),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""), // 默认无密码
		RedisDB:       getEnvInt("REDIS_DB", 0),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFile:       getEnv("LOG_FILE", ""),
		LogMaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
		LogMaxAge:     getEnvInt("LOG_MAX_AGE", 28),
	}
}

// SpeechBaseURL 返回 Azure 语音服务的 REST 根地址
func (c *Config) SpeechBaseURL() string {
	if c.SpeechEndpoint != "" {
		return strings.TrimRight(c.SpeechEndpoint, "/")
	}
	return "https://" + c.SpeechRegion + ".api.cognitive.microsoft.com"
}

// TasksEnabled reports whether Google Tasks credentials are present.
func (c *Config) TasksEnabled() bool {
	return c.TasksClientID != "" && c.TasksClientSecret != "" && c.TasksRefreshToken != ""
}

// Validate checks the values the HTTP server cannot start without.
func (c *Config) Validate() error {
	if c.WebPassword == "" && c.WebPasswordHash == "" {
		return errors.New("WEB_PASSWORD or WEB_PASSWORD_HASH must be set")
	}
	if c.StorageEndpoint == "" || c.StorageBucket == "" {
		return errors.New("STORAGE_ENDPOINT and STORAGE_BUCKET must be set")
	}
	if c.SpeechPollInterval <= 0 {
		return errors.New("TTS_POLL_INTERVAL must be positive")
	}
	switch c.TextCache {
	case "memory", "redis":
	default:
		return errors.New("TEXT_CACHE must be one of: memory, redis")
	}
	return nil
}
