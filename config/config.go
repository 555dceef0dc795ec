package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via config files or the environment.
type AppConfig struct {
	AppPort   string
	JWTSecret string
	// Administrative endpoints (hard reset) require this header value.
	AdminAPIKey string

	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	// Redis for counters, locks and catalog caching
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string

	// External collaborators
	WalletBaseURL     string
	CommissionBaseURL string
	ChatbotBaseURL    string

	// Task engine tuning
	ClaimLockTTLSeconds int
	SpinInitThreshold   int64
	RateLimitPerMinute  int
	AllowedOrigins      []string

	// Gin framework configuration
	GinMode string

	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration from config/config.json and
// environment variables. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: config/config.json -> defaults -> environment variable overrides
	_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// SetForTest overrides the cached configuration. Test helper only.
func SetForTest(c AppConfig) {
	cfg = c
	loaded = true
}

func applyDefaults(out *AppConfig) {
	if out.AppPort == "" {
		out.AppPort = "8080"
	}
	if out.DBPort == "" {
		out.DBPort = "3306"
	}
	if out.RedisPort == 0 {
		out.RedisPort = 6379
	}
	if out.ClaimLockTTLSeconds == 0 {
		out.ClaimLockTTLSeconds = 300
	}
	if out.SpinInitThreshold == 0 {
		out.SpinInitThreshold = 5000
	}
	if out.RateLimitPerMinute == 0 {
		out.RateLimitPerMinute = 60
	}
	if len(out.AllowedOrigins) == 0 {
		out.AllowedOrigins = []string{"*"}
	}
	if out.GinMode == "" {
		out.GinMode = "release"
	}
	if out.LogLevel == "" {
		out.LogLevel = "info"
	}
}

// loadJSONConfig reads JSON file into cfg if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	dec := json.NewDecoder(f)
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			case json.Number:
				i, _ := t.Int64()
				return int(i)
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		out.AdminAPIKey = getString(app, "AdminAPIKey")
		if v := getInt(app, "RateLimitPerMinute"); v != 0 {
			out.RateLimitPerMinute = v
		}
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
	}

	if g, ok := raw["gin"].(map[string]any); ok {
		if v := getString(g, "Mode"); v != "" {
			out.GinMode = v
		}
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		if v := getInt(rds, "RedisPort"); v != 0 {
			out.RedisPort = v
		}
		if v := getInt(rds, "RedisDB"); v != 0 {
			out.RedisDB = v
		}
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if svc, ok := raw["services"].(map[string]any); ok {
		out.WalletBaseURL = getString(svc, "WalletBaseURL")
		out.CommissionBaseURL = getString(svc, "CommissionBaseURL")
		out.ChatbotBaseURL = getString(svc, "ChatbotBaseURL")
	}

	if tk, ok := raw["tasks"].(map[string]any); ok {
		if v := getInt(tk, "ClaimLockTTLSeconds"); v != 0 {
			out.ClaimLockTTLSeconds = v
		}
		if v := getInt(tk, "SpinInitThreshold"); v != 0 {
			out.SpinInitThreshold = int64(v)
		}
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "LogLevel")
		out.LogPath = getString(lg, "LogPath")
		if v := getInt(lg, "LogMaxSizeMB"); v != 0 {
			out.LogMaxSizeMB = v
		}
		if v := getInt(lg, "LogMaxBackups"); v != 0 {
			out.LogMaxBackups = v
		}
		if v := getInt(lg, "LogMaxAgeDays"); v != 0 {
			out.LogMaxAgeDays = v
		}
		out.LogCompress = getBool(lg, "LogCompress")
	}

	return nil
}

func applyEnvOverrides(out *AppConfig) {
	if v := os.Getenv("APP_PORT"); v != "" {
		out.AppPort = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		out.JWTSecret = v
	}
	if v := os.Getenv("ADMIN_API_KEY"); v != "" {
		out.AdminAPIKey = v
	}
	if v := os.Getenv("DATABASE_URI"); v != "" {
		out.DatabaseURI = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		out.DBHost = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		out.DBPort = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		out.DBUser = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		out.DBPassword = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		out.DBName = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		out.RedisHost = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			out.RedisPort = n
		}
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			out.RedisDB = n
		}
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		out.RedisPassword = v
	}
	if v := os.Getenv("WALLET_BASE_URL"); v != "" {
		out.WalletBaseURL = v
	}
	if v := os.Getenv("COMMISSION_BASE_URL"); v != "" {
		out.CommissionBaseURL = v
	}
	if v := os.Getenv("CHATBOT_BASE_URL"); v != "" {
		out.ChatbotBaseURL = v
	}
	if v := os.Getenv("SPIN_INIT_THRESHOLD"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			out.SpinInitThreshold = n
		}
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		parts := strings.Split(v, ",")
		res := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				res = append(res, s)
			}
		}
		if len(res) > 0 {
			out.AllowedOrigins = res
		}
	}
	if v := os.Getenv("GIN_MODE"); v != "" {
		out.GinMode = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		out.LogLevel = v
	}
	if v := os.Getenv("LOG_PATH"); v != "" {
		out.LogPath = v
	}
}
