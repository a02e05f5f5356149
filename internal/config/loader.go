package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix 是所有环境变量的前缀，例如 INBOUNDPANEL_HTTP_ADDR。
const EnvPrefix = "INBOUNDPANEL"

// Load reads config.yaml (explicit path, or ./ and /etc/inboundpanel/), then legacy .env
// files, then INBOUNDPANEL_* environment variables. A missing config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/inboundpanel/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
			// 没有配置文件也可以，只靠默认值和环境变量。
		case path != "" && errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("config file %s not found: %w", path, err)
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := loadDotEnv(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is required / 配置不能为空")
	}
	if strings.TrimSpace(c.DB.Path) == "" {
		return fmt.Errorf("database.path is required / 数据库路径不能为空")
	}
	if driver := strings.ToLower(c.DB.Driver); driver != "" && driver != "sqlite" {
		return fmt.Errorf("database.driver %q is not supported / 仅支持 sqlite", c.DB.Driver)
	}
	if c.RateLimit.Enabled && (c.RateLimit.Limit <= 0 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("rate_limit.limit and rate_limit.window must be positive")
	}
	if c.Backup.Enabled {
		if strings.TrimSpace(c.Backup.Spec) == "" || strings.TrimSpace(c.Backup.Dir) == "" {
			return fmt.Errorf("backup.spec and backup.dir are required when backup is enabled")
		}
		if c.Backup.Keep < 1 {
			return fmt.Errorf("backup.keep must be at least 1")
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", "0.0.0.0:8080")
	v.SetDefault("http.shutdown_timeout", "15s")
	v.SetDefault("http.max_body_bytes", 4<<20)
	v.SetDefault("http.allowed_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.add_source", false)
	v.SetDefault("log.environment", "production")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/inboundpanel.db")

	v.SetDefault("auth.signing_key", "change-me")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.issuer", "inboundpanel")
	v.SetDefault("auth.audience", "inboundpanel-admin")
	v.SetDefault("auth.leeway", "30s")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "inboundpanel")
	v.SetDefault("metrics.subsystem", "http")
	v.SetDefault("metrics.token", "")
	v.SetDefault("metrics.buckets", []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5})

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.limit", 120)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("export.app_name", "inboundpanel")
	v.SetDefault("export.version", "1.0")

	v.SetDefault("presets.dir", "")

	v.SetDefault("backup.enabled", false)
	v.SetDefault("backup.spec", "0 3 * * *")
	v.SetDefault("backup.dir", "data/backups")
	v.SetDefault("backup.keep", 7)
}

func loadDotEnv(v *viper.Viper) error {
	candidates := []string{".", ".."}
	for _, path := range candidates {
		file := filepath.Clean(filepath.Join(path, ".env"))
		if _, err := os.Stat(file); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("stat .env: %w", err)
		}

		// .env 用单独的 viper 读，避免和主配置的类型混在一起。
		envViper := viper.New()
		envViper.SetConfigFile(file)
		envViper.SetConfigType("env")
		if err := envViper.ReadInConfig(); err != nil {
			return fmt.Errorf("read .env: %w", err)
		}
		bindLegacyEnv(v, envViper)
	}
	return nil
}

// legacyEnvKeys maps flat .env keys onto the hierarchical config keys.
var legacyEnvKeys = map[string]string{
	"HTTP_ADDR":        "http.addr",
	"SHUTDOWN_TIMEOUT": "http.shutdown_timeout",
	"LOG_LEVEL":        "log.level",
	"LOG_FORMAT":       "log.format",
	"LOG_ADD_SOURCE":   "log.add_source",
	"APP_ENV":          "log.environment",
	"DB_PATH":          "database.path",
	"AUTH_SIGNING_KEY": "auth.signing_key",
	"AUTH_TOKEN_TTL":   "auth.token_ttl",
	"AUTH_ISSUER":      "auth.issuer",
	"AUTH_AUDIENCE":    "auth.audience",
	"METRICS_TOKEN":    "metrics.token",
	"PRESETS_DIR":      "presets.dir",
	"BACKUP_DIR":       "backup.dir",
}

// bindLegacyEnv 把 .env 中的旧键写进主配置。已经有真实环境变量的键跳过，环境变量优先。
func bindLegacyEnv(target *viper.Viper, source *viper.Viper) {
	for oldKey, newKey := range legacyEnvKeys {
		if val := source.GetString(oldKey); val != "" {
			if _, set := os.LookupEnv(EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(newKey, ".", "_"))); set {
				continue
			}
			target.Set(newKey, val)
		}
	}
}
