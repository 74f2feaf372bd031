// Package config loads and watches the service configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var (
	config *Config
	mu     sync.Mutex
	v      = viper.New()
)

// Config represents the configuration implementation.
type Config struct {
	AppName string
	RunMode string
	Host    string
	Port    int
	Auth    *Auth
	Logger  *Logger
	Data    *Data
	Queue   *Queue
	Storage *Storage
	Export  *Export
	PDF     *PDF
	Viper   *viper.Viper
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Init loads the configuration from the given path and sets it globally.
func Init(path string) (*Config, error) {
	mu.Lock()
	defer mu.Unlock()
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	config = cfg
	return cfg, nil
}

// Load loads the configuration from the file without touching global state.
func Load(configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		ex, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to get executable path: %w", err)
		}
		v.SetConfigName("config")
		v.AddConfigPath("/etc/docport")
		v.AddConfigPath("$HOME/.docport")
		v.AddConfigPath(".")
		v.AddConfigPath(filepath.Dir(ex))
	}

	v.SetEnvPrefix("DOCPORT")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional; defaults plus environment carry a dev setup.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return fromViper(v), nil
}

// fromViper builds a Config from a viper instance.
func fromViper(v *viper.Viper) *Config {
	return &Config{
		AppName: v.GetString("app_name"),
		RunMode: v.GetString("run_mode"),
		Host:    v.GetString("server.host"),
		Port:    v.GetInt("server.port"),
		Auth:    getAuthConfig(v),
		Logger:  getLoggerConfig(v),
		Data:    getDataConfig(v),
		Queue:   getQueueConfig(v),
		Storage: getStorageConfig(v),
		Export:  getExportConfig(v),
		PDF:     getPDFConfig(v),
		Viper:   v,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "docport")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("auth.api_key", "dev-secret")
	v.SetDefault("logger.level", 4) // logrus info
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("data.database.driver", "sqlite3")
	v.SetDefault("data.database.source", "file:docport.db?cache=shared&mode=rwc")
	v.SetDefault("queue.driver", "pool")
	v.SetDefault("queue.workers", 4)
	v.SetDefault("queue.size", 256)
	v.SetDefault("queue.redis.addr", "localhost:6379")
	v.SetDefault("queue.redis.key", "docport:export:jobs")
	v.SetDefault("storage.dir", "storage")
	v.SetDefault("storage.ttl_hours", 24)
	v.SetDefault("export.estimate_seconds", 15)
	v.SetDefault("export.allowed_templates", []string{"summary", "full_report"})
	v.SetDefault("export.default_template", "summary")
	v.SetDefault("pdf.timeout", "2m")
	v.SetDefault("pdf.binaries", []string{"libreoffice", "soffice"})
}

// Reload reloads the global configuration from the file.
func Reload() (*Config, error) {
	mu.Lock()
	defer mu.Unlock()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to reload config: %w", err)
	}
	config = fromViper(v)
	return config, nil
}

// Watch watches the configuration file and reloads it when it changes.
func Watch(callback func(*Config)) {
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := Reload()
		if err != nil {
			fmt.Printf("Error reloading config: %v\n", err)
			return
		}
		callback(cfg)
	})
}
