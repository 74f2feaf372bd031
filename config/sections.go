package config

import (
	"time"

	"github.com/spf13/viper"
)

// Auth auth config struct
type Auth struct {
	APIKey string
}

func getAuthConfig(v *viper.Viper) *Auth {
	return &Auth{
		APIKey: v.GetString("auth.api_key"),
	}
}

// Logger logger config struct
type Logger struct {
	Level      int
	Format     string
	Output     string
	OutputFile string
}

func getLoggerConfig(v *viper.Viper) *Logger {
	return &Logger{
		Level:      v.GetInt("logger.level"),
		Format:     v.GetString("logger.format"),
		Output:     v.GetString("logger.output"),
		OutputFile: v.GetString("logger.output_file"),
	}
}

// Data database config struct
type Data struct {
	Driver string
	Source string
}

func getDataConfig(v *viper.Viper) *Data {
	return &Data{
		Driver: v.GetString("data.database.driver"),
		Source: v.GetString("data.database.source"),
	}
}

// Queue task-dispatch config struct
type Queue struct {
	Driver    string // pool, redis or inline
	Workers   int
	QueueSize int
	Redis     *Redis
}

// Redis redis queue config struct
type Redis struct {
	Addr     string
	Username string
	Password string
	Db       int
	Key      string
}

func getQueueConfig(v *viper.Viper) *Queue {
	return &Queue{
		Driver:    v.GetString("queue.driver"),
		Workers:   v.GetInt("queue.workers"),
		QueueSize: v.GetInt("queue.size"),
		Redis: &Redis{
			Addr:     v.GetString("queue.redis.addr"),
			Username: v.GetString("queue.redis.username"),
			Password: v.GetString("queue.redis.password"),
			Db:       v.GetInt("queue.redis.db"),
			Key:      v.GetString("queue.redis.key"),
		},
	}
}

// Storage managed storage config struct
type Storage struct {
	Dir      string
	TTLHours int
}

func getStorageConfig(v *viper.Viper) *Storage {
	return &Storage{
		Dir:      v.GetString("storage.dir"),
		TTLHours: v.GetInt("storage.ttl_hours"),
	}
}

// Export export defaults config struct
type Export struct {
	EstimateSeconds  int
	AllowedTemplates []string
	DefaultTemplate  string
}

func getExportConfig(v *viper.Viper) *Export {
	return &Export{
		EstimateSeconds:  v.GetInt("export.estimate_seconds"),
		AllowedTemplates: v.GetStringSlice("export.allowed_templates"),
		DefaultTemplate:  v.GetString("export.default_template"),
	}
}

// PDF conversion engine config struct
type PDF struct {
	Timeout  time.Duration
	Binaries []string
}

func getPDFConfig(v *viper.Viper) *PDF {
	return &PDF{
		Timeout:  v.GetDuration("pdf.timeout"),
		Binaries: v.GetStringSlice("pdf.binaries"),
	}
}
