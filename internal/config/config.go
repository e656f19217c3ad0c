package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Scheduler SchedulerConfig
	DueDate   DueDateConfig `mapstructure:"due_date"`
	SMTP      SMTPConfig
	Retention RetentionConfig
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL          string `mapstructure:"url"`
	MaxRetries   int    `mapstructure:"max_retries"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

type SchedulerConfig struct {
	LifecycleIntervalSeconds int `mapstructure:"lifecycle_interval_seconds"`
	DueDateIntervalSeconds   int `mapstructure:"due_date_interval_seconds"`
	SideEffectTimeoutSeconds int `mapstructure:"side_effect_timeout_seconds"`
}

func (c SchedulerConfig) LifecycleInterval() time.Duration {
	if c.LifecycleIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.LifecycleIntervalSeconds) * time.Second
}

func (c SchedulerConfig) DueDateInterval() time.Duration {
	if c.DueDateIntervalSeconds <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.DueDateIntervalSeconds) * time.Second
}

func (c SchedulerConfig) SideEffectTimeout() time.Duration {
	return time.Duration(c.SideEffectTimeoutSeconds) * time.Second
}

type DueDateConfig struct {
	ThresholdDays int `mapstructure:"threshold_days"`
	// MatchMode "exact" fires only on the exact day; "window" also catches
	// deadlines closer than the threshold.
	MatchMode string `mapstructure:"match_mode"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type RetentionConfig struct {
	NotificationDays int `mapstructure:"notification_days"`
	AuditDays        int `mapstructure:"audit_days"`
	IntervalHours    int `mapstructure:"interval_hours"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
