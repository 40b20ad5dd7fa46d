// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

// Package config loads and validates the ordersaga service configuration.
package config

import (
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/innovationmech/ordersaga/pkg/logger"
)

// DatabaseConfig holds the MySQL connection settings.
type DatabaseConfig struct {
	Username string `mapstructure:"username" json:"username" yaml:"username" validate:"required"`
	Password string `mapstructure:"password" json:"password" yaml:"password"`
	Host     string `mapstructure:"host" json:"host" yaml:"host" validate:"required"`
	Port     string `mapstructure:"port" json:"port" yaml:"port" validate:"required"`
	DBName   string `mapstructure:"dbname" json:"dbname" yaml:"dbname" validate:"required"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port string `mapstructure:"port" json:"port" yaml:"port" validate:"required"`
}

// RedisConfig holds the optional Redis settings for the distributed order
// lock. When disabled, an in-process lock is used.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Addr     string `mapstructure:"addr" json:"addr" yaml:"addr" validate:"required_if=Enabled true"`
	Password string `mapstructure:"password" json:"password" yaml:"password"`
	DB       int    `mapstructure:"db" json:"db" yaml:"db"`
}

// NATSConfig holds the optional NATS event publisher settings.
type NATSConfig struct {
	Enabled       bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	URL           string `mapstructure:"url" json:"url" yaml:"url" validate:"required_if=Enabled true"`
	SubjectPrefix string `mapstructure:"subject_prefix" json:"subject_prefix" yaml:"subject_prefix"`
}

// KafkaConfig holds the optional Kafka event publisher settings.
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Brokers []string `mapstructure:"brokers" json:"brokers" yaml:"brokers" validate:"required_if=Enabled true"`
	Topic   string   `mapstructure:"topic" json:"topic" yaml:"topic" validate:"required_if=Enabled true"`
}

// AMQPConfig holds the optional RabbitMQ event publisher settings.
type AMQPConfig struct {
	Enabled  bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	URL      string `mapstructure:"url" json:"url" yaml:"url" validate:"required_if=Enabled true"`
	Exchange string `mapstructure:"exchange" json:"exchange" yaml:"exchange"`
}

// BrokerConfig groups the event publisher settings. All publishers are
// optional; events always go to the structured log.
type BrokerConfig struct {
	NATS  NATSConfig  `mapstructure:"nats" json:"nats" yaml:"nats"`
	Kafka KafkaConfig `mapstructure:"kafka" json:"kafka" yaml:"kafka"`
	AMQP  AMQPConfig  `mapstructure:"amqp" json:"amqp" yaml:"amqp"`
}

// SagaConfig tunes the saga engine: retry policy and resource TTLs.
type SagaConfig struct {
	MaxRetryAttempts        int `mapstructure:"max_retry_attempts" json:"max_retry_attempts" yaml:"max_retry_attempts" validate:"min=1"`
	RetryWindowHours        int `mapstructure:"retry_window_hours" json:"retry_window_hours" yaml:"retry_window_hours" validate:"min=1"`
	ReservationTTLMinutes   int `mapstructure:"reservation_ttl_minutes" json:"reservation_ttl_minutes" yaml:"reservation_ttl_minutes" validate:"min=1"`
	AuthorizationTTLMinutes int `mapstructure:"authorization_ttl_minutes" json:"authorization_ttl_minutes" yaml:"authorization_ttl_minutes" validate:"min=1"`
	LockTTLSeconds          int `mapstructure:"lock_ttl_seconds" json:"lock_ttl_seconds" yaml:"lock_ttl_seconds" validate:"min=1"`
}

// RetryWindow returns the retry window as a duration.
func (c SagaConfig) RetryWindow() time.Duration {
	return time.Duration(c.RetryWindowHours) * time.Hour
}

// ReservationTTL returns the inventory reservation TTL as a duration.
func (c SagaConfig) ReservationTTL() time.Duration {
	return time.Duration(c.ReservationTTLMinutes) * time.Minute
}

// AuthorizationTTL returns the payment authorization TTL as a duration.
func (c SagaConfig) AuthorizationTTL() time.Duration {
	return time.Duration(c.AuthorizationTTLMinutes) * time.Minute
}

// LockTTL returns the distributed lock TTL as a duration.
func (c SagaConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// Config is the ordersaga service configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database" json:"database" yaml:"database"`
	Server   ServerConfig   `mapstructure:"server" json:"server" yaml:"server"`
	Redis    RedisConfig    `mapstructure:"redis" json:"redis" yaml:"redis"`
	Broker   BrokerConfig   `mapstructure:"broker" json:"broker" yaml:"broker"`
	Saga     SagaConfig     `mapstructure:"saga" json:"saga" yaml:"saga"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig loads the configuration from ordersaga.yaml once and returns the
// cached instance. Missing saga tuning values fall back to safe defaults.
func GetConfig() *Config {
	once.Do(func() {
		viper.SetConfigName("ordersaga")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/ordersaga")

		viper.SetDefault("server.port", "9000")
		viper.SetDefault("saga.max_retry_attempts", 3)
		viper.SetDefault("saga.retry_window_hours", 24)
		viper.SetDefault("saga.reservation_ttl_minutes", 30)
		viper.SetDefault("saga.authorization_ttl_minutes", 60)
		viper.SetDefault("saga.lock_ttl_seconds", 120)

		if err := viper.ReadInConfig(); err != nil {
			logger.GetLogger().Error("failed to read config file", zap.Error(err))
		}

		cfg = &Config{}
		if err := viper.Unmarshal(cfg); err != nil {
			logger.GetLogger().Fatal("failed to unmarshal config", zap.Error(err))
		}
		if err := validator.New().Struct(cfg); err != nil {
			logger.GetLogger().Fatal("invalid configuration", zap.Error(err))
		}
	})
	return cfg
}
