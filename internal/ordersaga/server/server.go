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

// Package server assembles the ordersaga HTTP server: repositories, the
// saga engine, event publishers, metrics and the gin routes.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/innovationmech/ordersaga/internal/ordersaga/config"
	"github.com/innovationmech/ordersaga/internal/ordersaga/db"
	orderv1 "github.com/innovationmech/ordersaga/internal/ordersaga/handler/http/order/v1"
	"github.com/innovationmech/ordersaga/internal/ordersaga/model"
	"github.com/innovationmech/ordersaga/internal/ordersaga/repository"
	servicev1 "github.com/innovationmech/ordersaga/internal/ordersaga/service/v1"
	"github.com/innovationmech/ordersaga/pkg/logger"
	"github.com/innovationmech/ordersaga/pkg/saga"
	"github.com/innovationmech/ordersaga/pkg/saga/events"
	"github.com/innovationmech/ordersaga/pkg/saga/lock"
	"github.com/innovationmech/ordersaga/pkg/saga/retry"
	"github.com/innovationmech/ordersaga/pkg/saga/steps"
)

// Server is the ordersaga HTTP server.
type Server struct {
	engine  *gin.Engine
	srv     *http.Server
	cleanup []func()
}

// NewServer assembles the server from the loaded configuration.
func NewServer() (*Server, error) {
	cfg := config.GetConfig()
	log := logger.GetLogger()

	gormDB := db.GetDB()
	if err := gormDB.AutoMigrate(
		&model.Order{}, &model.SagaExecution{}, &model.SagaStepResult{}, &model.RetryAttempt{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	s := &Server{}

	locker := s.buildLocker(cfg, log)
	recorder := s.buildRecorder(cfg, log)
	metrics := events.NewPrometheusMetrics(prometheus.DefaultRegisterer)

	svc, err := servicev1.NewOrderService(servicev1.Config{
		Orders:        repository.NewOrderRepository(gormDB),
		Executions:    repository.NewExecutionRepository(gormDB),
		StepRecords:   repository.NewStepResultRepository(gormDB),
		RetryAttempts: repository.NewRetryAttemptRepository(gormDB),
		Inventory:     s.buildInventory(cfg),
		Payment:       steps.NewMemoryPaymentService(cfg.Saga.AuthorizationTTL()),
		Shipping:      steps.NewMemoryShippingService(),
		Locker:        locker,
		Recorder:      recorder,
		Metrics:       metrics,
		RetryPolicy: retry.Policy{
			MaxAttempts: cfg.Saga.MaxRetryAttempts,
			Window:      cfg.Saga.RetryWindow(),
		},
	})
	if err != nil {
		return nil, err
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.Default())

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api/v1")
	orderv1.NewOrderHandler(svc).RegisterRoutes(api)

	s.engine = engine
	s.srv = &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: engine,
	}
	return s, nil
}

// buildInventory creates the inventory service with the configured
// reservation TTL and a demo catalog.
func (s *Server) buildInventory(cfg *config.Config) steps.InventoryService {
	inv := steps.NewMemoryInventoryService(cfg.Saga.ReservationTTL())
	// Seed a small catalog so the service is usable out of the box.
	inv.SetStock("SKU-0001", 100)
	inv.SetStock("SKU-0002", 100)
	inv.SetStock("SKU-0003", 100)
	return inv
}

// buildLocker returns the Redis locker when configured, else the in-process
// one.
func (s *Server) buildLocker(cfg *config.Config, log *zap.Logger) saga.OrderLocker {
	if !cfg.Redis.Enabled {
		return lock.NewMemoryLocker()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	s.cleanup = append(s.cleanup, func() {
		if err := client.Close(); err != nil {
			log.Warn("failed to close redis client", zap.Error(err))
		}
	})
	return lock.NewRedisLocker(client, cfg.Saga.LockTTL())
}

// buildRecorder composes the zap recorder with whichever broker publishers
// are enabled. A broker that cannot be reached at startup is skipped with a
// warning; events are best-effort.
func (s *Server) buildRecorder(cfg *config.Config, log *zap.Logger) saga.EventRecorder {
	recorders := []saga.EventRecorder{events.NewZapRecorder()}

	if cfg.Broker.NATS.Enabled {
		conn, err := nats.Connect(cfg.Broker.NATS.URL)
		if err != nil {
			log.Warn("nats unavailable, skipping publisher", zap.Error(err))
		} else {
			recorders = append(recorders, events.NewNATSPublisher(conn, cfg.Broker.NATS.SubjectPrefix))
			s.cleanup = append(s.cleanup, conn.Close)
		}
	}

	if cfg.Broker.Kafka.Enabled {
		writer := &kafka.Writer{
			Addr:     kafka.TCP(cfg.Broker.Kafka.Brokers...),
			Topic:    cfg.Broker.Kafka.Topic,
			Balancer: &kafka.Hash{},
		}
		publisher := events.NewKafkaPublisher(writer)
		recorders = append(recorders, publisher)
		s.cleanup = append(s.cleanup, func() {
			if err := publisher.Close(); err != nil {
				log.Warn("failed to close kafka writer", zap.Error(err))
			}
		})
	}

	if cfg.Broker.AMQP.Enabled {
		conn, err := amqp.Dial(cfg.Broker.AMQP.URL)
		if err != nil {
			log.Warn("rabbitmq unavailable, skipping publisher", zap.Error(err))
		} else {
			channel, cerr := conn.Channel()
			if cerr != nil {
				log.Warn("failed to open rabbitmq channel", zap.Error(cerr))
				_ = conn.Close()
			} else if publisher, perr := events.NewAMQPPublisher(channel, cfg.Broker.AMQP.Exchange); perr != nil {
				log.Warn("failed to set up rabbitmq publisher", zap.Error(perr))
				_ = conn.Close()
			} else {
				recorders = append(recorders, publisher)
				s.cleanup = append(s.cleanup, func() {
					_ = channel.Close()
					_ = conn.Close()
				})
			}
		}
	}

	return events.NewMultiRecorder(recorders...)
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	logger.GetLogger().Info("ordersaga server starting", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases broker resources.
func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		logger.GetLogger().Error("server shutdown failed", zap.Error(err))
	}
	for _, fn := range s.cleanup {
		fn()
	}
	logger.GetLogger().Info("ordersaga server stopped")
}
