package app

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"go-presence/internal/shared/connection"
)

// BuildApp wires infrastructure and registers the modules and routes.
// The returned cleanup releases broker and pub/sub resources.
func BuildApp(router *gin.Engine) (cleanup func(), err error) {
	db, err := connection.ConnectGORMWithRetry(
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
		5,
	)
	if err != nil {
		return nil, err
	}

	redisClient, err := connection.ConnectRedisWithRetry(os.Getenv("REDIS_ADDR"), 5)
	if err != nil {
		return nil, err
	}

	// Kafka is optional; without a broker the lifecycle events are
	// silently skipped via the noop publisher.
	var kafkaWriter *kafka.Writer
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		kafkaWriter = &kafka.Writer{
			Addr:     kafka.TCP(brokers),
			Balancer: &kafka.LeastBytes{},
		}
		zap.L().Info("kafka producer configured", zap.String("brokers", brokers))
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := registerModules(ctx, router, db, redisClient, kafkaWriter); err != nil {
		cancel()
		return nil, err
	}

	cleanup = func() {
		cancel()
		if kafkaWriter != nil {
			kafkaWriter.Close()
		}
		redisClient.Close()
	}
	return cleanup, nil
}
