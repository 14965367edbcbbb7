package app

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"gorm.io/gorm"

	"go-presence/internal/activity"
	"go-presence/internal/realtime"
)

func registerModules(
	ctx context.Context,
	router *gin.Engine,
	gormDB *gorm.DB,
	rdb *redis.Client,
	kafkaWriter *kafka.Writer,
) error {
	db, err := gormDB.DB()
	if err != nil {
		return err
	}

	// --- Repositories ---
	activityRepo := activity.NewRepository(gormDB)

	// --- Services ---
	publisher := activity.NewNoopEventPublisher()
	if kafkaWriter != nil {
		publisher = activity.NewKafkaEventPublisher(kafkaWriter)
	}
	activityService := activity.NewService(db, activityRepo, rdb, publisher)

	// --- Realtime hub ---
	hub := realtime.NewHub()
	bridge := realtime.NewBridge(rdb, hub)
	go bridge.Run(ctx)
	go func() {
		<-ctx.Done()
		hub.Stop()
	}()

	// --- Handlers ---
	activityHandler := activity.NewHandler(activityService)
	realtimeHandler := realtime.NewHandler(hub)

	// --- Routes ---
	api := router.Group("/api/v1")
	{
		activity.RegisterRoutes(api, activityHandler)
		realtime.RegisterRoutes(api, realtimeHandler)
	}

	return nil
}
