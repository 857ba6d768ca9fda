package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/marwanhelal/track-management-system/config"
	"github.com/marwanhelal/track-management-system/internal/handler"
	"github.com/marwanhelal/track-management-system/internal/httpserver"
	"github.com/marwanhelal/track-management-system/internal/repository"
	"github.com/marwanhelal/track-management-system/internal/service/auth"
	"github.com/marwanhelal/track-management-system/internal/service/checklist"
	"github.com/marwanhelal/track-management-system/internal/service/phase"
	"github.com/marwanhelal/track-management-system/internal/service/timer"
	"github.com/marwanhelal/track-management-system/pkg/db"
	"github.com/marwanhelal/track-management-system/pkg/logger"
	"github.com/marwanhelal/track-management-system/pkg/mq"
	"github.com/marwanhelal/track-management-system/pkg/outbox"
	redisclient "github.com/marwanhelal/track-management-system/pkg/redis"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting track-management-system...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
	)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	// Redis
	rdb := redisclient.NewClient(cfg.Redis)
	defer rdb.Close()

	// RabbitMQ publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Outbox repository + background dispatcher
	outboxRepo := outbox.NewRepository(dbConn)
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log)
	go dispatcher.Start(context.Background())

	// Repositories
	userRepo := repository.NewUserRepository(dbConn)
	phaseRepo := repository.NewPhaseRepository(dbConn, log)
	checklistRepo := repository.NewChecklistRepository(dbConn, log)
	timerRepo := repository.NewTimerSessionRepository(dbConn, outboxRepo, log)
	workLogRepo := repository.NewWorkLogRepository(dbConn, log)

	// Services
	authService := auth.NewService(userRepo, cfg.JWT.Secret)
	phaseService := phase.NewService(phaseRepo, outboxRepo, log)
	checklistService := checklist.NewService(checklistRepo, phaseRepo, log)
	startLock := timer.NewStartLock(rdb, log)
	timerService := timer.NewService(timerRepo, phaseRepo, startLock, log)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, log)
	phaseHandler := handler.NewPhaseHandler(phaseService, log)
	checklistHandler := handler.NewChecklistHandler(checklistService, log)
	timerHandler := handler.NewTimerHandler(timerService, log)
	workLogHandler := handler.NewWorkLogHandler(workLogRepo, log)

	// Router
	router := httpserver.NewRouter(
		authHandler,
		phaseHandler,
		checklistHandler,
		timerHandler,
		workLogHandler,
		cfg.JWT.Secret,
		dbConn,
	)

	log.Info("Server listening", zap.String("port", cfg.Server.Port))
	if err := router.Run(cfg.Server.Port); err != nil {
		log.Fatal("server start failed", zap.Error(err))
	}
}
