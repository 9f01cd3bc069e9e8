package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/sma-portal-api/internal/config"
	"github.com/noah-isme/sma-portal-api/internal/database"
	"github.com/noah-isme/sma-portal-api/internal/handler"
	"github.com/noah-isme/sma-portal-api/internal/middleware"
	"github.com/noah-isme/sma-portal-api/internal/models"
	"github.com/noah-isme/sma-portal-api/internal/repository"
	"github.com/noah-isme/sma-portal-api/internal/router"
	"github.com/noah-isme/sma-portal-api/internal/service"
	"github.com/noah-isme/sma-portal-api/internal/store"
	cloud "github.com/noah-isme/sma-portal-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Student{}, &models.Teacher{}, &models.ActivityLog{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	sharedStore := store.NewRedis(redisClient, natsConn, logger)

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("cloudinary unavailable, audio messages disabled")
		uploader = nil
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)

	announcementService := service.NewMessageService(service.MessageServiceOptions{
		Store:         sharedStore,
		Key:           cfg.CollectionKey("announcements"),
		Collection:    "announcements",
		UsesPublished: true,
		Validator:     validate,
		Activity:      activityService,
		Logger:        logger,
	})
	notificationService := service.NewMessageService(service.MessageServiceOptions{
		Store:      sharedStore,
		Key:        cfg.CollectionKey("notifications"),
		Collection: "notifications",
		Validator:  validate,
		Activity:   activityService,
		Logger:     logger,
	})
	audioCollectionService := service.NewMessageService(service.MessageServiceOptions{
		Store:      sharedStore,
		Key:        cfg.CollectionKey("audio-messages"),
		Collection: "audio-messages",
		Validator:  validate,
		Activity:   activityService,
		Logger:     logger,
	})

	broadcastService := service.NewBroadcastService(service.BroadcastServiceOptions{
		Store:       sharedStore,
		Key:         cfg.CollectionKey("live-broadcasts"),
		StaleCutoff: cfg.BroadcastStaleCutoff,
		Validator:   validate,
		Activity:    activityService,
		Logger:      logger,
	})
	timetableService := service.NewTimetableService(sharedStore, cfg.CollectionKey("timetable"), validate, logger)
	rosterService := service.NewRosterService(studentRepo, teacherRepo, validate, logger)

	announcementHandler := handler.NewMessageHandler(handler.MessageHandlerOptions{
		Service:     announcementService,
		Collection:  "announcements",
		Publishable: true,
		KeepAlive:   cfg.StreamKeepAlive,
		Logger:      logger,
	})
	notificationHandler := handler.NewMessageHandler(handler.MessageHandlerOptions{
		Service:    notificationService,
		Collection: "notifications",
		KeepAlive:  cfg.StreamKeepAlive,
		Logger:     logger,
	})

	var audioService service.AudioMessageService
	if uploader != nil {
		audioService = service.NewAudioMessageService(audioCollectionService, uploader, logger)
	}
	audioHandler := handler.NewMessageHandler(handler.MessageHandlerOptions{
		Service:    audioCollectionService,
		Audio:      audioService,
		Collection: "audio-messages",
		KeepAlive:  cfg.StreamKeepAlive,
		Logger:     logger,
	})

	broadcastHandler := handler.NewBroadcastHandler(broadcastService, logger)
	timetableHandler := handler.NewTimetableHandler(timetableService, logger)
	rosterHandler := handler.NewRosterHandler(rosterService, logger)
	activityHandler := handler.NewActivityHandler(activityService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AnnouncementHandler: announcementHandler,
		NotificationHandler: notificationHandler,
		AudioMessageHandler: audioHandler,
		BroadcastHandler:    broadcastHandler,
		TimetableHandler:    timetableHandler,
		RosterHandler:       rosterHandler,
		ActivityHandler:     activityHandler,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
		StaffMiddleware:     middleware.RequireStaff(),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
