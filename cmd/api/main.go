package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/anjiri1684/tutoring_portal/configs"
	"github.com/anjiri1684/tutoring_portal/database"
	"github.com/anjiri1684/tutoring_portal/handlers"
	"github.com/anjiri1684/tutoring_portal/jobs"
	"github.com/anjiri1684/tutoring_portal/notifications"
	"github.com/anjiri1684/tutoring_portal/routes"
	"github.com/anjiri1684/tutoring_portal/services"
	"github.com/anjiri1684/tutoring_portal/storage"
	"github.com/anjiri1684/tutoring_portal/utils"
	"github.com/anjiri1684/tutoring_portal/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		log.Fatalf("🔥 Invalid configuration: %v", err)
	}

	logger := utils.NewLogger(settings.Environment)
	defer logger.Sync()

	loc := settings.Location

	db, err := database.ConnectDB(settings, logger)
	if err != nil {
		logger.Fatal("Database connection failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("Database migration failed", zap.Error(err))
	}
	if err := database.SeedAdmin(db, settings, logger); err != nil {
		logger.Fatal("Admin seed failed", zap.Error(err))
	}

	notifier := notifications.NewNotifier(newDispatcher(settings, logger), newAlerter(settings, logger), settings.AdminNotifyEmail, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	availability := services.NewAvailabilityService(db, loc, time.Now, logger)
	bookings := services.NewBookingService(db, availability, notifier, logger)
	wizards := services.NewWizardStore(availability, bookings, time.Now)

	h := &handlers.Handler{
		Auth:         services.NewAuthService(db, settings.JWTSecret, notifier, time.Now, logger),
		Availability: availability,
		Bookings:     bookings,
		Wizards:      wizards,
		Moderation:   services.NewModerationService(db, availability, notifier, logger),
		Messaging:    services.NewMessagingService(db, notifier, hub, settings.FrontendURL, time.Now, logger),
		Reports:      services.NewReportService(db, loc, services.ChromePDF{}, time.Now, logger),
		Hub:          hub,
		Logger:       logger,
	}

	if settings.CloudinaryURL != "" {
		store, err := storage.NewCloudinaryStore(settings.CloudinaryURL, storage.NotesFolder)
		if err != nil {
			logger.Fatal("Cloudinary init failed", zap.Error(err))
		}
		h.Notes = services.NewNoteService(db, store, logger)
		h.Uploads = store
	} else {
		logger.Warn("CLOUDINARY_URL not set, note attachments disabled")
		h.Notes = services.NewNoteService(db, nil, logger)
	}

	runner := jobs.NewRunner(db, notifier, wizards, loc, settings.RetentionDays, time.Now, logger)
	c := cron.New(cron.WithLocation(loc), cron.WithLogger(jobs.CronLogger(logger)))
	if err := runner.Register(c, jobs.Schedules{
		Cleanup:  settings.CleanupSchedule,
		Reminder: settings.ReminderSchedule,
	}); err != nil {
		logger.Fatal("Scheduling jobs failed", zap.Error(err))
	}
	c.Start()
	logger.Info("✅ Cron jobs scheduled",
		zap.String("cleanup", settings.CleanupSchedule),
		zap.String("reminder", settings.ReminderSchedule),
	)

	app := fiber.New(fiber.Config{
		Prefork:       false,
		AppName:       "Tutoring Portal",
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  60 * time.Second,
		IdleTimeout:   60 * time.Second,
		BodyLimit:     12 << 20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}

			logger.Error("Request failed",
				zap.Int("status", code),
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.Error(err),
			)
			msg := "Internal server error"
			if code != fiber.StatusInternalServerError {
				msg = err.Error()
			}
			return c.Status(code).JSON(fiber.Map{"error": msg})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  settings.FrontendURL,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Content-Disposition",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   settings.TimeZone,
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to the Tutoring Portal API",
		})
	})
	routes.Setup(app, h, settings.JWTSecret)

	go func() {
		logger.Info("✅ Server is running", zap.String("port", settings.Port))
		if err := app.Listen(":" + settings.Port); err != nil {
			logger.Error("Server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
	<-c.Stop().Done()
	notifier.Wait()
}

func newDispatcher(s *config.Settings, logger *zap.Logger) notifications.Dispatcher {
	switch {
	case s.EmailProvider == "resend" && s.ResendAPIKey != "":
		logger.Info("Email provider: resend")
		return notifications.NewResendSender(s.ResendAPIKey, s.EmailSender, s.EmailSenderName)
	case s.EmailProvider == "brevo" && s.BrevoAPIKey != "":
		logger.Info("Email provider: brevo")
		return notifications.NewBrevoService(s.BrevoAPIKey, s.EmailSender, s.EmailSenderName)
	}
	logger.Warn("No email provider configured, emails will only be logged")
	return notifications.LogDispatcher{Logger: logger}
}

func newAlerter(s *config.Settings, logger *zap.Logger) notifications.Alerter {
	if s.TelegramToken == "" || s.TelegramAdminChatID == 0 {
		return nil
	}
	alerter, err := notifications.NewTelegramAlerter(s.TelegramToken, s.TelegramAdminChatID)
	if err != nil {
		logger.Warn("Telegram alerts disabled", zap.Error(err))
		return nil
	}
	return alerter
}
