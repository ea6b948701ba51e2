package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

var loadEnvOnce sync.Once

func loadEnv() {
	loadEnvOnce.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("Warning: .env file not found, reading from system environment variables")
		}
	})
}

func Config(key string) string {
	loadEnv()
	return os.Getenv(key)
}

func configOr(key, fallback string) string {
	if v := Config(key); v != "" {
		return v
	}
	return fallback
}

// Settings is the typed view of the process environment.
type Settings struct {
	Environment string
	Port        string
	DatabaseURL string
	JWTSecret   string
	TimeZone    string
	Location    *time.Location
	FrontendURL string

	AdminEmail       string
	AdminPassword    string
	AdminFullName    string
	AdminNotifyEmail string

	EmailProvider   string
	BrevoAPIKey     string
	ResendAPIKey    string
	EmailSender     string
	EmailSenderName string

	TelegramToken       string
	TelegramAdminChatID int64

	CloudinaryURL string

	RetentionDays    int
	CleanupSchedule  string
	ReminderSchedule string
}

func Load() (*Settings, error) {
	s := &Settings{
		Environment: configOr("ENV", "development"),
		Port:        configOr("PORT", "8080"),
		DatabaseURL: Config("DATABASE_URL"),
		JWTSecret:   Config("JWT_SECRET"),
		TimeZone:    configOr("APP_TIMEZONE", "Europe/Warsaw"),
		FrontendURL: configOr("FRONTEND_URL", "http://localhost:5173"),

		AdminEmail:       Config("ADMIN_EMAIL"),
		AdminPassword:    Config("ADMIN_PASSWORD"),
		AdminFullName:    configOr("ADMIN_FULL_NAME", "Administrator"),
		AdminNotifyEmail: Config("ADMIN_NOTIFY_EMAIL"),

		EmailProvider:   configOr("EMAIL_PROVIDER", "brevo"),
		BrevoAPIKey:     Config("BREVO_API_KEY"),
		ResendAPIKey:    Config("RESEND_API_KEY"),
		EmailSender:     Config("EMAIL_SENDER"),
		EmailSenderName: Config("EMAIL_SENDER_NAME"),

		TelegramToken: Config("TELEGRAM_TOKEN"),
		CloudinaryURL: Config("CLOUDINARY_URL"),

		RetentionDays:    7,
		CleanupSchedule:  configOr("CLEANUP_SCHEDULE", "0 3 * * *"),
		ReminderSchedule: configOr("REMINDER_SCHEDULE", "0 * * * *"),
	}

	if s.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set")
	}
	if s.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but not set")
	}

	if raw := Config("TELEGRAM_ADMIN_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_ADMIN_CHAT_ID: %w", err)
		}
		s.TelegramAdminChatID = id
	}
	if raw := Config("BOOKING_RETENTION_DAYS"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 1 {
			return nil, fmt.Errorf("BOOKING_RETENTION_DAYS must be a positive integer, got %q", raw)
		}
		s.RetentionDays = days
	}

	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("APP_TIMEZONE: %w", err)
	}
	s.Location = loc
	if _, err := cron.ParseStandard(s.CleanupSchedule); err != nil {
		return nil, fmt.Errorf("CLEANUP_SCHEDULE: %w", err)
	}
	if _, err := cron.ParseStandard(s.ReminderSchedule); err != nil {
		return nil, fmt.Errorf("REMINDER_SCHEDULE: %w", err)
	}

	if s.AdminNotifyEmail == "" {
		s.AdminNotifyEmail = s.AdminEmail
	}

	return s, nil
}

func (s *Settings) IsProduction() bool {
	return s.Environment == "production"
}
