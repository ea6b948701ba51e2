package database

import (
	"errors"
	"fmt"
	"strings"

	config "github.com/anjiri1684/tutoring_portal/configs"
	"github.com/anjiri1684/tutoring_portal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// activeSlotIndex lets at most one pending or confirmed booking hold a slot.
// Cancelled rows fall outside the index and free the slot.
const activeSlotIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_active_slot
	ON bookings (booking_date, booking_time)
	WHERE status IN ('pending', 'confirmed')`

func GormConfig(production bool) *gorm.Config {
	level := gormlogger.Warn
	if production {
		level = gormlogger.Error
	}
	return &gorm.Config{
		PrepareStmt:                              false,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   gormlogger.Default.LogMode(level),
	}
}

func ConnectDB(s *config.Settings, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(s.DatabaseURL), GormConfig(s.IsProduction()))
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	logger.Info("Database connected")
	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Booking{},
		&models.BlockedDay{},
		&models.BlockedTimeSlot{},
		&models.ContactThread{},
		&models.ThreadEntry{},
		&models.StudentNote{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := db.Exec(activeSlotIndex).Error; err != nil {
		return fmt.Errorf("create active slot index: %w", err)
	}
	return nil
}

func SeedAdmin(db *gorm.DB, s *config.Settings, logger *zap.Logger) error {
	if s.AdminEmail == "" || s.AdminPassword == "" {
		logger.Warn("ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(s.AdminEmail))

	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		if existing.Role != models.RoleAdmin {
			if err := db.Model(&existing).Update("role", models.RoleAdmin).Error; err != nil {
				return fmt.Errorf("promote admin: %w", err)
			}
			logger.Info("Existing user promoted to admin", zap.String("email", email))
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check admin user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(s.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin := models.User{
		FullName: s.AdminFullName,
		Email:    email,
		Password: string(hashed),
		Role:     models.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}

	logger.Info("Admin user seeded", zap.String("email", email))
	return nil
}
