package jobs

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/anjiri1684/tutoring_portal/database"
	"github.com/anjiri1684/tutoring_portal/models"
	"github.com/anjiri1684/tutoring_portal/notifications"
	"github.com/anjiri1684/tutoring_portal/services"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type recordingNotifier struct {
	mu     sync.Mutex
	emails []notifications.Email
}

func (n *recordingNotifier) Email(e notifications.Email) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, e)
}

func (n *recordingNotifier) EmailAdmin(string, string) {}
func (n *recordingNotifier) AlertAdmin(string)         {}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := database.GormConfig(false)
	cfg.Logger = gormlogger.Default.LogMode(gormlogger.Silent)

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func insertBooking(t *testing.T, db *gorm.DB, date, slot string, status models.BookingStatus) *models.Booking {
	t.Helper()
	b := models.Booking{
		Reference:   uuid.NewString()[:8],
		BookingDate: date,
		BookingTime: slot,
		Status:      status,
		FullName:    "Marek",
		Email:       "marek@example.com",
		Phone:       "600600600",
	}
	b.ApplyClassification(models.Technikum{Class: 1})
	if err := db.Create(&b).Error; err != nil {
		t.Fatalf("insert booking: %v", err)
	}
	return &b
}

func newTestRunner(t *testing.T, now time.Time) (*Runner, *gorm.DB, *recordingNotifier) {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Warsaw")
	if err != nil {
		t.Fatal(err)
	}
	db := newTestDB(t)
	n := &recordingNotifier{}
	clock := func() time.Time { return now.In(loc) }
	return NewRunner(db, n, nil, loc, 7, clock, zap.NewNop()), db, n
}

func TestCleanupOldBookings(t *testing.T) {
	now := time.Date(2025, 3, 20, 3, 0, 0, 0, time.UTC)
	r, db, _ := newTestRunner(t, now)

	insertBooking(t, db, "2025-03-12", "10:00", models.BookingStatusConfirmed)
	insertBooking(t, db, "2025-03-12", "11:00", models.BookingStatusCancelled)
	keep := insertBooking(t, db, "2025-03-13", "10:00", models.BookingStatusPending)
	insertBooking(t, db, "2025-03-25", "10:00", models.BookingStatusPending)

	removed, err := r.CleanupOldBookings(context.Background())
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}

	var left []models.Booking
	db.Order("booking_date").Find(&left)
	if len(left) != 2 || left[0].ID != keep.ID {
		t.Fatalf("unexpected remaining bookings %+v", left)
	}
}

func TestSendBookingReminders(t *testing.T) {
	// 09:30 Warsaw on 10 March; the window is 09:30 to 10:30 on 11 March.
	now := time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC)
	r, db, n := newTestRunner(t, now)

	due := insertBooking(t, db, "2025-03-11", "10:00", models.BookingStatusConfirmed)
	insertBooking(t, db, "2025-03-11", "9:00", models.BookingStatusConfirmed)
	insertBooking(t, db, "2025-03-11", "11:00", models.BookingStatusConfirmed)
	insertBooking(t, db, "2025-03-12", "10:00", models.BookingStatusConfirmed)
	insertBooking(t, db, "2025-03-10", "10:00", models.BookingStatusPending)

	sent, err := r.SendBookingReminders(context.Background())
	if err != nil {
		t.Fatalf("reminders: %v", err)
	}
	if sent != 1 || len(n.emails) != 1 {
		t.Fatalf("expected one reminder, got %d (%d emails)", sent, len(n.emails))
	}

	var stamped models.Booking
	db.First(&stamped, "id = ?", due.ID)
	if stamped.ReminderSentAt == nil {
		t.Fatal("expected the booking to be stamped")
	}

	sent, err = r.SendBookingReminders(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sent != 0 || len(n.emails) != 1 {
		t.Fatalf("expected no second reminder, got %d", sent)
	}
}

func TestRemindersSkipUnconfirmedBookings(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC)
	r, db, n := newTestRunner(t, now)

	insertBooking(t, db, "2025-03-11", "10:00", models.BookingStatusPending)

	sent, err := r.SendBookingReminders(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sent != 0 || len(n.emails) != 0 {
		t.Fatalf("pending bookings must not get reminders, got %d", sent)
	}
}

func TestRegisterSchedules(t *testing.T) {
	r, _, _ := newTestRunner(t, time.Now())
	r.wizards = services.NewWizardStore(nil, nil, nil)

	c := cron.New(cron.WithLogger(CronLogger(zap.NewNop())))
	if err := r.Register(c, Schedules{Cleanup: "0 3 * * *", Reminder: "0 * * * *"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(c.Entries()) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(c.Entries()))
	}

	err := r.Register(cron.New(), Schedules{Cleanup: "not a schedule", Reminder: "0 * * * *"})
	if err == nil {
		t.Fatal("expected an error for a bad schedule")
	}
}
