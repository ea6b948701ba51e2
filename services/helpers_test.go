package services

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
	"github.com/anjiri1684/tutoring_portal/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var warsaw = mustLocation("Europe/Warsaw")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// fixedNow is a Monday morning; tests book dates later that week.
var fixedNow = time.Date(2025, 3, 10, 10, 0, 0, 0, warsaw)

func fixedClock() time.Time { return fixedNow }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := database.GormConfig(false)
	cfg.Logger = gormlogger.Default.LogMode(gormlogger.Silent)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type fakeNotifier struct {
	mu     sync.Mutex
	emails []notifications.Email
	admin  []string
	alerts []string
}

func (n *fakeNotifier) Email(e notifications.Email) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, e)
}

func (n *fakeNotifier) EmailAdmin(subject, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.admin = append(n.admin, subject)
}

func (n *fakeNotifier) AlertAdmin(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, text)
}

func (n *fakeNotifier) sentTo(email string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, e := range n.emails {
		if e.ToEmail == email {
			count++
		}
	}
	return count
}

type fakePublisher struct {
	mu         sync.Mutex
	deliveries []websocket.Delivery
}

func (p *fakePublisher) Publish(d websocket.Delivery) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deliveries = append(p.deliveries, d)
}

type fixture struct {
	db           *gorm.DB
	notifier     *fakeNotifier
	availability *AvailabilityService
	bookings     *BookingService
	moderation   *ModerationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	n := &fakeNotifier{}
	logger := zap.NewNop()
	avail := NewAvailabilityService(db, warsaw, fixedClock, logger)
	return &fixture{
		db:           db,
		notifier:     n,
		availability: avail,
		bookings:     NewBookingService(db, avail, n, logger),
		moderation:   NewModerationService(db, avail, n, logger),
	}
}

func createUser(t *testing.T, db *gorm.DB, email, role string) (*models.User, Session) {
	t.Helper()
	phone := "600100200"
	u := models.User{FullName: "Test " + role, Email: email, Phone: &phone, Password: "x", Role: role}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &u, Session{UserID: u.ID, Email: u.Email, Role: u.Role}
}

func adminSession(t *testing.T, db *gorm.DB) Session {
	t.Helper()
	_, sess := createUser(t, db, "admin@example.com", models.RoleAdmin)
	return sess
}

func anonymousRequest(date, slot string) BookingRequest {
	return BookingRequest{
		Classification: models.Liceum{Level: models.LevelRozszerzony, Class: 2},
		Date:           date,
		Time:           slot,
		LessonType:     "online",
		Contact: Contact{
			FullName: "Anna Nowak",
			Phone:    "600700800",
			Email:    "anna@example.com",
		},
	}
}

func mustBook(t *testing.T, f *fixture, date, slot string) *models.Booking {
	t.Helper()
	b, err := f.bookings.Create(context.Background(), Anonymous(), anonymousRequest(date, slot))
	if err != nil {
		t.Fatalf("book %s %s: %v", date, slot, err)
	}
	return b
}

func wantKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}
