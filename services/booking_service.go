package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anjiri1684/tutoring_portal/models"
	"github.com/anjiri1684/tutoring_portal/notifications"
	"github.com/anjiri1684/tutoring_portal/utils"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var validate = validator.New()

// Notifier is the fire-and-forget side channel used by the services.
type Notifier interface {
	Email(e notifications.Email)
	EmailAdmin(subject, html string)
	AlertAdmin(text string)
}

type Contact struct {
	FullName string `json:"full_name" validate:"required,min=2,max=255"`
	Phone    string `json:"phone" validate:"required,min=6,max=32"`
	Email    string `json:"email" validate:"omitempty,email,max=255"`
}

type BookingRequest struct {
	Classification models.Classification
	Date           string
	Time           string
	LessonType     string
	Contact        Contact
	Notes          string
}

type BookingService struct {
	db           *gorm.DB
	availability *AvailabilityService
	notifier     Notifier
	logger       *zap.Logger
}

func NewBookingService(db *gorm.DB, availability *AvailabilityService, notifier Notifier, logger *zap.Logger) *BookingService {
	return &BookingService{
		db:           db,
		availability: availability,
		notifier:     notifier,
		logger:       logger,
	}
}

// Create inserts one pending, unpaid booking. The slot is checked against
// the current availability first, but the active-slot unique index decides
// concurrent submissions: the loser gets a conflict wrapping ErrSlotTaken.
func (s *BookingService) Create(ctx context.Context, sess Session, req BookingRequest) (*models.Booking, error) {
	if req.Classification == nil {
		return nil, validationErr("lesson classification is incomplete", ErrIncomplete)
	}
	if err := req.Classification.Validate(); err != nil {
		return nil, validationErr(err.Error(), err)
	}
	if !models.IsValidSlot(req.Time) {
		return nil, validationErr(fmt.Sprintf("unknown time slot %q", req.Time), nil)
	}

	req.LessonType = strings.TrimSpace(req.LessonType)
	req.Notes = strings.TrimSpace(req.Notes)
	if err := validate.Var(req.LessonType, "max=255"); err != nil {
		return nil, validationErr("lesson type is too long", err)
	}
	if err := validate.Var(req.Notes, "max=2000"); err != nil {
		return nil, validationErr("notes are too long", err)
	}

	date, err := s.availability.ValidateDate(req.Date)
	if err != nil {
		return nil, err
	}

	contact, err := s.resolveContact(ctx, sess, req.Contact)
	if err != nil {
		return nil, err
	}

	avail, err := s.availability.resolve(ctx, date)
	if err != nil {
		return nil, err
	}
	if avail.BlockedDay {
		return nil, conflictErr("this day is not available", ErrDayBlocked)
	}
	if !avail.IsAvailable(req.Time) {
		return nil, conflictErr("this time slot is no longer available", ErrSlotTaken)
	}

	booking := models.Booking{
		LessonType:  req.LessonType,
		BookingDate: date,
		BookingTime: req.Time,
		Status:      models.BookingStatusPending,
		IsPaid:      false,
		FullName:    contact.FullName,
		Phone:       contact.Phone,
		Email:       contact.Email,
	}
	booking.ApplyClassification(req.Classification)
	if sess.IsAuthenticated() {
		uid := sess.UserID
		booking.UserID = &uid
	}
	if req.Notes != "" {
		notes := req.Notes
		booking.Notes = &notes
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ref, err := utils.GenerateUniqueBookingReference(tx)
		if err != nil {
			return err
		}
		booking.Reference = ref
		return tx.Create(&booking).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			s.logger.Info("Slot taken by a concurrent booking",
				zap.String("date", date),
				zap.String("time", req.Time),
			)
			return nil, conflictErr("this time slot is no longer available", ErrSlotTaken)
		}
		s.logger.Error("Failed to create booking", zap.Error(err))
		return nil, transientErr("could not save the booking, please try again", err)
	}

	s.logger.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("reference", booking.Reference),
		zap.String("date", booking.BookingDate),
		zap.String("time", booking.BookingTime),
	)
	s.notifyCreated(&booking)
	return &booking, nil
}

// resolveContact validates anonymous contact details and fills them from the
// profile for signed-in students.
func (s *BookingService) resolveContact(ctx context.Context, sess Session, c Contact) (Contact, error) {
	c.FullName = strings.TrimSpace(c.FullName)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Email = strings.TrimSpace(c.Email)

	if !sess.IsAuthenticated() {
		if err := validate.Struct(c); err != nil {
			return c, validationErr("full name and phone are required, email must be valid when given", err)
		}
		return c, nil
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", sess.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c, notFoundErr("user profile not found")
		}
		return c, transientErr("could not load your profile", err)
	}
	if c.FullName == "" {
		c.FullName = user.FullName
	}
	if c.Email == "" {
		c.Email = user.Email
	}
	if c.Phone == "" && user.Phone != nil {
		c.Phone = *user.Phone
	}
	return c, nil
}

func (s *BookingService) notifyCreated(b *models.Booking) {
	details := bookingDetails(b)

	if html, err := notifications.BookingCreatedAdminEmail(details); err == nil {
		s.notifier.EmailAdmin("New booking request "+b.Reference, html)
	} else {
		s.logger.Error("Failed to render admin booking email", zap.Error(err))
	}
	if html, err := notifications.BookingCreatedStudentEmail(details); err == nil {
		s.notifier.Email(notifications.Email{
			ToName:  b.FullName,
			ToEmail: b.Email,
			Subject: "We received your booking request",
			HTML:    html,
		})
	} else {
		s.logger.Error("Failed to render student booking email", zap.Error(err))
	}

	s.notifier.AlertAdmin(fmt.Sprintf("New booking %s: %s %s, %s (%s)",
		b.Reference, b.BookingDate, b.BookingTime, b.FullName, b.ClassificationLabel()))
}

// ListMine returns the caller's bookings, newest date first.
func (s *BookingService) ListMine(ctx context.Context, sess Session) ([]models.Booking, error) {
	if !sess.IsAuthenticated() {
		return nil, &Error{Kind: KindAuthorization, Msg: "sign in to see your bookings"}
	}

	var bookings []models.Booking
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", sess.UserID).
		Order(orderNewestFirst).
		Find(&bookings).Error; err != nil {
		return nil, transientErr("could not load bookings", err)
	}
	return bookings, nil
}

// GetByReference lets an anonymous visitor look a booking up by its public
// code. contact must match the email given at booking time, or the phone
// when no email was stored.
func (s *BookingService) GetByReference(ctx context.Context, reference, contact string) (*models.Booking, error) {
	var b models.Booking
	err := s.db.WithContext(ctx).
		Where("reference = ?", strings.ToUpper(strings.TrimSpace(reference))).
		First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("booking not found")
		}
		return nil, transientErr("could not load booking", err)
	}
	if !contactMatches(&b, strings.TrimSpace(contact)) {
		return nil, notFoundErr("booking not found")
	}
	return &b, nil
}

func contactMatches(b *models.Booking, contact string) bool {
	if contact == "" {
		return false
	}
	if b.Email != "" {
		return strings.EqualFold(b.Email, contact)
	}
	return b.Phone == contact
}

func loadBooking(ctx context.Context, db *gorm.DB, id uuid.UUID) (*models.Booking, error) {
	var b models.Booking
	if err := db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundErr("booking not found")
		}
		return nil, transientErr("could not load booking", err)
	}
	return &b, nil
}

// Slot strings do not sort lexically ("8:00" > "10:00"), so order by length
// first.
const (
	orderNewestFirst = "booking_date DESC, LENGTH(booking_time) ASC, booking_time ASC"
	orderOldestFirst = "booking_date ASC, LENGTH(booking_time) ASC, booking_time ASC"
)

func bookingDetails(b *models.Booking) notifications.BookingDetails {
	d := notifications.BookingDetails{
		Reference:      b.Reference,
		FullName:       b.FullName,
		Email:          b.Email,
		Phone:          b.Phone,
		Date:           b.BookingDate,
		Time:           b.BookingTime,
		LessonType:     b.LessonType,
		Classification: b.ClassificationLabel(),
	}
	if b.Notes != nil {
		d.Notes = *b.Notes
	}
	return d
}
