package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/anjiri1684/tutoring_portal/models"
	"github.com/anjiri1684/tutoring_portal/notifications"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type ModerationService struct {
	db           *gorm.DB
	availability *AvailabilityService
	notifier     Notifier
	logger       *zap.Logger
}

func NewModerationService(db *gorm.DB, availability *AvailabilityService, notifier Notifier, logger *zap.Logger) *ModerationService {
	return &ModerationService{
		db:           db,
		availability: availability,
		notifier:     notifier,
		logger:       logger,
	}
}

// ConfirmBooking moves a pending booking to confirmed.
func (s *ModerationService) ConfirmBooking(ctx context.Context, sess Session, id uuid.UUID) (*models.Booking, error) {
	b, err := s.transition(ctx, sess, id, models.BookingStatusConfirmed, []string{string(models.BookingStatusPending)})
	if err != nil {
		return nil, err
	}
	s.notifyStatus(b, "Your lesson is confirmed", notifications.BookingConfirmedEmail)
	return b, nil
}

// CancelBooking moves a pending or confirmed booking to cancelled, which
// frees its slot.
func (s *ModerationService) CancelBooking(ctx context.Context, sess Session, id uuid.UUID) (*models.Booking, error) {
	b, err := s.transition(ctx, sess, id, models.BookingStatusCancelled, activeStatuses)
	if err != nil {
		return nil, err
	}
	s.notifyStatus(b, "Your lesson was cancelled", notifications.BookingCancelledEmail)
	return b, nil
}

// transition applies next only while the row is still in one of from. The
// check and the write are one statement, so concurrent moderators cannot
// resurrect a cancelled booking.
func (s *ModerationService) transition(ctx context.Context, sess Session, id uuid.UUID, next models.BookingStatus, from []string) (*models.Booking, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	res := db.Model(&models.Booking{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", next)
	if res.Error != nil {
		s.logger.Error("Failed to update booking status", zap.String("booking_id", id.String()), zap.Error(res.Error))
		return nil, transientErr("could not update the booking, please try again", res.Error)
	}

	b, err := loadBooking(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, conflictErr(
			fmt.Sprintf("booking is %s and cannot become %s", b.Status, next),
			ErrInvalidTransition,
		)
	}

	s.logger.Info("Booking status changed",
		zap.String("booking_id", id.String()),
		zap.String("status", string(next)),
	)
	return b, nil
}

func (s *ModerationService) notifyStatus(b *models.Booking, subject string, render func(notifications.BookingDetails) (string, error)) {
	html, err := render(bookingDetails(b))
	if err != nil {
		s.logger.Error("Failed to render status email", zap.Error(err))
		return
	}
	s.notifier.Email(notifications.Email{
		ToName:  b.FullName,
		ToEmail: b.Email,
		Subject: subject,
		HTML:    html,
	})
}

// SetPaid flips the payment flag regardless of status.
func (s *ModerationService) SetPaid(ctx context.Context, sess Session, id uuid.UUID, paid bool) (*models.Booking, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}

	res := s.db.WithContext(ctx).Model(&models.Booking{}).Where("id = ?", id).Update("is_paid", paid)
	if res.Error != nil {
		return nil, transientErr("could not update payment status", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, notFoundErr("booking not found")
	}
	return loadBooking(ctx, s.db, id)
}

func (s *ModerationService) GetBooking(ctx context.Context, sess Session, id uuid.UUID) (*models.Booking, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}
	return loadBooking(ctx, s.db, id)
}

func (s *ModerationService) DeleteBooking(ctx context.Context, sess Session, id uuid.UUID) error {
	if err := sess.requireAdmin(); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).Delete(&models.Booking{}, "id = ?", id)
	if res.Error != nil {
		return transientErr("could not delete booking", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFoundErr("booking not found")
	}
	s.logger.Info("Booking deleted", zap.String("booking_id", id.String()))
	return nil
}

type BookingFilter struct {
	Status   string
	From     string
	To       string
	Paid     *bool
	Page     int
	PageSize int
}

type BookingPage struct {
	Items    []models.Booking `json:"items"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

func (s *ModerationService) ListBookings(ctx context.Context, sess Session, f BookingFilter) (*BookingPage, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}

	q := s.db.WithContext(ctx).Model(&models.Booking{})
	if f.Status != "" {
		switch models.BookingStatus(f.Status) {
		case models.BookingStatusPending, models.BookingStatusConfirmed, models.BookingStatusCancelled:
		default:
			return nil, validationErr(fmt.Sprintf("unknown status %q", f.Status), nil)
		}
		q = q.Where("status = ?", f.Status)
	}
	if f.From != "" {
		if _, err := models.ParseDate(f.From, s.availability.Location()); err != nil {
			return nil, validationErr(err.Error(), err)
		}
		q = q.Where("booking_date >= ?", f.From)
	}
	if f.To != "" {
		if _, err := models.ParseDate(f.To, s.availability.Location()); err != nil {
			return nil, validationErr(err.Error(), err)
		}
		q = q.Where("booking_date <= ?", f.To)
	}
	if f.Paid != nil {
		q = q.Where("is_paid = ?", *f.Paid)
	}

	page, size := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, transientErr("could not load bookings", err)
	}

	items := []models.Booking{}
	if err := q.Order(orderNewestFirst).Offset((page - 1) * size).Limit(size).Find(&items).Error; err != nil {
		return nil, transientErr("could not load bookings", err)
	}
	return &BookingPage{Items: items, Total: total, Page: page, PageSize: size}, nil
}

// BlockDay closes a whole date. A date can only be blocked once.
func (s *ModerationService) BlockDay(ctx context.Context, sess Session, date string, reason *string) (*models.BlockedDay, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}
	d, err := s.availability.ValidateDate(date)
	if err != nil {
		return nil, err
	}

	day := models.BlockedDay{BlockedDate: d, Reason: trimmedOrNil(reason)}
	if err := s.db.WithContext(ctx).Create(&day).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, conflictErr(fmt.Sprintf("%s is already blocked", d), err)
		}
		return nil, transientErr("could not block the day", err)
	}

	s.logger.Info("Day blocked", zap.String("date", d))
	return &day, nil
}

func (s *ModerationService) UnblockDay(ctx context.Context, sess Session, id uuid.UUID) error {
	if err := sess.requireAdmin(); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).Delete(&models.BlockedDay{}, "id = ?", id)
	if res.Error != nil {
		return transientErr("could not unblock the day", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFoundErr("blocked day not found")
	}
	return nil
}

// BlockTimeSlots blocks several slots of one date in a single transaction.
// If any slot is already blocked, or listed twice, nothing is stored.
func (s *ModerationService) BlockTimeSlots(ctx context.Context, sess Session, date string, times []string, reason *string) ([]models.BlockedTimeSlot, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}
	d, err := s.availability.ValidateDate(date)
	if err != nil {
		return nil, err
	}
	if len(times) == 0 {
		return nil, validationErr("choose at least one time slot", nil)
	}

	seen := make(map[string]bool, len(times))
	slots := make([]models.BlockedTimeSlot, 0, len(times))
	for _, t := range times {
		if !models.IsValidSlot(t) {
			return nil, validationErr(fmt.Sprintf("unknown time slot %q", t), nil)
		}
		if seen[t] {
			return nil, conflictErr(fmt.Sprintf("%s is listed more than once", t), nil)
		}
		seen[t] = true
		slots = append(slots, models.BlockedTimeSlot{BlockedDate: d, BlockedTime: t, Reason: trimmedOrNil(reason)})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range slots {
			if err := tx.Create(&slots[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, conflictErr("one of the slots is already blocked", err)
		}
		return nil, transientErr("could not block the slots", err)
	}

	s.logger.Info("Time slots blocked", zap.String("date", d), zap.Strings("times", times))
	return slots, nil
}

func (s *ModerationService) UnblockTimeSlot(ctx context.Context, sess Session, id uuid.UUID) error {
	if err := sess.requireAdmin(); err != nil {
		return err
	}

	res := s.db.WithContext(ctx).Delete(&models.BlockedTimeSlot{}, "id = ?", id)
	if res.Error != nil {
		return transientErr("could not unblock the slot", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFoundErr("blocked slot not found")
	}
	return nil
}

// ListBlockedDays returns blocks on or after from, defaulting to today.
func (s *ModerationService) ListBlockedDays(ctx context.Context, sess Session, from string) ([]models.BlockedDay, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}
	if from == "" {
		from = s.availability.Today().Format(models.DateLayout)
	}

	days := []models.BlockedDay{}
	if err := s.db.WithContext(ctx).
		Where("blocked_date >= ?", from).
		Order("blocked_date ASC").
		Find(&days).Error; err != nil {
		return nil, transientErr("could not load blocked days", err)
	}
	return days, nil
}

func (s *ModerationService) ListBlockedTimeSlots(ctx context.Context, sess Session, from, to string) ([]models.BlockedTimeSlot, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}
	if from == "" {
		from = s.availability.Today().Format(models.DateLayout)
	}

	q := s.db.WithContext(ctx).Where("blocked_date >= ?", from)
	if to != "" {
		q = q.Where("blocked_date <= ?", to)
	}

	slots := []models.BlockedTimeSlot{}
	if err := q.Order("blocked_date ASC, LENGTH(blocked_time) ASC, blocked_time ASC").Find(&slots).Error; err != nil {
		return nil, transientErr("could not load blocked slots", err)
	}
	return slots, nil
}

type DashboardStats struct {
	PendingBookings   int64 `json:"pending_bookings"`
	UpcomingConfirmed int64 `json:"upcoming_confirmed"`
	UnpaidBookings    int64 `json:"unpaid_bookings"`
	UnreadThreads     int64 `json:"unread_threads"`
}

func (s *ModerationService) Dashboard(ctx context.Context, sess Session) (*DashboardStats, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	today := s.availability.Today().Format(models.DateLayout)
	var stats DashboardStats

	if err := db.Model(&models.Booking{}).
		Where("status = ?", models.BookingStatusPending).
		Count(&stats.PendingBookings).Error; err != nil {
		return nil, transientErr("could not load dashboard", err)
	}
	if err := db.Model(&models.Booking{}).
		Where("status = ? AND booking_date >= ?", models.BookingStatusConfirmed, today).
		Count(&stats.UpcomingConfirmed).Error; err != nil {
		return nil, transientErr("could not load dashboard", err)
	}
	if err := db.Model(&models.Booking{}).
		Where("status IN ? AND is_paid = ?", activeStatuses, false).
		Count(&stats.UnpaidBookings).Error; err != nil {
		return nil, transientErr("could not load dashboard", err)
	}
	if err := db.Model(&models.ContactThread{}).
		Where("is_read = ?", false).
		Count(&stats.UnreadThreads).Error; err != nil {
		return nil, transientErr("could not load dashboard", err)
	}
	return &stats, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
