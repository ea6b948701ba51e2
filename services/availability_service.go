package services

import (
	"context"
	"time"

	"github.com/anjiri1684/tutoring_portal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxCalendarSpan bounds DisabledDates lookups to roughly two months.
const maxCalendarSpan = 62

// Clock returns the current instant. Tests substitute a fixed one.
type Clock func() time.Time

var activeStatuses = []string{
	string(models.BookingStatusPending),
	string(models.BookingStatusConfirmed),
}

type SlotAvailability struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

type Availability struct {
	Date       string             `json:"date"`
	BlockedDay bool               `json:"blocked_day"`
	Slots      []SlotAvailability `json:"slots"`
}

func (a *Availability) IsAvailable(slot string) bool {
	for _, s := range a.Slots {
		if s.Time == slot {
			return s.Available
		}
	}
	return false
}

func (a *Availability) AvailableCount() int {
	n := 0
	for _, s := range a.Slots {
		if s.Available {
			n++
		}
	}
	return n
}

func closedAvailability(date string, blockedDay bool) *Availability {
	slots := make([]SlotAvailability, len(models.DailySlots))
	for i, t := range models.DailySlots {
		slots[i] = SlotAvailability{Time: t}
	}
	return &Availability{Date: date, BlockedDay: blockedDay, Slots: slots}
}

type AvailabilityService struct {
	db     *gorm.DB
	loc    *time.Location
	now    Clock
	logger *zap.Logger
}

func NewAvailabilityService(db *gorm.DB, loc *time.Location, now Clock, logger *zap.Logger) *AvailabilityService {
	if now == nil {
		now = time.Now
	}
	return &AvailabilityService{db: db, loc: loc, now: now, logger: logger}
}

// Today is the current calendar date in the service time zone.
func (s *AvailabilityService) Today() time.Time {
	n := s.now().In(s.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, s.loc)
}

func (s *AvailabilityService) Location() *time.Location { return s.loc }

// ValidateDate parses raw and rejects dates before today.
func (s *AvailabilityService) ValidateDate(raw string) (string, error) {
	d, err := models.ParseDate(raw, s.loc)
	if err != nil {
		return "", validationErr(err.Error(), err)
	}
	if d.Before(s.Today()) {
		return "", validationErr("date is in the past", ErrPastDate)
	}
	return d.Format(models.DateLayout), nil
}

// Resolve computes slot availability for one date. On any store failure it
// returns a TransientStoreError together with an availability in which no
// slot is open.
func (s *AvailabilityService) Resolve(ctx context.Context, raw string) (*Availability, error) {
	date, err := s.ValidateDate(raw)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, date)
}

func (s *AvailabilityService) resolve(ctx context.Context, date string) (*Availability, error) {
	db := s.db.WithContext(ctx)

	var blockedDays int64
	if err := db.Model(&models.BlockedDay{}).Where("blocked_date = ?", date).Count(&blockedDays).Error; err != nil {
		return s.failClosed(date, err)
	}
	if blockedDays > 0 {
		return closedAvailability(date, true), nil
	}

	var blockedTimes []string
	if err := db.Model(&models.BlockedTimeSlot{}).
		Where("blocked_date = ?", date).
		Pluck("blocked_time", &blockedTimes).Error; err != nil {
		return s.failClosed(date, err)
	}

	var bookedTimes []string
	if err := db.Model(&models.Booking{}).
		Where("booking_date = ? AND status IN ?", date, activeStatuses).
		Pluck("booking_time", &bookedTimes).Error; err != nil {
		return s.failClosed(date, err)
	}

	taken := make(map[string]bool, len(blockedTimes)+len(bookedTimes))
	for _, t := range blockedTimes {
		taken[t] = true
	}
	for _, t := range bookedTimes {
		taken[t] = true
	}

	slots := make([]SlotAvailability, len(models.DailySlots))
	for i, t := range models.DailySlots {
		slots[i] = SlotAvailability{Time: t, Available: !taken[t]}
	}
	return &Availability{Date: date, Slots: slots}, nil
}

func (s *AvailabilityService) failClosed(date string, cause error) (*Availability, error) {
	s.logger.Error("Availability lookup failed, reporting no free slots",
		zap.String("date", date),
		zap.Error(cause),
	)
	return closedAvailability(date, false), transientErr("could not load availability, please try again", cause)
}

// DisabledDates lists the dates in [from, to] that cannot be picked: past
// dates, whole-day blocks and dates with every slot taken.
func (s *AvailabilityService) DisabledDates(ctx context.Context, fromRaw, toRaw string) ([]string, error) {
	from, err := models.ParseDate(fromRaw, s.loc)
	if err != nil {
		return nil, validationErr(err.Error(), err)
	}
	to, err := models.ParseDate(toRaw, s.loc)
	if err != nil {
		return nil, validationErr(err.Error(), err)
	}
	if to.Before(from) {
		return nil, validationErr("to must not be before from", nil)
	}
	if int(to.Sub(from).Hours()/24) > maxCalendarSpan {
		return nil, validationErr("date range is too long", nil)
	}

	var dates []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(models.DateLayout))
	}
	fromDate, toDate := dates[0], dates[len(dates)-1]
	db := s.db.WithContext(ctx)

	var blockedDays []string
	if err := db.Model(&models.BlockedDay{}).
		Where("blocked_date BETWEEN ? AND ?", fromDate, toDate).
		Pluck("blocked_date", &blockedDays).Error; err != nil {
		s.logger.Error("Calendar lookup failed", zap.Error(err))
		return dates, transientErr("could not load calendar, please try again", err)
	}

	var blockedSlots []models.BlockedTimeSlot
	if err := db.Where("blocked_date BETWEEN ? AND ?", fromDate, toDate).Find(&blockedSlots).Error; err != nil {
		s.logger.Error("Calendar lookup failed", zap.Error(err))
		return dates, transientErr("could not load calendar, please try again", err)
	}

	var bookings []models.Booking
	if err := db.Select("booking_date", "booking_time").
		Where("booking_date BETWEEN ? AND ? AND status IN ?", fromDate, toDate, activeStatuses).
		Find(&bookings).Error; err != nil {
		s.logger.Error("Calendar lookup failed", zap.Error(err))
		return dates, transientErr("could not load calendar, please try again", err)
	}

	blocked := make(map[string]bool, len(blockedDays))
	for _, d := range blockedDays {
		blocked[d] = true
	}
	taken := make(map[string]map[string]bool)
	mark := func(date, slot string) {
		if taken[date] == nil {
			taken[date] = make(map[string]bool)
		}
		taken[date][slot] = true
	}
	for _, b := range blockedSlots {
		mark(b.BlockedDate, b.BlockedTime)
	}
	for _, b := range bookings {
		mark(b.BookingDate, b.BookingTime)
	}

	today := s.Today().Format(models.DateLayout)
	disabled := []string{}
	for _, d := range dates {
		if d < today || blocked[d] || len(taken[d]) >= len(models.DailySlots) {
			disabled = append(disabled, d)
		}
	}
	return disabled, nil
}
