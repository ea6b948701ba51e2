package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// ActiveStatuses are the statuses that occupy a slot.
var ActiveStatuses = []BookingStatus{BookingStatusPending, BookingStatusConfirmed}

func (s BookingStatus) IsActive() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

// CanTransitionTo reports whether moderation may move a booking from s to next.
// cancelled is terminal.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingStatusPending:
		return next == BookingStatusConfirmed || next == BookingStatusCancelled
	case BookingStatusConfirmed:
		return next == BookingStatusCancelled
	}
	return false
}

type Booking struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      *uuid.UUID    `gorm:"type:uuid;index" json:"user_id"`
	Reference   string        `gorm:"size:10;not null;uniqueIndex" json:"reference"`
	LessonType  string        `gorm:"size:255" json:"lesson_type"`
	BookingDate string        `gorm:"size:10;not null;index" json:"booking_date"`
	BookingTime string        `gorm:"size:5;not null" json:"booking_time"`
	Status      BookingStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	IsPaid      bool          `gorm:"not null;default:false" json:"is_paid"`

	SchoolType  SchoolType `gorm:"size:20;not null" json:"school_type"`
	Subject     *Subject   `gorm:"size:20" json:"subject,omitempty"`
	Level       *Level     `gorm:"size:20" json:"level,omitempty"`
	ClassNumber int        `gorm:"not null" json:"class_number"`

	FullName string  `gorm:"size:255" json:"full_name"`
	Phone    string  `gorm:"size:32" json:"phone"`
	Email    string  `gorm:"size:255" json:"email"`
	Notes    *string `gorm:"type:text" json:"notes,omitempty"`

	ReminderSentAt *time.Time `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Classification rebuilds the tagged classification from the stored columns.
func (b *Booking) Classification() (Classification, error) {
	var subject, level string
	if b.Subject != nil {
		subject = string(*b.Subject)
	}
	if b.Level != nil {
		level = string(*b.Level)
	}
	return NewClassification(string(b.SchoolType), subject, level, b.ClassNumber)
}

// ApplyClassification flattens c into the booking's classification columns.
func (b *Booking) ApplyClassification(c Classification) {
	b.SchoolType = c.SchoolType()
	b.ClassNumber = c.ClassNumber()
	b.Subject = nil
	b.Level = nil

	switch v := c.(type) {
	case Podstawowa:
		s := v.Subject
		b.Subject = &s
	case Liceum:
		l := v.Level
		b.Level = &l
	}
}

// ClassificationLabel describes the stored classification, falling back to
// the raw school type when the columns do not form a valid one.
func (b *Booking) ClassificationLabel() string {
	c, err := b.Classification()
	if err != nil {
		return string(b.SchoolType)
	}
	return Describe(c)
}
