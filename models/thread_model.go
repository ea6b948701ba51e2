package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SenderType string

const (
	SenderStudent SenderType = "student"
	SenderAdmin   SenderType = "admin"
)

// ContactThread is a conversation between one student (or anonymous visitor)
// and the tutor. Entries live in their own append-only table.
type ContactThread struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Name             string     `gorm:"size:255;not null" json:"name"`
	Email            string     `gorm:"size:255;not null" json:"email"`
	Subject          string     `gorm:"size:255" json:"subject"`
	IsRead           bool       `gorm:"not null;default:false" json:"is_read"`
	StudentReadReply bool       `gorm:"not null" json:"student_read_reply"`
	LastSenderType   SenderType `gorm:"size:10;not null" json:"last_sender_type"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	Entries []ThreadEntry `gorm:"foreignKey:ThreadID;constraint:OnDelete:CASCADE" json:"entries,omitempty"`
}

func (t *ContactThread) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

type ThreadEntry struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ThreadID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"thread_id"`
	SenderType SenderType `gorm:"size:10;not null" json:"sender_type"`
	Body       string     `gorm:"type:text;not null" json:"body"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (e *ThreadEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
