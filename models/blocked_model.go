package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BlockedDay makes every slot of BlockedDate unavailable.
type BlockedDay struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BlockedDate string    `gorm:"size:10;not null;uniqueIndex" json:"blocked_date"`
	Reason      *string   `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (d *BlockedDay) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// BlockedTimeSlot makes a single slot on one date unavailable.
type BlockedTimeSlot struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BlockedDate string    `gorm:"size:10;not null;uniqueIndex:idx_blocked_slot" json:"blocked_date"`
	BlockedTime string    `gorm:"size:5;not null;uniqueIndex:idx_blocked_slot" json:"blocked_time"`
	Reason      *string   `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *BlockedTimeSlot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
