package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StudentNote struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudentID    uuid.UUID `gorm:"type:uuid;not null;index" json:"student_id"`
	CreatedBy    uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Body         string    `gorm:"type:text" json:"body"`
	BodyHTML     string    `gorm:"-" json:"body_html"`
	FileURL      *string   `gorm:"type:text" json:"file_url,omitempty"`
	FilePublicID *string   `gorm:"size:255" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (n *StudentNote) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
