package utils

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/anjiri1684/tutoring_portal/models"
	"gorm.io/gorm"
)

const referenceLength = 8
const letterBytes = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const maxReferenceAttempts = 20

var (
	seededRand = rand.New(rand.NewSource(time.Now().UnixNano()))
	randMu     sync.Mutex
)

func randomReference() string {
	randMu.Lock()
	defer randMu.Unlock()

	b := make([]byte, referenceLength)
	for i := range b {
		b[i] = letterBytes[seededRand.Intn(len(letterBytes))]
	}
	return string(b)
}

// GenerateUniqueBookingReference returns a short code no booking uses yet.
// The unique index on bookings.reference still has the final say.
func GenerateUniqueBookingReference(tx *gorm.DB) (string, error) {
	for i := 0; i < maxReferenceAttempts; i++ {
		code := randomReference()

		var count int64
		if err := tx.Model(&models.Booking{}).Where("reference = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", errors.New("could not generate a unique booking reference")
}
