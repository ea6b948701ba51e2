package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/anjiri1684/tutoring_portal/models"
	"github.com/anjiri1684/tutoring_portal/notifications"
	"go.uber.org/zap"
)

const (
	reminderLead   = 24 * time.Hour
	reminderWindow = time.Hour
)

// SendBookingReminders emails every confirmed booking that starts between
// 24 and 25 hours from now and has not been reminded yet. Each booking is
// stamped before its email is queued, so overlapping runs send one reminder.
func (r *Runner) SendBookingReminders(ctx context.Context) (int, error) {
	now := r.now().In(r.loc)
	lower := now.Add(reminderLead)
	upper := lower.Add(reminderWindow)

	dates := []string{lower.Format(models.DateLayout)}
	if d := upper.Format(models.DateLayout); d != dates[0] {
		dates = append(dates, d)
	}

	var candidates []models.Booking
	if err := r.db.WithContext(ctx).
		Where("status = ? AND reminder_sent_at IS NULL AND booking_date IN ?", models.BookingStatusConfirmed, dates).
		Find(&candidates).Error; err != nil {
		return 0, fmt.Errorf("load reminder candidates: %w", err)
	}

	sent := 0
	for i := range candidates {
		b := &candidates[i]
		start, err := models.SlotStart(b.BookingDate, b.BookingTime, r.loc)
		if err != nil {
			r.logger.Warn("Skipping booking with invalid slot", zap.String("booking_id", b.ID.String()), zap.Error(err))
			continue
		}
		if start.Before(lower) || !start.Before(upper) {
			continue
		}

		stampedAt := r.now()
		res := r.db.WithContext(ctx).Model(&models.Booking{}).
			Where("id = ? AND reminder_sent_at IS NULL", b.ID).
			UpdateColumn("reminder_sent_at", stampedAt)
		if res.Error != nil {
			r.logger.Error("Failed to stamp reminder", zap.String("booking_id", b.ID.String()), zap.Error(res.Error))
			continue
		}
		if res.RowsAffected == 0 {
			continue
		}

		html, err := notifications.BookingReminderEmail(notifications.BookingDetails{
			Reference:      b.Reference,
			FullName:       b.FullName,
			Date:           b.BookingDate,
			Time:           b.BookingTime,
			LessonType:     b.LessonType,
			Classification: b.ClassificationLabel(),
		})
		if err != nil {
			r.logger.Error("Failed to render reminder", zap.Error(err))
			continue
		}
		r.notifier.Email(notifications.Email{
			ToName:  b.FullName,
			ToEmail: b.Email,
			Subject: "Reminder: your lesson is tomorrow at " + b.BookingTime,
			HTML:    html,
		})
		sent++
	}

	r.logger.Info("Booking reminders queued", zap.Int("count", sent))
	return sent, nil
}
