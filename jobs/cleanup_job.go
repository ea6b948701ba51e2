package jobs

import (
	"context"
	"fmt"

	"github.com/anjiri1684/tutoring_portal/models"
	"go.uber.org/zap"
)

// CleanupOldBookings deletes bookings dated more than the retention period
// before today, whatever their status.
func (r *Runner) CleanupOldBookings(ctx context.Context) (int64, error) {
	cutoff := r.now().In(r.loc).AddDate(0, 0, -r.retentionDays).Format(models.DateLayout)

	res := r.db.WithContext(ctx).Where("booking_date < ?", cutoff).Delete(&models.Booking{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete old bookings: %w", res.Error)
	}

	r.logger.Info("Old bookings removed", zap.String("before", cutoff), zap.Int64("count", res.RowsAffected))
	return res.RowsAffected, nil
}
