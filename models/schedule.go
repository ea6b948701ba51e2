package models

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// DailySlots is the fixed set of bookable lesson start times, in order.
var DailySlots = []string{
	"8:00", "9:00", "10:00", "11:00", "12:00", "13:00", "14:00",
	"15:00", "16:00", "17:00", "18:00", "19:00", "20:00",
}

func IsValidSlot(t string) bool {
	for _, s := range DailySlots {
		if s == t {
			return true
		}
	}
	return false
}

// ParseDate parses a YYYY-MM-DD date at midnight in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", raw)
	}
	return d, nil
}

// SlotStart returns the wall-clock start of a slot on the given date.
func SlotStart(date, slot string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" 15:04", date+" "+slot, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid slot %s %s: %w", date, slot, err)
	}
	return t, nil
}
