package services

import (
	"context"
	"errors"
	"testing"

	"github.com/anjiri1684/tutoring_portal/models"
)

func unavailable(a *Availability) []string {
	var out []string
	for _, s := range a.Slots {
		if !s.Available {
			out = append(out, s.Time)
		}
	}
	return out
}

func TestResolveBlockedDayClosesEverySlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.db.Create(&models.BlockedDay{BlockedDate: "2025-06-01"}).Error; err != nil {
		t.Fatal(err)
	}
	// A slot block on the same day must not change the outcome.
	if err := f.db.Create(&models.BlockedTimeSlot{BlockedDate: "2025-06-01", BlockedTime: "9:00"}).Error; err != nil {
		t.Fatal(err)
	}

	avail, err := f.availability.Resolve(ctx, "2025-06-01")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !avail.BlockedDay {
		t.Error("expected BlockedDay")
	}
	if len(avail.Slots) != 13 || avail.AvailableCount() != 0 {
		t.Fatalf("expected 13 closed slots, got %d slots with %d open", len(avail.Slots), avail.AvailableCount())
	}
}

func TestResolvePendingBookingTakesOneSlot(t *testing.T) {
	f := newFixture(t)
	mustBook(t, f, "2025-06-02", "10:00")

	avail, err := f.availability.Resolve(context.Background(), "2025-06-02")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := unavailable(avail); len(got) != 1 || got[0] != "10:00" {
		t.Fatalf("expected only 10:00 unavailable, got %v", got)
	}
	if avail.AvailableCount() != 12 {
		t.Fatalf("expected 12 open slots, got %d", avail.AvailableCount())
	}
}

func TestResolveCombinesSlotBlocksAndBookings(t *testing.T) {
	f := newFixture(t)
	if err := f.db.Create(&models.BlockedTimeSlot{BlockedDate: "2025-06-03", BlockedTime: "9:00"}).Error; err != nil {
		t.Fatal(err)
	}
	mustBook(t, f, "2025-06-03", "11:00")

	avail, err := f.availability.Resolve(context.Background(), "2025-06-03")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got := unavailable(avail)
	if len(got) != 2 || got[0] != "9:00" || got[1] != "11:00" {
		t.Fatalf("expected [9:00 11:00] unavailable, got %v", got)
	}
}

func TestSlotBlockDoesNotLeakToOtherDates(t *testing.T) {
	f := newFixture(t)
	if err := f.db.Create(&models.BlockedTimeSlot{BlockedDate: "2025-06-03", BlockedTime: "9:00"}).Error; err != nil {
		t.Fatal(err)
	}

	avail, err := f.availability.Resolve(context.Background(), "2025-06-04")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if avail.AvailableCount() != 13 {
		t.Fatalf("expected every slot open on another date, got %v unavailable", unavailable(avail))
	}
}

func TestResolveRejectsPastAndMalformedDates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.availability.Resolve(ctx, "2025-03-09")
	wantKind(t, err, KindValidation)
	if !errors.Is(err, ErrPastDate) {
		t.Errorf("expected ErrPastDate, got %v", err)
	}

	_, err = f.availability.Resolve(ctx, "10.03.2025")
	wantKind(t, err, KindValidation)

	if _, err := f.availability.Resolve(ctx, "2025-03-10"); err != nil {
		t.Errorf("today must be bookable, got %v", err)
	}
}

func TestResolveFailsClosedOnStoreError(t *testing.T) {
	f := newFixture(t)
	sqlDB, err := f.db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.Close()

	avail, err := f.availability.Resolve(context.Background(), "2025-06-02")
	wantKind(t, err, KindTransient)
	if avail == nil {
		t.Fatal("expected a closed availability alongside the error")
	}
	if avail.AvailableCount() != 0 {
		t.Fatalf("expected no open slots, got %d", avail.AvailableCount())
	}
}

func TestDisabledDates(t *testing.T) {
	f := newFixture(t)
	if err := f.db.Create(&models.BlockedDay{BlockedDate: "2025-03-12"}).Error; err != nil {
		t.Fatal(err)
	}
	for _, slot := range models.DailySlots {
		if err := f.db.Create(&models.BlockedTimeSlot{BlockedDate: "2025-03-13", BlockedTime: slot}).Error; err != nil {
			t.Fatal(err)
		}
	}

	got, err := f.availability.DisabledDates(context.Background(), "2025-03-09", "2025-03-14")
	if err != nil {
		t.Fatalf("disabled dates: %v", err)
	}
	want := []string{"2025-03-09", "2025-03-12", "2025-03-13"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	_, err = f.availability.DisabledDates(context.Background(), "2025-03-01", "2025-06-01")
	wantKind(t, err, KindValidation)
}
