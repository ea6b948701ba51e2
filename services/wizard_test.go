package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anjiri1684/tutoring_portal/models"
	"github.com/google/uuid"
)

type stubResolver struct {
	avail map[string]*Availability
	err   error
	calls int
}

func (r *stubResolver) Resolve(_ context.Context, date string) (*Availability, error) {
	r.calls++
	if r.err != nil {
		return closedAvailability(date, false), r.err
	}
	if a, ok := r.avail[date]; ok {
		return a, nil
	}
	return openDay(date), nil
}

func openDay(date string, taken ...string) *Availability {
	a := closedAvailability(date, false)
	for i := range a.Slots {
		a.Slots[i].Available = true
		for _, t := range taken {
			if a.Slots[i].Time == t {
				a.Slots[i].Available = false
			}
		}
	}
	return a
}

type stubCreator struct {
	err  error
	reqs []BookingRequest
}

func (c *stubCreator) Create(_ context.Context, _ Session, req BookingRequest) (*models.Booking, error) {
	c.reqs = append(c.reqs, req)
	if c.err != nil {
		return nil, c.err
	}
	b := &models.Booking{ID: uuid.New(), Reference: "ABCD2345", BookingDate: req.Date, BookingTime: req.Time, Status: models.BookingStatusPending}
	b.ApplyClassification(req.Classification)
	return b, nil
}

func wizardAtSchedule(t *testing.T, r *stubResolver, c *stubCreator) *Wizard {
	t.Helper()
	w := NewWizard(r, c, fixedClock)
	if err := w.ChooseSchoolType("technikum"); err != nil {
		t.Fatal(err)
	}
	if err := w.ChooseClass(5); err != nil {
		t.Fatal(err)
	}
	if err := w.Proceed(); err != nil {
		t.Fatal(err)
	}
	return w
}

func TestWizardLiceumNeedsLevel(t *testing.T) {
	w := NewWizard(&stubResolver{}, &stubCreator{}, fixedClock)

	if err := w.ChooseSchoolType("liceum"); err != nil {
		t.Fatal(err)
	}
	if err := w.ChooseClass(2); err != nil {
		t.Fatalf("choose class: %v", err)
	}
	if w.CanProceed() {
		t.Fatal("must not proceed without a level")
	}
	err := w.Proceed()
	wantKind(t, err, KindValidation)
	if !errors.Is(err, ErrIncomplete) {
		t.Errorf("expected ErrIncomplete, got %v", err)
	}
	if w.State() != StateSelectingClassificationDetails {
		t.Fatalf("expected to stay on details, got %s", w.State())
	}

	if err := w.ChooseLevel("podstawowy"); err != nil {
		t.Fatal(err)
	}
	if !w.CanProceed() {
		t.Fatal("expected to proceed once level and class are set")
	}
	if err := w.Proceed(); err != nil {
		t.Fatal(err)
	}
	if w.State() != StateSelectingSchedule {
		t.Fatalf("expected schedule step, got %s", w.State())
	}
}

func TestWizardFieldRulesPerSchoolType(t *testing.T) {
	w := NewWizard(&stubResolver{}, &stubCreator{}, fixedClock)

	if err := w.ChooseSchoolType("podstawowa"); err != nil {
		t.Fatal(err)
	}
	wantKind(t, w.ChooseLevel("rozszerzony"), KindValidation)
	wantKind(t, w.ChooseClass(3), KindValidation)
	if err := w.ChooseClass(8); err != nil {
		t.Fatal(err)
	}
	if w.CanProceed() {
		t.Fatal("podstawowa needs a subject")
	}
	if err := w.ChooseSubject("fizyka"); err != nil {
		t.Fatal(err)
	}
	if !w.CanProceed() {
		t.Fatal("expected complete podstawowa classification")
	}

	view := w.View()
	if len(view.ClassOptions) != 2 || view.ClassOptions[0] != 7 {
		t.Errorf("expected class options [7 8], got %v", view.ClassOptions)
	}

	// Switching school type drops the earlier details.
	if err := w.ChooseSchoolType("technikum"); err != nil {
		t.Fatal(err)
	}
	if w.CanProceed() {
		t.Fatal("expected details to be cleared")
	}
	wantKind(t, w.ChooseSubject("chemia"), KindValidation)
	wantKind(t, w.ChooseSchoolType("gimnazjum"), KindValidation)
}

func TestWizardScheduleChoices(t *testing.T) {
	r := &stubResolver{avail: map[string]*Availability{
		"2025-06-02": openDay("2025-06-02", "10:00"),
		"2025-06-01": closedAvailability("2025-06-01", true),
		"2025-06-05": closedAvailability("2025-06-05", false),
	}}
	w := wizardAtSchedule(t, r, &stubCreator{})
	ctx := context.Background()

	wantKind(t, w.ChooseTime("9:00"), KindValidation)

	err := w.ChooseDate(ctx, "2025-06-01")
	wantKind(t, err, KindValidation)
	if !errors.Is(err, ErrDayBlocked) {
		t.Errorf("expected ErrDayBlocked, got %v", err)
	}
	err = w.ChooseDate(ctx, "2025-06-05")
	if !errors.Is(err, ErrSlotTaken) {
		t.Errorf("expected ErrSlotTaken for a full day, got %v", err)
	}

	if err := w.ChooseDate(ctx, "2025-06-02"); err != nil {
		t.Fatal(err)
	}
	err = w.ChooseTime("10:00")
	wantKind(t, err, KindValidation)
	if !errors.Is(err, ErrSlotTaken) {
		t.Errorf("expected ErrSlotTaken, got %v", err)
	}
	if err := w.ChooseTime("11:00"); err != nil {
		t.Fatal(err)
	}
	if v := w.View(); v.Date != "2025-06-02" || v.Time != "11:00" {
		t.Fatalf("unexpected schedule %s %s", v.Date, v.Time)
	}
}

func TestWizardTransientDateLookupShowsNoSlots(t *testing.T) {
	r := &stubResolver{err: transientErr("store down", errors.New("boom"))}
	w := wizardAtSchedule(t, r, &stubCreator{})

	err := w.ChooseDate(context.Background(), "2025-06-02")
	wantKind(t, err, KindTransient)
	v := w.View()
	if v.Availability == nil || v.Availability.AvailableCount() != 0 {
		t.Fatal("expected a closed availability")
	}
	wantKind(t, w.ChooseTime("9:00"), KindValidation)
}

func TestWizardSubmitAndClose(t *testing.T) {
	c := &stubCreator{}
	w := wizardAtSchedule(t, &stubResolver{}, c)
	ctx := context.Background()

	_, err := w.Submit(ctx, Anonymous())
	wantKind(t, err, KindValidation)

	if err := w.ChooseDate(ctx, "2025-06-02"); err != nil {
		t.Fatal(err)
	}
	if err := w.ChooseTime("12:00"); err != nil {
		t.Fatal(err)
	}
	if err := w.SetContact(Contact{FullName: "Jan", Phone: "600600600", Email: "jan@example.com"}, "stacjonarnie", "need help"); err != nil {
		t.Fatal(err)
	}

	b, err := w.Submit(ctx, Anonymous())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if b.BookingTime != "12:00" || w.State() != StateSubmitted {
		t.Fatalf("unexpected result %s in state %s", b.BookingTime, w.State())
	}
	if !w.View().Celebrate {
		t.Error("expected celebrate on submit")
	}
	req := c.reqs[0]
	if req.Classification.SchoolType() != models.SchoolTechnikum || req.Contact.Email != "jan@example.com" || req.Notes != "need help" {
		t.Fatalf("unexpected request %+v", req)
	}

	wantKind(t, w.Back(), KindValidation)

	w.Close()
	v := w.View()
	if v.State != StateSelectingSchoolContext || v.SchoolType != "" || v.Date != "" || v.Booking != nil || v.Contact.Email != "" {
		t.Fatalf("expected a full reset, got %+v", v)
	}
}

func TestWizardSubmitConflictRefreshesSlots(t *testing.T) {
	r := &stubResolver{}
	c := &stubCreator{err: conflictErr("taken", ErrSlotTaken)}
	w := wizardAtSchedule(t, r, c)
	ctx := context.Background()

	if err := w.ChooseDate(ctx, "2025-06-02"); err != nil {
		t.Fatal(err)
	}
	if err := w.ChooseTime("14:00"); err != nil {
		t.Fatal(err)
	}
	r.avail = map[string]*Availability{"2025-06-02": openDay("2025-06-02", "14:00")}

	_, err := w.Submit(ctx, Anonymous())
	wantKind(t, err, KindConflict)

	v := w.View()
	if v.State != StateSelectingSchedule {
		t.Fatalf("expected to stay on schedule, got %s", v.State)
	}
	if v.Time != "" || v.Date != "2025-06-02" {
		t.Fatalf("expected time cleared and date kept, got %q %q", v.Date, v.Time)
	}
	if v.Availability.IsAvailable("14:00") {
		t.Fatal("expected refreshed availability to show 14:00 taken")
	}
}

func TestWizardSubmitTransientKeepsSelections(t *testing.T) {
	c := &stubCreator{err: transientErr("store down", errors.New("boom"))}
	w := wizardAtSchedule(t, &stubResolver{}, c)
	ctx := context.Background()

	if err := w.ChooseDate(ctx, "2025-06-02"); err != nil {
		t.Fatal(err)
	}
	if err := w.ChooseTime("14:00"); err != nil {
		t.Fatal(err)
	}
	_, err := w.Submit(ctx, Anonymous())
	wantKind(t, err, KindTransient)

	v := w.View()
	if v.State != StateSelectingSchedule || v.Time != "14:00" {
		t.Fatalf("expected selections kept, got %s %q", v.State, v.Time)
	}
}

func TestWizardBackKeepsClassification(t *testing.T) {
	w := wizardAtSchedule(t, &stubResolver{}, &stubCreator{})
	if err := w.ChooseDate(context.Background(), "2025-06-02"); err != nil {
		t.Fatal(err)
	}

	if err := w.Back(); err != nil {
		t.Fatal(err)
	}
	v := w.View()
	if v.State != StateSelectingClassificationDetails || v.Date != "" || v.ClassNumber != 5 {
		t.Fatalf("unexpected view after back %+v", v)
	}
}

func TestWizardStoreSweep(t *testing.T) {
	now := fixedNow
	clock := func() time.Time { return now }
	store := NewWizardStore(&stubResolver{}, &stubCreator{}, clock)

	stale := store.Create()
	now = now.Add(90 * time.Minute)
	fresh := store.Create()
	now = now.Add(time.Hour)

	if n := store.Sweep(2 * time.Hour); n != 1 {
		t.Fatalf("expected one wizard swept, got %d", n)
	}
	if _, err := store.Get(stale.ID()); !IsKind(err, KindNotFound) {
		t.Fatalf("expected stale wizard gone, got %v", err)
	}
	if _, err := store.Get(fresh.ID()); err != nil {
		t.Fatalf("expected fresh wizard kept: %v", err)
	}

	store.Delete(fresh.ID())
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", store.Len())
	}
}

func TestWizardStoreSweepDoesNotBlockLookups(t *testing.T) {
	store := NewWizardStore(&stubResolver{}, &stubCreator{}, fixedClock)
	busy := store.Create()
	other := store.Create()

	// Holding the wizard's lock stands in for a Submit waiting on the store.
	busy.mu.Lock()
	swept := make(chan int, 1)
	go func() { swept <- store.Sweep(time.Hour) }()

	got := make(chan error, 1)
	go func() {
		_, err := store.Get(other.ID())
		if err == nil {
			store.Create()
		}
		got <- err
	}()
	select {
	case err := <-got:
		if err != nil {
			t.Fatalf("get: %v", err)
		}
	case <-time.After(2 * time.Second):
		busy.mu.Unlock()
		t.Fatal("lookup blocked behind the sweep")
	}

	busy.mu.Unlock()
	if n := <-swept; n != 0 {
		t.Fatalf("expected nothing swept, got %d", n)
	}
}
