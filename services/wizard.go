package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/anjiri1684/tutoring_portal/models"
	"github.com/google/uuid"
)

type WizardState string

const (
	StateSelectingSchoolContext         WizardState = "selecting_school_context"
	StateSelectingClassificationDetails WizardState = "selecting_classification_details"
	StateSelectingSchedule              WizardState = "selecting_schedule"
	StateSubmitted                      WizardState = "submitted"
)

type availabilityResolver interface {
	Resolve(ctx context.Context, date string) (*Availability, error)
}

type bookingCreator interface {
	Create(ctx context.Context, sess Session, req BookingRequest) (*models.Booking, error)
}

// Wizard walks one client through choosing a lesson and a slot. All methods
// are safe for concurrent use.
type Wizard struct {
	mu sync.Mutex

	id       uuid.UUID
	resolver availabilityResolver
	creator  bookingCreator
	now      Clock

	state        WizardState
	schoolType   models.SchoolType
	subject      models.Subject
	level        models.Level
	class        int
	date         string
	slot         string
	availability *Availability
	contact      Contact
	lessonType   string
	notes        string
	booking      *models.Booking
	touchedAt    time.Time
}

func NewWizard(resolver availabilityResolver, creator bookingCreator, now Clock) *Wizard {
	if now == nil {
		now = time.Now
	}
	return &Wizard{
		id:        uuid.New(),
		resolver:  resolver,
		creator:   creator,
		now:       now,
		state:     StateSelectingSchoolContext,
		touchedAt: now(),
	}
}

// WizardView is the JSON snapshot returned after every step.
type WizardView struct {
	ID           uuid.UUID         `json:"id"`
	State        WizardState       `json:"state"`
	SchoolType   models.SchoolType `json:"school_type,omitempty"`
	Subject      models.Subject    `json:"subject,omitempty"`
	Level        models.Level      `json:"level,omitempty"`
	ClassNumber  int               `json:"class_number,omitempty"`
	ClassOptions []int             `json:"class_options,omitempty"`
	CanProceed   bool              `json:"can_proceed"`
	Date         string            `json:"date,omitempty"`
	Time         string            `json:"time,omitempty"`
	Availability *Availability     `json:"availability,omitempty"`
	Contact      Contact           `json:"contact"`
	Booking      *models.Booking   `json:"booking,omitempty"`
	Celebrate    bool              `json:"celebrate"`
}

func (w *Wizard) ID() uuid.UUID { return w.id }

func (w *Wizard) State() WizardState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Wizard) View() WizardView {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.view()
}

func (w *Wizard) view() WizardView {
	return WizardView{
		ID:           w.id,
		State:        w.state,
		SchoolType:   w.schoolType,
		Subject:      w.subject,
		Level:        w.level,
		ClassNumber:  w.class,
		ClassOptions: models.ClassNumbers(w.schoolType),
		CanProceed:   w.classification() != nil,
		Date:         w.date,
		Time:         w.slot,
		Availability: w.availability,
		Contact:      w.contact,
		Booking:      w.booking,
		Celebrate:    w.state == StateSubmitted,
	}
}

func (w *Wizard) lastTouched() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.touchedAt
}

func (w *Wizard) touch() { w.touchedAt = w.now() }

func (w *Wizard) expect(states ...WizardState) error {
	for _, s := range states {
		if w.state == s {
			return nil
		}
	}
	return validationErr(fmt.Sprintf("action not allowed in step %s", w.state), nil)
}

// ChooseSchoolType starts the classification over for the chosen school type.
func (w *Wizard) ChooseSchoolType(raw string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	if err := w.expect(StateSelectingSchoolContext, StateSelectingClassificationDetails); err != nil {
		return err
	}
	st, err := models.ParseSchoolType(raw)
	if err != nil {
		return validationErr(err.Error(), err)
	}

	w.schoolType = st
	w.subject = ""
	w.level = ""
	w.class = 0
	w.state = StateSelectingClassificationDetails
	return nil
}

func (w *Wizard) ChooseSubject(raw string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	if err := w.expect(StateSelectingClassificationDetails); err != nil {
		return err
	}
	if w.schoolType != models.SchoolPodstawowa {
		return validationErr(fmt.Sprintf("subject does not apply to %s", w.schoolType), nil)
	}
	subject, err := models.ParseSubject(raw)
	if err != nil {
		return validationErr(err.Error(), err)
	}
	w.subject = subject
	return nil
}

func (w *Wizard) ChooseLevel(raw string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	if err := w.expect(StateSelectingClassificationDetails); err != nil {
		return err
	}
	if w.schoolType != models.SchoolLiceum {
		return validationErr(fmt.Sprintf("level does not apply to %s", w.schoolType), nil)
	}
	level, err := models.ParseLevel(raw)
	if err != nil {
		return validationErr(err.Error(), err)
	}
	w.level = level
	return nil
}

func (w *Wizard) ChooseClass(class int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	if err := w.expect(StateSelectingClassificationDetails); err != nil {
		return err
	}
	if !models.IsValidClass(w.schoolType, class) {
		return validationErr(fmt.Sprintf("class %d is not offered for %s", class, w.schoolType), nil)
	}
	w.class = class
	return nil
}

// classification returns nil until every field the school type needs is set.
func (w *Wizard) classification() models.Classification {
	var c models.Classification
	switch w.schoolType {
	case models.SchoolPodstawowa:
		c = models.Podstawowa{Subject: w.subject, Class: w.class}
	case models.SchoolLiceum:
		c = models.Liceum{Level: w.level, Class: w.class}
	case models.SchoolTechnikum:
		c = models.Technikum{Class: w.class}
	default:
		return nil
	}
	if c.Validate() != nil {
		return nil
	}
	return c
}

func (w *Wizard) CanProceed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state == StateSelectingClassificationDetails && w.classification() != nil
}

func (w *Wizard) Proceed() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	if err := w.expect(StateSelectingClassificationDetails); err != nil {
		return err
	}
	if w.classification() == nil {
		return validationErr("complete the lesson details first", ErrIncomplete)
	}
	w.state = StateSelectingSchedule
	return nil
}

// Back moves one step towards the start, keeping earlier choices.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	switch w.state {
	case StateSelectingSchedule:
		w.clearSchedule()
		w.state = StateSelectingClassificationDetails
	case StateSelectingClassificationDetails:
		w.state = StateSelectingSchoolContext
	case StateSelectingSchoolContext:
	default:
		return validationErr("booking already submitted, close the wizard to start again", nil)
	}
	return nil
}

func (w *Wizard) clearSchedule() {
	w.date = ""
	w.slot = ""
	w.availability = nil
}

// ChooseDate resolves availability for raw. Past, blocked and fully booked
// dates are refused.
func (w *Wizard) ChooseDate(ctx context.Context, raw string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	if err := w.expect(StateSelectingSchedule); err != nil {
		return err
	}

	avail, err := w.resolver.Resolve(ctx, raw)
	if err != nil {
		if IsKind(err, KindTransient) && avail != nil {
			w.date = avail.Date
			w.slot = ""
			w.availability = avail
		}
		return err
	}
	if avail.BlockedDay {
		return validationErr("this day is not available", ErrDayBlocked)
	}
	if avail.AvailableCount() == 0 {
		return validationErr("no free slots left on this day", ErrSlotTaken)
	}

	w.date = avail.Date
	w.slot = ""
	w.availability = avail
	return nil
}

func (w *Wizard) ChooseTime(slot string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	if err := w.expect(StateSelectingSchedule); err != nil {
		return err
	}
	if w.date == "" || w.availability == nil {
		return validationErr("choose a date first", nil)
	}
	if !w.availability.IsAvailable(slot) {
		return validationErr(fmt.Sprintf("%s is not available", slot), ErrSlotTaken)
	}
	w.slot = slot
	return nil
}

// SetContact stores contact details and optional lesson notes. They are
// checked on submit, where anonymous sessions must provide them.
func (w *Wizard) SetContact(c Contact, lessonType, notes string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	if err := w.expect(StateSelectingSchoolContext, StateSelectingClassificationDetails, StateSelectingSchedule); err != nil {
		return err
	}
	w.contact = c
	w.lessonType = lessonType
	w.notes = notes
	return nil
}

// Submit creates the booking. On failure the wizard stays on the schedule
// step; a conflict also clears the chosen time and refreshes availability.
func (w *Wizard) Submit(ctx context.Context, sess Session) (*models.Booking, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.touch()

	if err := w.expect(StateSelectingSchedule); err != nil {
		return nil, err
	}
	c := w.classification()
	if c == nil {
		return nil, validationErr("complete the lesson details first", ErrIncomplete)
	}
	if w.date == "" || w.slot == "" {
		return nil, validationErr("choose a date and time", nil)
	}

	booking, err := w.creator.Create(ctx, sess, BookingRequest{
		Classification: c,
		Date:           w.date,
		Time:           w.slot,
		LessonType:     w.lessonType,
		Contact:        w.contact,
		Notes:          w.notes,
	})
	if err != nil {
		if IsKind(err, KindConflict) {
			w.slot = ""
			if avail, rerr := w.resolver.Resolve(ctx, w.date); avail != nil {
				w.availability = avail
			} else if rerr != nil {
				w.clearSchedule()
			}
		}
		return nil, err
	}

	w.booking = booking
	w.state = StateSubmitted
	return booking, nil
}

// Close resets the wizard to its first step.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.state = StateSelectingSchoolContext
	w.schoolType = ""
	w.subject = ""
	w.level = ""
	w.class = 0
	w.clearSchedule()
	w.contact = Contact{}
	w.lessonType = ""
	w.notes = ""
	w.booking = nil
	w.touch()
}
