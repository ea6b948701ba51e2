package notifications

import (
	"strings"
	"testing"
)

func TestBookingTemplatesIncludeDetails(t *testing.T) {
	d := BookingDetails{
		Reference:      "ABCD2345",
		FullName:       "Jan Kowalski",
		Email:          "jan@example.com",
		Date:           "2030-05-01",
		Time:           "10:00",
		Classification: "liceum 2 (rozszerzony)",
	}

	renderers := map[string]func(BookingDetails) (string, error){
		"created_admin":   BookingCreatedAdminEmail,
		"created_student": BookingCreatedStudentEmail,
		"confirmed":       BookingConfirmedEmail,
		"cancelled":       BookingCancelledEmail,
		"reminder":        BookingReminderEmail,
	}

	for name, fn := range renderers {
		t.Run(name, func(t *testing.T) {
			html, err := fn(d)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			for _, want := range []string{"ABCD2345", "2030-05-01", "10:00", "liceum 2 (rozszerzony)"} {
				if !strings.Contains(html, want) {
					t.Errorf("expected %q in output", want)
				}
			}
		})
	}
}

func TestMessageTemplateEscapesBody(t *testing.T) {
	html, err := NewMessageEmail(MessageDetails{
		Name:    "Ola",
		Email:   "ola@example.com",
		Subject: "Question",
		Body:    "<script>alert(1)</script>",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Error("message body was not escaped")
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	if _, err := render("nope", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}
