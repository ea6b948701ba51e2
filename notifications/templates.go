package notifications

import (
	"bytes"
	"fmt"
	"html/template"
)

// BookingDetails is the view of a booking shared by every booking email.
type BookingDetails struct {
	Reference      string
	FullName       string
	Email          string
	Phone          string
	Date           string
	Time           string
	LessonType     string
	Classification string
	Notes          string
}

type MessageDetails struct {
	Name    string
	Email   string
	Subject string
	Body    string
	Link    string
}

const layout = `<!DOCTYPE html>
<html><body style="font-family: Arial, sans-serif; color: #1f2937;">
{{template "content" .}}
<p style="color:#6b7280;font-size:12px;">This message was sent automatically, please do not reply to it.</p>
</body></html>`

const bookingTable = `{{define "booking"}}<table cellpadding="4">
<tr><td><b>Reference</b></td><td>{{.Reference}}</td></tr>
<tr><td><b>Date</b></td><td>{{.Date}}</td></tr>
<tr><td><b>Time</b></td><td>{{.Time}}</td></tr>
<tr><td><b>Lesson</b></td><td>{{.Classification}}{{if .LessonType}} ({{.LessonType}}){{end}}</td></tr>
</table>{{end}}`

var emailTemplates = map[string]string{
	"booking_created_admin": `{{define "content"}}<h2>New booking request</h2>
<p>{{.FullName}} ({{.Email}}{{if .Phone}}, {{.Phone}}{{end}}) requested a lesson.</p>
{{template "booking" .}}
{{if .Notes}}<p><b>Notes:</b> {{.Notes}}</p>{{end}}{{end}}`,

	"booking_created_student": `{{define "content"}}<h2>Thank you, {{.FullName}}!</h2>
<p>We received your booking request. You will get another email once it is confirmed.</p>
{{template "booking" .}}{{end}}`,

	"booking_confirmed": `{{define "content"}}<h2>Your lesson is confirmed</h2>
<p>Hello {{.FullName}}, see you soon.</p>
{{template "booking" .}}{{end}}`,

	"booking_cancelled": `{{define "content"}}<h2>Your lesson was cancelled</h2>
<p>Hello {{.FullName}}, unfortunately the lesson below will not take place. Feel free to pick another date.</p>
{{template "booking" .}}{{end}}`,

	"booking_reminder": `{{define "content"}}<h2>Lesson reminder</h2>
<p>Hello {{.FullName}}, this is a reminder about your lesson tomorrow.</p>
{{template "booking" .}}{{end}}`,

	"message_new": `{{define "content"}}<h2>New message: {{.Subject}}</h2>
<p>From {{.Name}} ({{.Email}})</p>
<blockquote>{{.Body}}</blockquote>{{end}}`,

	"message_reply": `{{define "content"}}<h2>You have a reply</h2>
<p>Hello {{.Name}}, the tutor replied to "{{.Subject}}".</p>
<blockquote>{{.Body}}</blockquote>
{{if .Link}}<p><a href="{{.Link}}">Open the conversation</a></p>{{end}}{{end}}`,
}

var parsedTemplates = func() map[string]*template.Template {
	out := make(map[string]*template.Template, len(emailTemplates))
	for name, content := range emailTemplates {
		t := template.Must(template.New(name).Parse(layout))
		template.Must(t.Parse(bookingTable))
		template.Must(t.Parse(content))
		out[name] = t
	}
	return out
}()

func render(name string, data any) (string, error) {
	t, ok := parsedTemplates[name]
	if !ok {
		return "", fmt.Errorf("unknown email template %q", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func BookingCreatedAdminEmail(d BookingDetails) (string, error) {
	return render("booking_created_admin", d)
}

func BookingCreatedStudentEmail(d BookingDetails) (string, error) {
	return render("booking_created_student", d)
}

func BookingConfirmedEmail(d BookingDetails) (string, error) {
	return render("booking_confirmed", d)
}

func BookingCancelledEmail(d BookingDetails) (string, error) {
	return render("booking_cancelled", d)
}

func BookingReminderEmail(d BookingDetails) (string, error) {
	return render("booking_reminder", d)
}

func NewMessageEmail(d MessageDetails) (string, error) {
	return render("message_new", d)
}

func ReplyEmail(d MessageDetails) (string, error) {
	return render("message_reply", d)
}
