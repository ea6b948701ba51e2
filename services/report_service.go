package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"github.com/anjiri1684/tutoring_portal/models"
	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	lessonLength = time.Hour
	sheetName    = "Bookings"
)

var reportColumns = []string{
	"Reference", "Date", "Time", "Status", "Paid", "Lesson",
	"Lesson type", "Full name", "Email", "Phone", "Notes",
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><style>
body { font-family: Arial, sans-serif; font-size: 11px; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #d1d5db; padding: 4px 6px; text-align: left; }
th { background: #e5e7eb; }
.cancelled { color: #9ca3af; text-decoration: line-through; }
</style></head><body>
<h2>Bookings {{.From}} to {{.To}}</h2>
<p>Generated {{.Generated}}. {{len .Rows}} bookings.</p>
<table>
<tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr{{if eq .Status "cancelled"}} class="cancelled"{{end}}>{{range .Cells}}<td>{{.}}</td>{{end}}</tr>
{{end}}</table>
</body></html>`))

type ReportService struct {
	db     *gorm.DB
	loc    *time.Location
	pdf    PDFRenderer
	now    Clock
	logger *zap.Logger
}

func NewReportService(db *gorm.DB, loc *time.Location, pdf PDFRenderer, now Clock, logger *zap.Logger) *ReportService {
	if now == nil {
		now = time.Now
	}
	return &ReportService{db: db, loc: loc, pdf: pdf, now: now, logger: logger}
}

// Bookings returns every booking with a date in [from, to], oldest first.
func (s *ReportService) Bookings(ctx context.Context, sess Session, from, to string) ([]models.Booking, error) {
	if err := sess.requireAdmin(); err != nil {
		return nil, err
	}
	f, err := models.ParseDate(from, s.loc)
	if err != nil {
		return nil, validationErr(err.Error(), err)
	}
	t, err := models.ParseDate(to, s.loc)
	if err != nil {
		return nil, validationErr(err.Error(), err)
	}
	if t.Before(f) {
		return nil, validationErr("to must not be before from", nil)
	}

	bookings := []models.Booking{}
	if err := s.db.WithContext(ctx).
		Where("booking_date BETWEEN ? AND ?", from, to).
		Order(orderOldestFirst).
		Find(&bookings).Error; err != nil {
		return nil, transientErr("could not load bookings", err)
	}
	return bookings, nil
}

func reportRow(b *models.Booking) []string {
	notes := ""
	if b.Notes != nil {
		notes = *b.Notes
	}
	paid := "no"
	if b.IsPaid {
		paid = "yes"
	}
	return []string{
		b.Reference, b.BookingDate, b.BookingTime, string(b.Status), paid,
		b.ClassificationLabel(), b.LessonType, b.FullName, b.Email, b.Phone, notes,
	}
}

func (s *ReportService) BookingsCSV(ctx context.Context, sess Session, from, to string) ([]byte, error) {
	bookings, err := s.Bookings(ctx, sess, from, to)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(reportColumns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for i := range bookings {
		if err := w.Write(reportRow(&bookings[i])); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *ReportService) BookingsXLSX(ctx context.Context, sess Session, from, to string) ([]byte, error) {
	bookings, err := s.Bookings(ctx, sess, from, to)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for i, col := range reportColumns {
		name, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, name, col)
	}
	last, _ := excelize.ColumnNumberToName(len(reportColumns))
	f.SetCellStyle(sheetName, "A1", last+"1", headerStyle)
	f.SetColWidth(sheetName, "A", "E", 12)
	f.SetColWidth(sheetName, "F", last, 24)

	for r := range bookings {
		for c, value := range reportRow(&bookings[r]) {
			name, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(sheetName, name, value)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("Failed to write bookings workbook", zap.Error(err))
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

type reportView struct {
	From      string
	To        string
	Generated string
	Columns   []string
	Rows      []reportViewRow
}

type reportViewRow struct {
	Status string
	Cells  []string
}

// BookingsHTML renders the printable report that BookingsPDF converts.
func (s *ReportService) BookingsHTML(ctx context.Context, sess Session, from, to string) (string, error) {
	bookings, err := s.Bookings(ctx, sess, from, to)
	if err != nil {
		return "", err
	}

	view := reportView{
		From:      from,
		To:        to,
		Generated: s.now().In(s.loc).Format("2006-01-02 15:04"),
		Columns:   reportColumns,
	}
	for i := range bookings {
		view.Rows = append(view.Rows, reportViewRow{
			Status: string(bookings[i].Status),
			Cells:  reportRow(&bookings[i]),
		})
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

func (s *ReportService) BookingsPDF(ctx context.Context, sess Session, from, to string) ([]byte, error) {
	html, err := s.BookingsHTML(ctx, sess, from, to)
	if err != nil {
		return nil, err
	}
	if s.pdf == nil {
		return nil, transientErr("pdf export is not available", nil)
	}

	pdf, err := s.pdf.Render(ctx, html)
	if err != nil {
		s.logger.Error("PDF rendering failed", zap.Error(err))
		return nil, transientErr("could not render the pdf, please try again", err)
	}
	return pdf, nil
}

// StudentCalendar renders the caller's confirmed lessons as an iCalendar feed.
func (s *ReportService) StudentCalendar(ctx context.Context, sess Session) ([]byte, error) {
	if !sess.IsAuthenticated() {
		return nil, &Error{Kind: KindUnauthenticated, Msg: "sign in to export your lessons"}
	}

	var bookings []models.Booking
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", sess.UserID, models.BookingStatusConfirmed).
		Order(orderOldestFirst).
		Find(&bookings).Error; err != nil {
		return nil, transientErr("could not load bookings", err)
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//Tutoring Portal//Lessons//PL")
	cal.SetName("Lessons")

	stamp := s.now().UTC()
	for i := range bookings {
		b := &bookings[i]
		start, err := models.SlotStart(b.BookingDate, b.BookingTime, s.loc)
		if err != nil {
			s.logger.Warn("Skipping booking with invalid slot", zap.String("booking_id", b.ID.String()), zap.Error(err))
			continue
		}

		ev := cal.AddEvent(b.ID.String() + "@tutoring-portal")
		ev.SetDtStampTime(stamp)
		ev.SetStartAt(start)
		ev.SetEndAt(start.Add(lessonLength))
		ev.SetSummary("Lesson: " + b.ClassificationLabel())
		ev.SetDescription("Reference " + b.Reference + ", paid: " + strconv.FormatBool(b.IsPaid))
	}
	return []byte(cal.Serialize()), nil
}
