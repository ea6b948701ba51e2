package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/anjiri1684/tutoring_portal/models"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type stubPDF struct {
	html string
	err  error
}

func (p *stubPDF) Render(_ context.Context, html string) ([]byte, error) {
	p.html = html
	if p.err != nil {
		return nil, p.err
	}
	return []byte("%PDF-1.4"), nil
}

func seedReport(t *testing.T) (*fixture, Session) {
	t.Helper()
	f := newFixture(t)
	admin := adminSession(t, f.db)
	mustBook(t, f, "2025-06-02", "10:00")
	mustBook(t, f, "2025-06-02", "9:00")
	mustBook(t, f, "2025-07-01", "9:00")
	return f, admin
}

func TestBookingsCSV(t *testing.T) {
	f, admin := seedReport(t)
	svc := NewReportService(f.db, warsaw, nil, fixedClock, zap.NewNop())

	data, err := svc.BookingsCSV(context.Background(), admin, "2025-06-01", "2025-06-30")
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Reference" || rows[1][2] != "9:00" || rows[2][2] != "10:00" {
		t.Fatalf("unexpected rows %v", rows)
	}
	if rows[1][5] != "liceum, klasa 2, rozszerzony" {
		t.Errorf("unexpected lesson label %q", rows[1][5])
	}

	_, err = svc.BookingsCSV(context.Background(), Anonymous(), "2025-06-01", "2025-06-30")
	wantKind(t, err, KindAuthorization)
	_, err = svc.BookingsCSV(context.Background(), admin, "2025-06-30", "2025-06-01")
	wantKind(t, err, KindValidation)
}

func TestBookingsXLSX(t *testing.T) {
	f, admin := seedReport(t)
	svc := NewReportService(f.db, warsaw, nil, fixedClock, zap.NewNop())

	data, err := svc.BookingsXLSX(context.Background(), admin, "2025-06-01", "2025-07-31")
	if err != nil {
		t.Fatalf("xlsx: %v", err)
	}
	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer book.Close()

	rows, err := book.GetRows(sheetName)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header and 3 rows, got %d", len(rows))
	}
	if rows[3][1] != "2025-07-01" {
		t.Errorf("expected the july booking last, got %v", rows[3])
	}
}

func TestBookingsPDF(t *testing.T) {
	f, admin := seedReport(t)
	ctx := context.Background()

	pdf := &stubPDF{}
	svc := NewReportService(f.db, warsaw, pdf, fixedClock, zap.NewNop())
	data, err := svc.BookingsPDF(ctx, admin, "2025-06-01", "2025-06-30")
	if err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("expected renderer output")
	}
	if !strings.Contains(pdf.html, "Bookings 2025-06-01 to 2025-06-30") || !strings.Contains(pdf.html, "Anna Nowak") {
		t.Errorf("report html missing content: %s", pdf.html)
	}

	failing := NewReportService(f.db, warsaw, &stubPDF{err: errors.New("chrome missing")}, fixedClock, zap.NewNop())
	_, err = failing.BookingsPDF(ctx, admin, "2025-06-01", "2025-06-30")
	wantKind(t, err, KindTransient)

	disabled := NewReportService(f.db, warsaw, nil, fixedClock, zap.NewNop())
	_, err = disabled.BookingsPDF(ctx, admin, "2025-06-01", "2025-06-30")
	wantKind(t, err, KindTransient)
}

func TestStudentCalendar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := adminSession(t, f.db)
	_, student := createUser(t, f.db, "cal@example.com", models.RoleStudent)

	req := anonymousRequest("2025-06-02", "10:00")
	b, err := f.bookings.Create(ctx, student, req)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.bookings.Create(ctx, student, anonymousRequest("2025-06-03", "10:00")); err != nil {
		t.Fatal(err)
	}
	if _, err := f.moderation.ConfirmBooking(ctx, admin, b.ID); err != nil {
		t.Fatal(err)
	}

	svc := NewReportService(f.db, warsaw, nil, fixedClock, zap.NewNop())
	data, err := svc.StudentCalendar(ctx, student)
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	ics := string(data)
	if strings.Count(ics, "BEGIN:VEVENT") != 1 {
		t.Fatalf("expected only the confirmed lesson, got:\n%s", ics)
	}
	if !strings.Contains(ics, b.ID.String()+"@tutoring-portal") {
		t.Error("missing event uid")
	}
	if !strings.Contains(ics, "20250602T080000Z") {
		t.Errorf("expected 10:00 Warsaw as 08:00 UTC, got:\n%s", ics)
	}

	_, err = svc.StudentCalendar(ctx, Anonymous())
	wantKind(t, err, KindUnauthenticated)
}
