package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"

	"buspass/internal/domain"
	"buspass/internal/domain/models"
	"buspass/internal/repositories"
	"buspass/internal/utils"
)

// DocsService renders printable pass and ticket PDFs.
type DocsService struct {
	AppRepo    repositories.ApplicationRepository
	TicketRepo repositories.TicketRepository
	RouteRepo  repositories.RouteRepository
	RequestID  string
}

// PassDocument builds the PDF for an approved application's pass. Students
// can fetch their own; staff can fetch any.
func (s DocsService) PassDocument(sess domain.Session, applicationID int64) ([]byte, string, error) {
	app, err := s.AppRepo.GetByID(applicationID)
	if err != nil {
		return nil, "", err
	}
	if app.StudentID != int64(sess.UserID) && !sess.IsStaff() {
		return nil, "", domain.AuthorizationError{Role: sess.Role, Op: "fetch another student's pass"}
	}
	pass, err := s.AppRepo.GetPassByApplication(applicationID)
	if err != nil {
		return nil, "", err
	}

	student, err := s.RouteRepo.StudentProfile(app.StudentID)
	if err != nil {
		return nil, "", err
	}
	routeName := ""
	if snap, err := s.RouteRepo.Snapshot(app.RouteID); err == nil {
		routeName = snap.Name
	}

	utils.LogEvent(s.RequestID, "docs", "pass_pdf", fmt.Sprintf("application_id=%d", applicationID))
	return buildPassPDF(pass, app, student.Name, routeName)
}

// TicketDocument builds the PDF for a one-day ticket.
func (s DocsService) TicketDocument(sess domain.Session, ticketID int64) ([]byte, string, error) {
	t, err := s.TicketRepo.GetByID(ticketID)
	if err != nil {
		return nil, "", err
	}
	if t.StudentID != int64(sess.UserID) && !sess.IsStaff() {
		return nil, "", domain.AuthorizationError{Role: sess.Role, Op: "fetch another student's ticket"}
	}

	student, err := s.RouteRepo.StudentProfile(t.StudentID)
	if err != nil {
		return nil, "", err
	}
	routeName := ""
	if snap, err := s.RouteRepo.Snapshot(t.RouteID); err == nil {
		routeName = snap.Name
	}

	utils.LogEvent(s.RequestID, "docs", "ticket_pdf", fmt.Sprintf("ticket_id=%d", ticketID))
	return buildTicketPDF(t, student.Name, routeName)
}

func buildPassPDF(p models.Pass, app models.PassApplication, studentName, routeName string) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Bus Pass", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "SEMESTER BUS PASS")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Student      : %s", safe(studentName, "-")),
		fmt.Sprintf("Reference    : %s", safe(app.ReferenceNumber, "-")),
		fmt.Sprintf("Route        : %s", safe(routeName, fmt.Sprintf("#%d", p.RouteID))),
		fmt.Sprintf("Stop         : %s", safe(p.Stop, "-")),
		fmt.Sprintf("Shift        : %s", safe(p.Shift, "-")),
		fmt.Sprintf("Valid from   : %s", utils.FormatDate(p.ValidFrom)),
		fmt.Sprintf("Valid until  : %s", utils.FormatDate(p.ValidUntil)),
		fmt.Sprintf("Charge       : %s", utils.FormatINR(p.SemesterCharge)),
		fmt.Sprintf("Pass no.     : PASS-%d", p.ID),
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Carry this pass on every trip. It is valid for one student on the stated route, stop and shift until the date shown.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("PASS_%d_%s.pdf", p.ID, safeFilenamePart(studentName))
	return buf.Bytes(), filename, nil
}

func buildTicketPDF(t models.Ticket, studentName, routeName string) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("One-Day Ticket", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "ONE-DAY BUS TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Student      : %s", safe(studentName, "-")),
		fmt.Sprintf("Route        : %s", safe(routeName, fmt.Sprintf("#%d", t.RouteID))),
		fmt.Sprintf("Shift        : %s", safe(t.Shift, "-")),
		fmt.Sprintf("Valid on     : %s", safe(t.IssuedDate, "-")),
		fmt.Sprintf("Fare         : %s", utils.FormatINR(t.Amount)),
		fmt.Sprintf("Ticket no.   : TKT-%d", t.ID),
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Valid for a single trip-day on the date shown. The driver marks it used at boarding; it cannot be reused.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("TICKET_%d_%s.pdf", t.ID, t.IssuedDate)
	return buf.Bytes(), filename, nil
}

func safe(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func safeFilenamePart(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "document"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-")
	return replacer.Replace(s)
}
