package services

import (
	"strings"
	"testing"
	"time"

	"buspass/internal/domain/models"
)

func TestBuildPassAndTicketPDFs(t *testing.T) {
	now := time.Now()
	pass := models.Pass{
		ID:             5,
		ApplicationID:  11,
		StudentID:      7,
		RouteID:        3,
		Stop:           "Main Gate",
		Shift:          "morning",
		ValidFrom:      now,
		ValidUntil:     now.AddDate(0, 6, 0),
		SemesterCharge: 45000,
		Status:         models.PassStatusActive,
	}
	app := models.PassApplication{ID: 11, ReferenceNumber: "BP-1A2B3C4D"}

	pdf, filename, err := buildPassPDF(pass, app, "Asha Rao", "North Loop")
	if err != nil {
		t.Fatalf("buildPassPDF returned error: %v", err)
	}
	if len(pdf) == 0 {
		t.Fatalf("buildPassPDF returned empty data")
	}
	if !strings.HasSuffix(filename, ".pdf") || strings.Contains(filename, " ") {
		t.Fatalf("bad pass filename: %q", filename)
	}

	ticket := models.Ticket{
		ID:         21,
		StudentID:  7,
		RouteID:    3,
		Shift:      "morning",
		IssuedDate: "2026-03-02",
		Amount:     120,
		Status:     models.TicketStatusIssued,
	}
	pdf, filename, err = buildTicketPDF(ticket, "Asha Rao", "North Loop")
	if err != nil {
		t.Fatalf("buildTicketPDF returned error: %v", err)
	}
	if len(pdf) == 0 || filename != "TICKET_21_2026-03-02.pdf" {
		t.Fatalf("unexpected ticket pdf output, filename %q len %d", filename, len(pdf))
	}
}
