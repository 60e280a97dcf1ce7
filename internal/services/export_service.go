package services

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"buspass/internal/utils"
)

// ExportService renders staff-facing spreadsheet exports of the analytics
// views. Like the views themselves it only reads.
type ExportService struct {
	Analytics AnalyticsService
	RequestID string
}

// DailyReportXLSX builds a workbook with every attendance record for a day.
func (s ExportService) DailyReportXLSX(date string) ([]byte, string, error) {
	rows, err := s.Analytics.DailyReport(date)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Ridership"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Record", "Student ID", "Student", "Route", "Bus", "Shift", "Check-in", "Check-out"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		checkOut := ""
		if row.CheckOutTime != nil {
			checkOut = utils.FormatDateTime(*row.CheckOutTime)
		}
		values := []any{
			row.RecordID,
			row.StudentID,
			row.StudentName,
			row.RouteName,
			row.BusID,
			row.Shift,
			utils.FormatDateTime(row.CheckInTime),
			checkOut,
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	utils.LogEvent(s.RequestID, "export", "daily_report", fmt.Sprintf("date=%s rows=%d", date, len(rows)))
	return bytes.Clone(buf.Bytes()), fmt.Sprintf("ridership_%s.xlsx", date), nil
}
