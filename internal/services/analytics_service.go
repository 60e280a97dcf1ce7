package services

import (
	"buspass/internal/domain"
	"buspass/internal/domain/models"
	"buspass/internal/repositories"
	"buspass/internal/utils"
)

// AnalyticsService derives read-only views from attendance history. It takes
// no locks: a report reflects what was committed before the read began.
type AnalyticsService struct {
	Repo repositories.AttendanceRepository
}

// TodaySummary returns per-route check-in/check-out counts for today.
func (s AnalyticsService) TodaySummary() ([]models.RouteDayCount, error) {
	return s.Repo.CountByRouteForDate(utils.Today())
}

// ActiveStudents lists riders currently aboard any bus.
func (s AnalyticsService) ActiveStudents() ([]models.ActiveStudent, error) {
	return s.Repo.ListOpen()
}

// DailyReport returns every record for a given day with student/route names.
func (s AnalyticsService) DailyReport(date string) ([]models.ReportRow, error) {
	day, err := utils.ParseDate(date)
	if err != nil {
		return nil, domain.ValidationError{Field: "date", Msg: "date must be YYYY-MM-DD"}
	}
	return s.Repo.ListByDate(utils.FormatDate(day))
}
