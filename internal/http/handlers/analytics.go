package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"buspass/internal/http/middleware"
	"buspass/internal/repositories"
	"buspass/internal/services"
)

func analyticsService() services.AnalyticsService {
	return services.AnalyticsService{Repo: repositories.AttendanceRepository{}}
}

// GET /api/analytics/today
func GetTodaySummary(c *gin.Context) {
	summary, err := analyticsService().TodaySummary()
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// GET /api/analytics/active
func GetActiveStudents(c *gin.Context) {
	students, err := analyticsService().ActiveStudents()
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": students})
}

// GET /api/analytics/report?date=YYYY-MM-DD
func GetDailyReport(c *gin.Context) {
	rows, err := analyticsService().DailyReport(c.Query("date"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": rows})
}

// GET /api/analytics/report.xlsx?date=YYYY-MM-DD
func GetDailyReportXLSX(c *gin.Context) {
	svc := services.ExportService{
		Analytics: analyticsService(),
		RequestID: middleware.GetRequestID(c),
	}
	data, filename, err := svc.DailyReportXLSX(c.Query("date"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
