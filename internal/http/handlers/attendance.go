package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"buspass/internal/http/middleware"
	"buspass/internal/repositories"
	"buspass/internal/services"
)

func attendanceService(c *gin.Context) services.AttendanceService {
	return services.AttendanceService{
		Repo:           repositories.AttendanceRepository{},
		CapacityPolicy: env.CapacityPolicy,
		RequestID:      middleware.GetRequestID(c),
	}
}

type checkInRequest struct {
	StudentID int64  `json:"student_id"`
	BusID     int64  `json:"bus_id"`
	RouteID   int64  `json:"route_id"`
	Shift     string `json:"shift"`
}

// POST /api/attendance/check-in
func CheckIn(c *gin.Context) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	var req checkInRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	rec, err := attendanceService(c).CheckIn(sess, req.StudentID, req.BusID, req.RouteID, req.Shift)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"record": rec})
}

type checkOutRequest struct {
	StudentID int64 `json:"student_id"`
	BusID     int64 `json:"bus_id"`
}

// POST /api/attendance/check-out
func CheckOut(c *gin.Context) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	var req checkOutRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	rec, err := attendanceService(c).CheckOut(sess, req.StudentID, req.BusID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": rec})
}

// GET /api/buses/:id/occupancy
func GetOccupancy(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	occ, err := attendanceService(c).Occupancy(id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"occupancy": occ})
}

type adjustOccupancyRequest struct {
	Delta int `json:"delta"`
}

// PUT /api/buses/:id/occupancy — staff correction.
func AdjustOccupancy(c *gin.Context) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req adjustOccupancyRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	occ, err := attendanceService(c).AdjustOccupancy(sess, id, req.Delta)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"occupancy": occ})
}
