package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"buspass/internal/domain/models"
	"buspass/internal/http/middleware"
	"buspass/internal/repositories"
	"buspass/internal/services"
)

func ledgerService(c *gin.Context) services.LedgerService {
	return services.LedgerService{
		AppRepo:    repositories.ApplicationRepository{},
		TicketRepo: repositories.TicketRepository{},
		RouteRepo:  repositories.RouteRepository{},
		RetryLimit: env.PaymentRetryLimit,
		RequestID:  middleware.GetRequestID(c),
	}
}

type applyRequest struct {
	RouteID int64  `json:"route_id"`
	Stop    string `json:"stop"`
	Shift   string `json:"shift"`
}

// POST /api/applications
func Apply(c *gin.Context) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	var req applyRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	app, err := ledgerService(c).Apply(sess, req.RouteID, req.Stop, req.Shift)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"application": app})
}

// GET /api/applications/mine
func MyApplication(c *gin.Context) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	repo := repositories.ApplicationRepository{}
	app, found, err := repo.FindOpenByStudent(int64(sess.UserID))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusOK, gin.H{"application": nil})
		return
	}
	resp := gin.H{"application": app}
	if app.Status == models.AppStatusApproved {
		if pass, err := repo.GetPassByApplication(app.ID); err == nil {
			resp["pass"] = pass
		}
	}
	c.JSON(http.StatusOK, resp)
}

// GET /api/applications/pending — staff approval queue.
func PendingApplications(c *gin.Context) {
	apps, err := repositories.ApplicationRepository{}.ListByStatus(models.AppStatusPendingApproval)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

type decideRequest struct {
	Decision string `json:"decision"` // approve / reject
	Reason   string `json:"reason"`
}

// PUT /api/applications/:id/decide
func DecideApplication(c *gin.Context) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req decideRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	result, err := ledgerService(c).Decide(sess, id, req.Decision, req.Reason)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
