package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type purchaseTicketRequest struct {
	RouteID int64  `json:"route_id"`
	Shift   string `json:"shift"`
	Date    string `json:"date"` // YYYY-MM-DD, defaults to today
}

// POST /api/tickets
func PurchaseTicket(c *gin.Context) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	var req purchaseTicketRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	ticket, err := ledgerService(c).IssueTicket(sess, req.RouteID, req.Shift, req.Date)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ticket": ticket})
}

// PUT /api/tickets/:id/use — driver redeems a ticket at boarding.
func UseTicket(c *gin.Context) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	ticket, err := ledgerService(c).UseTicket(sess, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": ticket})
}
