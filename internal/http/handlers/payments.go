package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"buspass/internal/http/middleware"
	"buspass/internal/repositories"
	"buspass/internal/services"
)

func paymentService(c *gin.Context) services.PaymentService {
	return services.PaymentService{
		AppRepo:    repositories.ApplicationRepository{},
		TicketRepo: repositories.TicketRepository{},
		PayRepo:    repositories.PaymentRepository{},
		Ledger:     ledgerService(c),
		Gateway:    gw,
		RequestID:  middleware.GetRequestID(c),
	}
}

type createOrderRequest struct {
	TargetKind string `json:"target_kind"` // application / ticket
	TargetID   int64  `json:"target_id"`
}

// POST /api/payments/order
func CreatePaymentOrder(c *gin.Context) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	var req createOrderRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	order, err := paymentService(c).CreateOrder(c.Request.Context(), sess, req.TargetKind, req.TargetID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": order, "key_id": env.GatewayKeyID})
}

type verifyRequest struct {
	TargetKind string `json:"target_kind"`
	TargetID   int64  `json:"target_id"`
	OrderID    string `json:"order_id"`
	PaymentID  string `json:"payment_id"`
	Signature  string `json:"signature"`
}

// POST /api/payments/verify — gateway completion callback, safe to re-deliver.
func VerifyPayment(c *gin.Context) {
	if _, ok := sessionOrAbort(c); !ok {
		return
	}
	var req verifyRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	tx, err := paymentService(c).Verify(c.Request.Context(), services.VerifyInput{
		TargetKind: req.TargetKind,
		TargetID:   req.TargetID,
		OrderID:    req.OrderID,
		PaymentID:  req.PaymentID,
		Signature:  req.Signature,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx})
}

type failedRequest struct {
	TargetKind string `json:"target_kind"`
	TargetID   int64  `json:"target_id"`
	Reason     string `json:"reason"`
}

// POST /api/payments/failed — the abandoned/dismissed gateway flow lands here.
func PaymentFailed(c *gin.Context) {
	if _, ok := sessionOrAbort(c); !ok {
		return
	}
	var req failedRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	if err := paymentService(c).MarkFailed(req.TargetKind, req.TargetID, req.Reason); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}

// GET /api/payments/:kind/:id — transaction history for a target (staff).
func PaymentHistory(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	txs, err := repositories.PaymentRepository{}.ListByTarget(c.Param("kind"), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}
