package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"buspass/internal/http/middleware"
	"buspass/internal/repositories"
	"buspass/internal/services"
)

func docsService(c *gin.Context) services.DocsService {
	return services.DocsService{
		AppRepo:    repositories.ApplicationRepository{},
		TicketRepo: repositories.TicketRepository{},
		RouteRepo:  repositories.RouteRepository{},
		RequestID:  middleware.GetRequestID(c),
	}
}

// GET /api/applications/:id/pass.pdf
func GetPassPDF(c *gin.Context) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	data, filename, err := docsService(c).PassDocument(sess, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

// GET /api/tickets/:id/ticket.pdf
func GetTicketPDF(c *gin.Context) {
	sess, ok := sessionOrAbort(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	data, filename, err := docsService(c).TicketDocument(sess, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}
