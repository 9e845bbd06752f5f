package handlers

import (
	"github.com/gin-gonic/gin"

	httpMW "github.com/yungbote/unifind-backend/internal/http/middleware"
	"github.com/yungbote/unifind-backend/internal/http/response"
	"github.com/yungbote/unifind-backend/internal/services"
)

type IndexHandler struct {
	indexing services.IndexingService
}

func NewIndexHandler(indexing services.IndexingService) *IndexHandler {
	return &IndexHandler{indexing: indexing}
}

// POST /api/index-files
func (h *IndexHandler) Start(c *gin.Context) {
	st, err := h.indexing.Start(c.Request.Context(), httpMW.OwnerID(c))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{"status": st})
}

// GET /api/index-status
func (h *IndexHandler) Status(c *gin.Context) {
	response.RespondOK(c, gin.H{"status": h.indexing.Status(c.Request.Context(), httpMW.OwnerID(c))})
}
