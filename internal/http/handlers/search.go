package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/unifind-backend/internal/domain"
	httpMW "github.com/yungbote/unifind-backend/internal/http/middleware"
	"github.com/yungbote/unifind-backend/internal/http/response"
	"github.com/yungbote/unifind-backend/internal/services"
)

type SearchHandler struct {
	query services.QueryService
}

func NewSearchHandler(query services.QueryService) *SearchHandler {
	return &SearchHandler{query: query}
}

// GET /api/search-files?q=&limit=&offset=&storage_type=&filetype=
// "service" is accepted as an alias of storage_type.
func (h *SearchHandler) Search(c *gin.Context) {
	limit, err := intParam(c, "limit")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_input", err)
		return
	}
	offset, err := intParam(c, "offset")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_input", err)
		return
	}
	storage := c.Query("storage_type")
	if storage == "" {
		storage = c.Query("service")
	}
	page, err := h.query.Search(c.Request.Context(), httpMW.OwnerID(c), services.SearchParams{
		Query:       c.Query("q"),
		Limit:       limit,
		Offset:      offset,
		StorageType: types.StorageType(storage),
		Filetype:    c.Query("filetype"),
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, page)
}

type favoriteRequest struct {
	Filepath string `json:"filepath"`
}

// POST /api/favorite {"filepath": "..."}
func (h *SearchHandler) ToggleFavorite(c *gin.Context) {
	var req favoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	rec, err := h.query.ToggleFavorite(c.Request.Context(), httpMW.OwnerID(c), req.Filepath)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"file": rec})
}

func intParam(c *gin.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}
