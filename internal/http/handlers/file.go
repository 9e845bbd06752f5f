package handlers

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	httpMW "github.com/yungbote/unifind-backend/internal/http/middleware"
	"github.com/yungbote/unifind-backend/internal/http/response"
	"github.com/yungbote/unifind-backend/internal/platform/logger"
	"github.com/yungbote/unifind-backend/internal/services"
)

type FileHandler struct {
	log   *logger.Logger
	files services.FileService
}

func NewFileHandler(log *logger.Logger, files services.FileService) *FileHandler {
	return &FileHandler{log: log.With("handler", "FileHandler"), files: files}
}

type openRequest struct {
	Filepath string `json:"filepath"`
}

// POST /api/open-file {"filepath": "..."}
func (h *FileHandler) Open(c *gin.Context) {
	var req openRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	target, err := h.files.Resolve(c.Request.Context(), httpMW.OwnerID(c), req.Filepath)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, target)
}

// GET /api/download-file?filepath=
func (h *FileHandler) Download(c *gin.Context) {
	dl, err := h.files.Download(c.Request.Context(), httpMW.OwnerID(c), c.Query("filepath"))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	defer dl.Body.Close()

	c.Header("Content-Type", dl.ContentType)
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": dl.Filename}))
	if dl.Size >= 0 {
		c.Header("Content-Length", strconv.FormatInt(dl.Size, 10))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, dl.Body); err != nil {
		h.log.Warn("Download interrupted", "filename", dl.Filename, "error", err)
	}
}
