package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/unifind-backend/internal/domain"
	httpMW "github.com/yungbote/unifind-backend/internal/http/middleware"
	"github.com/yungbote/unifind-backend/internal/http/response"
	"github.com/yungbote/unifind-backend/internal/platform/logger"
	"github.com/yungbote/unifind-backend/internal/services"
)

type AccountHandler struct {
	log      *logger.Logger
	sync     services.SyncService
	accounts services.AccountService
}

func NewAccountHandler(log *logger.Logger, sync services.SyncService, accounts services.AccountService) *AccountHandler {
	return &AccountHandler{log: log, sync: sync, accounts: accounts}
}

type syncRequest struct {
	AccountID string `json:"account_id"`
	Source    string `json:"source"`
}

// POST /api/sync-cloud-storage {"account_id": "...", "source": "gmail"}
// Runs one pass inline; source defaults to the account's primary source.
// Bad input and unknown accounts are rejected. Provider and store failures
// are logged and only show up as the acknowledgment's outcome.
func (h *AccountHandler) SyncNow(c *gin.Context) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_account_id", err)
		return
	}
	source := types.StorageType(req.Source)
	res, err := h.sync.SyncAccount(c.Request.Context(), httpMW.OwnerID(c), accountID, source)
	if err != nil {
		if rejectedSync(err) {
			response.RespondServiceError(c, err)
			return
		}
		outcome := services.SyncOutcome(err)
		h.log.Warn("Sync-now pass failed", "account_id", accountID, "source", source, "outcome", outcome, "error", err)
		res = &services.SyncResult{AccountID: accountID, Source: source, Outcome: outcome}
	}
	response.RespondAccepted(c, gin.H{"sync": res})
}

func rejectedSync(err error) bool {
	return errors.Is(err, services.ErrInvalidInput) ||
		errors.Is(err, services.ErrNotFound) ||
		errors.Is(err, services.ErrUnsupported)
}

// DELETE /api/cloud-accounts/:id
func (h *AccountHandler) Unlink(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_account_id", err)
		return
	}
	res, err := h.accounts.Unlink(c.Request.Context(), httpMW.OwnerID(c), accountID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, res)
}
