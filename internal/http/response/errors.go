package response

import (
	"errors"
	"net/http"

	"github.com/yungbote/unifind-backend/internal/jobs/worker"
	"github.com/yungbote/unifind-backend/internal/platform/apierr"
	"github.com/yungbote/unifind-backend/internal/providers"
	"github.com/yungbote/unifind-backend/internal/services"
)

// FromError classifies err. Unknown failures become 500 internal_error.
func FromError(err error) *apierr.Error {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case err == nil:
		return apierr.New(http.StatusInternalServerError, "internal_error", errors.New("unknown error"))
	case errors.Is(err, services.ErrInvalidInput):
		return apierr.New(http.StatusBadRequest, "invalid_input", err)
	case errors.Is(err, services.ErrUnsupported):
		return apierr.New(http.StatusBadRequest, "unsupported", err)
	case errors.Is(err, services.ErrNotFound):
		return apierr.New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, worker.ErrPoolClosed):
		return apierr.New(http.StatusServiceUnavailable, "shutting_down", err)
	case errors.Is(err, worker.ErrQueueFull):
		return apierr.New(http.StatusServiceUnavailable, "busy", err)
	case errors.Is(err, providers.ErrCredentialExpired):
		return apierr.New(http.StatusBadGateway, "provider_credential_expired", err)
	case errors.Is(err, providers.ErrTransient):
		return apierr.New(http.StatusBadGateway, "provider_unavailable", err)
	case errors.Is(err, services.ErrStoreWrite):
		return apierr.New(http.StatusInternalServerError, "store_write_failed", err)
	default:
		return apierr.New(http.StatusInternalServerError, "internal_error", err)
	}
}
