package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/visionforge/classifier-backend/internal/pkg/errs"
	"github.com/visionforge/classifier-backend/internal/pkg/httpx"
	"github.com/visionforge/classifier-backend/internal/platform/apierr"
)

// RespondServiceError maps a service-layer error onto the envelope:
// validation and not-found become 4xx, provider failures become 502, and
// anything else is a plain 500.
func RespondServiceError(c *gin.Context, code string, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) && ae.Status != 0 {
		if ae.Code != "" {
			code = ae.Code
		}
		RespondError(c, ae.Status, code, err)
		return
	}

	switch {
	case errors.Is(err, errs.ErrInvalidArgument):
		RespondError(c, http.StatusBadRequest, code, err)
	case errors.Is(err, errs.ErrNotFound):
		RespondError(c, http.StatusNotFound, code, err)
	default:
		var sc httpx.HTTPStatusCoder
		if errors.As(err, &sc) {
			RespondError(c, http.StatusBadGateway, code, err)
			return
		}
		RespondError(c, http.StatusInternalServerError, code, err)
	}
}
