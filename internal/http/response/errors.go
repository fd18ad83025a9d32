package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/bizplan-backend/internal/platform/apierr"
)

// Error classifies err through apierr and writes the error envelope.
func Error(c *gin.Context, err error) {
	ae := apierr.From(err)
	if ae == nil {
		ae = apierr.New(http.StatusInternalServerError, "internal", nil)
	}
	RespondError(c, ae.Status, ae.Code, ae.Err)
}
