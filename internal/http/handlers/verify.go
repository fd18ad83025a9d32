package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/bizplan-backend/internal/http/response"
	"github.com/yungbote/bizplan-backend/internal/modules/verify"
	"github.com/yungbote/bizplan-backend/internal/platform/logger"
)

type DraftVerifier interface {
	Verify(ctx context.Context, req verify.Request) (*verify.Response, error)
}

type VerifyHandler struct {
	log      *logger.Logger
	verifier DraftVerifier
}

func NewVerifyHandler(log *logger.Logger, verifier DraftVerifier) *VerifyHandler {
	return &VerifyHandler{log: log.With("handler", "VerifyHandler"), verifier: verifier}
}

// POST /api/verify
func (h *VerifyHandler) Verify(c *gin.Context) {
	var req verify.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalid("decode request: %v", err))
		return
	}
	if req.ProjectIdx <= 0 {
		response.Error(c, invalid("project_idx is required"))
		return
	}
	res, err := h.verifier.Verify(c.Request.Context(), req)
	if err != nil {
		h.log.Warn("verification failed", "project_idx", req.ProjectIdx, "error", err)
		response.Error(c, err)
		return
	}
	response.RespondOK(c, res)
}
