package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/bizplan-backend/internal/domain/drafting"
	"github.com/yungbote/bizplan-backend/internal/http/response"
	"github.com/yungbote/bizplan-backend/internal/platform/logger"

	draftagent "github.com/yungbote/bizplan-backend/internal/modules/drafting"
)

type DraftAgent interface {
	Turn(ctx context.Context, req draftagent.TurnRequest) (*draftagent.TurnResult, error)
	Threads(ctx context.Context) ([]drafting.ThreadSummary, error)
}

type DraftHandler struct {
	log   *logger.Logger
	agent DraftAgent
}

func NewDraftHandler(log *logger.Logger, agent DraftAgent) *DraftHandler {
	return &DraftHandler{log: log.With("handler", "DraftHandler"), agent: agent}
}

// POST /api/draft/turn
func (h *DraftHandler) Turn(c *gin.Context) {
	var req draftagent.TurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalid("decode request: %v", err))
		return
	}
	res, err := h.agent.Turn(c.Request.Context(), req)
	if err != nil {
		h.log.Warn("draft turn failed", "thread_id", req.ThreadID, "error", err)
		response.Error(c, err)
		return
	}
	response.RespondOK(c, res)
}

// GET /api/draft/threads
func (h *DraftHandler) ListThreads(c *gin.Context) {
	threads, err := h.agent.Threads(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.RespondOK(c, gin.H{"threads": threads})
}
