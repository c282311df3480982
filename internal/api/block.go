package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lalith-99/lingomatch/internal/middleware"
	"github.com/lalith-99/lingomatch/internal/service"
)

// BlockHandler manages the caller's block list. Blocking is one-way; the
// blocked user is not told.
type BlockHandler struct {
	profiles *service.ProfileService
	logger   *zap.Logger
}

func NewBlockHandler(profiles *service.ProfileService, logger *zap.Logger) *BlockHandler {
	return &BlockHandler{profiles: profiles, logger: logger}
}

type blockRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// Block handles POST /v1/blocks
func (h *BlockHandler) Block(c *gin.Context) {
	var req blockRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.profiles.Block(c.Request.Context(), middleware.GetUserID(c), req.UserID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Unblock handles DELETE /v1/blocks/:id
func (h *BlockHandler) Unblock(c *gin.Context) {
	if err := h.profiles.Unblock(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
