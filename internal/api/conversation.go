package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lalith-99/lingomatch/internal/middleware"
	"github.com/lalith-99/lingomatch/internal/service"
)

type ConversationHandler struct {
	conversations *service.ConversationService
	logger        *zap.Logger
}

func NewConversationHandler(conversations *service.ConversationService, logger *zap.Logger) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, logger: logger}
}

// createConversationRequest names the other participant. The caller is
// always the first one; a client cannot open a chat between two others.
type createConversationRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// Create handles POST /v1/conversations
func (h *ConversationHandler) Create(c *gin.Context) {
	var req createConversationRequest
	if !bindJSON(c, &req) {
		return
	}

	conv, created, err := h.conversations.GetOrCreate(c.Request.Context(), middleware.GetUserID(c), req.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, conv)
}

// List handles GET /v1/conversations
func (h *ConversationHandler) List(c *gin.Context) {
	convs, err := h.conversations.ListForUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, convs)
}

// GetByID handles GET /v1/conversations/:id
func (h *ConversationHandler) GetByID(c *gin.Context) {
	conv, err := h.conversations.Get(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}
