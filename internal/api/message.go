package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lalith-99/lingomatch/internal/middleware"
	"github.com/lalith-99/lingomatch/internal/service"
)

type MessageHandler struct {
	messages *service.MessageService
	logger   *zap.Logger
}

func NewMessageHandler(messages *service.MessageService, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, logger: logger}
}

// Text is a pointer so that "required" only rejects a missing field. An
// empty or blank text is the service's to reject, after it has checked
// that the conversation exists.
type createMessageRequest struct {
	Text *string `json:"text" binding:"required"`
}

// Create handles POST /v1/conversations/:id/messages
func (h *MessageHandler) Create(c *gin.Context) {
	var req createMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	msg, err := h.messages.Append(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), *req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// List handles GET /v1/conversations/:id/messages, oldest first.
func (h *MessageHandler) List(c *gin.Context) {
	msgs, err := h.messages.List(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}
