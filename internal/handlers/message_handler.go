package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"scriptify/internal/dispatch"
	"scriptify/internal/messaging"

	"github.com/gin-gonic/gin"
)

// MessageHandler exposes sent and pending messages.
type MessageHandler struct {
	store      *messaging.Local
	dispatcher *dispatch.Dispatcher
}

func NewMessageHandler(store *messaging.Local, dispatcher *dispatch.Dispatcher) *MessageHandler {
	return &MessageHandler{store: store, dispatcher: dispatcher}
}

func (h *MessageHandler) List(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusNotImplemented, ErrorResponse{Error: "Message listing unavailable", Message: "messages are delivered through an external webhook"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	messages, err := h.store.List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list messages", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, messages)
}

func (h *MessageHandler) ListPending(c *gin.Context) {
	pending, err := h.dispatcher.ListPending(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list pending messages", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, pending)
}

func (h *MessageHandler) CancelPending(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.dispatcher.CancelPending(c.Request.Context(), id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, dispatch.ErrPendingNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to cancel pending message", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "cancelled"})
}

// RegisterMessageRoutes mounts the message endpoints.
func RegisterMessageRoutes(r *gin.RouterGroup, handler *MessageHandler) {
	messages := r.Group("/messages")
	{
		messages.GET("", handler.List)
		messages.GET("/pending", handler.ListPending)
		messages.DELETE("/pending/:id", handler.CancelPending)
	}
}
