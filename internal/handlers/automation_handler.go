package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"scriptify/internal/automation"
	"scriptify/internal/services"

	"github.com/gin-gonic/gin"
)

// AutomationHandler manages automation instances and their manual
// fire/reset operations.
type AutomationHandler struct {
	service *services.AutomationService
}

func NewAutomationHandler(service *services.AutomationService) *AutomationHandler {
	return &AutomationHandler{service: service}
}

func (h *AutomationHandler) List(c *gin.Context) {
	automations, err := h.service.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list automations", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, automations)
}

func (h *AutomationHandler) Create(c *gin.Context) {
	var req services.AutomationCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	a, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, automation.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to create automation", Message: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *AutomationHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	a, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, automation.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to get automation", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *AutomationHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req services.AutomationUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	a, err := h.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, automation.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to update automation", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *AutomationHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, automation.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to delete automation", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "deleted"})
}

// FireTriggerRequest fires a trigger by name, running every enabled
// automation bound to it. Event entries overlay the instances' trigger
// state for this run.
type FireTriggerRequest struct {
	Trigger string         `json:"trigger" binding:"required"`
	Event   map[string]any `json:"event"`
}

func (h *AutomationHandler) Fire(c *gin.Context) {
	var req FireTriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	fired, err := h.service.Fire(c.Request.Context(), req.Trigger, req.Event)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, automation.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to fire trigger", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "fired", Data: gin.H{"automations_run": fired}})
}

func (h *AutomationHandler) Run(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	a, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, automation.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to get automation", Message: err.Error()})
		return
	}
	if err := h.service.RunOne(c.Request.Context(), a); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Automation run failed", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "ran"})
}

func (h *AutomationHandler) Reset(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.Reset(c.Request.Context(), id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, automation.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to reset automation", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "reset"})
}

func (h *AutomationHandler) ListRuns(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	runs, err := h.service.ListRuns(c.Request.Context(), id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to list runs", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, runs)
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid id", Message: err.Error()})
		return 0, false
	}
	return uint(id), true
}

// RegisterAutomationRoutes mounts the automation instance endpoints.
func RegisterAutomationRoutes(r *gin.RouterGroup, handler *AutomationHandler) {
	auto := r.Group("/automations")
	{
		auto.GET("", handler.List)
		auto.POST("", handler.Create)
		auto.POST("/fire", handler.Fire)
		auto.GET(":id", handler.Get)
		auto.PUT(":id", handler.Update)
		auto.DELETE(":id", handler.Delete)
		auto.POST(":id/run", handler.Run)
		auto.POST(":id/reset", handler.Reset)
		auto.GET(":id/runs", handler.ListRuns)
	}
}
