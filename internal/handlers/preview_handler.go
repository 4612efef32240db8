package handlers

import (
	"net/http"

	"scriptify/internal/placeholders"
	"scriptify/internal/reports"

	"github.com/gin-gonic/gin"
)

// PreviewHandler renders placeholder templates and report tables
// without dispatching anything.
type PreviewHandler struct {
	engine  *placeholders.Engine
	bridge  *reports.Bridge
	reports *reports.SeriesEngine
}

func NewPreviewHandler(engine *placeholders.Engine, bridge *reports.Bridge, series *reports.SeriesEngine) *PreviewHandler {
	return &PreviewHandler{engine: engine, bridge: bridge, reports: series}
}

// PreviewRequest is a template plus the placeholder values to render
// it with.
type PreviewRequest struct {
	Template string            `json:"template" binding:"required"`
	Values   map[string]string `json:"values"`
}

type PreviewResponse struct {
	Rendered string `json:"rendered"`
}

func (h *PreviewHandler) Preview(c *gin.Context) {
	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}
	rendered := h.engine.Render(c.Request.Context(), req.Template, req.Values)
	c.JSON(http.StatusOK, PreviewResponse{Rendered: rendered})
}

func (h *PreviewHandler) ListReports(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"reports": h.reports.Reports()})
}

func (h *PreviewHandler) GetReport(c *gin.Context) {
	name := c.Param("name")
	filters := map[string]string{}
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			filters[key] = values[0]
		}
	}
	table, ok := h.bridge.FetchReport(c.Request.Context(), name, filters)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Report unavailable", Message: "no data for report " + name})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "table": table})
}

// RegisterPreviewRoutes mounts the preview and report endpoints.
func RegisterPreviewRoutes(r *gin.RouterGroup, handler *PreviewHandler) {
	r.POST("/preview", handler.Preview)
	rep := r.Group("/reports")
	{
		rep.GET("", handler.ListReports)
		rep.GET(":name", handler.GetReport)
	}
}
