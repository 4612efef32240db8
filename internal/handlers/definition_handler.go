package handlers

import (
	"errors"
	"net/http"

	"scriptify/internal/automation"

	"github.com/gin-gonic/gin"
)

// DefinitionHandler exposes the registered script and trigger
// definitions (read-only: definitions are built at startup).
type DefinitionHandler struct {
	scripts  *automation.ScriptRegistry
	triggers *automation.TriggerRegistry
}

func NewDefinitionHandler(scripts *automation.ScriptRegistry, triggers *automation.TriggerRegistry) *DefinitionHandler {
	return &DefinitionHandler{scripts: scripts, triggers: triggers}
}

// ScriptResponse is the serialized form of a script definition.
type ScriptResponse struct {
	Name              string                        `json:"name"`
	Version           int                           `json:"version"`
	Fields            []automation.FieldDefinition  `json:"fields"`
	Placeholders      []string                      `json:"placeholders"`
	ForcedTriggerable *automation.ForcedTriggerable `json:"forced_triggerable,omitempty"`
	Triggerables      []string                      `json:"triggerables,omitempty"`
}

// TriggerResponse is the serialized form of a trigger definition.
type TriggerResponse struct {
	Name   string                       `json:"name"`
	Fields []automation.FieldDefinition `json:"fields"`
}

func scriptResponse(def *automation.ScriptDefinition) ScriptResponse {
	return ScriptResponse{
		Name:              def.Name(),
		Version:           def.Version(),
		Fields:            def.Fields(),
		Placeholders:      def.Placeholders(),
		ForcedTriggerable: def.ForcedTriggerable(),
		Triggerables:      def.Triggerables(),
	}
}

// ListScripts returns all registered script definitions.
func (h *DefinitionHandler) ListScripts(c *gin.Context) {
	names := h.scripts.All()
	out := make([]ScriptResponse, 0, len(names))
	for _, name := range names {
		def, err := h.scripts.Get(name)
		if err != nil {
			continue
		}
		out = append(out, scriptResponse(def))
	}
	c.JSON(http.StatusOK, out)
}

// GetScript returns one script definition by name.
func (h *DefinitionHandler) GetScript(c *gin.Context) {
	def, err := h.scripts.Get(c.Param("name"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, automation.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to get script", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, scriptResponse(def))
}

// ListTriggers returns all registered trigger definitions.
func (h *DefinitionHandler) ListTriggers(c *gin.Context) {
	names := h.triggers.All()
	out := make([]TriggerResponse, 0, len(names))
	for _, name := range names {
		def, err := h.triggers.Get(name)
		if err != nil {
			continue
		}
		out = append(out, TriggerResponse{Name: def.Name(), Fields: def.Fields()})
	}
	c.JSON(http.StatusOK, out)
}

// GetTrigger returns one trigger definition by name.
func (h *DefinitionHandler) GetTrigger(c *gin.Context) {
	def, err := h.triggers.Get(c.Param("name"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, automation.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, ErrorResponse{Error: "Failed to get trigger", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, TriggerResponse{Name: def.Name(), Fields: def.Fields()})
}

// RegisterDefinitionRoutes mounts the definition endpoints.
func RegisterDefinitionRoutes(r *gin.RouterGroup, handler *DefinitionHandler) {
	scripts := r.Group("/scripts")
	{
		scripts.GET("", handler.ListScripts)
		scripts.GET(":name", handler.GetScript)
	}
	triggers := r.Group("/triggers")
	{
		triggers.GET("", handler.ListTriggers)
		triggers.GET(":name", handler.GetTrigger)
	}
}
