package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"scriptify/internal/automation"
	"scriptify/internal/models"
	"scriptify/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Automation{}, &models.AutomationRun{}))
	return db
}

func newAutomationRouter(t *testing.T) (*gin.Engine, *services.AutomationService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newHandlerTestDB(t)
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	scriptReg := automation.NewScriptRegistry()
	triggerReg := automation.NewTriggerRegistry()
	require.NoError(t, triggerReg.Add("post_created", func(b *automation.TriggerBuilder) {}))
	require.NoError(t, scriptReg.Add("echo", func(b *automation.ScriptBuilder) {
		b.Field("text", automation.FieldSpec{Component: automation.ComponentText})
		b.Script(func(ctx context.Context, run *automation.Run) error { return nil })
	}))

	svc := services.NewAutomationService(db, scriptReg, triggerReg, logger)
	r := gin.New()
	api := r.Group("/api")
	RegisterAutomationRoutes(api, NewAutomationHandler(svc))
	return r, svc
}

func postJSON(t *testing.T, r *gin.Engine, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(payload)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestAutomationHandler_CreateAndGet(t *testing.T) {
	r, _ := newAutomationRouter(t)

	w := postJSON(t, r, "/api/automations", map[string]any{
		"name":         "greet",
		"script":       "echo",
		"trigger":      "post_created",
		"field_values": map[string]string{"text": "hi"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created models.Automation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotZero(t, created.ID)
	assert.True(t, created.Enabled)

	w2 := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/automations/1", nil)
	r.ServeHTTP(w2, req)
	assert.Equal(t, http.StatusOK, w2.Code, w2.Body.String())
}

func TestAutomationHandler_CreateUnknownScript404(t *testing.T) {
	r, _ := newAutomationRouter(t)
	w := postJSON(t, r, "/api/automations", map[string]any{
		"name":   "x",
		"script": "missing",
	})
	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
}

func TestAutomationHandler_CreateMissingName400(t *testing.T) {
	r, _ := newAutomationRouter(t)
	w := postJSON(t, r, "/api/automations", map[string]any{"script": "echo"})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestAutomationHandler_GetMissing404(t *testing.T) {
	r, _ := newAutomationRouter(t)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/automations/42", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
}

func TestAutomationHandler_FireAndRuns(t *testing.T) {
	r, _ := newAutomationRouter(t)

	w := postJSON(t, r, "/api/automations", map[string]any{
		"name": "greet", "script": "echo", "trigger": "post_created",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = postJSON(t, r, "/api/automations/fire", map[string]any{"trigger": "post_created"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	w2 := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/automations/1/runs", nil)
	r.ServeHTTP(w2, req)
	require.Equal(t, http.StatusOK, w2.Code, w2.Body.String())

	var runs []models.AutomationRun
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "success", runs[0].Status)
}

func TestAutomationHandler_FireUnknownTrigger404(t *testing.T) {
	r, _ := newAutomationRouter(t)
	w := postJSON(t, r, "/api/automations/fire", map[string]any{"trigger": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
}

func TestAutomationHandler_Delete(t *testing.T) {
	r, _ := newAutomationRouter(t)
	w := postJSON(t, r, "/api/automations", map[string]any{
		"name": "greet", "script": "echo", "trigger": "post_created",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w2 := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/api/automations/1", nil)
	r.ServeHTTP(w2, req)
	assert.Equal(t, http.StatusOK, w2.Code, w2.Body.String())

	w3 := httptest.NewRecorder()
	req2, _ := http.NewRequest(http.MethodDelete, "/api/automations/1", nil)
	r.ServeHTTP(w3, req2)
	assert.Equal(t, http.StatusNotFound, w3.Code, w3.Body.String())
}
