package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"scriptify/internal/automation"
	"scriptify/internal/metrics"
	"scriptify/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RunPublisher receives finished run records (e.g. the websocket feed).
type RunPublisher interface {
	PublishRun(run models.AutomationRun)
}

// AutomationService manages automation instances and executes their
// script hooks when triggers fire.
type AutomationService struct {
	db       *gorm.DB
	scripts  *automation.ScriptRegistry
	triggers *automation.TriggerRegistry
	logger   *logrus.Logger
	feed     RunPublisher
}

func NewAutomationService(db *gorm.DB, scripts *automation.ScriptRegistry, triggers *automation.TriggerRegistry, logger *logrus.Logger) *AutomationService {
	if logger == nil {
		logger = logrus.New()
	}
	return &AutomationService{db: db, scripts: scripts, triggers: triggers, logger: logger}
}

// SetRunPublisher wires the optional run feed.
func (s *AutomationService) SetRunPublisher(feed RunPublisher) { s.feed = feed }

// AutomationCreateRequest creates one automation instance.
type AutomationCreateRequest struct {
	Name         string            `json:"name" binding:"required"`
	Script       string            `json:"script" binding:"required"`
	Trigger      string            `json:"trigger"`
	TriggerState map[string]any    `json:"trigger_state"`
	FieldValues  map[string]string `json:"field_values"`
	Enabled      *bool             `json:"enabled"`
}

// AutomationUpdateRequest patches an instance.
type AutomationUpdateRequest struct {
	Name         *string            `json:"name"`
	Trigger      *string            `json:"trigger"`
	TriggerState *map[string]any    `json:"trigger_state"`
	FieldValues  *map[string]string `json:"field_values"`
	Enabled      *bool              `json:"enabled"`
}

func (s *AutomationService) List(ctx context.Context) ([]models.Automation, error) {
	var automations []models.Automation
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&automations).Error; err != nil {
		return nil, err
	}
	return automations, nil
}

func (s *AutomationService) Get(ctx context.Context, id uint) (*models.Automation, error) {
	var a models.Automation
	if err := s.db.WithContext(ctx).First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("automation %d: %w", id, automation.ErrNotFound)
		}
		return nil, err
	}
	return &a, nil
}

// Create validates the request against the registries and stores the
// instance. A forced triggerable on the script overrides any trigger
// selection in the request.
func (s *AutomationService) Create(ctx context.Context, req *AutomationCreateRequest) (*models.Automation, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	def, err := s.scripts.Get(req.Script)
	if err != nil {
		return nil, err
	}
	if err := s.validateFieldNames(def, req.FieldValues); err != nil {
		return nil, err
	}

	triggerName := req.Trigger
	triggerState := req.TriggerState
	if forced := def.ForcedTriggerable(); forced != nil {
		triggerName = forced.Triggerable
		triggerState = forced.State
	} else if triggerName != "" {
		if _, err := s.triggers.Get(triggerName); err != nil {
			return nil, err
		}
	}

	stateJSON, err := json.Marshal(triggerState)
	if err != nil {
		return nil, fmt.Errorf("invalid trigger state: %w", err)
	}
	fieldsJSON, err := json.Marshal(req.FieldValues)
	if err != nil {
		return nil, fmt.Errorf("invalid field values: %w", err)
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	a := &models.Automation{
		Name:         req.Name,
		ScriptName:   req.Script,
		TriggerName:  triggerName,
		TriggerState: string(stateJSON),
		FieldValues:  string(fieldsJSON),
		Enabled:      enabled,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AutomationService) Update(ctx context.Context, id uint, req *AutomationUpdateRequest) (*models.Automation, error) {
	if req == nil {
		return nil, errors.New("request required")
	}
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	def, err := s.scripts.Get(a.ScriptName)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		a.Name = *req.Name
	}
	if req.Trigger != nil && def.ForcedTriggerable() == nil {
		if _, err := s.triggers.Get(*req.Trigger); err != nil {
			return nil, err
		}
		a.TriggerName = *req.Trigger
	}
	if req.TriggerState != nil && def.ForcedTriggerable() == nil {
		stateJSON, err := json.Marshal(*req.TriggerState)
		if err != nil {
			return nil, fmt.Errorf("invalid trigger state: %w", err)
		}
		a.TriggerState = string(stateJSON)
	}
	if req.FieldValues != nil {
		if err := s.validateFieldNames(def, *req.FieldValues); err != nil {
			return nil, err
		}
		fieldsJSON, err := json.Marshal(*req.FieldValues)
		if err != nil {
			return nil, fmt.Errorf("invalid field values: %w", err)
		}
		a.FieldValues = string(fieldsJSON)
	}
	if req.Enabled != nil {
		a.Enabled = *req.Enabled
	}
	a.UpdatedAt = time.Now()
	if err := s.db.WithContext(ctx).Save(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AutomationService) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Automation{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("automation %d: %w", id, automation.ErrNotFound)
	}
	return nil
}

// EffectiveTrigger resolves the trigger binding an instance actually
// runs with: the script's forced triggerable when set, otherwise the
// instance row.
func (s *AutomationService) EffectiveTrigger(def *automation.ScriptDefinition, a *models.Automation) (string, map[string]any) {
	if forced := def.ForcedTriggerable(); forced != nil {
		return forced.Triggerable, forced.State
	}
	state := map[string]any{}
	if a.TriggerState != "" {
		if err := json.Unmarshal([]byte(a.TriggerState), &state); err != nil {
			s.logger.Warnf("automation: invalid trigger state on %d: %v", a.ID, err)
		}
	}
	return a.TriggerName, state
}

// Fire runs every enabled automation whose effective trigger matches
// triggerName. Event entries overlay the instance's trigger state for
// this run only (e.g. the joining username on user_joined). Individual
// failures are recorded and do not stop the remaining instances.
// Returns the number of instances run.
func (s *AutomationService) Fire(ctx context.Context, triggerName string, event map[string]any) (int, error) {
	if _, err := s.triggers.Get(triggerName); err != nil {
		return 0, err
	}

	var automations []models.Automation
	if err := s.db.WithContext(ctx).Where("enabled = ?", true).Find(&automations).Error; err != nil {
		return 0, err
	}

	fired := 0
	for i := range automations {
		a := &automations[i]
		def, err := s.scripts.Get(a.ScriptName)
		if err != nil {
			s.logger.Warnf("automation: %d references unknown script %q", a.ID, a.ScriptName)
			continue
		}
		effective, _ := s.EffectiveTrigger(def, a)
		if effective != triggerName {
			continue
		}
		if err := s.runOne(ctx, a, event); err != nil {
			s.logger.Warnf("automation: run %d (%s) failed: %v", a.ID, a.ScriptName, err)
		}
		fired++
	}
	return fired, nil
}

// RunOne executes one instance's run hook and records the outcome.
func (s *AutomationService) RunOne(ctx context.Context, a *models.Automation) error {
	return s.runOne(ctx, a, nil)
}

func (s *AutomationService) runOne(ctx context.Context, a *models.Automation, event map[string]any) error {
	def, err := s.scripts.Get(a.ScriptName)
	if err != nil {
		return err
	}
	run := s.buildRun(def, a)
	for k, v := range event {
		run.State[k] = v
	}

	hookErr := def.Run(ctx, run)
	status, message := "success", ""
	if hookErr != nil {
		status, message = "failed", hookErr.Error()
	}
	s.recordRun(ctx, a, run.Trigger, status, message)
	metrics.AutomationRuns.WithLabelValues(a.ScriptName, status).Inc()

	now := time.Now()
	if err := s.db.WithContext(ctx).Model(&models.Automation{}).
		Where("id = ?", a.ID).
		Update("last_run_at", now).Error; err != nil {
		s.logger.Warnf("automation: update last_run_at for %d: %v", a.ID, err)
	}
	return hookErr
}

// Reset executes the instance's onReset hook.
func (s *AutomationService) Reset(ctx context.Context, id uint) error {
	a, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	def, err := s.scripts.Get(a.ScriptName)
	if err != nil {
		return err
	}
	run := s.buildRun(def, a)

	hookErr := def.OnReset(ctx, run)
	status, message := "reset", ""
	if hookErr != nil {
		status, message = "failed", hookErr.Error()
	}
	s.recordRun(ctx, a, run.Trigger, status, message)
	return hookErr
}

// ListRuns returns recent run records for one instance, newest first.
func (s *AutomationService) ListRuns(ctx context.Context, automationID uint, limit int) ([]models.AutomationRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []models.AutomationRun
	if err := s.db.WithContext(ctx).
		Where("automation_id = ?", automationID).
		Order("id DESC").Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (s *AutomationService) buildRun(def *automation.ScriptDefinition, a *models.Automation) *automation.Run {
	trigger, state := s.EffectiveTrigger(def, a)
	fields := map[string]string{}
	if a.FieldValues != "" {
		if err := json.Unmarshal([]byte(a.FieldValues), &fields); err != nil {
			s.logger.Warnf("automation: invalid field values on %d: %v", a.ID, err)
		}
	}
	return &automation.Run{
		AutomationID:   a.ID,
		AutomationName: a.Name,
		Trigger:        trigger,
		State:          state,
		Fields:         fields,
	}
}

func (s *AutomationService) recordRun(ctx context.Context, a *models.Automation, trigger, status, message string) {
	run := models.AutomationRun{
		AutomationID: a.ID,
		ScriptName:   a.ScriptName,
		TriggerName:  trigger,
		Status:       status,
		Message:      message,
		CreatedAt:    time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		s.logger.Warnf("automation: record run failed: %v", err)
		return
	}
	if s.feed != nil {
		s.feed.PublishRun(run)
	}
}

func (s *AutomationService) validateFieldNames(def *automation.ScriptDefinition, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	known := map[string]struct{}{}
	for _, f := range def.Fields() {
		known[f.Name] = struct{}{}
	}
	for name := range values {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("unknown field %q for script %q", name, def.Name())
		}
	}
	return nil
}
