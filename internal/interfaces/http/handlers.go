package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/application/workflow"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/container"
	"github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/entity"
	domainwf "github.com/ghxstloner/gest-viaticos-panama-backend/internal/domain/workflow"
	"github.com/ghxstloner/gest-viaticos-panama-backend/pkg/utils"
)

// StageCatalog lists the configured stages
type StageCatalog interface {
	Stages() []*entity.Stage
}

// HealthReporter reports component health
type HealthReporter interface {
	Health(ctx context.Context) *container.HealthStatus
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	engine  workflow.Engine
	stages  StageCatalog
	health  HealthReporter
	logger  Logger
	version string
}

// NewHandlers creates a new Handlers instance
func NewHandlers(engine workflow.Engine, stages StageCatalog, health HealthReporter, logger Logger) *Handlers {
	return &Handlers{
		engine:  engine,
		stages:  stages,
		health:  health,
		logger:  logger,
		version: "1.0.0",
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Class   string      `json:"class,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string                               `json:"status"`
	Timestamp  string                               `json:"timestamp"`
	Version    string                               `json:"version"`
	Components map[string]container.ComponentHealth `json:"components,omitempty"`
}

// ActionRequest is the body of POST /missions/:id/actions
type ActionRequest struct {
	Action  string                 `json:"action" binding:"required"`
	Comment string                 `json:"comment"`
	Payload map[string]interface{} `json:"payload"`
}

// AvailableActionsResponse lists the actions an actor may issue on a mission
type AvailableActionsResponse struct {
	MissionID int64    `json:"mission_id"`
	Actions   []string `json:"actions"`
}

// PageRequest represents paging query parameters
type PageRequest struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
	}

	if h.health != nil {
		status := h.health.Health(c.Request.Context())
		response.Components = status.Components
		if !status.Overall {
			response.Status = "degraded"
			c.JSON(http.StatusServiceUnavailable, Response{Success: false, Data: response})
			return
		}
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// ExecuteAction handles POST /api/v1/missions/:id/actions
func (h *Handlers) ExecuteAction(c *gin.Context) {
	id, ok := h.missionID(c)
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid action request", "mission_id", id, "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body",
		})
		return
	}

	outcome, err := h.engine.Execute(c.Request.Context(), workflow.Command{
		MissionID: id,
		Actor:     actor,
		Action:    domainwf.Action(strings.ToUpper(strings.TrimSpace(req.Action))),
		Comment:   utils.SanitizeString(req.Comment),
		Payload:   req.Payload,
		ClientIP:  c.ClientIP(),
	})
	if err != nil {
		h.writeError(c, "Workflow action failed", err, "mission_id", id, "action", req.Action)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    outcome,
	})
}

// History handles GET /api/v1/missions/:id/history
func (h *Handlers) History(c *gin.Context) {
	id, ok := h.missionID(c)
	if !ok {
		return
	}

	entries, err := h.engine.History(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "Failed to load history", err, "mission_id", id)
		return
	}
	if entries == nil {
		entries = []*entity.HistoryEntry{}
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    entries,
	})
}

// AvailableActions handles GET /api/v1/missions/:id/actions
func (h *Handlers) AvailableActions(c *gin.Context) {
	id, ok := h.missionID(c)
	if !ok {
		return
	}
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	actions, err := h.engine.AvailableActions(c.Request.Context(), id, actor)
	if err != nil {
		h.writeError(c, "Failed to list available actions", err, "mission_id", id)
		return
	}

	names := make([]string, 0, len(actions))
	for _, a := range actions {
		names = append(names, a.String())
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    AvailableActionsResponse{MissionID: id, Actions: names},
	})
}

// Stages handles GET /api/v1/workflow/stages
func (h *Handlers) Stages(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    h.stages.Stages(),
	})
}

// Inbox handles GET /api/v1/workflow/inbox
func (h *Handlers) Inbox(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid query parameters",
		})
		return
	}

	// Set defaults
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	missions, err := h.engine.Inbox(c.Request.Context(), actor, req.Limit, req.Offset)
	if err != nil {
		h.writeError(c, "Failed to load inbox", err, "actor", actor.ID())
		return
	}
	if missions == nil {
		missions = []*entity.Mission{}
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    missions,
	})
}

func (h *Handlers) missionID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		h.logger.Error("Invalid mission ID", "id", idStr)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid mission ID",
		})
		return 0, false
	}
	return id, true
}

func (h *Handlers) actor(c *gin.Context) (entity.Actor, bool) {
	actor, ok := ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, Response{
			Success: false,
			Error:   errMissingToken.Error(),
		})
	}
	return actor, ok
}

// writeError maps the error class onto an HTTP status. Infrastructure
// details are logged but not echoed to the caller.
func (h *Handlers) writeError(c *gin.Context, msg string, err error, keysAndValues ...interface{}) {
	class := domainwf.Classify(err)
	status := StatusFor(err)

	h.logger.Error(msg, append(keysAndValues, "class", class, "error", err)...)

	text := err.Error()
	if class == domainwf.ClassInfrastructure {
		text = "service temporarily unavailable"
	}
	c.JSON(status, Response{
		Success: false,
		Error:   text,
		Class:   class,
	})
}

// StatusFor returns the HTTP status for a workflow error
func StatusFor(err error) int {
	switch domainwf.Classify(err) {
	case domainwf.ClassNone:
		return http.StatusOK
	case domainwf.ClassPermissionDenied:
		return http.StatusForbidden
	case domainwf.ClassInvalidTransition:
		return http.StatusConflict
	case domainwf.ClassValidation:
		return http.StatusUnprocessableEntity
	case domainwf.ClassNotFound:
		return http.StatusNotFound
	case domainwf.ClassConfiguration:
		return http.StatusInternalServerError
	default:
		return http.StatusServiceUnavailable
	}
}
