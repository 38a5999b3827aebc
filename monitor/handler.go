// Package monitor provides the HTTP and WebSocket surface of the bridge.
package monitor

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ftl/tc1000/control"
	"github.com/ftl/tc1000/tc"
)

// Controls is what the monitor needs from the consumer.
type Controls interface {
	Snapshot() control.Snapshot
	RequestSetpoint(value float64, unit tc.Unit) error
	RequestUnitToggle(unit tc.Unit) error
	RequestPortChange(port string, baudRate int) error
	RequestHistoryReset() error
}

const (
	statusOK       = "ok"
	statusAccepted = "accepted"
)

type Handler struct {
	controls Controls
	logger   *zap.SugaredLogger
}

func NewHandler(controls Controls, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		controls: controls,
		logger:   logger.Named("monitor"),
	}
}

// InitRoutes builds the router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", h.health)

	api := router.Group("/api/v1")
	{
		api.GET("/state", h.getState)
		api.GET("/ports", h.getPorts)
		// Body example: {"value":31,"unit":"C"}
		api.POST("/setpoint", h.setpoint)
		// Body example: {"unit":"F"}
		api.POST("/unit", h.setUnit)
		// Body example: {"port":"/dev/ttyUSB0","baud":9600}
		api.POST("/port", h.setPort)
		api.DELETE("/history", h.resetHistory)
	}

	router.GET("/ws", h.wsConnect)

	return router
}

type setpointRequest struct {
	Value *float64 `json:"value" binding:"required"`
	Unit  *tc.Unit `json:"unit,omitempty"`
}

type unitRequest struct {
	Unit *tc.Unit `json:"unit" binding:"required"`
}

type portRequest struct {
	Port string `json:"port" binding:"required"`
	Baud int    `json:"baud,omitempty"`
}

func (h *Handler) health(c *gin.Context) {
	snapshot := h.controls.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"status":     statusOK,
		"connection": snapshot.State,
	})
}

func (h *Handler) getState(c *gin.Context) {
	c.JSON(http.StatusOK, h.controls.Snapshot())
}

func (h *Handler) getPorts(c *gin.Context) {
	snapshot := h.controls.Snapshot()
	ports := snapshot.Ports
	if ports == nil {
		ports = []string{}
	}
	c.JSON(http.StatusOK, gin.H{
		"ports":    ports,
		"selected": snapshot.SelectedPort,
	})
}

func (h *Handler) setpoint(c *gin.Context) {
	var request setpointRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.badRequest(c, err)
		return
	}
	unit := h.controls.Snapshot().DisplayUnit
	if request.Unit != nil {
		unit = *request.Unit
	}
	h.respond(c, h.controls.RequestSetpoint(*request.Value, unit))
}

func (h *Handler) setUnit(c *gin.Context) {
	var request unitRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.badRequest(c, err)
		return
	}
	h.respond(c, h.controls.RequestUnitToggle(*request.Unit))
}

func (h *Handler) setPort(c *gin.Context) {
	var request portRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.badRequest(c, err)
		return
	}
	if request.Baud < 0 {
		h.badRequest(c, errors.New("negative baud rate"))
		return
	}
	h.respond(c, h.controls.RequestPortChange(request.Port, request.Baud))
}

func (h *Handler) resetHistory(c *gin.Context) {
	h.respond(c, h.controls.RequestHistoryReset())
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	h.logger.Debugw("Invalid request", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
}

func (h *Handler) respond(c *gin.Context, err error) {
	switch {
	case errors.Is(err, control.ErrIntentQueueFull):
		h.logger.Warnw("Request rejected", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case err != nil:
		h.badRequest(c, err)
	default:
		c.JSON(http.StatusAccepted, gin.H{"status": statusAccepted})
	}
}
