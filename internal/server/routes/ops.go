package routes

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fr0stylo/txcommit/internal/app/domain"
	"github.com/fr0stylo/txcommit/internal/app/ports"
)

// Pinger is a dependency readiness depends on.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RequestAcceptor takes new write requests into the pipeline.
type RequestAcceptor interface {
	Accept(ctx context.Context, req domain.WriteRequest) error
}

// OpsRoutes is the operational surface of the pipeline.
type OpsRoutes struct {
	Queue        ports.Queue
	Queues       []string
	Cursors      ports.CursorStore
	CursorName   string
	Statuses     ports.RequestStatusStore
	Intake       RequestAcceptor
	Dependencies map[string]Pinger
	PingTimeout  time.Duration
}

// RegisterRoutes registers health, queue and request endpoints.
func (o *OpsRoutes) RegisterRoutes(s *echo.Echo) {
	s.GET("/healthz", o.handleHealth)
	s.GET("/readyz", o.handleReady)

	api := s.Group("/v1")
	api.GET("/queues", o.handleQueues)
	api.POST("/requests", o.handleAccept)
	api.GET("/requests/:referenceId", o.handleRequestStatus)
}

func (o *OpsRoutes) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (o *OpsRoutes) handleReady(c echo.Context) error {
	timeout := o.PingTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
	defer cancel()

	checks := make(map[string]string, len(o.Dependencies))
	ready := true
	for name, dep := range o.Dependencies {
		if dep == nil {
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			checks[name] = err.Error()
			ready = false
			continue
		}
		checks[name] = "ok"
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "unavailable"
	}
	return c.JSON(status, map[string]any{"status": state, "checks": checks})
}

type queueDepth struct {
	Queue string `json:"queue"`
	Depth int    `json:"depth"`
}

type queuesResponse struct {
	Queues        []queueDepth `json:"queues"`
	FinalityBlock *uint64      `json:"finalityBlock,omitempty"`
}

func (o *OpsRoutes) handleQueues(c echo.Context) error {
	ctx := c.Request().Context()
	names := append([]string(nil), o.Queues...)
	if len(names) == 0 {
		names = append(names, domain.Queues...)
	}

	resp := queuesResponse{Queues: make([]queueDepth, 0, len(names))}
	for _, name := range names {
		depth, err := o.Queue.Depth(ctx, name)
		if err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		resp.Queues = append(resp.Queues, queueDepth{Queue: name, Depth: depth})
	}

	if o.Cursors != nil && o.CursorName != "" {
		block, ok, err := o.Cursors.LoadCursor(ctx, o.CursorName)
		if err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
		}
		if ok {
			resp.FinalityBlock = &block
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (o *OpsRoutes) handleAccept(c echo.Context) error {
	if o.Intake == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "intake disabled")
	}
	var req domain.WriteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := o.Intake.Accept(c.Request().Context(), req); err != nil {
		if errors.Is(err, domain.ErrMalformedCall) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusAccepted, map[string]string{"referenceId": req.ID, "state": string(domain.RequestAccepted)})
}

func (o *OpsRoutes) handleRequestStatus(c echo.Context) error {
	ref := strings.TrimSpace(c.Param("referenceId"))
	if ref == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "referenceId is required")
	}
	status, err := o.Statuses.GetStatus(c.Request().Context(), ref)
	if errors.Is(err, domain.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "unknown reference")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusOK, status)
}
