package system

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"voicebridge-server-go/internal/platform/logging"
	"voicebridge-server-go/internal/session"
	"voicebridge-server-go/internal/stats"
	httptransport "voicebridge-server-go/internal/transport/http"
)

// Service reports process and host health for operators.
type Service struct {
	logger    *logging.Logger
	registry  *session.Registry
	collector *stats.Collector
	wsCount   func() int
	startedAt time.Time
}

// NewService creates the system status HTTP service. registry, collector and
// wsCount may each be nil when that surface is not running.
func NewService(logger *logging.Logger, registry *session.Registry, collector *stats.Collector, wsCount func() int) *Service {
	return &Service{
		logger:    logger,
		registry:  registry,
		collector: collector,
		wsCount:   wsCount,
		startedAt: time.Now(),
	}
}

// Register wires the system routes into the API group.
func (s *Service) Register(ctx context.Context, router *gin.RouterGroup) error {
	router.GET("/system/status", s.handleStatus)

	s.logger.InfoTag("HTTP", "system service routes registered")
	return nil
}

type statusResponse struct {
	UptimeSeconds int64           `json:"uptimeSeconds"`
	Goroutines    int             `json:"goroutines"`
	CPUPercent    float64         `json:"cpuPercent"`
	MemoryPercent float64         `json:"memoryPercent"`
	MemoryUsedMB  uint64          `json:"memoryUsedMb"`
	Sessions      int             `json:"sessions"`
	Connections   int             `json:"connections"`
	Stream        *stats.Snapshot `json:"stream,omitempty"`
}

func (s *Service) handleStatus(c *gin.Context) {
	resp := statusResponse{
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		resp.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		resp.MemoryPercent = vm.UsedPercent
		resp.MemoryUsedMB = vm.Used >> 20
	}

	if s.registry != nil {
		resp.Sessions = s.registry.Count()
	}
	if s.wsCount != nil {
		resp.Connections = s.wsCount()
	}
	if s.collector != nil {
		snapshot := s.collector.Snapshot()
		resp.Stream = &snapshot
	}

	httptransport.RespondSuccess(c, http.StatusOK, resp, "")
}
