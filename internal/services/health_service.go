package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"
)

// RunStatusSource is the part of IntelService the health checks read
type RunStatusSource interface {
	LastRun() (RunInfo, bool)
	Running() bool
	ArchiveEnabled() bool
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	outputDir string
	runs      RunStatusSource
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a new health service
func NewHealthService(version, outputDir string, runs RunStatusSource, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		outputDir: outputDir,
		runs:      runs,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck reports ready once a result has been published
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]interface{}{
			"results": hs.checkResults(),
			"reports": hs.checkReports(),
			"archive": hs.checkArchive(),
		},
	}

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status == "not_ready" {
			status.Status = "not_ready"
			break
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	return map[string]interface{}{
		"version":    hs.version,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"uptime":     time.Since(hs.startTime).Seconds(),
		"start_time": hs.startTime.Format(time.RFC3339),
	}
}

func (hs *HealthService) checkResults() ServiceHealth {
	if hs.runs == nil {
		return ServiceHealth{Status: "not_ready", Message: "intel service not initialized"}
	}
	last, ok := hs.runs.LastRun()
	switch {
	case ok:
		return ServiceHealth{
			Status:  "ready",
			Message: fmt.Sprintf("run %s as of %s, %d establishments", last.RunID, last.AsOf, last.Establishments),
		}
	case hs.runs.Running():
		return ServiceHealth{Status: "not_ready", Message: "first run in progress"}
	default:
		return ServiceHealth{Status: "not_ready", Message: "no completed run"}
	}
}

func (hs *HealthService) checkReports() ServiceHealth {
	if hs.outputDir == "" {
		return ServiceHealth{Status: "disabled"}
	}
	info, err := os.Stat(hs.outputDir)
	if os.IsNotExist(err) {
		// created on the first export
		return ServiceHealth{Status: "ready", Message: "report directory not created yet"}
	}
	if err != nil || !info.IsDir() {
		return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("report directory unusable: %s", hs.outputDir)}
	}
	return ServiceHealth{Status: "ready"}
}

func (hs *HealthService) checkArchive() ServiceHealth {
	if hs.runs == nil || !hs.runs.ArchiveEnabled() {
		return ServiceHealth{Status: "disabled"}
	}
	return ServiceHealth{Status: "ready"}
}
