package server

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/ecowash/internal/config"
	"github.com/aristath/ecowash/internal/database"
	"github.com/aristath/ecowash/internal/di"
	"github.com/aristath/ecowash/internal/scheduler"
	"github.com/aristath/ecowash/internal/version"
)

// SystemStatusResponse represents system status
type SystemStatusResponse struct {
	Status        string          `json:"status"`
	Version       string          `json:"version"`
	Commit        string          `json:"commit"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	CPUPercent    float64         `json:"cpu_percent"`
	MemoryPercent float64         `json:"memory_percent"`
	RecipeSource  string          `json:"recipe_source"`
	RecipeCount   int             `json:"recipe_count"`
	SMTPEnabled   bool            `json:"smtp_enabled"`
	BackupEnabled bool            `json:"backup_enabled"`
	Database      *database.Stats `json:"database,omitempty"`
	Jobs          []string        `json:"jobs"`
	Warnings      []string        `json:"warnings,omitempty"`
}

// SystemHandlers handles system-wide monitoring and operations endpoints
type SystemHandlers struct {
	cfg       *config.Config
	container *di.Container
	log       zerolog.Logger
	startedAt time.Time

	// sampleUsage is replaced in tests
	sampleUsage func() (float64, float64)
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(cfg *config.Config, container *di.Container, log zerolog.Logger) *SystemHandlers {
	h := &SystemHandlers{
		cfg:       cfg,
		container: container,
		log:       log.With().Str("handler", "system").Logger(),
		startedAt: time.Now(),
	}
	h.sampleUsage = h.getSystemStats
	return h
}

// HandleSystemStatus returns the process, database and integration state
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	response := SystemStatusResponse{
		Status:        "healthy",
		Version:       version.Version,
		Commit:        version.Commit,
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		Jobs:          []string{},
	}
	response.CPUPercent, response.MemoryPercent = h.sampleUsage()

	if h.cfg != nil {
		response.SMTPEnabled = h.cfg.SMTPEnabled()
	}
	response.BackupEnabled = h.container.BackupService != nil

	if h.container.RecipeSource != nil {
		response.RecipeSource = h.container.RecipeSource.Describe()
	}
	if h.container.RecipeCatalog != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		names, err := h.container.RecipeCatalog.List(ctx)
		cancel()
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to list recipes")
			response.Status = "degraded"
			response.Warnings = append(response.Warnings, "recipes unavailable")
		}
		response.RecipeCount = len(names)
	}

	if h.container.HistoryDB != nil {
		stats, err := h.container.HistoryDB.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to get history database stats")
			response.Status = "degraded"
			response.Warnings = append(response.Warnings, "history database stats unavailable")
		} else {
			response.Database = stats
		}
	}

	if h.container.Scheduler != nil {
		response.Jobs = h.container.Scheduler.JobNames()
		sort.Strings(response.Jobs)
	}

	writeJSON(w, http.StatusOK, response, h.log)
}

// HandleListJobs returns the registered scheduler jobs
func (h *SystemHandlers) HandleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := []string{}
	if h.container.Scheduler != nil {
		jobs = h.container.Scheduler.JobNames()
		sort.Strings(jobs)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"jobs":    jobs,
	}, h.log)
}

// HandleRunJob triggers a registered job immediately
// POST /api/system/jobs/{name}
func (h *SystemHandlers) HandleRunJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if h.container.Scheduler == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"success": false,
			"error":   "Scheduler unavailable",
		}, h.log)
		return
	}

	if err := h.container.Scheduler.RunByName(name); err != nil {
		status := http.StatusInternalServerError
		message := "Job failed"
		if errors.Is(err, scheduler.ErrUnknownJob) {
			status = http.StatusNotFound
			message = "Job not found"
		} else {
			h.log.Error().Err(err).Str("job", name).Msg("Manually triggered job failed")
		}
		writeJSON(w, status, map[string]interface{}{
			"success": false,
			"error":   message,
		}, h.log)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Job completed",
		"job":     name,
	}, h.log)
}

// getSystemStats samples CPU over 100ms so the endpoint stays responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
