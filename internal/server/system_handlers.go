package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/arlen/stockpilot/internal/api"
	"github.com/arlen/stockpilot/internal/database"
)

// BudgetReporter reports the provider requests left today.
type BudgetReporter interface {
	RemainingBudget() int
}

// SystemHandlers serves operational status endpoints.
type SystemHandlers struct {
	db        *database.DB
	budget    BudgetReporter
	startedAt time.Time
	log       zerolog.Logger
}

// NewSystemHandlers creates the system status handlers.
func NewSystemHandlers(db *database.DB, budget BudgetReporter, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		db:        db,
		budget:    budget,
		startedAt: time.Now().UTC(),
		log:       log.With().Str("handler", "system").Logger(),
	}
}

// HandleStatus returns process, host and database health.
// GET /api/system/status
func (h *SystemHandlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	cpuAvg, ramPercent := h.systemStats()

	status := map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"cpu_percent":    cpuAvg,
		"ram_percent":    ramPercent,
		"provider": map[string]interface{}{
			"remaining_requests": h.budget.RemainingBudget(),
		},
	}

	if stats, err := h.db.GetStats(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to read database stats")
	} else {
		status["database"] = stats
	}

	api.WriteJSON(w, h.log, http.StatusOK, status)
}

// systemStats samples CPU and RAM usage percentages. The short sampling
// interval keeps the endpoint responsive.
func (h *SystemHandlers) systemStats() (float64, float64) {
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
