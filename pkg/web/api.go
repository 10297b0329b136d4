package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/trunkstat/trunkstat/pkg/database"
	"github.com/trunkstat/trunkstat/pkg/logger"
	"github.com/trunkstat/trunkstat/pkg/metrics"
)

// API handles REST API endpoints
type API struct {
	logger     *logger.Logger
	events     *database.EventRepository
	talkgroups *database.TalkgroupRepository
	collector  *metrics.Collector
	started    time.Time
}

// NewAPI creates a new API instance
func NewAPI(log *logger.Logger) *API {
	return &API{
		logger:  log,
		started: time.Now(),
	}
}

// WithRepositories attaches the event and alias repositories
func (a *API) WithRepositories(events *database.EventRepository, talkgroups *database.TalkgroupRepository) *API {
	a.events = events
	a.talkgroups = talkgroups
	return a
}

// WithCollector attaches the metrics collector
func (a *API) WithCollector(c *metrics.Collector) *API {
	a.collector = c
	return a
}

func (a *API) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Warn("Failed to encode API response", logger.Error(err))
	}
}

// HandleStatus handles the /api/status endpoint
func (a *API) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	version, commit, _ := GetVersionInfo()
	response := map[string]interface{}{
		"status":         "running",
		"service":        "trunkstat",
		"version":        version,
		"commit":         commit,
		"uptime_seconds": int64(time.Since(a.started).Seconds()),
	}

	if a.collector != nil {
		response["packets_received"] = a.collector.GetStatusReceived()
		response["decode_errors"] = a.collector.GetDecodeErrors()
	}
	if a.events != nil {
		if count, err := a.events.Count(); err == nil {
			response["events_stored"] = count
		}
	}

	a.writeJSON(w, response)
}

// HandleEvents handles the /api/events endpoint.
// Supports ?limit=N (default 50) and ?radio_id=N filters.
func (a *API) HandleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.events == nil {
		a.writeJSON(w, []interface{}{})
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	var (
		events []database.StatusEvent
		err    error
	)
	if raw := r.URL.Query().Get("radio_id"); raw != "" {
		radioID, parseErr := strconv.ParseUint(raw, 10, 32)
		if parseErr != nil {
			http.Error(w, "invalid radio_id", http.StatusBadRequest)
			return
		}
		events, err = a.events.ByRadio(uint32(radioID), limit)
	} else {
		events, err = a.events.Recent(limit)
	}
	if err != nil {
		a.logger.Error("Failed to query events", logger.Error(err))
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}

	a.writeJSON(w, events)
}

// HandleTalkgroups handles the /api/talkgroups endpoint
func (a *API) HandleTalkgroups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.talkgroups == nil {
		a.writeJSON(w, []interface{}{})
		return
	}

	aliases, err := a.talkgroups.All()
	if err != nil {
		a.logger.Error("Failed to query talkgroups", logger.Error(err))
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}

	a.writeJSON(w, aliases)
}

// HandleActivity handles the /api/activity endpoint: event counts by kind
func (a *API) HandleActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.events == nil {
		a.writeJSON(w, map[string]int64{})
		return
	}

	counts, err := a.events.CountByKind()
	if err != nil {
		a.logger.Error("Failed to count events", logger.Error(err))
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}

	a.writeJSON(w, counts)
}
