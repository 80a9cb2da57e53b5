package adminapi

import (
	"encoding/json"
	"net/http"
	"time"
)

type handlers struct {
	opts Options
}

type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// healthz is a liveness probe: it reports healthy as long as the process is
// serving requests, regardless of dependency state.
func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "ok",
		Version:       h.opts.Version,
		UptimeSeconds: int64(time.Since(h.opts.StartTime).Seconds()),
	})
}

type readyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// readyz is a readiness probe: it reports the Store's reachability, since
// that is the one dependency every operation ultimately needs.
func (h *handlers) readyz(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	status := http.StatusOK

	if h.opts.Store == nil {
		checks["store"] = "not_configured"
	} else if err := h.opts.Store.HealthCheck(r.Context()); err != nil {
		checks["store"] = "error: " + err.Error()
		status = http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	resp := readyResponse{Checks: checks}
	if status == http.StatusOK {
		resp.Status = "ready"
	} else {
		resp.Status = "not_ready"
	}
	writeJSON(w, status, resp)
}

type busDebugResponse struct {
	SubscriberCount int    `json:"subscriber_count"`
	Dropped         uint64 `json:"dropped"`
}

func (h *handlers) debugBus(w http.ResponseWriter, r *http.Request) {
	if h.opts.Bus == nil {
		writeJSON(w, http.StatusOK, busDebugResponse{})
		return
	}
	writeJSON(w, http.StatusOK, busDebugResponse{
		SubscriberCount: h.opts.Bus.SubscriberCount(),
		Dropped:         h.opts.Bus.Dropped(),
	})
}

func (h *handlers) debugSources(w http.ResponseWriter, r *http.Request) {
	if h.opts.Sources == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, h.opts.Sources.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
