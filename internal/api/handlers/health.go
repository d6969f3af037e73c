package handlers

import (
	"context"
	"encoding/json"
	"net/http"
)

// Pinger reports backend connectivity, e.g. *cache.TokenStore.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	redis  Pinger
	speech interface{ Configured() bool }
}

func NewHealthHandler(rdb Pinger, relay interface{ Configured() bool }) *HealthHandler {
	return &HealthHandler{redis: rdb, speech: relay}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}

	if h.speech != nil {
		if h.speech.Configured() {
			checks["speech"] = "ok"
		} else {
			checks["speech"] = "unhealthy: missing credentials"
		}
	}

	if h.redis != nil {
		if err := h.redis.Ping(r.Context()); err != nil {
			checks["redis"] = "unhealthy: " + err.Error()
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	for _, v := range checks {
		if v != "ok" {
			status = http.StatusServiceUnavailable
			break
		}
	}

	writeJSON(w, status, map[string]interface{}{"status": statusStr(status), "checks": checks})
}

func statusStr(code int) string {
	if code == http.StatusOK {
		return "ok"
	}
	return "unhealthy"
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
