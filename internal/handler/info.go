package handler

import (
	"net/http"

	"github.com/angeloszaimis/greeting-bff/internal/healthcheck"
)

type configResponse struct {
	Description string `json:"description"`
}

type healthResponse struct {
	Status   string             `json:"status"`
	Upstream healthcheck.Status `json:"upstream"`
}

// UpstreamHealth reports the last health check result.
type UpstreamHealth interface {
	Status() healthcheck.Status
}

// Config serves the page text the UI renders.
func Config(settings Settings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, configResponse{Description: settings.Description(r.Context())})
	}
}

// Health reports liveness. Upstream health is informational and never fails the check.
func Health(upstream UpstreamHealth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := healthcheck.StatusUnknown
		if upstream != nil {
			status = upstream.Status()
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Upstream: status})
	}
}
