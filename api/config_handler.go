package api

import (
	"net/http"

	"github.com/seenimoa/reporate/internal/config"
	"github.com/seenimoa/reporate/internal/infra"
)

// ConfigResponse is the JSON envelope returned by GET /api/v1/config.
type ConfigResponse struct {
	Config *config.Config      `json:"config"`
	Paths  []config.PathStatus `json:"paths"`
	Cache  infra.CacheStats    `json:"cache"`
}

// handleGetConfig returns the running configuration, where its paths came
// from, and window cache counters.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config: s.cfg,
			Paths:  config.CheckPaths(s.cfg),
			Cache:  s.windows.Stats(),
		},
	})
}
