package api

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/seenimoa/reporate/internal/export"
	"github.com/seenimoa/reporate/internal/rangefilter"
	"github.com/seenimoa/reporate/internal/regime"
	"github.com/seenimoa/reporate/internal/view"
	"github.com/seenimoa/reporate/pkg/models"
	"github.com/seenimoa/reporate/pkg/utils"
)

// ============================================================
// Snapshot
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	v := s.View()
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"status":   "ok",
			"version":  Version,
			"snapshot": v.DisplayID(),
			"time":     utils.FormatDateTimeIST(s.clock()),
		},
	})
}

// SnapshotInfo describes the loaded snapshot and any regime tiling issues.
type SnapshotInfo struct {
	ID           string               `json:"id"`
	Meta         models.SnapshotMeta  `json:"meta"`
	Observations int                  `json:"observations"`
	Events       int                  `json:"events"`
	Regimes      int                  `json:"regimes"`
	TilingIssues []regime.TilingIssue `json:"tiling_issues"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	v := s.View()
	issues := v.TilingIssues()
	if issues == nil {
		issues = []regime.TilingIssue{}
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: SnapshotInfo{
			ID:           v.DisplayID(),
			Meta:         v.Meta(),
			Observations: len(v.Observations()),
			Events:       len(v.Events()),
			Regimes:      len(v.Regimes()),
			TilingIssues: issues,
		},
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: s.View().Summary()})
}

// PresetRange is one quick-select range resolved against today.
type PresetRange struct {
	Preset rangefilter.Preset `json:"preset"`
	Range  models.DateRange   `json:"range"`
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	v := s.View()
	out := make([]PresetRange, 0, len(rangefilter.Presets))
	for _, p := range rangefilter.Presets {
		dr, err := v.Presets(p)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		out = append(out, PresetRange{Preset: p, Range: dr})
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: out})
}

// ============================================================
// Windows
// ============================================================

// rangeFromQuery reads ?preset= or ?start=&end=. A preset wins over
// explicit bounds; no parameters at all means the whole series.
func (s *Server) rangeFromQuery(r *http.Request) (models.DateRange, error) {
	q := r.URL.Query()
	if p := strings.TrimSpace(q.Get("preset")); p != "" {
		preset, err := rangefilter.ParsePreset(p)
		if err != nil {
			return models.DateRange{}, err
		}
		if preset != rangefilter.PresetCustom {
			return s.View().Presets(preset)
		}
	}
	return rangefilter.ParseRange(q.Get("start"), q.Get("end"))
}

// window filters the current view for the request, caching by range key.
func (s *Server) window(r *http.Request) (view.Window, error) {
	dr, err := s.rangeFromQuery(r)
	if err != nil {
		return view.Window{}, err
	}
	v := s.View()
	key := v.DisplayID() + "|" + dr.Key()
	return s.windows.GetOrCompute(key, func() view.Window {
		return v.Filter(dr)
	}), nil
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	win, err := s.window(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: win})
}

func (s *Server) handleChanges(w http.ResponseWriter, r *http.Request) {
	win, err := s.window(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: nonNil(win.RateChanges)})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	win, err := s.window(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: nonNil(win.Events)})
}

func (s *Server) handleRegimes(w http.ResponseWriter, r *http.Request) {
	win, err := s.window(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: nonNil(win.Regimes)})
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	win, err := s.window(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, win); err != nil {
		s.log.Error().Err(err).Msg("csv export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(win.Range)+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck
}

// ============================================================
// Cycles
// ============================================================

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: nonNil(s.View().Cycles())})
}

func (s *Server) handleCompareCycles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	labelA, labelB := strings.TrimSpace(q.Get("a")), strings.TrimSpace(q.Get("b"))
	if labelA == "" || labelB == "" {
		writeError(w, http.StatusBadRequest, "query parameters 'a' and 'b' are required")
		return
	}
	v := s.View()
	a, ok := v.Cycle(labelA)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown cycle: "+labelA)
		return
	}
	b, ok := v.Cycle(labelB)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown cycle: "+labelB)
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: regime.Compare(a, b)})
}

// ============================================================
// Correlation
// ============================================================

func (s *Server) handleCorrelate(w http.ResponseWriter, r *http.Request) {
	d, err := utils.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	v := s.View()
	lookup := v.Correlate
	if r.URL.Query().Get("nearest") == "true" {
		lookup = v.CorrelateNearest
	}
	insp, err := lookup(d)
	if errors.Is(err, view.ErrNoObservation) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: insp})
}

// nonNil keeps empty collections encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
