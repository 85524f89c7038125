package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/p-n-ai/gradeview/internal/gradebook"
	"github.com/p-n-ai/gradeview/internal/grades"
	"github.com/p-n-ai/gradeview/internal/report"
)

const readyTimeout = 2 * time.Second

type api struct {
	svc    *report.Service
	checks map[string]func(context.Context) error
}

// newMux creates the HTTP router: health checks, metrics, the live update
// socket and the /api/v2 report routes.
func newMux(svc *report.Service, live http.Handler, checks map[string]func(context.Context) error) *http.ServeMux {
	a := &api{svc: svc, checks: checks}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", a.handleReadyz)
	mux.Handle("GET /metrics", promhttp.Handler())
	if live != nil {
		mux.Handle("GET /ws", live)
	}

	mux.HandleFunc("GET /api/v2/bins", a.handleBins)
	mux.HandleFunc("GET /api/v2/students/{email}/grades", a.handleGrades)
	mux.HandleFunc("GET /api/v2/students/{email}/summary", a.handleSummary)
	mux.HandleFunc("GET /api/v2/students/{email}/projections", a.handleProjections)
	mux.HandleFunc("GET /api/v2/students/{email}/masterymapping", a.handleConceptMap)
	mux.HandleFunc("GET /api/v2/students/{email}/masterystring", a.handleMasteryString)
	mux.HandleFunc("GET /api/v2/distribution/{category}/{name}", a.handleDistribution)
	mux.HandleFunc("GET /api/v2/distribution/{category}/{name}/buckets/{label}", a.handleBucket)
	mux.HandleFunc("GET /api/v2/admin/usage", a.handleUsage)
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (a *api) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	failed := map[string]string{}
	for name, check := range a.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		slog.Warn("readiness check failed", "checks", failed)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "checks": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (a *api) handleBins(w http.ResponseWriter, r *http.Request) {
	ranges, err := a.svc.LetterRanges(r.Context())
	respond(w, r, ranges, err)
}

func (a *api) handleGrades(w http.ResponseWriter, r *http.Request) {
	b, err := a.svc.Grades(r.Context(), r.PathValue("email"))
	respond(w, r, b, err)
}

func (a *api) handleSummary(w http.ResponseWriter, r *http.Request) {
	s, err := a.svc.Summary(r.Context(), r.PathValue("email"))
	respond(w, r, s, err)
}

func (a *api) handleProjections(w http.ResponseWriter, r *http.Request) {
	p, err := a.svc.Projection(r.Context(), r.PathValue("email"))
	respond(w, r, p, err)
}

func (a *api) handleConceptMap(w http.ResponseWriter, r *http.Request) {
	cm, err := a.svc.ConceptMap(r.Context(), r.PathValue("email"))
	respond(w, r, cm, err)
}

func (a *api) handleMasteryString(w http.ResponseWriter, r *http.Request) {
	s, err := a.svc.MasteryString(r.Context(), r.PathValue("email"))
	respond(w, r, map[string]string{"masteryString": s}, err)
}

func (a *api) handleDistribution(w http.ResponseWriter, r *http.Request) {
	h, err := a.svc.Distribution(r.Context(), r.PathValue("category"), r.PathValue("name"))
	respond(w, r, h, err)
}

func (a *api) handleBucket(w http.ResponseWriter, r *http.Request) {
	b, err := a.svc.StudentsInBucket(r.Context(), r.PathValue("category"), r.PathValue("name"), r.PathValue("label"))
	respond(w, r, b, err)
}

func (a *api) handleUsage(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "days must be a positive integer"})
			return
		}
		days = n
	}
	counts, err := a.svc.Usage(r.Context(), time.Now().AddDate(0, 0, -days))
	respond(w, r, map[string]any{"days": days, "counts": counts}, err)
}

// respond writes v as JSON, or maps err to a status code.
func respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, v)
		return
	}

	var invalid *grades.InvalidInputError
	switch {
	case errors.Is(err, gradebook.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &invalid):
		slog.Error("malformed gradebook data", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": invalid.Error()})
	default:
		slog.Error("request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}
