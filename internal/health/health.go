// Package health serves Seraphina's liveness and readiness probes.
//
//   - /healthz — liveness; a process that can answer HTTP is alive, so this
//     always returns 200.
//   - /readyz  — readiness; probes every registered dependency and folds the
//     results into one of three statuses:
//
//     "ok"       every dependency answered        → 200
//     "degraded" only optional dependencies down  → 200
//     "fail"     a required dependency is down    → 503
//
// Degraded matters for this bot: the transcript store is an audit sink, not a
// conversation dependency, so losing it should show up in the probe body
// without taking the bot out of rotation.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Aggregate readiness statuses, ordered by severity.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusFail     = "fail"
)

// checkTimeout caps a single dependency probe. A hung dependency must not
// hold the /readyz response open indefinitely.
const checkTimeout = 5 * time.Second

// Checker probes one named dependency.
type Checker struct {
	// Name keys the check in the JSON response (e.g. "discord",
	// "transcripts").
	Name string

	// Check returns nil when the dependency is reachable. It must respect
	// context cancellation.
	Check func(ctx context.Context) error

	// Optional marks a dependency the bot can serve without. Its failure
	// degrades readiness instead of failing it.
	Optional bool
}

// report is the JSON body of both probe endpoints.
type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the probe endpoints. The checker list is fixed at
// construction; concurrent requests are safe.
type Handler struct {
	checkers []Checker
}

// New creates a Handler evaluating the given checkers, in order, on each
// /readyz request.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz always reports 200 OK.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, report{Status: StatusOK})
}

// Readyz probes every dependency and reports the folded status. Required
// failures yield 503; optional failures keep the 200 but surface
// "degraded" so operators see the partial outage.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	rep := report{
		Status: StatusOK,
		Checks: make(map[string]string, len(h.checkers)),
	}

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()
		if err == nil {
			rep.Checks[c.Name] = StatusOK
			continue
		}

		rep.Checks[c.Name] = StatusFail + ": " + err.Error()
		if c.Optional {
			if rep.Status == StatusOK {
				rep.Status = StatusDegraded
			}
		} else {
			rep.Status = StatusFail
		}
	}

	code := http.StatusOK
	if rep.Status == StatusFail {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, rep)
}

// Register adds the /healthz and /readyz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// writeJSON encodes v with the given status code. On encoding failure it
// falls back to a plain-text 500 response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
