// Package apisrv is the thin HTTP surface the operator and any external
// collaborator use to inspect and steer the detector: health, listings
// of events/bindings/orderbooks, manual mapping approve (to OVERRIDE)/reject,
// signal listing, paper simulate/close/stats, snapshot, and the live
// WebSocket upgrade (delegated to internal/fanoutws).
//
// Routing uses the standard library's Go 1.22+ http.ServeMux pattern
// matching, the teacher's own router choice in cmd/main.go and
// internal/fanout/server.go — no third-party router appears anywhere in
// the corpus.
package apisrv

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/charleschow/mispricing-detector/internal/canonical"
	"github.com/charleschow/mispricing-detector/internal/fanoutws"
	"github.com/charleschow/mispricing-detector/internal/paper"
	"github.com/charleschow/mispricing-detector/internal/scheduler"
	"github.com/charleschow/mispricing-detector/internal/store"
	"github.com/charleschow/mispricing-detector/internal/telemetry"
)

// Handlers wires the store, paper simulator, scheduler (for snapshot
// access), and WebSocket fanout server into HTTP endpoints.
type Handlers struct {
	st    *store.Store
	sim   *paper.Simulator
	sched *scheduler.Scheduler
	ws    *fanoutws.Server
}

func NewHandlers(st *store.Store, sim *paper.Simulator, sched *scheduler.Scheduler, ws *fanoutws.Server) *Handlers {
	return &Handlers{st: st, sim: sim, sched: sched, ws: ws}
}

// RegisterRoutes wires HTTP routes onto mux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /events", h.listEvents)
	mux.HandleFunc("GET /bindings", h.listBindings)
	mux.HandleFunc("POST /bindings/approve", h.approveBinding)
	mux.HandleFunc("POST /bindings/reject", h.rejectBinding)
	mux.HandleFunc("GET /orderbooks", h.listOrderBooks)
	mux.HandleFunc("GET /signals", h.listSignals)
	mux.HandleFunc("POST /paper/simulate", h.paperSimulate)
	mux.HandleFunc("POST /paper/close", h.paperClose)
	mux.HandleFunc("GET /paper/stats", h.paperStats)
	mux.HandleFunc("GET /snapshot", h.snapshot)
	mux.HandleFunc("GET /ws/snapshot", h.ws.HandleWS)
}

func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) listEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.st.ListCanonicalEvents(r.Context(), queryInt(r, "limit", 200))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (h *Handlers) listBindings(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	bindings, err := h.st.ListBindings(r.Context(), status, queryInt(r, "limit", 500))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, bindings)
}

type bindingMutationRequest struct {
	Venue    string `json:"venue"`
	MarketID string `json:"market_id"`
}

func (h *Handlers) approveBinding(w http.ResponseWriter, r *http.Request) {
	h.setBindingStatus(w, r, canonical.BindingOverride)
}

func (h *Handlers) rejectBinding(w http.ResponseWriter, r *http.Request) {
	h.setBindingStatus(w, r, canonical.BindingRejected)
}

func (h *Handlers) setBindingStatus(w http.ResponseWriter, r *http.Request, status canonical.BindingStatus) {
	var req bindingMutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if req.Venue == "" || req.MarketID == "" {
		writeErr(w, http.StatusBadRequest, errors.New("venue and market_id are required"))
		return
	}
	if err := h.st.SetBindingStatus(r.Context(), canonical.Venue(req.Venue), req.MarketID, status); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

func (h *Handlers) listOrderBooks(w http.ResponseWriter, r *http.Request) {
	venue := r.URL.Query().Get("venue")
	rows, err := h.st.ListOrderBookTops(r.Context(), venue, queryInt(r, "limit", 500))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handlers) listSignals(w http.ResponseWriter, r *http.Request) {
	signals, err := h.st.ActiveSignals(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, signals)
}

type simulateRequest struct {
	SignalID string  `json:"signal_id"`
	Size     float64 `json:"size"`
}

func (h *Handlers) paperSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	id, err := h.sim.SimulateSignal(r.Context(), req.SignalID, req.Size)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, paper.ErrInvalidArgument) {
			status = http.StatusBadRequest
		}
		writeErr(w, status, err)
		return
	}
	telemetry.Metrics.PaperFills.Inc()
	writeJSON(w, http.StatusOK, map[string]int64{"position_id": id})
}

type closeRequest struct {
	PositionID int64 `json:"position_id"`
}

func (h *Handlers) paperClose(w http.ResponseWriter, r *http.Request) {
	var req closeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if err := h.sim.ClosePosition(r.Context(), req.PositionID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, paper.ErrInvalidArgument) {
			status = http.StatusBadRequest
		}
		writeErr(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

type paperStats struct {
	OpenPositions int     `json:"open_positions"`
	RealizedPnL   float64 `json:"realized_pnl"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

func (h *Handlers) paperStats(w http.ResponseWriter, r *http.Request) {
	positions, err := h.st.OpenPositions(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	stats := paperStats{OpenPositions: len(positions)}
	for _, p := range positions {
		stats.RealizedPnL += p.RealizedPnL
		stats.UnrealizedPnL += p.UnrealizedPnL
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sched.LatestSnapshot())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
