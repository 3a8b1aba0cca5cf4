// Package api exposes the dashboard HTTP surface. Handlers are thin
// RPC over the strategy, options, and risk components; no business
// logic lives here.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"fyers-orb-bot/internal/options"
	"fyers-orb-bot/internal/risk"
	"fyers-orb-bot/internal/strategy"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CircuitResetter closes the gateway circuit breaker manually.
// *fyers.Client satisfies it.
type CircuitResetter interface {
	ResetCircuit()
}

// Server is the dashboard HTTP server.
type Server struct {
	detector *strategy.Detector
	selector *options.Selector
	engine   *risk.Engine
	gateway  CircuitResetter
	logger   zerolog.Logger
	srv      *http.Server
}

// NewServer wires the dashboard routes. gateway may be nil.
func NewServer(addr string, detector *strategy.Detector, selector *options.Selector, engine *risk.Engine, gateway CircuitResetter, logger zerolog.Logger) *Server {
	s := &Server{
		detector: detector,
		selector: selector,
		engine:   engine,
		gateway:  gateway,
		logger:   logger.With().Str("component", "api").Logger(),
	}

	r := mux.NewRouter()
	r.Use(s.recoveryMiddleware, s.loggingMiddleware)

	r.HandleFunc("/scan", s.handleScan).Methods(http.MethodGet)
	r.HandleFunc("/approve", s.handleApprove).Methods(http.MethodPost)
	r.HandleFunc("/monitor", s.handleMonitor).Methods(http.MethodGet)
	r.HandleFunc("/reset", s.handleReset).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.srv.Addr).Msg("Dashboard server listening")
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// handleScan returns the current breakout signal, if any.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	signal := s.detector.CheckBreakout()
	high, low, locked := s.detector.Range()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"signal":       signal,
		"range_high":   high,
		"range_low":    low,
		"range_locked": locked,
		"last_price":   s.detector.LastPrice(),
	})
}

// handleApprove executes the currently pending signal: re-scan,
// resolve the contract, and hand off to the risk engine. The engine's
// blocked/failed outcomes come back as structured JSON, never as HTTP
// errors.
func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	signal := s.detector.CheckBreakout()
	if signal == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "blocked",
			"reason": "no_signal",
		})
		return
	}

	candidate, err := s.selector.Select(r.Context(), signal.Direction, signal.Price)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Contract selection failed")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "failed",
			"reason": "contract_selection_failed",
			"error":  err.Error(),
		})
		return
	}

	result := s.engine.ExecuteTrade(r.Context(), signal, candidate)
	response := map[string]interface{}{
		"status": result.Outcome,
		"reason": result.Reason,
		"trade":  result.Trade,
	}
	if result.Err != nil {
		response["error"] = result.Err.Error()
	}
	writeJSON(w, http.StatusOK, response)
}

// handleMonitor returns the engine snapshot plus one monitor pass.
func (s *Server) handleMonitor(w http.ResponseWriter, r *http.Request) {
	report := s.engine.MonitorTrade(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"monitor":  report,
		"snapshot": s.engine.Snapshot(),
	})
}

// handleReset clears daily state, the locked range, and any open
// gateway circuit.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.engine.ResetDay()
	s.detector.Reset()
	if s.gateway != nil {
		s.gateway.ResetCircuit()
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
