package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"pricewatch/internal/catalog"
	"pricewatch/internal/notifier"
	"pricewatch/internal/storage"
	"pricewatch/internal/tracker"
	logx "pricewatch/pkg/logx"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/config", s.handleGetConfig)
	mux.HandleFunc("POST /api/config", s.handleUpdateConfig)

	mux.HandleFunc("POST /api/skus", s.handleAddSKU)
	mux.HandleFunc("DELETE /api/skus/{sku}", s.handleRemoveSKU)
	mux.HandleFunc("POST /api/skus/{sku}/toggle", s.handleToggleSKU)

	mux.HandleFunc("POST /api/tracker/start", s.handleStart)
	mux.HandleFunc("POST /api/tracker/stop", s.handleStop)
	mux.HandleFunc("GET /api/tracker/status", s.handleStatus)

	mux.HandleFunc("POST /api/check", s.handleCheck)
	mux.HandleFunc("POST /api/test-webhook", s.handleTestWebhook)

	mux.HandleFunc("GET /api/history", s.handleAllHistory)
	mux.HandleFunc("GET /api/history/{sku}", s.handleHistory)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tr.Config(r.Context()))
}

// configUpdate mirrors tracker.Updates; absent fields stay untouched.
type configUpdate struct {
	APIKey                *string `json:"bestbuy_api_key"`
	WebhookURL            *string `json:"discord_webhook_url"`
	PollInterval          *int    `json:"poll_interval"`
	NotifyOnAnyChange     *bool   `json:"notify_on_any_change"`
	NotifyOnPriceDropOnly *bool   `json:"notify_on_price_drop_only"`
	SummarySchedule       *string `json:"summary_schedule"`
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req configUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	err := s.tr.UpdateSettings(r.Context(), tracker.Updates{
		APIKey:                req.APIKey,
		WebhookURL:            req.WebhookURL,
		PollInterval:          req.PollInterval,
		NotifyOnAnyChange:     req.NotifyOnAnyChange,
		NotifyOnPriceDropOnly: req.NotifyOnPriceDropOnly,
		SummarySchedule:       req.SummarySchedule,
	})
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAddSKU(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SKU  string `json:"sku"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SKU == "" {
		writeErr(w, http.StatusBadRequest, "sku is required")
		return
	}

	item, err := s.tr.AddItem(r.Context(), req.SKU, req.Name)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"sku": req.SKU, "name": item.Name})
}

func (s *Server) handleRemoveSKU(w http.ResponseWriter, r *http.Request) {
	ok, err := s.tr.RemoveItem(r.Context(), r.PathValue("sku"))
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	status := "ok"
	if !ok {
		status = "not_found"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) handleToggleSKU(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Enabled bool `json:"enabled"`
	}{Enabled: true}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	ok, err := s.tr.SetItemEnabled(r.Context(), r.PathValue("sku"), req.Enabled)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	status := "ok"
	if !ok {
		status = "not_found"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.tr.Start(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"status": "started", "running": s.tr.IsRunning()})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.tr.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"status": "stopped", "running": s.tr.IsRunning()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"running": s.tr.IsRunning(),
		"state":   s.tr.State(r.Context()),
	})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	err := s.tr.RunPass(r.Context())
	switch {
	case errors.Is(err, tracker.ErrPassRunning):
		writeErr(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, catalog.ErrNoAPIKey):
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "state": s.tr.State(r.Context())})
}

func (s *Server) handleTestWebhook(w http.ResponseWriter, r *http.Request) {
	err := s.tr.TestWebhook(r.Context())
	switch {
	case errors.Is(err, notifier.ErrNoWebhook):
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.log.Warn("webhook test failed", logx.Err(err))
		writeErr(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func historyLimit(r *http.Request) int {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	return limit
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries := s.tr.History(r.Context(), r.PathValue("sku"), historyLimit(r))
	if entries == nil {
		entries = []storage.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleAllHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tr.AllHistory(r.Context(), historyLimit(r)))
}
