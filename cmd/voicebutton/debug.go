package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"voicebutton/internal/domain"
	"voicebutton/internal/status"
)

type pressInjector interface {
	Inject(kind domain.EventKind, source string) bool
}

var buttons = map[string]domain.EventKind{
	"record": domain.EventRecordRequest,
	"toggle": domain.EventToggleLanguage,
}

func newDebugRouter(tracker *status.Tracker, injector pressInjector, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Get("/state", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, tracker.Snapshot())
	})
	r.Post("/press/{button}", func(w http.ResponseWriter, req *http.Request) {
		button := chi.URLParam(req, "button")
		kind, ok := buttons[button]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "unknown button: " + button})
			return
		}
		if !injector.Inject(kind, "http") {
			writeJSON(w, http.StatusConflict, map[string]any{"error": "a press is already queued"})
			return
		}
		logger.Info("virtual press queued", "button", button)
		writeJSON(w, http.StatusAccepted, map[string]any{"queued": button})
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
