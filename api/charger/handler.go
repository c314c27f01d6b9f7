package charger

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/kilianp07/chargectl/core/events"
	"github.com/kilianp07/chargectl/core/metrics"
)

// StatusSource exposes the latest cycle and the recent events.
type StatusSource interface {
	Latest() (metrics.CycleRecord, bool)
	Events() []events.Event
}

// Status is the body of GET /api/charger/status.
type Status struct {
	Ready  bool                 `json:"ready"`
	Cycle  *metrics.CycleRecord `json:"cycle,omitempty"`
	Events []events.Event       `json:"events"`
}

const maxHistoryLimit = 500

// NewStatusHandler returns an HTTP handler exposing the last control cycle
// via GET /api/charger/status. Requests must include an Authorization
// header with "Bearer <token>" when token is non-empty.
func NewStatusHandler(src StatusSource, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !allowed(w, r, token) {
			return
		}
		st := Status{Events: src.Events()}
		if rec, ok := src.Latest(); ok {
			st.Ready = true
			st.Cycle = &rec
		}
		writeJSON(w, st)
	})
}

// NewHistoryHandler returns an HTTP handler listing recent cycles, newest
// first, via GET /api/charger/history?limit=N.
func NewHistoryHandler(reader metrics.HistoryReader, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !allowed(w, r, token) {
			return
		}
		limit := 20
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = min(n, maxHistoryLimit)
		}
		records, err := reader.Recent(r.Context(), limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []metrics.CycleRecord{}
		}
		writeJSON(w, records)
	})
}

func allowed(w http.ResponseWriter, r *http.Request, token string) bool {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
