// fine-payment-bridge/services/fine-sandbox/main.go
//
// fine-sandbox is an in-memory stand-in for the fine-management backend. Point FINE_BACKEND_URL
// at it to run checkout and settlement end to end without the real backend.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/example/fine-payment-bridge/internal/config"
	m "github.com/example/fine-payment-bridge/pkg/metrics"
)

const serviceName = "fine-sandbox"

type issuedFine struct {
	CivilNIC         string `json:"civilNIC"`
	FineManagementID string `json:"fineManagementId"`
	IsPaid           bool   `json:"isPaid"`
}

type store struct {
	mu      sync.Mutex
	issued  map[string]*issuedFine
	amounts map[string]decimal.Decimal
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", serviceName)

	s, err := parseSeed(config.Env("FINE_SEED", "F1:199012345678:FM1:5000"))
	if err != nil {
		logger.Error("parse FINE_SEED", "err", err)
		os.Exit(1)
	}

	addr := config.Env("HTTP_ADDR", ":8083")
	logger.Info("listening", "addr", addr, "fines", len(s.issued))
	if err := http.ListenAndServe(addr, newRouter(s, logger)); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}

func newRouter(s *store, logger *slog.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(m.Middleware(serviceName))

	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "service": serviceName})
	}).Methods(http.MethodGet)

	r.HandleFunc("/policeIssueFine/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		s.mu.Lock()
		f, ok := s.issued[id]
		var snapshot issuedFine
		if ok {
			snapshot = *f
		}
		s.mu.Unlock()

		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "fine not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": snapshot})
	}).Methods(http.MethodGet)

	r.HandleFunc("/policeIssueFine/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		var patch struct {
			IsPaid *bool `json:"isPaid"`
		}
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil || patch.IsPaid == nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "isPaid is required"})
			return
		}

		s.mu.Lock()
		f, ok := s.issued[id]
		if ok {
			f.IsPaid = *patch.IsPaid
		}
		s.mu.Unlock()

		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "fine not found"})
			return
		}
		logger.Info("fine updated", "fine_id", id, "is_paid", *patch.IsPaid)
		writeJSON(w, http.StatusOK, map[string]any{"message": "updated"})
	}).Methods(http.MethodPut)

	r.HandleFunc("/fine/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		s.mu.Lock()
		amount, ok := s.amounts[id]
		s.mu.Unlock()

		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "fine record not found"})
			return
		}
		// Sent as a string, the way the backend stores it.
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]string{"fine": amount.String()}})
	}).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler())
	return r
}

// parseSeed reads "fineId:civilNIC:fineManagementId:amount" entries separated by commas.
func parseSeed(seed string) (*store, error) {
	s := &store{issued: map[string]*issuedFine{}, amounts: map[string]decimal.Decimal{}}
	for _, entry := range strings.Split(seed, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 4 || parts[0] == "" || parts[2] == "" {
			return nil, fmt.Errorf("invalid fine entry %q", entry)
		}
		amount, err := decimal.NewFromString(parts[3])
		if err != nil {
			return nil, fmt.Errorf("invalid amount in %q: %w", entry, err)
		}
		s.issued[parts[0]] = &issuedFine{CivilNIC: parts[1], FineManagementID: parts[2]}
		s.amounts[parts[2]] = amount
	}
	return s, nil
}

func (s *store) paid(fineID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.issued[fineID]
	return ok && f.IsPaid
}

/******************** Utils ********************/
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
