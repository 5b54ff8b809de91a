// Package openstatestest provides an in-process fake of the Open States API.
package openstatestest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/DeafMist/bills-enricher/internal/models"
)

// Server serves canned bill and legislator payloads.
type Server struct {
	*httptest.Server

	APIKey string

	mu              sync.Mutex
	bills           map[string]any
	legislators     map[string]models.Legislator
	failures        map[string]int
	billHits        map[string]int
	legislatorHits  map[string]int
	legislatorDelay time.Duration
}

// NewServer starts a fake expecting the given api key. Close it when done.
func NewServer(apiKey string) *Server {
	s := &Server{
		APIKey:         apiKey,
		bills:          make(map[string]any),
		legislators:    make(map[string]models.Legislator),
		failures:       make(map[string]int),
		billHits:       make(map[string]int),
		legislatorHits: make(map[string]int),
	}

	r := chi.NewRouter()
	r.Get("/bills/{state}/{session}/{id}/", s.handleBill)
	r.Get("/bills/{id}/", s.handleBill)
	r.Get("/legislators/{id}/", s.handleLegislator)

	s.Server = httptest.NewServer(r)
	return s
}

// AddBill registers a bill payload; detail may be models.BillDetail or any
// JSON-marshalable value.
func (s *Server) AddBill(id string, detail any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bills[id] = detail
}

// AddLegislator registers a legislator under its id.
func (s *Server) AddLegislator(l models.Legislator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.legislators[l.ID] = l
}

// Fail makes requests for a bill or legislator id answer with status.
func (s *Server) Fail(id string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[id] = status
}

// SetLegislatorDelay slows down every legislator response.
func (s *Server) SetLegislatorDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.legislatorDelay = d
}

// BillHits returns how many times a bill was requested.
func (s *Server) BillHits(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.billHits[id]
}

// LegislatorHits returns how many times a legislator was requested.
func (s *Server) LegislatorHits(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.legislatorHits[id]
}

func (s *Server) handleBill(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")

	s.mu.Lock()
	s.billHits[id]++
	status, failing := s.failures[id]
	detail, ok := s.bills[id]
	s.mu.Unlock()

	if !s.authorized(w, r) {
		return
	}
	if failing {
		http.Error(w, http.StatusText(status), status)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, detail)
}

func (s *Server) handleLegislator(w http.ResponseWriter, r *http.Request) {
	id := param(r, "id")

	s.mu.Lock()
	s.legislatorHits[id]++
	status, failing := s.failures[id]
	leg, ok := s.legislators[id]
	delay := s.legislatorDelay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if !s.authorized(w, r) {
		return
	}
	if failing {
		http.Error(w, http.StatusText(status), status)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, leg)
}

func (s *Server) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.URL.Query().Get("apikey") != s.APIKey {
		http.Error(w, "bad api key", http.StatusUnauthorized)
		return false
	}
	return true
}

func param(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(payload)
}
