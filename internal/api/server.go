// Package api exposes the voice webhooks and the REST booking interface.
package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"ringbook/internal/models"
	"ringbook/internal/voice"
)

// SlotStore is the store surface the REST handlers need.
type SlotStore interface {
	GetSlot(ctx context.Context, slotID int64) (*models.Slot, error)
	Reserve(ctx context.Context, slotID int64, holderRef string) (bool, error)
	ListBooked(ctx context.Context) ([]models.Slot, error)
	CountAvailable(ctx context.Context) (int, error)
}

// SlotLister serves slot listings, possibly through a cache.
type SlotLister interface {
	ListAvailable(ctx context.Context, limit int) ([]models.Slot, error)
	Invalidate(ctx context.Context)
}

// BookedNotifier dispatches the staff notification for API bookings.
type BookedNotifier interface {
	NotifyBooked(slot models.Slot, holderRef string)
}

// HTTPServer serves the public HTTP surface.
type HTTPServer struct {
	server     *http.Server
	db         SlotStore
	lister     SlotLister
	notifier   BookedNotifier
	controller *voice.Controller
	log        *zerolog.Logger

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
}

// NewHTTPServer builds the server and its routes.
func NewHTTPServer(addr string, db SlotStore, lister SlotLister, notifier BookedNotifier, controller *voice.Controller, logger *zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		db:         db,
		lister:     lister,
		notifier:   notifier,
		controller: controller,
		log:        logger,
		limiters:   make(map[string]*rate.Limiter),
	}

	mux := http.NewServeMux()

	// Voice webhooks. The telephony provider is trusted, no rate limiting here.
	mux.HandleFunc("/voice", s.handleVoice)
	mux.HandleFunc(voice.StepQuery, s.handleProcessQuery)
	mux.HandleFunc(voice.StepSelect, s.handleBookSlotVoice)
	mux.HandleFunc(voice.StepFallback, s.handleFallback)

	// REST surface for web clients.
	mux.HandleFunc("/api/slots", s.rateLimited(s.handleSlots))
	mux.HandleFunc("/api/book", s.rateLimited(s.handleBook))
	mux.HandleFunc("/api/bookings/export", s.rateLimited(s.handleBookingsExport))

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleRoot)

	s.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the root handler, for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until the context is cancelled.
func (s *HTTPServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()

	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// rateLimited applies a per-IP token bucket to a handler.
func (s *HTTPServer) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !s.limiterFor(host).Allow() {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next(w, r)
	}
}

func (s *HTTPServer) limiterFor(host string) *rate.Limiter {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()
	l, ok := s.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(10), 30)
		s.limiters[host] = l
	}
	return l
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *HTTPServer) writeTwiML(w http.ResponseWriter, resp *voice.Response) {
	body, err := resp.Render()
	if err != nil {
		s.log.Error().Err(err).Msg("twiml render failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write(body)
}
