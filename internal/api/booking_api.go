package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"ringbook/internal/audit"
	"ringbook/internal/metrics"
)

// BookSlotRequest is the request body for POST /api/book.
type BookSlotRequest struct {
	SlotID int64 `json:"slot_id"`
}

// BookSlotResponse is the response for POST /api/book.
type BookSlotResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// handleSlots returns all available slots for web clients.
// GET /api/slots
func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("slots")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	slots, err := s.lister.ListAvailable(r.Context(), 0)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list slots")
		writeError(w, http.StatusInternalServerError, "failed to fetch appointment slots")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

// handleBook books a slot via the REST API.
// POST /api/book
func (s *HTTPServer) handleBook(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("book")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req BookSlotRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SlotID <= 0 {
		writeError(w, http.StatusBadRequest, "slot_id is required")
		return
	}

	// No call is in progress on this path, so the holder reference is synthetic.
	holderRef := fmt.Sprintf("API_%s", uuid.NewString())

	reserved, err := s.db.Reserve(r.Context(), req.SlotID, holderRef)
	if err != nil {
		s.log.Error().Err(err).Int64("slot_id", req.SlotID).Msg("reservation failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !reserved {
		metrics.IncReservationConflict()
		writeJSON(w, http.StatusConflict, BookSlotResponse{
			Success: false,
			Message: "Failed to book appointment - slot may already be taken",
		})
		return
	}

	metrics.IncBookingCreated("api")
	s.lister.Invalidate(r.Context())

	if slot, err := s.db.GetSlot(r.Context(), req.SlotID); err == nil {
		s.notifier.NotifyBooked(*slot, holderRef)
	} else {
		s.log.Error().Err(err).Int64("slot_id", req.SlotID).Msg("slot fetch after booking failed")
	}

	s.log.Info().
		Int64("slot_id", req.SlotID).
		Str("holder", holderRef).
		Msg("slot booked via API")

	writeJSON(w, http.StatusOK, BookSlotResponse{
		Success: true,
		Message: "Appointment booked successfully",
	})
}

// handleBookingsExport streams the booked-slot report as an xlsx file.
// GET /api/bookings/export
func (s *HTTPServer) handleBookingsExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_export")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	booked, err := s.db.ListBooked(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list bookings for export")
		writeError(w, http.StatusInternalServerError, "failed to export bookings")
		return
	}

	writer := audit.NewExcelizeWriter()
	defer writer.Close()
	if err := audit.WriteBookings(writer, booked); err != nil {
		s.log.Error().Err(err).Msg("failed to build bookings export")
		writeError(w, http.StatusInternalServerError, "failed to export bookings")
		return
	}

	filename := fmt.Sprintf("bookings_%s.xlsx", time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := writer.Save(w); err != nil {
		s.log.Error().Err(err).Msg("failed to stream bookings export")
	}
}

// handleRoot is the service banner.
// GET /
func (s *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Voice Chatbot Appointment Booking API",
		"status":  "healthy",
	})
}

// handleHealth reports store connectivity.
// GET /health
func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("health")

	if _, err := s.db.CountAvailable(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "unhealthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"error":     err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"services": map[string]string{
			"store":         "connected",
			"notifications": "configured",
		},
	})
}
