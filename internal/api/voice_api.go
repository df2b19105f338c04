package api

import (
	"net/http"

	"ringbook/internal/metrics"
)

// handleVoice greets an incoming call and solicits a spoken intent.
// POST /voice
func (s *HTTPServer) handleVoice(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("voice")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	callSID := r.FormValue("CallSid")
	s.writeTwiML(w, s.controller.HandleInbound(r.Context(), callSID))
}

// handleProcessQuery routes the caller's utterance.
// POST /process_query
func (s *HTTPServer) handleProcessQuery(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("process_query")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	callSID := r.FormValue("CallSid")
	speech := r.FormValue("SpeechResult")
	s.writeTwiML(w, s.controller.HandleQuery(r.Context(), callSID, speech))
}

// handleBookSlotVoice books the slot mapped to the pressed digit.
// POST /book_slot
func (s *HTTPServer) handleBookSlotVoice(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("book_slot")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	callSID := r.FormValue("CallSid")
	digits := r.FormValue("Digits")
	s.writeTwiML(w, s.controller.HandleSelect(r.Context(), callSID, digits))
}

// handleFallback hands the call to the human reception line.
// POST /fallback
func (s *HTTPServer) handleFallback(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("fallback")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	callSID := r.FormValue("CallSid")
	s.writeTwiML(w, s.controller.HandleFallback(r.Context(), callSID))
}
