package api

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (ts *testServer) postForm(t *testing.T, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func TestVoiceCallFlow(t *testing.T) {
	ts := setupTestServer(t)
	seeded := ts.seed(t, 2)

	// Greeting
	w := ts.postForm(t, "/voice", url.Values{"CallSid": {"CA100"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Welcome to our appointment booking system")

	// Intent capture presents the menu
	w = ts.postForm(t, "/process_query", url.Values{
		"CallSid":      {"CA100"},
		"SpeechResult": {"I want to book an appointment"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Press 1 for September 1 at 10:00 AM.")
	assert.Contains(t, body, "Press 2 for September 1 at 11:00 AM.")
	assert.Contains(t, body, "press 0 to speak with our reception")

	// Digit selection books the snapshot slot
	w = ts.postForm(t, "/book_slot", url.Values{
		"CallSid": {"CA100"},
		"Digits":  {"2"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "successfully booked your appointment for September 1, 2026 at 11:00 AM")
	assert.Contains(t, w.Body.String(), "<Hangup>")

	slot, err := ts.db.GetSlot(t.Context(), seeded[1].ID)
	require.NoError(t, err)
	assert.True(t, slot.Booked)
	assert.Equal(t, "CA100", slot.Holder())
	assert.Equal(t, 1, ts.notifier.count())
}

func TestVoiceFlowNoIntent(t *testing.T) {
	ts := setupTestServer(t)
	ts.seed(t, 2)

	ts.postForm(t, "/voice", url.Values{"CallSid": {"CA200"}})
	w := ts.postForm(t, "/process_query", url.Values{
		"CallSid":      {"CA200"},
		"SpeechResult": {"what time do you open"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "reception team")
	assert.Contains(t, w.Body.String(), "/fallback")
}

func TestVoiceFlowNoSlots(t *testing.T) {
	ts := setupTestServer(t)

	ts.postForm(t, "/voice", url.Values{"CallSid": {"CA300"}})
	w := ts.postForm(t, "/process_query", url.Values{
		"CallSid":      {"CA300"},
		"SpeechResult": {"book me in please"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "don't have any available appointment slots")
}

func TestVoiceFallbackDialsReception(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.postForm(t, "/fallback", url.Values{"CallSid": {"CA400"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<Dial>+15550100</Dial>")
}

func TestVoiceWebhooksRejectGet(t *testing.T) {
	ts := setupTestServer(t)

	for _, path := range []string{"/voice", "/process_query", "/book_slot", "/fallback"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		ts.handler.ServeHTTP(w, req)
		assert.Equalf(t, http.StatusMethodNotAllowed, w.Code, "path %s", path)
	}
}

func TestVoiceRacingSelections(t *testing.T) {
	ts := setupTestServer(t)
	ts.seed(t, 2)

	for _, sid := range []string{"CA_a", "CA_b"} {
		ts.postForm(t, "/voice", url.Values{"CallSid": {sid}})
		w := ts.postForm(t, "/process_query", url.Values{
			"CallSid":      {sid},
			"SpeechResult": {"book an appointment"},
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	var confirmed, unavailable int
	for _, sid := range []string{"CA_a", "CA_b"} {
		w := ts.postForm(t, "/book_slot", url.Values{"CallSid": {sid}, "Digits": {"1"}})
		body := w.Body.String()
		switch {
		case strings.Contains(body, "successfully booked"):
			confirmed++
		case strings.Contains(body, "no longer available"):
			unavailable++
		}
	}
	assert.Equal(t, 1, confirmed)
	assert.Equal(t, 1, unavailable)
}
