package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ringbook/internal/models"
)

type fakeNotifier struct {
	calls    atomic.Int32
	failures int32 // fail this many attempts before succeeding
}

func (f *fakeNotifier) Name() string { return "fake" }

func (f *fakeNotifier) NotifyBooked(_ context.Context, _ models.Slot, _ string) error {
	n := f.calls.Add(1)
	if n <= f.failures {
		return errors.New("channel down")
	}
	return nil
}

func testSlot() models.Slot {
	return models.Slot{ID: 7, SlotTime: time.Date(2026, 9, 1, 11, 0, 0, 0, time.UTC)}
}

func newTestDispatcher(notifiers ...Notifier) *Dispatcher {
	logger := zerolog.New(io.Discard)
	d := NewDispatcher(notifiers, &logger)
	d.retry.RetryDelays = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}
	return d
}

func TestDispatcherDelivers(t *testing.T) {
	fake := &fakeNotifier{}
	d := newTestDispatcher(fake)

	d.NotifyBooked(testSlot(), "CA100")
	d.Wait()

	assert.Equal(t, int32(1), fake.calls.Load())
}

func TestDispatcherRetries(t *testing.T) {
	fake := &fakeNotifier{failures: 2}
	d := newTestDispatcher(fake)

	d.NotifyBooked(testSlot(), "CA100")
	d.Wait()

	assert.Equal(t, int32(3), fake.calls.Load())
}

func TestDispatcherSwallowsFailures(t *testing.T) {
	fake := &fakeNotifier{failures: 100}
	d := newTestDispatcher(fake)

	// Must not panic or block the caller; all retries fail silently.
	d.NotifyBooked(testSlot(), "CA100")
	d.Wait()

	assert.Equal(t, int32(1+d.retry.MaxRetries), fake.calls.Load())
}

func TestDispatcherFansOut(t *testing.T) {
	a := &fakeNotifier{}
	b := &fakeNotifier{}
	d := newTestDispatcher(a, b)

	d.NotifyBooked(testSlot(), "CA100")
	d.Wait()

	assert.Equal(t, int32(1), a.calls.Load())
	assert.Equal(t, int32(1), b.calls.Load())
}

func TestTwilioNotifier(t *testing.T) {
	var gotPath string
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotBody = r.PostForm.Get("Body")

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "whatsapp:+10000000000", r.PostForm.Get("To"))

		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	n := NewTwilioNotifier("AC123", "secret", "whatsapp:+14155238886", "whatsapp:+10000000000")
	n.baseURL = srv.URL

	err := n.NotifyBooked(context.Background(), testSlot(), "CA555")
	require.NoError(t, err)
	assert.Equal(t, "/Accounts/AC123/Messages.json", gotPath)
	assert.Contains(t, gotBody, "September 1, 2026 at 11:00 AM")
	assert.Contains(t, gotBody, "CA555")
}

func TestTwilioNotifierErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	n := NewTwilioNotifier("AC123", "wrong", "from", "to")
	n.baseURL = srv.URL

	err := n.NotifyBooked(context.Background(), testSlot(), "CA555")
	assert.Error(t, err)
}
