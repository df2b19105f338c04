// Package notify delivers best-effort staff notifications for bookings.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"ringbook/internal/metrics"
	"ringbook/internal/models"
)

// Notifier posts a booked-slot notice to one staff channel.
type Notifier interface {
	// Name identifies the channel in logs and metrics.
	Name() string
	NotifyBooked(ctx context.Context, slot models.Slot, holderRef string) error
}

// RetryConfig holds configuration for retry logic.
type RetryConfig struct {
	MaxRetries  int
	RetryDelays []time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		RetryDelays: []time.Duration{
			1 * time.Second,
			5 * time.Second,
			30 * time.Second,
		},
	}
}

// Dispatcher fans a booking notice out to the configured channels without
// blocking the caller. Delivery is best-effort: failures are logged and
// counted, never propagated, and never reverse a reservation.
type Dispatcher struct {
	notifiers []Notifier
	limiter   *rate.Limiter
	retry     RetryConfig
	timeout   time.Duration
	logger    *zerolog.Logger
	wg        sync.WaitGroup
}

// NewDispatcher creates a dispatcher over the given channels.
func NewDispatcher(notifiers []Notifier, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		notifiers: notifiers,
		limiter:   rate.NewLimiter(rate.Limit(5), 10),
		retry:     DefaultRetryConfig(),
		timeout:   30 * time.Second,
		logger:    logger,
	}
}

// NotifyBooked dispatches the notification asynchronously.
func (d *Dispatcher) NotifyBooked(slot models.Slot, holderRef string) {
	for _, n := range d.notifiers {
		d.wg.Add(1)
		go func(n Notifier) {
			defer d.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()
			d.send(ctx, n, slot, holderRef)
		}(n)
	}
}

// Wait blocks until in-flight notifications are done. Used on shutdown and in tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) send(ctx context.Context, n Notifier, slot models.Slot, holderRef string) {
	if err := d.limiter.Wait(ctx); err != nil {
		d.logger.Error().Err(err).Str("channel", n.Name()).Msg("notification rate limiter")
		metrics.IncNotification(n.Name(), "dropped")
		return
	}

	var lastErr error
	for attempt := 0; attempt <= d.retry.MaxRetries; attempt++ {
		if err := n.NotifyBooked(ctx, slot, holderRef); err == nil {
			d.logger.Info().
				Str("channel", n.Name()).
				Int64("slot_id", slot.ID).
				Str("holder", holderRef).
				Msg("booking notification sent")
			metrics.IncNotification(n.Name(), "sent")
			return
		} else {
			lastErr = err
		}

		if attempt < d.retry.MaxRetries {
			delay := d.retry.RetryDelays[min(attempt, len(d.retry.RetryDelays)-1)]
			d.logger.Info().
				Str("channel", n.Name()).
				Int("attempt", attempt+1).
				Dur("delay", delay).
				Err(lastErr).
				Msg("retrying booking notification")

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				metrics.IncNotification(n.Name(), "failed")
				return
			}
		}
	}

	d.logger.Error().
		Str("channel", n.Name()).
		Int64("slot_id", slot.ID).
		Err(lastErr).
		Msg("booking notification failed")
	metrics.IncNotification(n.Name(), "failed")
}
