package voice

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"ringbook/internal/metrics"
	"ringbook/internal/models"
	"ringbook/internal/session"
)

// Webhook steps the controller hands the call between. The telephony
// provider posts form-encoded events to these paths.
const (
	StepQuery    = "/process_query"
	StepSelect   = "/book_slot"
	StepFallback = "/fallback"
)

// bookingKeywords is the fixed booking-intent vocabulary. The match is a
// case-insensitive substring check, exactly this set.
var bookingKeywords = []string{"book", "appointment", "schedule", "reserve"}

// SlotStore is the reservation store contract the controller depends on.
type SlotStore interface {
	ListAvailable(ctx context.Context, limit int) ([]models.Slot, error)
	GetSlot(ctx context.Context, slotID int64) (*models.Slot, error)
	Reserve(ctx context.Context, slotID int64, holderRef string) (bool, error)
}

// BookedNotifier dispatches the staff notification for a successful booking.
// Fire-and-forget: the confirmation already given never depends on it.
type BookedNotifier interface {
	NotifyBooked(slot models.Slot, holderRef string)
}

// Config holds the call-flow settings.
type Config struct {
	MenuSize       int    // slots offered per call, at most 4
	FallbackNumber string // human-staffed line dialed on fallback
	Language       string // speech recognition language
}

// Controller drives one call through greeting, intent capture, slot
// presentation, digit selection and confirmation or fallback.
type Controller struct {
	store    SlotStore
	notifier BookedNotifier
	sessions *session.Store
	fsm      *session.FSM
	cfg      Config
	logger   *zerolog.Logger
}

// NewController creates a call controller.
func NewController(store SlotStore, notifier BookedNotifier, sessions *session.Store, cfg Config, logger *zerolog.Logger) *Controller {
	if cfg.MenuSize <= 0 || cfg.MenuSize > 4 {
		cfg.MenuSize = 4
	}
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	return &Controller{
		store:    store,
		notifier: notifier,
		sessions: sessions,
		fsm:      session.NewFSM(),
		cfg:      cfg,
		logger:   logger,
	}
}

// Sessions exposes the session arena for the cleanup loop.
func (c *Controller) Sessions() *session.Store {
	return c.sessions
}

// HandleInbound greets the caller and solicits a spoken intent.
func (c *Controller) HandleInbound(ctx context.Context, callSID string) *Response {
	c.sessions.GetOrCreate(callSID)
	c.logger.Info().Str("call_sid", callSID).Msg("incoming call")

	resp := &Response{}
	gather := Gather{
		Input:         "speech",
		Action:        StepQuery,
		Method:        "POST",
		SpeechTimeout: "3",
		Language:      c.cfg.Language,
	}
	gather.Say("Hello! Welcome to our appointment booking system. " +
		"Please tell me how I can help you today. " +
		"You can say things like 'book an appointment' or ask for assistance.")
	resp.Gather(gather)

	// No speech detected within the timeout.
	resp.Redirect(StepFallback)
	return resp
}

// HandleQuery classifies the caller's utterance and, on booking intent,
// presents the slot menu.
func (c *Controller) HandleQuery(ctx context.Context, callSID, speech string) *Response {
	sess := c.sessions.GetOrCreate(callSID)
	c.logger.Info().Str("call_sid", callSID).Str("speech", speech).Msg("speech result")

	resp := &Response{}

	if speech == "" {
		c.toFallback(sess)
		resp.Say("I'm sorry, I didn't catch that. Let me transfer you to our reception.")
		resp.Redirect(StepFallback)
		return resp
	}

	c.fsm.Transition(sess, session.StateIntentRouting)

	if !matchesBookingIntent(speech) {
		c.toFallback(sess)
		resp.Say("I understand you need assistance. Let me connect you with our reception team.")
		resp.Redirect(StepFallback)
		return resp
	}

	c.fsm.Transition(sess, session.StatePresentingSlots)

	slots, err := c.store.ListAvailable(ctx, c.cfg.MenuSize)
	if err != nil {
		c.logger.Error().Err(err).Str("call_sid", callSID).Msg("slot listing failed")
		slots = nil
	}
	if len(slots) == 0 {
		c.toFallback(sess)
		resp.Say("I'm sorry, we don't have any available appointment slots at the moment. " +
			"Let me transfer you to our reception for assistance.")
		resp.Redirect(StepFallback)
		return resp
	}

	snapshot := make([]int64, 0, len(slots))
	var menu strings.Builder
	menu.WriteString("Great! I found some available appointment slots. ")
	for i, slot := range slots {
		snapshot = append(snapshot, slot.ID)
		fmt.Fprintf(&menu, "Press %d for %s. ", i+1, slot.MenuTime())
	}
	menu.WriteString("Or press 0 to speak with our reception.")

	sess.SetSnapshot(snapshot)
	c.fsm.Transition(sess, session.StateAwaitingSelection)

	gather := Gather{
		NumDigits: 1,
		Action:    StepSelect,
		Method:    "POST",
		Timeout:   10,
	}
	gather.Say(menu.String())
	resp.Gather(gather)

	resp.Say("I didn't receive your selection. Let me transfer you to our reception.")
	resp.Redirect(StepFallback)
	return resp
}

// HandleSelect resolves the pressed digit against the snapshot captured at
// presentation time and attempts the reservation.
func (c *Controller) HandleSelect(ctx context.Context, callSID, digits string) *Response {
	sess := c.sessions.Get(callSID)
	c.logger.Info().Str("call_sid", callSID).Str("digits", digits).Msg("slot selection")

	resp := &Response{}

	if sess == nil || sess.GetState() != session.StateAwaitingSelection {
		// Session expired or the provider replayed a step out of order.
		resp.Say("I'm sorry, something went wrong. Let me transfer you to our reception.")
		resp.Redirect(StepFallback)
		return resp
	}

	if digits == "0" || digits == "" {
		c.toFallback(sess)
		resp.Say("Connecting you to our reception team.")
		resp.Redirect(StepFallback)
		return resp
	}

	position, err := strconv.Atoi(digits)
	if err != nil || position < 1 || position > sess.SnapshotSize() {
		c.toFallback(sess)
		resp.Say("Invalid selection. Let me transfer you to our reception.")
		resp.Redirect(StepFallback)
		return resp
	}

	// The digit maps to the slot the caller was read, not to whatever a
	// fresh listing would return now.
	slotID, ok := sess.SnapshotAt(position)
	if !ok {
		c.toFallback(sess)
		resp.Say("Invalid selection. Let me transfer you to our reception.")
		resp.Redirect(StepFallback)
		return resp
	}

	reserved, err := c.store.Reserve(ctx, slotID, callSID)
	if err != nil {
		c.logger.Error().Err(err).Str("call_sid", callSID).Int64("slot_id", slotID).Msg("reservation failed")
		reserved = false
	}
	if !reserved {
		metrics.IncReservationConflict()
		c.toFallback(sess)
		resp.Say("I'm sorry, that slot is no longer available. " +
			"Let me transfer you to our reception for other options.")
		resp.Redirect(StepFallback)
		return resp
	}

	slot, err := c.store.GetSlot(ctx, slotID)
	if err != nil {
		// The reservation held; fall back to a confirmation without the time.
		c.logger.Error().Err(err).Int64("slot_id", slotID).Msg("slot fetch after reserve failed")
		slot = &models.Slot{ID: slotID}
	}

	c.fsm.Transition(sess, session.StateConfirmed)
	c.sessions.Delete(callSID)
	metrics.IncCallHandled("confirmed")
	metrics.IncBookingCreated("voice")

	resp.Say(fmt.Sprintf("Perfect! I've successfully booked your appointment for %s. "+
		"You'll receive a confirmation message shortly. Thank you for choosing our service!",
		slot.ConfirmationTime()))

	c.notifier.NotifyBooked(*slot, callSID)

	resp.Hangup()
	return resp
}

// HandleFallback hands the call to the human-staffed line.
func (c *Controller) HandleFallback(ctx context.Context, callSID string) *Response {
	c.logger.Info().Str("call_sid", callSID).Msg("transferring call to fallback number")

	if sess := c.sessions.Get(callSID); sess != nil {
		c.toFallback(sess)
		c.sessions.Delete(callSID)
	}
	metrics.IncCallHandled("fallback")

	resp := &Response{}
	resp.Say("Please hold while I connect you to our reception team.")
	resp.Dial(c.cfg.FallbackNumber)
	return resp
}

// toFallback moves the session to the fallback state regardless of where
// the dialog currently is; every state has a fallback edge.
func (c *Controller) toFallback(sess *session.Session) {
	if !sess.GetState().Terminal() {
		c.fsm.Transition(sess, session.StateFallback)
	}
}

func matchesBookingIntent(speech string) bool {
	lower := strings.ToLower(speech)
	for _, keyword := range bookingKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
