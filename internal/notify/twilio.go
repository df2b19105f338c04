package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ringbook/internal/models"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// TwilioNotifier posts the booking notice to a WhatsApp number through the
// Twilio Messages API.
type TwilioNotifier struct {
	accountSID string
	authToken  string
	from       string // e.g. "whatsapp:+14155238886"
	to         string // reception WhatsApp number
	baseURL    string
	httpClient *http.Client
}

// NewTwilioNotifier constructs a WhatsApp notifier.
func NewTwilioNotifier(accountSID, authToken, from, to string) *TwilioNotifier {
	return &TwilioNotifier{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		to:         to,
		baseURL:    twilioAPIBase,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Name implements Notifier.
func (t *TwilioNotifier) Name() string { return "whatsapp" }

// NotifyBooked sends the staff message for a booked slot.
func (t *TwilioNotifier) NotifyBooked(ctx context.Context, slot models.Slot, holderRef string) error {
	body := fmt.Sprintf("New Appointment Booked!\n\nSlot: %s\nCall SID: %s\nBooked at: %s",
		slot.ConfirmationTime(), holderRef, time.Now().Format("3:04 PM"))

	form := url.Values{
		"To":   {t.to},
		"From": {t.from},
		"Body": {body},
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", t.baseURL, url.PathEscape(t.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("twilio message: http %d", resp.StatusCode)
	}
	return nil
}
