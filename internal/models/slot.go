// Package models contains the domain types shared across the service.
package models

import "time"

// Slot represents a bookable appointment slot.
type Slot struct {
	ID        int64     `json:"id"`
	SlotTime  time.Time `json:"slot_time"`
	Booked    bool      `json:"booked"`
	CallSID   *string   `json:"call_sid,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Holder returns the holder reference of a booked slot, or "" when available.
func (s *Slot) Holder() string {
	if s.CallSID == nil {
		return ""
	}
	return *s.CallSID
}

// MenuTime renders the slot time the way it is read out in the digit menu.
func (s *Slot) MenuTime() string {
	return s.SlotTime.Format("January 2 at 3:04 PM")
}

// ConfirmationTime renders the slot time for confirmations and notifications.
func (s *Slot) ConfirmationTime() string {
	return s.SlotTime.Format("January 2, 2006 at 3:04 PM")
}
