package model

import "time"

// NotificationChannel names a delivery channel a referee has enabled.
type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "EMAIL"
	ChannelSMS   NotificationChannel = "SMS"
	ChannelPush  NotificationChannel = "PUSH"
	ChannelInApp NotificationChannel = "IN_APP"
)

// NotificationKind classifies an outbound message.
type NotificationKind string

const (
	NotifyOffer        NotificationKind = "OFFER"
	NotifyReminder     NotificationKind = "REMINDER"
	NotifyCancellation NotificationKind = "CANCELLATION"
	NotifyPayment      NotificationKind = "PAYMENT"
)

// Notification is one outbound message flowing through the dispatch queue.
// Attempt counts per-channel delivery tries for backoff scheduling.
type Notification struct {
	ID           string              `json:"id"`
	Kind         NotificationKind    `json:"kind"`
	RefereeID    string              `json:"referee_id"`
	AssignmentID string              `json:"assignment_id,omitempty"`
	Channel      NotificationChannel `json:"channel"`
	Subject      string              `json:"subject"`
	Body         string              `json:"body"`
	Attempt      int                 `json:"attempt"`
	NotBefore    time.Time           `json:"not_before,omitempty"` // backoff gate
}
