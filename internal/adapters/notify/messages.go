package notify

import (
	"context"
	"fmt"

	"github.com/courtside/refassign/internal/domain/model"
)

// Message ids are derived from (kind, assignment, version, channel) so the
// deduper suppresses double-dispatch when a lifecycle call is retried.

// SendAssignmentNotification offers an assignment to a referee across every
// channel the referee has enabled.
func (d *Dispatcher) SendAssignmentNotification(ctx context.Context, referee *model.Referee, a *model.Assignment, game *model.Game, venue *model.Venue) {
	venueName := "TBD"
	if venue != nil {
		venueName = venue.Name
	}
	when := "TBD"
	if game != nil {
		when = game.Start.Format("Mon Jan 2 15:04")
	}
	d.fanOut(ctx, referee, model.NotifyOffer, a,
		fmt.Sprintf("Game assignment: %s at %s", a.Role, venueName),
		fmt.Sprintf("You have been offered the %s role on %s at %s. Please confirm or decline.",
			a.Role, when, venueName))
}

// SendReminderNotification reminds a referee of an upcoming confirmed game.
func (d *Dispatcher) SendReminderNotification(ctx context.Context, referee *model.Referee, a *model.Assignment, game *model.Game, hoursBeforeGame int) {
	when := "soon"
	if game != nil {
		when = game.Start.Format("Mon Jan 2 15:04")
	}
	d.fanOut(ctx, referee, model.NotifyReminder, a,
		fmt.Sprintf("Reminder: game in %d hours", hoursBeforeGame),
		fmt.Sprintf("Reminder: you are confirmed as %s for the game at %s.", a.Role, when))
}

// SendCancellationNotification informs a referee their assignment was
// cancelled, with the admin's reason when given.
func (d *Dispatcher) SendCancellationNotification(ctx context.Context, referee *model.Referee, a *model.Assignment, reason string) {
	body := fmt.Sprintf("Your %s assignment for game %s has been cancelled.", a.Role, a.GameID)
	if reason != "" {
		body += " Reason: " + reason
	}
	d.fanOut(ctx, referee, model.NotifyCancellation, a, "Assignment cancelled", body)
}

// SendPaymentNotification informs a referee a payment was issued.
func (d *Dispatcher) SendPaymentNotification(ctx context.Context, referee *model.Referee, amount float64, period, method string) {
	d.fanOut(ctx, referee, model.NotifyPayment, nil,
		"Payment issued",
		fmt.Sprintf("A payment of %.2f for %s was issued via %s.", amount, period, method))
}

// fanOut enqueues one message per enabled channel, defaulting to IN_APP for
// referees who configured none.
func (d *Dispatcher) fanOut(ctx context.Context, referee *model.Referee, kind model.NotificationKind, a *model.Assignment, subject, body string) {
	channels := referee.Channels
	if len(channels) == 0 {
		channels = []model.NotificationChannel{model.ChannelInApp}
	}

	assignmentID, version := "", int64(0)
	if a != nil {
		assignmentID, version = a.ID, a.Version
	}
	for _, ch := range channels {
		msg := model.Notification{
			ID:           fmt.Sprintf("%s-%s-%s-v%d-%s", kind, referee.ID, assignmentID, version, ch),
			Kind:         kind,
			RefereeID:    referee.ID,
			AssignmentID: assignmentID,
			Channel:      ch,
			Subject:      subject,
			Body:         body,
		}
		if d.deduper.SeenAndRecord(ctx, msg.ID) {
			continue
		}
		if d.queue == nil || !d.queue.Enqueue(ctx, msg) {
			// Allow a later re-dispatch; the message never made it out.
			d.deduper.Unrecord(ctx, msg.ID)
		}
	}
}
