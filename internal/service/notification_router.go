package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"court-reservation-engine/internal/core/domain"
	"court-reservation-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const timeLayout = "Mon 02 Jan 15:04"

// NotificationRouter turns domain events into member notifications.
type NotificationRouter struct {
	notifier ports.Notifier
	log      zerolog.Logger
}

// NewNotificationRouter creates a new NotificationRouter.
func NewNotificationRouter(notifier ports.Notifier, log zerolog.Logger) *NotificationRouter {
	return &NotificationRouter{notifier: notifier, log: log}
}

// Handle notifies the member the event concerns. Events with nothing to say
// are ignored.
func (r *NotificationRouter) Handle(ctx context.Context, event domain.Event) error {
	title, message, severity, ok := r.render(event)
	if !ok {
		return nil
	}
	r.notifier.Notify(ctx, event.MemberID, title, message, severity)
	r.log.Debug().Str("event", string(event.Type)).Str("member_id", event.MemberID.String()).Msg("notification routed")
	return nil
}

func (r *NotificationRouter) render(event domain.Event) (string, string, domain.Severity, bool) {
	if event.Type == domain.EventSlotStatusChanged {
		// A hold that became a booking is covered by booking.created. An
		// evicted hold has nobody to tell.
		if event.Slot == nil || event.Slot.BookingID != nil || event.MemberID == uuid.Nil {
			return "", "", "", false
		}
		slot := event.Slot.Key
		if event.Slot.State == domain.SlotStateReserved && event.Slot.ExpiresAt != nil {
			return "Slot held",
				fmt.Sprintf("%s is held for you until %s.", slotWindow(slot.Start, slot.End), event.Slot.ExpiresAt.Format("15:04:05")),
				domain.SeverityInfo, true
		}
		return "Slot released", fmt.Sprintf("Your hold on %s has ended.", slotWindow(slot.Start, slot.End)), domain.SeverityInfo, true
	}

	b := event.Booking
	if b == nil {
		return "", "", "", false
	}
	window := slotWindow(b.StartTime, b.EndTime)

	switch event.Type {
	case domain.EventBookingCreated:
		if b.Status == domain.BookingStatusPendingPayment {
			return "Booking awaiting payment",
				fmt.Sprintf("%s is reserved. Confirm payment of %s to keep it.", window, formatAmount(b.TotalPrice)),
				domain.SeverityWarning, true
		}
		return "Booking confirmed", fmt.Sprintf("%s is booked. %s was charged to your wallet.", window, formatAmount(b.TotalPrice)), domain.SeveritySuccess, true
	case domain.EventBookingConfirmed:
		return "Booking confirmed", fmt.Sprintf("Payment received for %s.", window), domain.SeveritySuccess, true
	case domain.EventBookingCancelled:
		return "Booking cancelled", fmt.Sprintf("%s was cancelled. %s was refunded.", window, formatAmount(b.TotalPrice)), domain.SeverityInfo, true
	case domain.EventBookingTimedOut:
		return "Booking expired", fmt.Sprintf("%s was released because payment did not arrive in time.", window), domain.SeverityWarning, true
	case domain.EventBookingReminder:
		return "Booking reminder", fmt.Sprintf("Your court booking starts %s.", b.StartTime.Format(timeLayout)), domain.SeverityInfo, true
	default:
		return "", "", "", false
	}
}

func slotWindow(start, end time.Time) string {
	return start.Format(timeLayout) + "-" + end.Format("15:04")
}

func formatAmount(amount int64) string {
	return strconv.FormatInt(amount, 10)
}
