package service

import (
	"context"
	"time"

	"companion/internal/domain"
	"companion/internal/logging"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationTripDeclared     NotificationType = "TRIP_DECLARED"
	NotificationTripCancelled    NotificationType = "TRIP_CANCELLED"
	NotificationInterestReceived NotificationType = "MATCH_INTEREST_RECEIVED"
	NotificationMatchAccepted    NotificationType = "MATCH_ACCEPTED"
	NotificationReportSubmitted  NotificationType = "REPORT_SUBMITTED"
)

// Notification represents a notification to be sent.
type Notification struct {
	Type        NotificationType
	RecipientID string
	Title       string
	Message     string
	Data        map[string]any
	CreatedAt   time.Time
}

// Notifier delivers notifications. Delivery channels (push, email, chat)
// live outside this service.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the log instead of delivering them.
type LogNotifier struct{}

// NewLogNotifier creates a new LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Notify logs n.
func (LogNotifier) Notify(ctx context.Context, n Notification) error {
	logging.Ctx(ctx).Info().
		Str("type", string(n.Type)).
		Str("recipient", n.RecipientID).
		Str("title", n.Title).
		Msg(n.Message)
	return nil
}

func tripDeclaredNotification(intent *domain.TripIntent) Notification {
	return Notification{
		Type:        NotificationTripDeclared,
		RecipientID: intent.UserID,
		Title:       "Trip Saved",
		Message:     "Your trip to " + intent.Destination + " is live. We'll look for companions heading there.",
		Data: map[string]any{
			"destination": intent.Destination,
			"start_date":  intent.StartDate,
			"end_date":    intent.EndDate,
		},
		CreatedAt: time.Now(),
	}
}

func tripCancelledNotification(userID string) Notification {
	return Notification{
		Type:        NotificationTripCancelled,
		RecipientID: userID,
		Title:       "Trip Cancelled",
		Message:     "Your trip has been removed from matching.",
		CreatedAt:   time.Now(),
	}
}

func interestReceivedNotification(in *domain.Interest) Notification {
	return Notification{
		Type:        NotificationInterestReceived,
		RecipientID: in.ToUserID,
		Title:       "Match interest",
		Message:     in.FromUserID + " is interested in traveling with you to " + in.Destination + ".",
		Data: map[string]any{
			"interest_id": in.ID,
			"from_user":   in.FromUserID,
			"destination": in.Destination,
		},
		CreatedAt: time.Now(),
	}
}

func matchAcceptedNotification(recipientID, otherID string, in *domain.Interest) Notification {
	return Notification{
		Type:        NotificationMatchAccepted,
		RecipientID: recipientID,
		Title:       "It's a match!",
		Message:     "You matched with " + otherID + " for " + in.Destination + ".",
		Data: map[string]any{
			"interest_id":  in.ID,
			"matched_with": otherID,
			"destination":  in.Destination,
		},
		CreatedAt: time.Now(),
	}
}

func reportSubmittedNotification(r *domain.Report) Notification {
	return Notification{
		Type:        NotificationReportSubmitted,
		RecipientID: r.ReporterID,
		Title:       "Report received",
		Message:     "We've received your report and will review it shortly.",
		Data:        map[string]any{"report_id": r.ID},
		CreatedAt:   time.Now(),
	}
}
