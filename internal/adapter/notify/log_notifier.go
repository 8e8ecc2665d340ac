package notify

import (
	"context"

	"court-reservation-engine/internal/core/domain"
	"court-reservation-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LogNotifier implements ports.Notifier by writing notifications to the log.
// It is the default when no broker is configured.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, memberID uuid.UUID, title, message string, severity domain.Severity) {
	n.log.Info().
		Str("member_id", memberID.String()).
		Str("severity", string(severity)).
		Str("title", title).
		Str("message", message).
		Msg("notification")
}

// Fanout delivers each notification to every notifier in order.
type Fanout []ports.Notifier

func (f Fanout) Notify(ctx context.Context, memberID uuid.UUID, title, message string, severity domain.Severity) {
	for _, n := range f {
		n.Notify(ctx, memberID, title, message, severity)
	}
}
