package dispatcher

import (
	"context"

	"go.uber.org/zap"

	"github.com/plantops/workdesk/internal/domain/event"
)

// StatusChangeAudit returns a handler that writes one structured audit
// line per committed transition. It is the standing consumer for
// entity.status_changed events; correlation ids tie the line back to
// the originating request.
func StatusChangeAudit(logger *zap.Logger) Handler {
	return func(ctx context.Context, evt *event.Event) error {
		logger.Info("Status changed",
			zap.String("family", evt.Family.String()),
			zap.String("entity_id", evt.EntityID),
			zap.String("from", evt.GetPayloadString("previous_status")),
			zap.String("to", evt.GetPayloadString("new_status")),
			zap.String("trigger", evt.GetPayloadString("trigger")),
			zap.String("actor", evt.GetPayloadString("actor")),
			zap.String("correlation_id", evt.CorrelationID))
		return nil
	}
}
