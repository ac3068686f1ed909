package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/hivedesk/taskhub-api/internal/observability"
)

// recordAudit appends an audit entry after a mutation has already committed.
// A failed append is logged and counted but never rolls the mutation back or
// fails the caller's response.
func recordAudit(ctx context.Context, recorder ActivityRecorder, logger zerolog.Logger, entry ActivityEntry) {
	if err := recorder.Record(ctx, entry); err != nil {
		observability.AuditWriteFailures().Inc()
		logger.Error().Err(err).
			Str("activity_type", string(entry.Type)).
			Uint("actor_id", entry.ActorID).
			Msg("audit write failed after committed mutation")
	}
}
