// Package audit records who did what, when, and with what outcome. The
// trail is observability, not a transaction participant: persistence
// failures are logged and swallowed so the audit path can never block or
// roll back legitimate traffic.
package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"campusdesk/api/internal/ids"
	"campusdesk/api/internal/models"
)

const persistTimeout = 5 * time.Second

// Store appends one entry to the audit sink.
type Store interface {
	Append(ctx context.Context, entry models.AuditEntry) error
}

type Recorder struct {
	store Store
	log   zerolog.Logger
	now   func() time.Time
}

func NewRecorder(store Store, log zerolog.Logger) *Recorder {
	return &Recorder{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// Record persists one entry, filling in id and timestamp when absent. The
// parent context's cancellation is detached: a client that disconnects
// after the business outcome was reached still gets its action recorded.
func (r *Recorder) Record(ctx context.Context, entry models.AuditEntry) {
	if entry.ActorUserID == "" {
		// Nothing to attribute the action to.
		return
	}
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC()
	}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := r.store.Append(persistCtx, entry); err != nil {
		r.log.Error().
			Err(err).
			Str("action", entry.Action).
			Str("actor", entry.ActorUsername).
			Msg("audit append failed")
	}
}
