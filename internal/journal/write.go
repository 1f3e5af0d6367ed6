package journal

import (
	"context"
	"fmt"

	"github.com/roach88/statebox/internal/bus"
	"github.com/roach88/statebox/internal/ir"
)

// Entry is one journalled dispatch.
type Entry struct {
	Session         string
	Seq             int64
	Kind            bus.Kind
	Fingerprint     string
	PrevFingerprint string
	State           *ir.Object
}

// BeginSession registers a session before its first entry.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - re-registering an
// existing session keeps the original row.
func (j *Journal) BeginSession(ctx context.Context, session, label, initialFingerprint string) error {
	if session == "" {
		return fmt.Errorf("begin session: empty session id")
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO sessions (id, label, initial_fingerprint)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, session, label, initialFingerprint)
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}
	return nil
}

// Append inserts one entry. The session must already exist (foreign key
// constraint). Uses ON CONFLICT DO NOTHING for idempotency - writing the
// same (session, seq) twice is silently ignored.
//
// The state is stored as RFC 8785 canonical JSON.
func (j *Journal) Append(ctx context.Context, e Entry) error {
	if e.Kind == bus.KindAll || !e.Kind.Valid() {
		return fmt.Errorf("append: invalid kind %s", e.Kind)
	}

	stateJSON, err := marshalState(e.State)
	if err != nil {
		return fmt.Errorf("append: %w", err)
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO dispatches
		(session, seq, kind, fingerprint, prev_fingerprint, state)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		e.Session,
		e.Seq,
		e.Kind.String(),
		e.Fingerprint,
		e.PrevFingerprint,
		stateJSON,
	)
	if err != nil {
		return fmt.Errorf("append: %w", err)
	}

	return nil
}
