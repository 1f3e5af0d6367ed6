package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/statebox/internal/bus"
)

// Session describes one recorded store lifetime.
type Session struct {
	ID                 string
	Label              string
	InitialFingerprint string
}

// List returns the entries of a session ordered by seq.
// An empty session lists every entry, ordered by session then seq.
//
// All queries include ORDER BY ... COLLATE BINARY for deterministic
// results.
func (j *Journal) List(ctx context.Context, session string) ([]Entry, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if session == "" {
		rows, err = j.db.QueryContext(ctx, `
			SELECT session, seq, kind, fingerprint, prev_fingerprint, state
			FROM dispatches
			ORDER BY session COLLATE BINARY ASC, seq ASC
		`)
	} else {
		rows, err = j.db.QueryContext(ctx, `
			SELECT session, seq, kind, fingerprint, prev_fingerprint, state
			FROM dispatches
			WHERE session = ?
			ORDER BY seq ASC
		`, session)
	}
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	return entries, nil
}

// Count returns the number of entries in a session, optionally filtered by
// kind. Pass bus.KindAll to count every kind.
func (j *Journal) Count(ctx context.Context, session string, kind bus.Kind) (int, error) {
	var count int
	var err error
	if kind == bus.KindAll {
		err = j.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM dispatches WHERE session = ?`, session,
		).Scan(&count)
	} else {
		err = j.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM dispatches WHERE session = ? AND kind = ?`, session, kind.String(),
		).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return count, nil
}

// Sessions returns every registered session ordered by id.
func (j *Journal) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, label, initial_fingerprint
		FROM sessions
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.Label, &s.InitialFingerprint); err != nil {
			return nil, fmt.Errorf("sessions: scan: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sessions: %w", err)
	}
	return sessions, nil
}

// ReadSession returns one session. Returns sql.ErrNoRows (wrapped) if the
// session does not exist.
func (j *Journal) ReadSession(ctx context.Context, id string) (Session, error) {
	var s Session
	err := j.db.QueryRowContext(ctx, `
		SELECT id, label, initial_fingerprint FROM sessions WHERE id = ?
	`, id).Scan(&s.ID, &s.Label, &s.InitialFingerprint)
	if err != nil {
		return Session{}, fmt.Errorf("read session %s: %w", id, err)
	}
	return s, nil
}

// LastSeq returns the highest seq recorded for a session, or 0.
func (j *Journal) LastSeq(ctx context.Context, session string) (int64, error) {
	var seq sql.NullInt64
	err := j.db.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM dispatches WHERE session = ?`, session,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return seq.Int64, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e         Entry
		kind      string
		stateJSON string
	)
	if err := rows.Scan(&e.Session, &e.Seq, &kind, &e.Fingerprint, &e.PrevFingerprint, &stateJSON); err != nil {
		return Entry{}, fmt.Errorf("scan: %w", err)
	}
	k, err := bus.ParseKind(kind)
	if err != nil {
		return Entry{}, fmt.Errorf("scan seq %d: %w", e.Seq, err)
	}
	e.Kind = k
	state, err := unmarshalState(stateJSON)
	if err != nil {
		return Entry{}, fmt.Errorf("scan seq %d: %w", e.Seq, err)
	}
	e.State = state
	return e, nil
}
