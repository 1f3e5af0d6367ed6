package journal

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statebox/internal/bus"
	"github.com/roach88/statebox/internal/ir"
)

const (
	fpCounter0 = "71b235fac09ad109"
	fpCounter1 = "fd9ffaa1eddc3c26"
	fpCounter2 = "e59511315b58df1b"
)

func counterState(n int) *ir.Object {
	return ir.FreezeObject(ir.MustObject(map[string]any{"counter": n}))
}

func beginTestSession(t *testing.T, j *Journal, id string) {
	t.Helper()
	require.NoError(t, j.BeginSession(context.Background(), id, "test", fpCounter0))
}

func TestAppendAndList(t *testing.T) {
	ctx := context.Background()
	j := createTestJournal(t)
	beginTestSession(t, j, "s1")

	require.NoError(t, j.Append(ctx, Entry{
		Session: "s1", Seq: 1, Kind: bus.KindUpdate,
		Fingerprint: fpCounter1, PrevFingerprint: fpCounter0, State: counterState(1),
	}))
	require.NoError(t, j.Append(ctx, Entry{
		Session: "s1", Seq: 2, Kind: bus.KindDumpUpdate,
		Fingerprint: fpCounter1, PrevFingerprint: fpCounter1, State: counterState(1),
	}))

	entries, err := j.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, int64(1), entries[0].Seq)
	assert.Equal(t, bus.KindUpdate, entries[0].Kind)
	assert.Equal(t, fpCounter1, entries[0].Fingerprint)
	assert.Equal(t, fpCounter0, entries[0].PrevFingerprint)
	assert.True(t, ir.Equal(counterState(1), entries[0].State))
	assert.True(t, entries[0].State.Frozen())

	assert.Equal(t, bus.KindDumpUpdate, entries[1].Kind)
}

func TestAppendStoresCanonicalJSON(t *testing.T) {
	ctx := context.Background()
	j := createTestJournal(t)
	beginTestSession(t, j, "s1")

	state := ir.FreezeObject(ir.MustObject(map[string]any{"z": 1, "a": "<b>"}))
	require.NoError(t, j.Append(ctx, Entry{
		Session: "s1", Seq: 1, Kind: bus.KindUpdate,
		Fingerprint: "x", PrevFingerprint: "y", State: state,
	}))

	var stored string
	require.NoError(t, j.db.QueryRow(`SELECT state FROM dispatches`).Scan(&stored))
	assert.Equal(t, `{"a":"<b>","z":1}`, stored)
}

func TestAppendIsIdempotent(t *testing.T) {
	ctx := context.Background()
	j := createTestJournal(t)
	beginTestSession(t, j, "s1")

	e := Entry{
		Session: "s1", Seq: 1, Kind: bus.KindUpdate,
		Fingerprint: fpCounter1, PrevFingerprint: fpCounter0, State: counterState(1),
	}
	require.NoError(t, j.Append(ctx, e))
	require.NoError(t, j.Append(ctx, e))

	n, err := j.Count(ctx, "s1", bus.KindAll)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAppendRejectsInvalidEntries(t *testing.T) {
	ctx := context.Background()
	j := createTestJournal(t)
	beginTestSession(t, j, "s1")

	err := j.Append(ctx, Entry{Session: "s1", Seq: 1, Kind: bus.KindAll, State: counterState(0)})
	assert.Error(t, err)

	err = j.Append(ctx, Entry{Session: "s1", Seq: 1, Kind: bus.KindUpdate})
	assert.Error(t, err, "nil state")

	err = j.Append(ctx, Entry{Session: "unknown", Seq: 1, Kind: bus.KindUpdate, State: counterState(0)})
	assert.Error(t, err, "session must exist")
}

func TestBeginSessionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	j := createTestJournal(t)

	require.NoError(t, j.BeginSession(ctx, "s1", "first", fpCounter0))
	require.NoError(t, j.BeginSession(ctx, "s1", "second", fpCounter1))

	s, err := j.ReadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "first", s.Label)
	assert.Equal(t, fpCounter0, s.InitialFingerprint)

	assert.Error(t, j.BeginSession(ctx, "", "", ""))
}

func TestReadSessionMissing(t *testing.T) {
	j := createTestJournal(t)

	_, err := j.ReadSession(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestListOrdering(t *testing.T) {
	ctx := context.Background()
	j := createTestJournal(t)
	beginTestSession(t, j, "b")
	beginTestSession(t, j, "a")

	// Insert out of order.
	for _, e := range []Entry{
		{Session: "b", Seq: 2, Kind: bus.KindUpdate, Fingerprint: "f", PrevFingerprint: "p", State: counterState(2)},
		{Session: "a", Seq: 1, Kind: bus.KindUpdate, Fingerprint: "f", PrevFingerprint: "p", State: counterState(1)},
		{Session: "b", Seq: 1, Kind: bus.KindUpdate, Fingerprint: "f", PrevFingerprint: "p", State: counterState(1)},
	} {
		require.NoError(t, j.Append(ctx, e))
	}

	b, err := j.List(ctx, "b")
	require.NoError(t, err)
	require.Len(t, b, 2)
	assert.Equal(t, int64(1), b[0].Seq)
	assert.Equal(t, int64(2), b[1].Seq)

	all, err := j.List(ctx, "")
	require.NoError(t, err)
	var order []string
	for _, e := range all {
		order = append(order, e.Session)
	}
	assert.Equal(t, []string{"a", "b", "b"}, order)

	sessions, err := j.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "a", sessions[0].ID)
	assert.Equal(t, "b", sessions[1].ID)
}

func TestCountByKind(t *testing.T) {
	ctx := context.Background()
	j := createTestJournal(t)
	beginTestSession(t, j, "s1")

	kinds := []bus.Kind{bus.KindInit, bus.KindUpdate, bus.KindDumpUpdate, bus.KindDumpUpdate}
	for i, k := range kinds {
		require.NoError(t, j.Append(ctx, Entry{
			Session: "s1", Seq: int64(i + 1), Kind: k,
			Fingerprint: "f", PrevFingerprint: "f", State: counterState(0),
		}))
	}

	for kind, want := range map[bus.Kind]int{
		bus.KindInit: 1, bus.KindUpdate: 1, bus.KindDumpUpdate: 2, bus.KindAll: 4,
	} {
		n, err := j.Count(ctx, "s1", kind)
		require.NoError(t, err)
		assert.Equal(t, want, n, kind.String())
	}
}

func TestLastSeq(t *testing.T) {
	ctx := context.Background()
	j := createTestJournal(t)
	beginTestSession(t, j, "s1")

	seq, err := j.LastSeq(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	require.NoError(t, j.Append(ctx, Entry{
		Session: "s1", Seq: 7, Kind: bus.KindUpdate,
		Fingerprint: "f", PrevFingerprint: "p", State: counterState(0),
	}))

	seq, err = j.LastSeq(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), seq)
}

func TestUnmarshalStateRejectsNonObjects(t *testing.T) {
	_, err := unmarshalState(`[1,2]`)
	assert.Error(t, err)

	_, err = unmarshalState(`{"a":1.5}`)
	assert.Error(t, err)
}
