package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statebox/internal/bus"
	"github.com/roach88/statebox/internal/ir"
	"github.com/roach88/statebox/internal/journal"
)

// recordCounter runs the passing scenario into a fresh journal file.
func recordCounter(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := writeFile(t, dir, "counter.yaml", passingScenario)
	dbPath := filepath.Join(dir, "journal.db")

	_, err := execute(t, "run", path, "--db", dbPath)
	require.NoError(t, err)
	return dbPath
}

type traceResponse struct {
	Status string      `json:"status"`
	Data   TraceResult `json:"data"`
	Error  *CLIError   `json:"error"`
}

func decodeTrace(t *testing.T, out string) traceResponse {
	t.Helper()
	var resp traceResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	return resp
}

func TestTraceMissingDatabaseFlag(t *testing.T) {
	t.Setenv("STATEBOX_DB", "")

	_, err := execute(t, "trace")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--db is required")
}

func TestTraceInvalidKind(t *testing.T) {
	_, err := execute(t, "trace", "--db", recordCounter(t), "--kind", "bogus")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid --kind")
}

func TestTraceEmptyJournal(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")

	out, err := execute(t, "trace", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions found.")
}

func TestTraceText(t *testing.T) {
	dbPath := recordCounter(t)

	out, err := execute(t, "trace", "--db", dbPath)
	require.NoError(t, err)

	assert.Contains(t, out, "Session: cli-counter (counter)")
	assert.Contains(t, out, "Initial: "+fpCounter0)
	assert.Contains(t, out, "=== Timeline ===")
	assert.Contains(t, out, "[1] update     "+fpCounter0+" -> "+fpCounter1)
	assert.Contains(t, out, "[2] dumpUpdate "+fpCounter1+" -> "+fpCounter1)
	assert.Contains(t, out, "=== Stats ===")
	assert.Contains(t, out, "Status:       consistent")
	assert.NotContains(t, out, "State:")
}

func TestTraceVerboseIncludesState(t *testing.T) {
	out, err := execute(t, "trace", "--db", recordCounter(t), "-v")
	require.NoError(t, err)
	assert.Contains(t, out, `State: {"counter":1}`)
}

func TestTraceJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "trace", "--db", recordCounter(t))
	require.NoError(t, err)

	resp := decodeTrace(t, out)
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Sessions, 1)

	s := resp.Data.Sessions[0]
	assert.Equal(t, "cli-counter", s.Session)
	assert.Equal(t, fpCounter0, s.InitialFingerprint)
	require.Len(t, s.Timeline, 2)
	assert.Equal(t, "update", s.Timeline[0].Kind)
	assert.Equal(t, "dumpUpdate", s.Timeline[1].Kind)
	assert.Equal(t, TraceStats{
		Entries:          2,
		Updates:          1,
		DumpUpdates:      1,
		LastSeq:          2,
		FinalFingerprint: fpCounter1,
		Consistent:       true,
	}, s.Stats)
}

func TestTraceKindFilter(t *testing.T) {
	out, err := execute(t, "--format", "json", "trace", "--db", recordCounter(t), "--kind", "dumpUpdate")
	require.NoError(t, err)

	resp := decodeTrace(t, out)
	require.Len(t, resp.Data.Sessions, 1)
	timeline := resp.Data.Sessions[0].Timeline
	require.Len(t, timeline, 1)
	assert.Equal(t, int64(2), timeline[0].Seq)

	// Stats always cover the whole session.
	assert.Equal(t, 2, resp.Data.Sessions[0].Stats.Entries)
}

func TestTraceSessionFilter(t *testing.T) {
	dbPath := recordCounter(t)

	out, err := execute(t, "--format", "json", "trace", "--db", dbPath, "--session", "cli-counter")
	require.NoError(t, err)
	assert.Len(t, decodeTrace(t, out).Data.Sessions, 1)

	_, err = execute(t, "trace", "--db", dbPath, "--session", "nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "session not found: nope")
}

func TestTraceInconsistentJournal(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "bad.db")
	ctx := context.Background()

	j, err := journal.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, j.BeginSession(ctx, "bad", "tampered", fpCounter0))
	// The recorded fingerprint does not match the stored state.
	require.NoError(t, j.Append(ctx, journal.Entry{
		Session:         "bad",
		Seq:             1,
		Kind:            bus.KindUpdate,
		Fingerprint:     fpCounter0,
		PrevFingerprint: fpCounter0,
		State:           ir.FreezeObject(ir.MustObject(map[string]any{"counter": 1})),
	}))
	require.NoError(t, j.Close())

	out, err := execute(t, "trace", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Status:       INCONSISTENT")
	assert.Contains(t, out, "seq 1: state hashes to "+fpCounter1)

	out, err = execute(t, "--format", "json", "trace", "--db", dbPath)
	require.Error(t, err)
	resp := decodeTrace(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInconsistent, resp.Error.Code)
	assert.False(t, resp.Data.Sessions[0].Stats.Consistent)
}
