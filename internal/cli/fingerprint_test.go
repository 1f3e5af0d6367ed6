package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint_Formats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"json", "state.json", `{"counter": 0}`},
		{"yaml", "state.yaml", "counter: 0\n"},
		{"cue top level", "state.cue", "counter: 0\n"},
		{"cue state field", "app.cue", "package app\n\nstate: {\n\tcounter: 0\n}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.file, tt.content)

			out, err := execute(t, "fingerprint", path)
			require.NoError(t, err)
			assert.Equal(t, fpCounter0+"\n"+`{"counter":0}`+"\n", out)
		})
	}
}

func TestFingerprint_KeyOrderIrrelevant(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.json", `{"counter": 0, "foo": "foo"}`)
	b := writeFile(t, dir, "b.json", `{"foo": "foo", "counter": 0}`)

	outA, err := execute(t, "fingerprint", a)
	require.NoError(t, err)
	outB, err := execute(t, "fingerprint", b)
	require.NoError(t, err)

	assert.Equal(t, outA, outB)
	assert.Contains(t, outA, "5035931e61d7c23a")
}

func TestFingerprint_JSONOutput(t *testing.T) {
	path := writeFile(t, t.TempDir(), "state.json", `{"counter": 1}`)

	out, err := execute(t, "--format", "json", "fingerprint", path)
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   FingerprintResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, fpCounter1, resp.Data.ID)
	assert.Equal(t, path, resp.Data.File)
	assert.JSONEq(t, `{"counter":1}`, string(resp.Data.State))
}

func TestFingerprint_MissingFile(t *testing.T) {
	_, err := execute(t, "fingerprint", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFingerprint_LoadErrorCodeInJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "state.json", `[1, 2]`)

	out, err := execute(t, "--format", "json", "fingerprint", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E012", resp.Error.Code)
}
