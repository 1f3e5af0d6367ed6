package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	fpCounter0 = "71b235fac09ad109"
	fpCounter1 = "fd9ffaa1eddc3c26"
)

const passingScenario = `name: counter
description: "counter moves to 1, then a repeated set is a dumpUpdate"
initial:
  counter: 0
session: cli-counter
subscribers:
  - id: everything
    kind: all
steps:
  - set: { counter: 1 }
  - set: { counter: 1 }
assertions:
  - type: fingerprint
    id: fd9ffaa1eddc3c26
  - type: kind_order
    subscriber: everything
    kinds: [update, dumpUpdate]
`

const failingScenario = `name: wrong
description: "asserts a counter value the steps never reach"
initial:
  counter: 0
steps:
  - set: { counter: 1 }
assertions:
  - type: field_equals
    path: counter
    value: 2
`

// writeFile writes content under dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs the root command with args and returns stdout and the error.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}
