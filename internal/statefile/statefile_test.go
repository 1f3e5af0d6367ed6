package statefile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statebox/internal/ir"
)

const wantCanonical = `{"counter":0,"foo":"foo","nullObj":null,"settings":{"baz":2,"foo":{"bar":1}}}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func canonical(t *testing.T, obj *ir.Object) string {
	t.Helper()
	data, err := ir.MarshalCanonical(obj)
	require.NoError(t, err)
	return string(data)
}

func TestLoadFormats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "json",
			file: "state.json",
			content: `{"nullObj": null, "counter": 0, "foo": "foo",
				"settings": {"foo": {"bar": 1}, "baz": 2}}`,
		},
		{
			name: "yaml",
			file: "state.yaml",
			content: `nullObj: null
counter: 0
foo: foo
settings:
  foo:
    bar: 1
  baz: 2
`,
		},
		{
			name: "yml extension",
			file: "state.YML",
			content: `{nullObj: ~, counter: 0, foo: foo, settings: {foo: {bar: 1}, baz: 2}}
`,
		},
		{
			name: "cue root",
			file: "state.cue",
			content: `nullObj: null
counter: 0
foo: "foo"
settings: {
	foo: bar: 1
	baz: 2
}
`,
		},
		{
			name: "cue state field",
			file: "state.cue",
			content: `#Settings: {foo: {bar: int}, baz: int}
state: {
	nullObj: null
	counter: 0
	foo: "foo"
	settings: #Settings & {foo: {bar: 1}, baz: 2}
}
notes: "ignored"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := Load(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)
			assert.Equal(t, wantCanonical, canonical(t, obj))
			assert.False(t, obj.Frozen())
		})
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
		code string
	}{
		{"unsupported extension", "state.toml", "a = 1", ErrCodeUnsupported},
		{"json syntax", "state.json", `{"a":`, ErrCodeParse},
		{"json float", "state.json", `{"a": 1.5}`, ErrCodeParse},
		{"json array root", "state.json", `[1, 2]`, ErrCodeNotObject},
		{"yaml syntax", "state.yaml", "a: [1, 2", ErrCodeParse},
		{"yaml float", "state.yaml", "a: 1.5\n", ErrCodeValue},
		{"yaml scalar root", "state.yaml", "hello\n", ErrCodeNotObject},
		{"cue syntax", "state.cue", "a: {", ErrCodeParse},
		{"cue incomplete", "state.cue", "a: int\n", ErrCodeBuildFailed},
		{"cue float", "state.cue", "a: 1.5\n", ErrCodeValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.body))
			require.Error(t, err)

			var le *LoadError
			require.True(t, errors.As(err, &le), "expected LoadError, got %T: %v", err, err)
			assert.Equal(t, tt.code, le.Code, le.Error())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))

	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeNotFound, le.Code)
}

func TestFormatOf(t *testing.T) {
	for path, want := range map[string]Format{
		"a.json":     FormatJSON,
		"dir/b.yaml": FormatYAML,
		"c.yml":      FormatYAML,
		"d.cue":      FormatCUE,
	} {
		got, err := FormatOf(path)
		require.NoError(t, err)
		assert.Equal(t, want, got, path)
	}
}

func TestParseUnknownFormat(t *testing.T) {
	_, err := Parse([]byte(`{}`), Format("xml"), "x")
	assert.Error(t, err)
}

func TestLoadErrorFormatting(t *testing.T) {
	err := &LoadError{Code: ErrCodeParse, Message: "bad"}
	assert.Equal(t, "E011: bad", err.Error())
}
