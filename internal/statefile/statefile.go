// Package statefile loads state snapshots from JSON, YAML and CUE files.
package statefile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/statebox/internal/ir"
)

// Format identifies a state file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// Error codes reported in LoadError.Code.
const (
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeUnsupported = "E010" // Unknown file extension
	ErrCodeParse       = "E011" // Syntax error in the file
	ErrCodeBuildFailed = "E006" // CUE build or validation failed
	ErrCodeNotObject   = "E012" // Top-level value is not an object
	ErrCodeValue       = "E013" // Value not representable (floats, ...)
)

// StateField is the CUE field consulted before falling back to the root.
const StateField = "state"

// LoadError represents an error that occurred while loading a state file.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// FormatOf picks the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	default:
		return "", &LoadError{
			Code:    ErrCodeUnsupported,
			Message: fmt.Sprintf("unsupported state file %q (want .json, .yaml, .yml or .cue)", path),
		}
	}
}

// Load reads path and returns its state as a writable object.
func Load(path string) (*ir.Object, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("state file not found: %s", path)}
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}
	return Parse(data, format, path)
}

// Parse decodes data in the given format. filename is used for CUE
// positions and messages only.
func Parse(data []byte, format Format, filename string) (*ir.Object, error) {
	var (
		v   ir.Value
		err error
	)
	switch format {
	case FormatJSON:
		v, err = parseJSON(data)
	case FormatYAML:
		v, err = parseYAML(data)
	case FormatCUE:
		v, err = parseCUE(data, filename)
	default:
		return nil, &LoadError{Code: ErrCodeUnsupported, Message: fmt.Sprintf("unsupported format %q", format)}
	}
	if err != nil {
		return nil, err
	}

	obj, ok := v.(*ir.Object)
	if !ok {
		return nil, &LoadError{
			Code:    ErrCodeNotObject,
			Message: fmt.Sprintf("%s: state must be an object, got %s", filename, ir.KindOf(v)),
		}
	}
	return obj, nil
}

func parseJSON(data []byte) (ir.Value, error) {
	v, err := ir.UnmarshalValue(data)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Message: err.Error()}
	}
	return v, nil
}

func parseYAML(data []byte) (ir.Value, error) {
	var raw any
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Message: err.Error()}
	}
	return FromYAML(raw)
}

// FromYAML converts a value decoded by yaml.v3 into the value model.
func FromYAML(raw any) (ir.Value, error) {
	v, err := ir.FromGo(raw)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeValue, Message: err.Error()}
	}
	return v, nil
}

func parseCUE(data []byte, filename string) (ir.Value, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Message: fmt.Sprintf("compiling CUE: %v", err)}
	}

	if state := value.LookupPath(cue.ParsePath(StateField)); state.Exists() {
		value = state
	}

	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, &LoadError{
			Code:    ErrCodeBuildFailed,
			Message: fmt.Sprintf("state must be concrete: %v", err),
			Pos:     value.Pos(),
		}
	}

	data, err := value.MarshalJSON()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("exporting CUE: %v", err), Pos: value.Pos()}
	}

	v, err := ir.UnmarshalValue(data)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeValue, Message: err.Error(), Pos: value.Pos()}
	}
	return v, nil
}
