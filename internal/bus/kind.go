package bus

import "fmt"

// Kind tags why subscribers are being notified.
type Kind uint8

const (
	// KindInit replays the current state to a new subscriber.
	KindInit Kind = iota + 1
	// KindUpdate reports a mutation that changed the state.
	KindUpdate
	// KindDumpUpdate reports a mutation attempt that changed nothing.
	KindDumpUpdate
	// KindAll subscribes to every other kind. It is never dispatched.
	KindAll
)

var kindNames = map[Kind]string{
	KindInit:       "init",
	KindUpdate:     "update",
	KindDumpUpdate: "dumpUpdate",
	KindAll:        "all",
}

// String returns the wire name: init, update, dumpUpdate or all.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Valid reports whether k is one of the four declared kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q: must be one of init, update, dumpUpdate, all", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid event kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, so kinds can be
// written by name in YAML scenarios and CLI flags.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
