package domain

import "strings"

// Backend identifies one of the storage backends.
//
// The set is closed: every switch over Backend must handle the four concrete
// values, and lookups use Index into fixed-size tables.
type Backend uint8

const (
	// BackendDefault selects the configured default backend.
	BackendDefault Backend = iota
	BackendLocal
	BackendSession
	BackendCookie
	BackendIndexedDB
)

// BackendCount is the number of concrete backends.
const BackendCount = 4

// String returns the canonical selector name.
func (b Backend) String() string {
	switch b {
	case BackendDefault:
		return "default"
	case BackendLocal:
		return "localStorage"
	case BackendSession:
		return "sessionStorage"
	case BackendCookie:
		return "cookie"
	case BackendIndexedDB:
		return "indexedDB"
	default:
		return "unknown"
	}
}

// Valid reports whether b is one of the concrete backends.
func (b Backend) Valid() bool {
	return b >= BackendLocal && b <= BackendIndexedDB
}

// Index returns the position of b in a [BackendCount]T table.
// It panics for BackendDefault and unknown values; resolve first.
func (b Backend) Index() int {
	if !b.Valid() {
		panic("domain: Index on unresolved backend " + b.String())
	}
	return int(b) - 1
}

// ParseBackend parses a backend selector.
//
// Accepted (case-insensitive): localStorage/local, sessionStorage/session,
// cookie/cookies, indexedDB/indexeddb/idb, and "" or "default".
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return BackendDefault, nil
	case "localstorage", "local":
		return BackendLocal, nil
	case "sessionstorage", "session":
		return BackendSession, nil
	case "cookie", "cookies":
		return BackendCookie, nil
	case "indexeddb", "idb":
		return BackendIndexedDB, nil
	default:
		return BackendDefault, ErrUnknownBackend.Detailf("selector %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (b Backend) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Backend) UnmarshalText(text []byte) error {
	parsed, err := ParseBackend(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// Backends returns every concrete backend in default fallback priority order.
func Backends() []Backend {
	return []Backend{BackendLocal, BackendSession, BackendCookie, BackendIndexedDB}
}

// Capabilities are the static facts of a backend.
type Capabilities struct {
	// Async is true when operations perform blocking I/O (transactions).
	Async bool `json:"async" yaml:"async"`

	// MaxBytes is the approximate size ceiling; 0 means no meaningful limit.
	MaxBytes int64 `json:"max_bytes" yaml:"max_bytes"`

	// PerEntryLimit is true when MaxBytes applies to each entry rather than
	// to the backend as a whole.
	PerEntryLimit bool `json:"per_entry_limit" yaml:"per_entry_limit"`

	// Notifies is true when the substrate emits cross-context change events.
	Notifies bool `json:"notifies" yaml:"notifies"`

	// Persistent is true when data outlives the context that wrote it.
	Persistent bool `json:"persistent" yaml:"persistent"`

	// Shared is true when every context of an origin sees the same data.
	Shared bool `json:"shared" yaml:"shared"`
}
