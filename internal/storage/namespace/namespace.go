// Package namespace maps user keys to physical storage keys.
//
// The physical key is namespace + ":" + user key. Namespaces cannot contain
// the separator, so two different namespaces never produce the same physical
// key.
package namespace

import (
	"sort"
	"strings"

	"github.com/yndnr/webstore-go/internal/core/domain"
)

// Separator joins a namespace and a user key.
const Separator = ":"

// Scope prefixes keys for one namespace.
type Scope struct {
	name   string
	prefix string
}

// New validates name and returns its Scope.
func New(name string) (Scope, error) {
	if err := Validate(name); err != nil {
		return Scope{}, err
	}
	return Scope{name: name, prefix: name + Separator}, nil
}

// Validate checks that name can serve as a namespace.
func Validate(name string) error {
	if name == "" {
		return domain.ErrConfiguration.WithDetails("namespace must not be empty")
	}
	if strings.Contains(name, Separator) {
		return domain.ErrConfiguration.Detailf("namespace %q must not contain %q", name, Separator)
	}
	return nil
}

// Name returns the namespace.
func (s Scope) Name() string {
	return s.name
}

// Prefix returns the physical key prefix, including the separator.
func (s Scope) Prefix() string {
	return s.prefix
}

// Physical returns the storage key for userKey.
func (s Scope) Physical(userKey string) string {
	return s.prefix + userKey
}

// User strips the namespace from a physical key. ok is false when the key
// belongs to another namespace.
func (s Scope) User(physical string) (string, bool) {
	if !strings.HasPrefix(physical, s.prefix) {
		return "", false
	}
	return physical[len(s.prefix):], true
}

// Owns reports whether physical belongs to this namespace.
func (s Scope) Owns(physical string) bool {
	return strings.HasPrefix(physical, s.prefix)
}

// Filter returns the user keys of every physical key in this namespace,
// sorted.
func (s Scope) Filter(physical []string) []string {
	out := make([]string, 0, len(physical))
	for _, k := range physical {
		if u, ok := s.User(k); ok {
			out = append(out, u)
		}
	}
	sort.Strings(out)
	return out
}
