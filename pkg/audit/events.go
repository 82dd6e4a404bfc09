package audit

import (
	"fmt"
	"strings"
	"sync"
	"unicode"
)

// EventKind is one variant of the closed set of typed audit events. Free-form
// event names coming from intercepted calls are resolved to a kind through an
// EventRegistry; names that match nothing resolve to the registry fallback.
type EventKind struct {
	// Name is the canonical event type stored on records (e.g. "USER_LOGIN").
	Name string

	// Category groups related kinds ("auth", "user", "data", "system").
	Category string

	// Severity is applied when the caller does not supply one.
	Severity Severity

	// Aliases are additional names that resolve to this kind.
	Aliases []string
}

// Fallback kind used for names that match no registered kind.
var CustomEvent = EventKind{
	Name:     "CUSTOM_EVENT",
	Category: "custom",
	Severity: SeverityMedium,
}

// EventRegistry maps event names to kinds. It is safe for concurrent use.
type EventRegistry struct {
	mu       sync.RWMutex
	kinds    map[string]EventKind
	fallback EventKind
}

// NewEventRegistry creates an empty registry with the given fallback kind.
func NewEventRegistry(fallback EventKind) *EventRegistry {
	return &EventRegistry{
		kinds:    make(map[string]EventKind),
		fallback: fallback,
	}
}

// DefaultEventRegistry returns a registry preloaded with the built-in kinds
// and CustomEvent as fallback.
func DefaultEventRegistry() *EventRegistry {
	r := NewEventRegistry(CustomEvent)
	for _, k := range builtinKinds {
		// Built-in kinds have unique names and aliases.
		_ = r.Register(k)
	}
	return r
}

var builtinKinds = []EventKind{
	{Name: "USER_LOGIN", Category: "auth", Severity: SeverityLow, Aliases: []string{"LOGIN", "SIGN_IN", "AUTHENTICATE"}},
	{Name: "USER_LOGOUT", Category: "auth", Severity: SeverityLow, Aliases: []string{"LOGOUT", "SIGN_OUT"}},
	{Name: "LOGIN_FAILED", Category: "auth", Severity: SeverityHigh, Aliases: []string{"AUTHENTICATION_FAILED"}},
	{Name: "ACCESS_DENIED", Category: "auth", Severity: SeverityHigh, Aliases: []string{"PERMISSION_DENIED", "FORBIDDEN"}},
	{Name: "USER_CREATED", Category: "user", Severity: SeverityMedium, Aliases: []string{"CREATE_USER", "REGISTER_USER", "SIGN_UP"}},
	{Name: "USER_UPDATED", Category: "user", Severity: SeverityMedium, Aliases: []string{"UPDATE_USER"}},
	{Name: "USER_DELETED", Category: "user", Severity: SeverityHigh, Aliases: []string{"DELETE_USER"}},
	{Name: "PASSWORD_CHANGED", Category: "user", Severity: SeverityMedium, Aliases: []string{"CHANGE_PASSWORD", "RESET_PASSWORD"}},
	{Name: "ROLE_CHANGED", Category: "user", Severity: SeverityHigh, Aliases: []string{"ASSIGN_ROLE", "REVOKE_ROLE", "UPDATE_ROLE"}},
	{Name: "DATA_EXPORTED", Category: "data", Severity: SeverityMedium, Aliases: []string{"EXPORT_DATA", "EXPORT"}},
	{Name: "DATA_DELETED", Category: "data", Severity: SeverityHigh, Aliases: []string{"DELETE_DATA", "PURGE"}},
	{Name: "CONFIG_CHANGED", Category: "system", Severity: SeverityHigh, Aliases: []string{"UPDATE_CONFIG", "CHANGE_CONFIG"}},
	{Name: "ARCHIVE_CREATED", Category: "system", Severity: SeverityLow, Aliases: []string{"CREATE_ARCHIVE"}},
	{Name: "ARCHIVE_DELETED", Category: "system", Severity: SeverityMedium, Aliases: []string{"DELETE_ARCHIVE"}},
	{Name: "SYSTEM_ERROR", Category: "system", Severity: SeverityCritical},
}

// Register adds a kind. Its name and aliases must not already be taken.
func (r *EventRegistry) Register(kind EventKind) error {
	name := NormalizeEventName(kind.Name)
	if name == "" {
		return NewValidationError("eventKind.name", "event kind name must not be blank")
	}
	kind.Name = name
	if kind.Severity == "" {
		kind.Severity = SeverityMedium
	}

	keys := []string{name}
	for _, a := range kind.Aliases {
		if n := NormalizeEventName(a); n != "" {
			keys = append(keys, n)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, k := range keys {
		if existing, ok := r.kinds[k]; ok {
			return NewValidationError("eventKind.name",
				fmt.Sprintf("%q already registered to %s", k, existing.Name))
		}
	}
	for _, k := range keys {
		r.kinds[k] = kind
	}
	return nil
}

// Lookup returns the kind registered for name, if any.
func (r *EventRegistry) Lookup(name string) (EventKind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	k, ok := r.kinds[NormalizeEventName(name)]
	return k, ok
}

// Resolve returns the kind for name, or the fallback kind.
func (r *EventRegistry) Resolve(name string) EventKind {
	if k, ok := r.Lookup(name); ok {
		return k
	}
	return r.fallback
}

// Fallback returns the kind used for unmatched names.
func (r *EventRegistry) Fallback() EventKind {
	return r.fallback
}

// NormalizeEventName converts method-style names ("deleteUser",
// "UserService.Login", "data-export") into UPPER_SNAKE_CASE. Only the last
// dotted segment is kept.
func NormalizeEventName(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	prevLower := false
	prevSep := true
	for _, c := range name {
		switch {
		case unicode.IsUpper(c):
			if prevLower && !prevSep {
				b.WriteByte('_')
			}
			b.WriteRune(c)
			prevLower = false
			prevSep = false
		case unicode.IsLetter(c) || unicode.IsDigit(c):
			b.WriteRune(unicode.ToUpper(c))
			prevLower = true
			prevSep = false
		default:
			if !prevSep {
				b.WriteByte('_')
			}
			prevLower = false
			prevSep = true
		}
	}
	return strings.Trim(b.String(), "_")
}
