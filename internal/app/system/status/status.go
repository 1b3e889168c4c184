// Package status holds the account states a mirrored user can be in.
//
// The identity provider owns the account; this service only records whether
// the mirror may be resolved from weak evidence (session or user parameters).
package status

// Account states.
const (
	Active   = "active"
	Disabled = "disabled"
)

// IsValid returns true if s is a recognized status value.
func IsValid(s string) bool {
	return s == Active || s == Disabled
}

// Default returns the status given to a user mirrored for the first time.
func Default() string {
	return Active
}

// Resolvable reports whether a user in state s may be resolved by the
// identity chain. Records written before status existed have "" and count
// as active.
func Resolvable(s string) bool {
	return s == "" || s == Active
}
