// Package sessionid derives and parses the session identifiers attached to
// recorded statements.
//
// A derived session id has the form "<userId>_<expiry>", where expiry is the
// integer epoch second at which the user's credential expires. The same
// credential always yields the same id, so statements recorded from
// different requests within one login group together without any stored
// session entity.
package sessionid

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// Derive returns "<userID>_<floor(expiryEpochSeconds)>".
func Derive(userID string, expiryEpochSeconds float64) string {
	return userID + "_" + strconv.FormatInt(int64(math.Floor(expiryEpochSeconds)), 10)
}

// FromExpiry is Derive for callers holding a time.Time.
// Sub-second precision is dropped.
func FromExpiry(userID string, expiry time.Time) string {
	return Derive(userID, float64(expiry.Unix()))
}

// ParseUserID extracts the user id from a derived session id.
//
// It accepts "<uuid>_<digits>" (split on the last underscore) and a bare
// UUID. Anything else returns ok=false.
func ParseUserID(s string) (userID string, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if IsUUID(s) {
		return s, true
	}
	i := strings.LastIndexByte(s, '_')
	if i <= 0 || i == len(s)-1 {
		return "", false
	}
	prefix, suffix := s[:i], s[i+1:]
	if !allDigits(suffix) || !IsUUID(prefix) {
		return "", false
	}
	return prefix, true
}

// Valid reports whether s parses as a derived session id or bare UUID.
func Valid(s string) bool {
	_, ok := ParseUserID(s)
	return ok
}

// IsUUID reports whether s has the canonical 8-4-4-4-12 hex shape.
func IsUUID(s string) bool {
	return uuidPattern.MatchString(s)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
