package sessionid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const testUser = "3f2b8c1e-9a4d-4e7f-b1c2-0d9e8f7a6b5c"

func TestDerive(t *testing.T) {
	tests := []struct {
		name   string
		expiry float64
		want   string
	}{
		{"integer expiry", 1700000000, testUser + "_1700000000"},
		{"fractional expiry floors", 1700000000.987, testUser + "_1700000000"},
		{"just below boundary", 1700000000.999999, testUser + "_1700000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Derive(testUser, tt.expiry))
		})
	}
}

func TestDerive_Deterministic(t *testing.T) {
	a := Derive(testUser, 1700000123.4)
	b := Derive(testUser, 1700000123.9)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, Derive(testUser, 1700000124))
}

func TestFromExpiry(t *testing.T) {
	exp := time.Unix(1700000000, 750_000_000)
	assert.Equal(t, testUser+"_1700000000", FromExpiry(testUser, exp))
	assert.Equal(t, Derive(testUser, 1700000000.75), FromExpiry(testUser, exp))
}

func TestParseUserID(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"derived id", testUser + "_1700000000", testUser, true},
		{"bare uuid", testUser, testUser, true},
		{"uppercase uuid", "3F2B8C1E-9A4D-4E7F-B1C2-0D9E8F7A6B5C_1", "3F2B8C1E-9A4D-4E7F-B1C2-0D9E8F7A6B5C", true},
		{"surrounding spaces", "  " + testUser + "_42  ", testUser, true},
		{"empty", "", "", false},
		{"non-digit suffix", testUser + "_abc", "", false},
		{"trailing underscore", testUser + "_", "", false},
		{"prefix not uuid", "not-a-uuid_1700000000", "", false},
		{"no underscore garbage", "garbage", "", false},
		{"leading underscore", "_1700000000", "", false},
		{"negative suffix", testUser + "_-5", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseUserID(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseUserID_RoundTripsDerive(t *testing.T) {
	id := FromExpiry(testUser, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	got, ok := ParseUserID(id)
	assert.True(t, ok)
	assert.Equal(t, testUser, got)
	assert.True(t, Valid(id))
}
