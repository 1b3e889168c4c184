package timeouts

import (
	"testing"
	"time"
)

func TestConfigureFromEnv(t *testing.T) {
	t.Cleanup(Reset)
	t.Setenv("MYSRE_TIMEOUT_SHORT", "2s")
	t.Setenv("MYSRE_TIMEOUT_LONG", "not-a-duration")
	t.Setenv("MYSRE_TIMEOUT_PING", "-5s")

	if n := ConfigureFromEnv(); n != 1 {
		t.Errorf("ConfigureFromEnv() = %d, want 1", n)
	}
	if Short() != 2*time.Second {
		t.Errorf("Short() = %v, want 2s", Short())
	}
	if Long() != DefaultLong {
		t.Errorf("Long() = %v, want default", Long())
	}
	if Ping() != DefaultPing {
		t.Errorf("Ping() = %v, want default", Ping())
	}
}

func TestConfigure_IgnoresZero(t *testing.T) {
	t.Cleanup(Reset)
	Configure(Config{Medium: 3 * time.Second})

	cur := Current()
	if cur.Medium != 3*time.Second {
		t.Errorf("Medium = %v, want 3s", cur.Medium)
	}
	if cur.Short != DefaultShort || cur.Ping != DefaultPing {
		t.Errorf("unset values changed: %+v", cur)
	}
}
