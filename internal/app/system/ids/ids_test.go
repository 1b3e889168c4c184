package ids

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAt_SortsInGenerationOrder(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var got []string
	for i := 0; i < 100; i++ {
		got = append(got, NewAt(at))
	}
	assert.True(t, sort.StringsAreSorted(got))
	assert.Len(t, got[0], 26)
}

func TestTime(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 123_000_000, time.UTC)
	ts, err := Time(NewAt(at))
	require.NoError(t, err)
	assert.True(t, ts.Equal(at), "got %v", ts)

	_, err = Time("not-a-ulid")
	assert.Error(t, err)
}
