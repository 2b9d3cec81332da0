package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchvault/backend/internal/apperr"
)

func mustKey(t *testing.T, sessionID, id string, date time.Time, ext string) string {
	t.Helper()
	key, err := DeriveKey(sessionID, id, date, ext)
	require.NoError(t, err)
	return key
}

func TestDeriveKey(t *testing.T) {
	start := time.Date(2024, 6, 15, 18, 0, 0, 0, time.UTC)

	t.Run("canonical format", func(t *testing.T) {
		assert.Equal(t, "recordings/2024-06-15/S1/P1.mp4", mustKey(t, "S1", "P1", start, ""))
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, mustKey(t, "S1", "P1", start, "mp4"), mustKey(t, "S1", "P1", start, "mp4"))
	})

	t.Run("same calendar day ignores time of day", func(t *testing.T) {
		morning := time.Date(2024, 6, 15, 0, 0, 1, 0, time.UTC)
		night := time.Date(2024, 6, 15, 23, 59, 59, 0, time.UTC)
		assert.Equal(t, mustKey(t, "S1", "P1", morning, ""), mustKey(t, "S1", "P1", night, ""))
	})

	t.Run("date is taken in UTC", func(t *testing.T) {
		loc := time.FixedZone("UTC+3", 3*3600)
		local := time.Date(2024, 6, 16, 1, 0, 0, 0, loc) // 2024-06-15T22:00Z
		assert.Equal(t, "recordings/2024-06-15/S1/P1.mp4", mustKey(t, "S1", "P1", local, ""))
	})

	t.Run("date change yields a different key", func(t *testing.T) {
		assert.NotEqual(t, mustKey(t, "S2", "P2", start, ""), mustKey(t, "S2", "P2", start.AddDate(0, 0, -1), ""))
	})

	t.Run("extension with leading dot", func(t *testing.T) {
		assert.Equal(t, "recordings/2024-06-15/S1/P1.mkv", mustKey(t, "S1", "P1", start, ".mkv"))
	})

	t.Run("rejects ids that change the key shape", func(t *testing.T) {
		for _, ids := range [][2]string{{"", "P1"}, {"..", "P1"}, {"S1/../x", "P1"}, {"S1", ""}, {"S1", "a/b"}} {
			key, err := DeriveKey(ids[0], ids[1], start, "")
			require.Error(t, err, "session %q production %q", ids[0], ids[1])
			assert.Empty(t, key)
			assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))
		}
	})
}

func TestParseBusinessDate(t *testing.T) {
	want := time.Date(2024, 6, 15, 18, 0, 0, 0, time.UTC)

	got, err := ParseBusinessDate(want)
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	got, err = ParseBusinessDate("2024-06-15T18:00:00Z")
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	got, err = ParseBusinessDate("2024-06-15")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-15", got.Format("2006-01-02"))

	_, err = ParseBusinessDate("15/06/2024")
	assert.Error(t, err)

	_, err = ParseBusinessDate(1718474400)
	assert.Error(t, err)

	_, err = ParseBusinessDate(time.Time{})
	assert.Error(t, err)
}
