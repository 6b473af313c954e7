package ics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolcal/internal/model"
)

func sampleEvents() []model.EventInstance {
	date := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)
	return []model.EventInstance{{
		UID:       "2025-09-01-1-Math@test.local",
		Date:      date,
		PeriodID:  "1",
		SubjectID: "Math",
		Summary:   "Mathematics",
		Start:     time.Date(2025, time.September, 1, 8, 0, 0, 0, time.UTC),
		End:       time.Date(2025, time.September, 1, 8, 45, 0, 0, time.UTC),
	}}
}

func TestSerializeAt(t *testing.T) {
	stamp := time.Date(2025, time.September, 1, 12, 0, 0, 0, time.UTC)
	payload := SerializeAt(sampleEvents(), stamp)

	assert.True(t, strings.HasPrefix(payload, "BEGIN:VCALENDAR"))
	assert.Contains(t, payload, "UID:2025-09-01-1-Math@test.local")
	assert.Contains(t, payload, "SUMMARY:Mathematics")

	// Floating local times: no UTC designator on DTSTART/DTEND.
	assert.Contains(t, payload, "DTSTART:20250901T080000\r\n")
	assert.Contains(t, payload, "DTEND:20250901T084500\r\n")
	assert.NotContains(t, payload, "DTSTART:20250901T080000Z")
}

func TestSerializeDeterministicForFixedStamp(t *testing.T) {
	stamp := time.Date(2025, time.September, 1, 12, 0, 0, 0, time.UTC)
	first := SerializeAt(sampleEvents(), stamp)
	second := SerializeAt(sampleEvents(), stamp)
	require.Equal(t, first, second)
}

func TestSerializePreservesOrder(t *testing.T) {
	events := sampleEvents()
	second := events[0]
	second.UID = "2025-09-01-2-Eng@test.local"
	second.Summary = "English"
	events = append(events, second)

	payload := SerializeAt(events, time.Date(2025, time.September, 1, 12, 0, 0, 0, time.UTC))
	mathIdx := strings.Index(payload, "UID:2025-09-01-1-Math@test.local")
	engIdx := strings.Index(payload, "UID:2025-09-01-2-Eng@test.local")
	require.GreaterOrEqual(t, mathIdx, 0)
	require.GreaterOrEqual(t, engIdx, 0)
	assert.Less(t, mathIdx, engIdx)
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "calendar.ics")

	require.NoError(t, WriteFile(path, sampleEvents()))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "UID:2025-09-01-1-Math@test.local")
	assert.True(t, strings.HasSuffix(strings.TrimRight(string(body), "\r\n"), "END:VCALENDAR"))
}
