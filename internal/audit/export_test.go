package audit

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolved(id, details string, at time.Time) ResolvedEntry {
	return ResolvedEntry{
		Entry: Entry{
			ID:         id,
			ActorID:    "u1",
			Action:     ActionCreate,
			TargetType: TargetRole,
			TargetID:   "role-1",
			Details:    details,
			CreatedAt:  at,
		},
		ActorName:  "Alice Diop",
		ActorEmail: "alice@clinic.test",
	}
}

func TestWriteCSVHeaderAndRows(t *testing.T) {
	at := time.Date(2024, 6, 12, 10, 30, 0, 0, time.UTC)
	entries := []ResolvedEntry{
		resolved("e1", "Created role nurse", at),
		resolved("e2", "Created role cashier", at.Add(-time.Hour)),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, entries, time.UTC))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Date", "Utilisateur", "Action", "Type", "Détails"}, records[0])
	assert.Equal(t, []string{"12/06/2024 10:30:00", "Alice Diop", "create", "role", "Created role nurse"}, records[1])
}

func TestWriteCSVRoundTripsAwkwardDetails(t *testing.T) {
	details := []string{
		`Renamed role "nurse", effective now`,
		"line one\nline two",
		"plain",
	}
	entries := make([]ResolvedEntry, 0, len(details))
	at := time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)
	for i, d := range details {
		entries = append(entries, resolved(string(rune('a'+i)), d, at))
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, entries, time.UTC))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(details)+1)
	for i, d := range details {
		assert.Equal(t, d, records[i+1][4], "details must survive quoting")
		assert.Equal(t, "create", records[i+1][2])
		assert.Equal(t, "role", records[i+1][3])
	}
}

func TestWriteCSVFallsBackToEmailThenID(t *testing.T) {
	e := resolved("e1", "x", time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC))
	e.ActorName = ""

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []ResolvedEntry{e}, time.UTC))
	assert.True(t, strings.Contains(buf.String(), "alice@clinic.test"))

	e.ActorEmail = ""
	buf.Reset()
	require.NoError(t, WriteCSV(&buf, []ResolvedEntry{e}, time.UTC))
	assert.True(t, strings.Contains(buf.String(), "u1"))
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "logs-acces-2024-06-12.csv", ExportFilename(now))
}
