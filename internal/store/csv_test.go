package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"beebi/backend/internal/activity"
)

const sampleExport = `ActivityID,CustomerID,Type,StartTime,EndTime,Duration,StartCondition,StartLocation,EndCondition,Notes
1,10,Feed,2025-05-01 08:00:00,2025-05-01 08:20:00,20,Formula,Home,120ml,
2,10,Feed,2025-05-01 11:00:00,,,Breast,Home,,
3,10,Diaper,2025-05-01 09:00:00,,,,,pee:small poo:big,
4,11,Feed,2025-05-01 09:30:00,,,Formula,,90ml,
5,10,Feed,not-a-date,,,Formula,,90ml,
6,10,Growth,2025-05-01 09:00:00,,,,,,height 60cm
7,10,Feed,2025-05-01 12:00:00,,abc,Formula,,90ml,
`

func writeExport(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "activity.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestCSVSourceFiltersAndParses(t *testing.T) {
	source := NewCSVSource(writeExport(t, sampleExport), time.UTC)

	batch, err := source.Fetch(context.Background(), Filter{SubjectID: "10", Type: activity.Feed})
	require.NoError(t, err)
	require.Len(t, batch.Records, 2)
	require.Equal(t, 2, batch.Dropped)

	first := batch.Records[0]
	require.Equal(t, "1", first.ID)
	require.Equal(t, "10", first.SubjectID)
	require.Equal(t, activity.Feed, first.Type)
	require.Equal(t, time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC), first.StartTime)
	require.NotNil(t, first.EndTime)
	require.NotNil(t, first.DurationMinutes)
	require.Equal(t, 20.0, *first.DurationMinutes)
	require.Equal(t, "Formula", first.StartCondition)
	require.Equal(t, "120ml", first.EndCondition)

	second := batch.Records[1]
	require.Nil(t, second.EndTime)
	require.Nil(t, second.DurationMinutes)
}

func TestCSVSourceAppliesSince(t *testing.T) {
	source := NewCSVSource(writeExport(t, sampleExport), time.UTC)
	since := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	batch, err := source.Fetch(context.Background(), Filter{SubjectID: "10", Type: activity.Feed, Since: &since})
	require.NoError(t, err)
	require.Len(t, batch.Records, 1)
	require.Equal(t, "2", batch.Records[0].ID)
}

func TestCSVSourceRejectsMissingHeaders(t *testing.T) {
	source := NewCSVSource(writeExport(t, "id,when\n1,2025-05-01\n"), time.UTC)
	_, err := source.Fetch(context.Background(), Filter{Type: activity.Feed})
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "missing required csv header"))
}

func TestCSVSourceMissingFile(t *testing.T) {
	source := NewCSVSource(filepath.Join(t.TempDir(), "absent.csv"), time.UTC)
	_, err := source.Fetch(context.Background(), Filter{Type: activity.Feed})
	require.Error(t, err)
}

func TestCSVSourceEmptyFile(t *testing.T) {
	source := NewCSVSource(writeExport(t, ""), time.UTC)
	batch, err := source.Fetch(context.Background(), Filter{Type: activity.Feed})
	require.NoError(t, err)
	require.Empty(t, batch.Records)
}
