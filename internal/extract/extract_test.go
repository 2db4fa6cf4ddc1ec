package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"beebi/backend/internal/activity"
)

func TestVolume(t *testing.T) {
	cases := []struct {
		name string
		text string
		want int
		ok   bool
	}{
		{name: "plain", text: "120ml", want: 120, ok: true},
		{name: "spaced unit", text: "bottle 90 ml", want: 90, ok: true},
		{name: "upper case", text: "150ML formula", want: 150, ok: true},
		{name: "first unit qualified", text: "2 bottles, 60ml then 30ml", want: 60, ok: true},
		{name: "no unit", text: "120", ok: false},
		{name: "other unit", text: "15 min", ok: false},
		{name: "empty", text: "", ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Volume(tc.text)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				require.Equal(t, tc.want, got)
			}
		})
	}
}

func TestLevels(t *testing.T) {
	pee, ok := PeeLevel("pee:medium poo:big")
	require.True(t, ok)
	require.Equal(t, activity.Medium, pee)

	poo, ok := PooLevel("pee:medium POO:Big")
	require.True(t, ok)
	require.Equal(t, activity.Big, poo)

	_, ok = PooLevel("pee:small")
	require.False(t, ok)

	_, ok = PeeLevel("pee:huge")
	require.False(t, ok)
}

func TestFeed(t *testing.T) {
	got, ok := Feed("Breast left")
	require.True(t, ok)
	require.Equal(t, activity.Breast, got)

	got, ok = Feed("FORMULA")
	require.True(t, ok)
	require.Equal(t, activity.Formula, got)

	got, ok = Feed("formula top-up after breast")
	require.True(t, ok)
	require.Equal(t, activity.Formula, got)

	_, ok = Feed("bottle")
	require.False(t, ok)
}

func TestFieldsExtract(t *testing.T) {
	start := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	record := activity.Record{
		ID:             "1",
		SubjectID:      "10",
		Type:           activity.Feed,
		StartTime:      start,
		StartCondition: "Formula",
		EndCondition:   "110ml",
	}

	n := Fields{}.Extract(record)
	require.Equal(t, record, n.Record)
	require.NotNil(t, n.VolumeML)
	require.Equal(t, 110, *n.VolumeML)
	require.NotNil(t, n.FeedType)
	require.Equal(t, activity.Formula, *n.FeedType)
	require.Nil(t, n.PeeLevel)
	require.Nil(t, n.PooLevel)

	again := Fields{}.Extract(record)
	require.Equal(t, n, again)
}

func TestFieldsExtractFallsBackToStartCondition(t *testing.T) {
	record := activity.Record{
		Type:           activity.Diaper,
		StartTime:      time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC),
		StartCondition: "pee:small",
		EndCondition:   "poo:big",
	}
	n := Fields{}.Extract(record)
	require.NotNil(t, n.PeeLevel)
	require.Equal(t, activity.Small, *n.PeeLevel)
	require.NotNil(t, n.PooLevel)
	require.Equal(t, activity.Big, *n.PooLevel)
	require.Nil(t, n.VolumeML)
}

func TestAllPreservesOrder(t *testing.T) {
	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	records := []activity.Record{
		{ID: "a", StartTime: base, EndCondition: "80ml"},
		{ID: "b", StartTime: base.Add(time.Hour), EndCondition: "bad"},
	}
	out := All(Fields{}, records)
	require.Len(t, out, 2)
	require.Equal(t, "a", out[0].ID)
	require.Equal(t, 80, *out[0].VolumeML)
	require.Nil(t, out[1].VolumeML)
}
