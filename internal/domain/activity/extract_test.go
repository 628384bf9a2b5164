package activity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ganot/trainlog/internal/domain/activity"
	"github.com/ganot/trainlog/internal/workbook"
)

func TestExtract(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rec := &activity.Record{Messages: []activity.Message{
		{Name: "file_id", Fields: map[string]any{"type": "activity"}},
		{Name: "workout", Fields: map[string]any{"wkt_name": "Threshold 4x8"}},
		{Name: "session", Fields: map[string]any{
			"sport":              "running",
			"start_time":         start,
			"total_distance":     12500.0,
			"training_load_peak": 183.4,
		}},
		{Name: "session", Fields: map[string]any{"sport": "transition"}},
	}}

	m := activity.Extract(rec)
	require.NotNil(t, m.Sport)
	require.Equal(t, "running", *m.Sport)
	require.NotNil(t, m.WorkoutName)
	require.Equal(t, "Threshold 4x8", *m.WorkoutName)
	require.NotNil(t, m.Distance)
	require.Equal(t, 12500.0, *m.Distance)
	require.NotNil(t, m.TrainingLoad)
	require.Equal(t, 183.4, *m.TrainingLoad)

	// The 10:00 UTC start becomes the 11:00 CET wall clock, zone stripped.
	require.NotNil(t, m.StartTime)
	require.True(t, workbook.IsNaive(*m.StartTime))
	require.Equal(t, "2024-05-01T11:00:00", m.StartTime.Format("2006-01-02T15:04:05"))
}

func TestExtract_NaiveStartTimeUnchanged(t *testing.T) {
	naive := workbook.NaiveTime(time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC))
	rec := &activity.Record{Messages: []activity.Message{
		{Name: "session", Fields: map[string]any{"start_time": naive}},
	}}

	m := activity.Extract(rec)
	require.NotNil(t, m.StartTime)
	require.Equal(t, naive, *m.StartTime)
	require.Equal(t, 9, m.StartTime.Hour())
}

func TestExtract_MissingMessages(t *testing.T) {
	rec := &activity.Record{Messages: []activity.Message{
		{Name: "session", Fields: map[string]any{"sport": "cycling"}},
	}}

	m := activity.Extract(rec)
	require.NotNil(t, m.Sport)
	require.Nil(t, m.StartTime)
	require.Nil(t, m.WorkoutName)
	require.Nil(t, m.Distance)
	require.Nil(t, m.TrainingLoad)

	empty := activity.Extract(&activity.Record{})
	require.Nil(t, empty.Sport)
}

func TestMetricsValue(t *testing.T) {
	sport := "running"
	m := activity.Metrics{Sport: &sport}

	v, ok := m.Value(activity.FieldSport)
	require.True(t, ok)
	require.Equal(t, "running", v)

	v, ok = m.Value(activity.FieldDistance)
	require.False(t, ok)
	require.Nil(t, v)

	v, ok = m.Value(activity.Field("bogus"))
	require.False(t, ok)
	require.Nil(t, v)
}

func TestFieldValid(t *testing.T) {
	for _, f := range activity.Fields() {
		require.True(t, f.Valid(), f)
	}
	require.False(t, activity.Field("pace").Valid())
	require.False(t, activity.Field("").Valid())
}
