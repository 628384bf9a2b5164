package activity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ganot/trainlog/internal/domain/activity"
)

func metricsWith(sport string, distance float64) *activity.Metrics {
	return &activity.Metrics{Sport: &sport, Distance: &distance}
}

func TestFiltersMatch_Literal(t *testing.T) {
	m := metricsWith("running", 12500)

	_, ok := activity.Filters{activity.FieldSport: activity.Equals("running")}.Match(m)
	require.True(t, ok)

	field, ok := activity.Filters{activity.FieldSport: activity.Equals("cycling")}.Match(m)
	require.False(t, ok)
	require.Equal(t, activity.FieldSport, field)
}

func TestFiltersMatch_AbsentMetricFailsLiteral(t *testing.T) {
	m := &activity.Metrics{}

	field, ok := activity.Filters{activity.FieldSport: activity.Equals("running")}.Match(m)
	require.False(t, ok)
	require.Equal(t, activity.FieldSport, field)
}

func TestFiltersMatch_PredicateSeesAbsentMetrics(t *testing.T) {
	var seen any = "sentinel"
	fs := activity.Filters{activity.FieldWorkoutName: activity.Where(func(v any) bool {
		seen = v
		return v == nil
	})}

	_, ok := fs.Match(&activity.Metrics{})
	require.True(t, ok)
	require.Nil(t, seen)
}

func TestFiltersMatch_Predicate(t *testing.T) {
	fs := activity.Filters{activity.FieldDistance: activity.Where(func(v any) bool {
		d, ok := v.(float64)
		return ok && d >= 10000
	})}

	_, ok := fs.Match(metricsWith("running", 12500))
	require.True(t, ok)

	field, ok := fs.Match(metricsWith("running", 5000))
	require.False(t, ok)
	require.Equal(t, activity.FieldDistance, field)
}

func TestFiltersMatch_CanonicalOrder(t *testing.T) {
	fs := activity.Filters{
		activity.FieldDistance: activity.Equals(99999.0),
		activity.FieldSport:    activity.Equals("rowing"),
	}

	// Both rules fail; the canonical field order decides which is
	// reported.
	field, ok := fs.Match(metricsWith("running", 12500))
	require.False(t, ok)
	require.Equal(t, activity.FieldSport, field)
}

func TestFiltersMatch_TimeComparesInstants(t *testing.T) {
	utc := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	cet := utc.In(time.FixedZone("CET", 3600))
	start := utc
	m := &activity.Metrics{StartTime: &start}

	_, ok := activity.Filters{activity.FieldStartTime: activity.Equals(cet)}.Match(m)
	require.True(t, ok)
}

func TestFiltersMatch_Empty(t *testing.T) {
	_, ok := activity.Filters{}.Match(&activity.Metrics{})
	require.True(t, ok)

	var none activity.Filters
	_, ok = none.Match(metricsWith("running", 1))
	require.True(t, ok)
}
