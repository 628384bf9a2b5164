package activity

import (
	"time"

	"github.com/ganot/trainlog/internal/workbook"
)

// CET is the fixed UTC+1 wall clock exported timestamps are rebased into
// before losing their zone. Daylight saving never applies, so rows written in
// any season share one offset.
var CET = time.FixedZone("CET", 3600)

// Extract derives the exported metrics of a decoded activity. The first
// session message carries sport, start time, distance and training load; the
// workout message, when present, carries the workout name. Zoned start times
// are rebased to the CET wall clock and made naive; naive ones pass unchanged.
func Extract(rec *Record) Metrics {
	var m Metrics
	if s, ok := rec.First("session"); ok {
		if v, ok := stringField(s, "sport"); ok {
			m.Sport = &v
		}
		if t, ok := timeField(s, "start_time"); ok {
			t = naiveCET(t)
			m.StartTime = &t
		}
		if d, ok := floatField(s, "total_distance"); ok {
			m.Distance = &d
		}
		if l, ok := floatField(s, "training_load_peak"); ok {
			m.TrainingLoad = &l
		}
	}
	if w, ok := rec.First("workout"); ok {
		if v, ok := stringField(w, "wkt_name"); ok {
			m.WorkoutName = &v
		}
	}
	return m
}

func naiveCET(t time.Time) time.Time {
	if workbook.IsNaive(t) {
		return t
	}
	return workbook.NaiveTime(t.In(CET))
}

func stringField(m Message, name string) (string, bool) {
	v, ok := m.Fields[name].(string)
	return v, ok
}

func timeField(m Message, name string) (time.Time, bool) {
	v, ok := m.Fields[name].(time.Time)
	return v, ok
}

func floatField(m Message, name string) (float64, bool) {
	switch v := m.Fields[name].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case uint32:
		return float64(v), true
	}
	return 0, false
}
