// Package activity models decoded training activities and the metrics the
// logbook exports from them.
package activity

import "time"

// Field identifies one exported metric of an activity.
type Field string

const (
	FieldSport        Field = "sport"
	FieldStartTime    Field = "start_time"
	FieldWorkoutName  Field = "workout_name"
	FieldDistance     Field = "distance"
	FieldTrainingLoad Field = "training_load"
)

// Fields lists the exported metrics in canonical order.
func Fields() []Field {
	return []Field{FieldSport, FieldStartTime, FieldWorkoutName, FieldDistance, FieldTrainingLoad}
}

// Valid reports whether f names a known metric.
func (f Field) Valid() bool {
	switch f {
	case FieldSport, FieldStartTime, FieldWorkoutName, FieldDistance, FieldTrainingLoad:
		return true
	}
	return false
}

// Message is one decoded data message: the profile name of its kind and its
// named fields.
type Message struct {
	Name   string
	Fields map[string]any
}

// Record is the decoded content of one activity file, message by message in
// file order.
type Record struct {
	Messages []Message
}

// First returns the first message of the given kind.
func (r *Record) First(name string) (Message, bool) {
	for _, m := range r.Messages {
		if m.Name == name {
			return m, true
		}
	}
	return Message{}, false
}

// All returns every message of the given kind in file order.
func (r *Record) All(name string) []Message {
	var out []Message
	for _, m := range r.Messages {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

// Metrics is the exported view of an activity. Nil fields are metrics the
// file does not carry.
type Metrics struct {
	Sport        *string
	StartTime    *time.Time
	WorkoutName  *string
	Distance     *float64
	TrainingLoad *float64
}

// Value returns the metric for a field, with ok reporting whether the
// activity carries it. Start times come back as time.Time, distances and
// loads as float64.
func (m *Metrics) Value(f Field) (any, bool) {
	switch f {
	case FieldSport:
		if m.Sport != nil {
			return *m.Sport, true
		}
	case FieldStartTime:
		if m.StartTime != nil {
			return *m.StartTime, true
		}
	case FieldWorkoutName:
		if m.WorkoutName != nil {
			return *m.WorkoutName, true
		}
	case FieldDistance:
		if m.Distance != nil {
			return *m.Distance, true
		}
	case FieldTrainingLoad:
		if m.TrainingLoad != nil {
			return *m.TrainingLoad, true
		}
	}
	return nil, false
}
