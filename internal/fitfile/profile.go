package fitfile

import (
	"fmt"
	"time"
)

// fitEpoch is second zero of the on-disk timestamp encoding.
var fitEpoch = time.Date(1989, time.December, 31, 0, 0, 0, 0, time.UTC)

// semicircleDegrees converts the fixed-point angle unit to degrees.
const semicircleDegrees = 180.0 / 2147483648.0

type fieldKind int

const (
	kindValue fieldKind = iota
	kindTimestamp
	kindLocalTimestamp
	kindSport
	kindFileType
	kindSemicircles
)

type profileField struct {
	name   string
	kind   fieldKind
	scale  float64
	offset float64
}

type messageProfile struct {
	name   string
	fields map[byte]profileField
}

// messages is the slice of the global profile this decoder understands.
// Messages outside it, and fields outside the listed sets, are consumed and
// dropped.
var messages = map[uint16]messageProfile{
	0: {name: "file_id", fields: map[byte]profileField{
		0: {name: "type", kind: kindFileType},
		1: {name: "manufacturer"},
		2: {name: "product"},
		3: {name: "serial_number"},
		4: {name: "time_created", kind: kindTimestamp},
	}},
	18: {name: "session", fields: map[byte]profileField{
		253: {name: "timestamp", kind: kindTimestamp},
		2:   {name: "start_time", kind: kindTimestamp},
		5:   {name: "sport", kind: kindSport},
		7:   {name: "total_elapsed_time", scale: 1000},
		8:   {name: "total_timer_time", scale: 1000},
		9:   {name: "total_distance", scale: 100},
		11:  {name: "total_calories"},
		14:  {name: "avg_speed", scale: 1000},
		16:  {name: "avg_heart_rate"},
		17:  {name: "max_heart_rate"},
		168: {name: "training_load_peak", scale: 65536},
	}},
	19: {name: "lap", fields: map[byte]profileField{
		253: {name: "timestamp", kind: kindTimestamp},
		2:   {name: "start_time", kind: kindTimestamp},
		7:   {name: "total_elapsed_time", scale: 1000},
		8:   {name: "total_timer_time", scale: 1000},
		9:   {name: "total_distance", scale: 100},
	}},
	20: {name: "record", fields: map[byte]profileField{
		253: {name: "timestamp", kind: kindTimestamp},
		0:   {name: "position_lat", kind: kindSemicircles},
		1:   {name: "position_long", kind: kindSemicircles},
		2:   {name: "altitude", scale: 5, offset: 500},
		3:   {name: "heart_rate"},
		5:   {name: "distance", scale: 100},
		6:   {name: "speed", scale: 1000},
	}},
	21: {name: "event", fields: map[byte]profileField{
		253: {name: "timestamp", kind: kindTimestamp},
		0:   {name: "event"},
		1:   {name: "event_type"},
		3:   {name: "data"},
		4:   {name: "event_group"},
	}},
	26: {name: "workout", fields: map[byte]profileField{
		4: {name: "sport", kind: kindSport},
		6: {name: "num_valid_steps"},
		8: {name: "wkt_name"},
	}},
	34: {name: "activity", fields: map[byte]profileField{
		253: {name: "timestamp", kind: kindTimestamp},
		0:   {name: "total_timer_time", scale: 1000},
		1:   {name: "num_sessions"},
		2:   {name: "type"},
		3:   {name: "event"},
		4:   {name: "event_type"},
		5:   {name: "local_timestamp", kind: kindLocalTimestamp},
	}},
}

var sportNames = map[uint64]string{
	0:  "generic",
	1:  "running",
	2:  "cycling",
	3:  "transition",
	4:  "fitness_equipment",
	5:  "swimming",
	10: "training",
	11: "walking",
	15: "rowing",
	17: "hiking",
	18: "multisport",
}

func sportName(v uint64) string {
	if s, ok := sportNames[v]; ok {
		return s
	}
	return fmt.Sprintf("sport_%d", v)
}

var fileTypes = map[uint64]string{
	1: "device",
	2: "settings",
	3: "sport",
	4: "activity",
	5: "workout",
	6: "course",
}

func fileTypeName(v uint64) string {
	if s, ok := fileTypes[v]; ok {
		return s
	}
	return fmt.Sprintf("file_type_%d", v)
}

// convert applies the profile's interpretation to a decoded raw value.
func (pf profileField) convert(v any) any {
	switch pf.kind {
	case kindTimestamp, kindLocalTimestamp:
		if u, ok := toUint(v); ok {
			return fitEpoch.Add(time.Duration(u) * time.Second)
		}
		return v
	case kindSport:
		if u, ok := toUint(v); ok {
			return sportName(u)
		}
		return v
	case kindFileType:
		if u, ok := toUint(v); ok {
			return fileTypeName(u)
		}
		return v
	case kindSemicircles:
		if f, ok := toFloat(v); ok {
			return f * semicircleDegrees
		}
		return v
	}
	if pf.scale > 0 {
		if f, ok := toFloat(v); ok {
			return f/pf.scale - pf.offset
		}
	}
	return v
}

func toUint(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case int64:
		if n >= 0 {
			return uint64(n), true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case uint64:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
