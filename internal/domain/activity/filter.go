package activity

import "time"

// Filter is one match rule for a metric. Build it with Equals or Where.
type Filter struct {
	literal any
	pred    func(any) bool
}

// Equals matches activities whose metric is present and equal to v.
func Equals(v any) Filter {
	return Filter{literal: v}
}

// Where matches activities for which pred returns true. The predicate also
// sees absent metrics, as nil, and decides about them itself.
func Where(pred func(any) bool) Filter {
	return Filter{pred: pred}
}

// Match evaluates the rule against a metric value. v is nil when the
// activity does not carry the metric; a literal rule never matches an absent
// metric.
func (f Filter) Match(v any) bool {
	if f.pred != nil {
		return f.pred(v)
	}
	if v == nil {
		return false
	}
	if t, ok := v.(time.Time); ok {
		want, ok := f.literal.(time.Time)
		return ok && t.Equal(want)
	}
	return v == f.literal
}

// Filters maps metric fields to match rules. An activity is exported only
// when every rule matches.
type Filters map[Field]Filter

// Match evaluates the rules in canonical field order and reports the first
// field whose rule rejects the activity.
func (fs Filters) Match(m *Metrics) (Field, bool) {
	for _, field := range Fields() {
		rule, ok := fs[field]
		if !ok {
			continue
		}
		v, _ := m.Value(field)
		if !rule.Match(v) {
			return field, false
		}
	}
	return "", true
}
