package search

import "time"

// Payload field names used in the vector index.
const (
	FieldSegment    = "name_space"
	FieldOriginalID = "original_id"
	FieldContent    = "content"
	FieldAudience   = "audience"
	FieldEventOn    = "event_on"
	FieldStartDate  = "start_date"

	// WeekendTag is the event_on value for events starting on Saturday or Sunday
	WeekendTag = "weekend"
)

// ConditionKind tags the variant held by a Condition
type ConditionKind int

const (
	// KindMatch is exact equality on a keyword field
	KindMatch ConditionKind = iota
	// KindText is a full-text contains match
	KindText
	// KindDateRange is a range over a datetime field
	KindDateRange
)

// Condition is a single predicate on a payload field.
type Condition struct {
	Kind  ConditionKind
	Key   string
	Value string    // KindMatch, KindText
	Range DateRange // KindDateRange
}

// Match creates an exact keyword match condition.
func Match(key, value string) Condition {
	return Condition{Kind: KindMatch, Key: key, Value: value}
}

// Text creates a full-text match condition.
func Text(key, text string) Condition {
	return Condition{Kind: KindText, Key: key, Value: text}
}

// InRange creates a datetime range condition.
func InRange(key string, r DateRange) Condition {
	return Condition{Kind: KindDateRange, Key: key, Range: r}
}

// Filter combines mandatory conditions (all must hold) with optional ones, of which
// at least MinShould must hold. MinShould == 0 disables the optional group.
type Filter struct {
	Must      []Condition
	Should    []Condition
	MinShould int
}

// WithMinShould returns a copy of f requiring n optional conditions, clamped to
// [0, len(Should)].
func (f Filter) WithMinShould(n int) Filter {
	if n < 0 {
		n = 0
	}
	if n > len(f.Should) {
		n = len(f.Should)
	}
	f.MinShould = n
	return f
}

// DateRange is an interval over time. A zero bound is unbounded.
// End is exclusive unless EndInclusive is set.
type DateRange struct {
	Start        time.Time
	End          time.Time
	EndInclusive bool
}

// Bounded reports whether at least one end of the range is set.
func (r DateRange) Bounded() bool {
	return !r.Start.IsZero() || !r.End.IsZero()
}
