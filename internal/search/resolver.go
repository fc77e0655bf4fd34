package search

import "time"

// RangeFor computes the date window for a time filter relative to now, in now's
// location. Unknown filters return an unbounded range.
func RangeFor(tf TimeFilter, now time.Time) DateRange {
	y, m, d := now.Date()
	loc := now.Location()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)

	// Weekday() counts from Sunday; weeks here start on Monday
	sinceMonday := (int(today.Weekday()) + 6) % 7
	monday := today.AddDate(0, 0, -sinceMonday)

	switch tf {
	case TimePast:
		return DateRange{End: now, EndInclusive: true}
	case TimeFuture:
		return DateRange{Start: now}
	case TimeToday:
		return DateRange{Start: today, End: today.AddDate(0, 0, 1)}
	case TimeThisWeek:
		return DateRange{Start: monday, End: monday.AddDate(0, 0, 7)}
	case TimeNextWeek:
		next := monday.AddDate(0, 0, 7)
		return DateRange{Start: next, End: next.AddDate(0, 0, 7)}
	case TimeThisMonth:
		// time.Date normalizes month 13 into January of the next year
		return DateRange{
			Start: time.Date(y, m, 1, 0, 0, 0, 0, loc),
			End:   time.Date(y, m+1, 1, 0, 0, 0, 0, loc),
		}
	case TimeNextMonth:
		return DateRange{
			Start: time.Date(y, m+1, 1, 0, 0, 0, 0, loc),
			End:   time.Date(y, m+2, 1, 0, 0, 0, 0, loc),
		}
	default:
		return DateRange{}
	}
}

// Resolver builds retrieval filters per segment.
type Resolver struct {
	now func() time.Time
	loc *time.Location
}

// ResolverOption is a functional option for configuring Resolver.
type ResolverOption func(*Resolver)

// WithClock sets the clock used for relative time filters.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		r.now = now
	}
}

// WithLocation sets the time zone in which days, weeks and months are computed.
func WithLocation(loc *time.Location) ResolverOption {
	return func(r *Resolver) {
		r.loc = loc
	}
}

// NewResolver creates a Resolver using the wall clock in UTC by default.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		now: time.Now,
		loc: time.UTC,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve builds the filter for one segment. Optional keyword conditions start fully
// required; callers relax MinShould as needed. Unknown segments get the base
// conditions only.
func (r *Resolver) Resolve(segment Segment, enh QueryEnhancement) Filter {
	f := r.base(enh)

	switch segment {
	case SegmentEvent:
		r.applyEvent(&f, enh)
	case SegmentProduct:
		f.Must = append(f.Must, Match(FieldSegment, string(SegmentProduct)))
	}

	return f
}

// base holds the conditions shared by every segment
func (r *Resolver) base(enh QueryEnhancement) Filter {
	f := Filter{
		Must:   []Condition{},
		Should: make([]Condition, 0, len(enh.Keywords)),
	}

	if value, ok := enh.Audience.PayloadValue(); ok {
		f.Must = append(f.Must, Match(FieldAudience, value))
	}

	for _, kw := range enh.Keywords {
		f.Should = append(f.Should, Text(FieldContent, kw))
	}
	f.MinShould = len(f.Should)

	return f
}

func (r *Resolver) applyEvent(f *Filter, enh QueryEnhancement) {
	f.Must = append(f.Must, Match(FieldSegment, string(SegmentEvent)))

	if enh.IsWeekend {
		f.Must = append(f.Must, Match(FieldEventOn, WeekendTag))
	}

	if enh.TimeFilter != "" {
		window := RangeFor(enh.TimeFilter, r.now().In(r.loc))
		if window.Bounded() {
			f.Must = append(f.Must, InRange(FieldStartDate, window))
		}
	}
}
