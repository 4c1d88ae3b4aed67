package builtins

import (
	"math"
	"time"

	"mercator-hq/covenant/pkg/mcl/value"
)

// timestampLayouts are the accepted ISO-8601 forms, tried in order.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999", // no zone, read as UTC
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// TimestampFormat is the layout now() uses for the wall clock.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// ParseTimestamp parses an ISO-8601 date or date-time.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp formats t the way now() reports the wall clock.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

func now(call *Call, _ []value.Value) (value.Value, error) {
	if call == nil || call.Now == nil {
		return value.String(FormatTimestamp(time.Now())), nil
	}
	return value.String(call.Now()), nil
}

func isAfter(_ *Call, args []value.Value) (value.Value, error) {
	a, b, err := timePair("is_after", args)
	if err != nil {
		return nil, err
	}
	return boolResult(a.After(b))
}

func isBefore(_ *Call, args []value.Value) (value.Value, error) {
	a, b, err := timePair("is_before", args)
	if err != nil {
		return nil, err
	}
	return boolResult(a.Before(b))
}

func isBetween(_ *Call, args []value.Value) (value.Value, error) {
	t, err := argTime("is_between", 0, args[0])
	if err != nil {
		return nil, err
	}
	start, err := argTime("is_between", 1, args[1])
	if err != nil {
		return nil, err
	}
	end, err := argTime("is_between", 2, args[2])
	if err != nil {
		return nil, err
	}
	return boolResult(!t.Before(start) && !t.After(end))
}

func isWithin(_ *Call, args []value.Value) (value.Value, error) {
	a, b, err := timePair("is_within", args)
	if err != nil {
		return nil, err
	}
	seconds, err := argNumber("is_within", 2, args[2])
	if err != nil {
		return nil, err
	}
	diff := math.Abs(a.Sub(b).Seconds())
	return boolResult(diff <= seconds)
}

func isStale(_ *Call, args []value.Value) (value.Value, error) {
	t, err := argTime("is_stale", 0, args[0])
	if err != nil {
		return nil, err
	}
	maxAge, err := argNumber("is_stale", 1, args[1])
	if err != nil {
		return nil, err
	}
	reference, err := argTime("is_stale", 2, args[2])
	if err != nil {
		return nil, err
	}
	return boolResult(reference.Sub(t).Seconds() > maxAge)
}

func timePair(fn string, args []value.Value) (time.Time, time.Time, error) {
	a, err := argTime(fn, 0, args[0])
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	b, err := argTime(fn, 1, args[1])
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return a, b, nil
}
