package model

import "time"

// TimestampLayout is fixed width so lexical and chronological order agree.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func ParseTimestamp(ts string) time.Time {
	if ts == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}
	}
	return t
}
