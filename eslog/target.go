package eslog

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ResolveTarget returns the index that holds records of streamType written
// on now's calendar day: "<prefix>-<streamType>-<day>-<month>-<year>".
// Day and month are not zero padded and the month is 1-based, so
// 5 March 2024 gives "logs-generic-5-3-2024".
func ResolveTarget(prefix, streamType string, now time.Time) string {
	year, month, day := now.Date()
	return fmt.Sprintf("%s-%s-%d-%d-%d", prefix, streamType, day, int(month), year)
}

// Target is a parsed index name.
type Target struct {
	Prefix     string
	StreamType string
	// Day is midnight of the index's calendar day in the location passed
	// to ParseTarget.
	Day time.Time
}

// ParseTarget parses an index name produced by ResolveTarget. The stream
// type may itself contain dashes; the prefix may not.
func ParseTarget(name string, loc *time.Location) (Target, bool) {
	parts := strings.Split(name, "-")
	if len(parts) < 5 {
		return Target{}, false
	}
	n := len(parts)
	day, err1 := strconv.Atoi(parts[n-3])
	month, err2 := strconv.Atoi(parts[n-2])
	year, err3 := strconv.Atoi(parts[n-1])
	if err1 != nil || err2 != nil || err3 != nil {
		return Target{}, false
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return Target{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Day() != day {
		return Target{}, false // e.g. 31-2-2024
	}
	return Target{
		Prefix:     parts[0],
		StreamType: strings.Join(parts[1:n-3], "-"),
		Day:        t,
	}, true
}
