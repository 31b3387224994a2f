// Package timeutil normalizes the loosely formatted dates, times and
// timezone offsets stored on event documents.
package timeutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultOffset is used whenever an event timezone cannot be parsed.
const DefaultOffset = "-05:00"

// ISOLayout always renders an explicit numeric offset, never "Z".
const ISOLayout = "2006-01-02T15:04:05-07:00"

var (
	offsetPattern = regexp.MustCompile(`([+-])(\d{1,2})(?::?(\d{2}))?`)
	clockPattern  = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?(?:\.\d+)?\s*([AaPp]\.?[Mm]\.?)?$`)

	zonedLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04Z07:00",
		"2006-01-02T15:04:05Z0700",
		"2006-01-02 15:04:05Z07:00",
	}
	localLayouts = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}
)

// NormalizeOffset turns "UTC-05:00", "-05:00", "-0500", "-05" or "-5" into a
// strict ±HH:MM offset.
func NormalizeOffset(tz string) string {
	s := strings.TrimSpace(tz)
	if m := offsetPattern.FindStringSubmatch(s); m != nil {
		hours, _ := strconv.Atoi(m[2])
		minutes := 0
		if m[3] != "" {
			minutes, _ = strconv.Atoi(m[3])
		}
		if hours > 14 || minutes > 59 {
			return DefaultOffset
		}
		return fmt.Sprintf("%s%02d:%02d", m[1], hours, minutes)
	}
	switch strings.ToUpper(s) {
	case "UTC", "GMT", "Z":
		return "+00:00"
	}
	return DefaultOffset
}

// Location returns a fixed zone for the normalized offset of tz.
func Location(tz string) *time.Location {
	offset := NormalizeOffset(tz)
	sign := 1
	if offset[0] == '-' {
		sign = -1
	}
	hours, _ := strconv.Atoi(offset[1:3])
	minutes, _ := strconv.Atoi(offset[4:6])
	return time.FixedZone(offset, sign*(hours*3600+minutes*60))
}

// NormalizeClock turns "22:00", "9:30" or "10:30 PM" into HH:MM:SS. An
// unparseable clock yields "".
func NormalizeClock(s string) string {
	m := clockPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return ""
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds := 0
	if m[3] != "" {
		seconds, _ = strconv.Atoi(m[3])
	}
	if meridiem := strings.ToLower(strings.ReplaceAll(m[4], ".", "")); meridiem != "" {
		if hours < 1 || hours > 12 {
			return ""
		}
		if meridiem == "pm" && hours != 12 {
			hours += 12
		}
		if meridiem == "am" && hours == 12 {
			hours = 0
		}
	}
	if hours > 23 || minutes > 59 || seconds > 59 {
		return ""
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// ParseInstant parses an ISO-ish timestamp. Values without an offset are
// read as wall time in loc (UTC when loc is nil).
func ParseInstant(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CombineDateTime resolves an event date plus an optional clock in the
// event timezone. A date that already carries a time is used as is and the
// clock is ignored.
func CombineDateTime(date, clock, tz string) (time.Time, bool) {
	date = strings.TrimSpace(date)
	if date == "" {
		return time.Time{}, false
	}
	loc := Location(tz)
	if hasTimeComponent(date) {
		return ParseInstant(date, loc)
	}
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return time.Time{}, false
	}
	c := NormalizeClock(clock)
	if c == "" {
		return day, true
	}
	t, err := time.ParseInLocation("2006-01-02T15:04:05", date+"T"+c, loc)
	if err != nil {
		return day, true
	}
	return t, true
}

// FormatDateTime renders CombineDateTime as YYYY-MM-DDTHH:MM:SS±HH:MM, or ""
// when the date is missing or unparseable.
func FormatDateTime(date, clock, tz string) string {
	t, ok := CombineDateTime(date, clock, tz)
	if !ok {
		return ""
	}
	return FormatISO(t, Location(tz))
}

// FormatInstant converts a stored timestamp into the event offset.
func FormatInstant(s, tz string) string {
	loc := Location(tz)
	t, ok := ParseInstant(s, loc)
	if !ok {
		return ""
	}
	return FormatISO(t, loc)
}

func FormatISO(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(ISOLayout)
}

// ParseFlexibleTime decodes a JSON timestamp that may be an ISO string, a
// {seconds, nanoseconds} object or an epoch number. Numbers below 1e11 are
// seconds, larger ones milliseconds.
func ParseFlexibleTime(raw []byte) (time.Time, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, false
		}
		return ParseInstant(s, time.UTC)
	case '{':
		var obj map[string]json.Number
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&obj); err != nil {
			return time.Time{}, false
		}
		secs, ok := firstNumber(obj, "seconds", "_seconds")
		if !ok {
			return time.Time{}, false
		}
		nanos, _ := firstNumber(obj, "nanoseconds", "_nanoseconds")
		return time.Unix(int64(secs), int64(nanos)).UTC(), true
	default:
		n, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return time.Time{}, false
		}
		if n < 1e11 {
			return time.Unix(int64(n), 0).UTC(), true
		}
		return time.UnixMilli(int64(n)).UTC(), true
	}
}

func firstNumber(obj map[string]json.Number, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			if f, err := v.Float64(); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func hasTimeComponent(s string) bool {
	return len(s) > 10 && (s[10] == 'T' || s[10] == ' ')
}
