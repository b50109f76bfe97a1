package core

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// DateKind identifies which shape a DateValue holds.
type DateKind uint8

const (
	DateNone    DateKind = iota // field missing or null
	DateNative                  // time.Time held in process
	DateText                    // string, ISO date or date-time
	DateStored                  // provider timestamp {seconds, nanoseconds}
	DateInvalid                 // present but not a date (number, bool, foreign object)
)

// StoredTime is the record store's timestamp object.
type StoredTime struct {
	Seconds int64 `json:"seconds"`
	Nanos   int32 `json:"nanoseconds"`
}

// NewStoredTime converts t to a stored timestamp.
func NewStoredTime(t time.Time) StoredTime {
	return StoredTime{Seconds: t.Unix(), Nanos: int32(t.Nanosecond())}
}

// Time converts the stored timestamp to a time.Time in the local zone.
func (s StoredTime) Time() time.Time {
	return time.Unix(s.Seconds, int64(s.Nanos))
}

// DateValue is a date field as it appears on a record. Reads never fail:
// whatever the store hands back is kept and resolved lazily.
type DateValue struct {
	kind   DateKind
	native time.Time
	text   string
	stored StoredTime
	raw    json.RawMessage
}

func NativeDate(t time.Time) DateValue  { return DateValue{kind: DateNative, native: t} }
func TextDate(s string) DateValue       { return DateValue{kind: DateText, text: s} }
func StoredDate(s StoredTime) DateValue { return DateValue{kind: DateStored, stored: s} }

// StoredNow is the value written into createdAt/date by record entry.
func StoredNow(now time.Time) DateValue { return StoredDate(NewStoredTime(now)) }

func (v DateValue) Kind() DateKind { return v.kind }

// Present reports whether the field exists at all, resolvable or not.
func (v DateValue) Present() bool { return v.kind != DateNone }

// Text returns the raw string of a DateText value.
func (v DateValue) Text() string { return v.text }

var textLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	DayLayout,
}

// Resolve converts the value to a concrete instant. Stored timestamps use
// their own conversion, native values pass through unchanged, and text is
// parsed with zone-less forms read in loc. Anything else does not resolve.
func (v DateValue) Resolve(loc *time.Location) (time.Time, bool) {
	switch v.kind {
	case DateStored:
		return v.stored.Time(), true
	case DateNative:
		return v.native, true
	case DateText:
		return parseText(v.text, loc)
	default:
		return time.Time{}, false
	}
}

func parseText(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range textLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ResolveTimestamp resolves v in the process time zone.
func ResolveTimestamp(v DateValue) (time.Time, bool) {
	return v.Resolve(time.Local)
}

// FirstPresent returns the first value whose field exists, even if it will not
// resolve. Mirrors a null-coalescing chain over record fields.
func FirstPresent(vs ...DateValue) DateValue {
	for _, v := range vs {
		if v.Present() {
			return v
		}
	}
	return DateValue{}
}

// FirstResolved returns the first value that resolves to an instant.
func FirstResolved(loc *time.Location, vs ...DateValue) (time.Time, bool) {
	for _, v := range vs {
		if t, ok := v.Resolve(loc); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// ResolveOr resolves v in loc, returning fallback when it does not resolve.
func ResolveOr(v DateValue, loc *time.Location, fallback time.Time) time.Time {
	if t, ok := v.Resolve(loc); ok {
		return t
	}
	return fallback
}

func (v DateValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case DateNative:
		return json.Marshal(NewStoredTime(v.native))
	case DateStored:
		return json.Marshal(v.stored)
	case DateText:
		return json.Marshal(v.text)
	case DateInvalid:
		if len(v.raw) > 0 {
			return v.raw, nil
		}
	}
	return []byte("null"), nil
}

func (v *DateValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*v = DateValue{}
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = TextDate(s)
		return nil
	case data[0] == '{':
		var obj struct {
			Seconds     *int64 `json:"seconds"`
			Nanos       int32  `json:"nanoseconds"`
			LegacySecs  *int64 `json:"_seconds"`
			LegacyNanos int32  `json:"_nanoseconds"`
		}
		if err := json.Unmarshal(data, &obj); err == nil {
			switch {
			case obj.Seconds != nil:
				*v = StoredDate(StoredTime{Seconds: *obj.Seconds, Nanos: obj.Nanos})
				return nil
			case obj.LegacySecs != nil:
				*v = StoredDate(StoredTime{Seconds: *obj.LegacySecs, Nanos: obj.LegacyNanos})
				return nil
			}
		}
	}
	*v = DateValue{kind: DateInvalid, raw: append(json.RawMessage(nil), data...)}
	return nil
}
