package parser

import (
	"fmt"
	"time"
)

// isoLayouts lists the accepted ISO-8601 shapes, most specific first. The
// zoned flag records whether the layout carries a UTC offset so naive inputs
// can round-trip without growing one.
var isoLayouts = []struct {
	layout string
	zoned  bool
}{
	{time.RFC3339Nano, true},
	{"2006-01-02T15:04:05-07:00", true},
	{"2006-01-02T15:04-07:00", true},
	{"2006-01-02T15:04:05.999999999", false},
	{"2006-01-02T15:04:05", false},
	{"2006-01-02T15:04", false},
	{"2006-01-02", false},
}

// ParsedTime is an ISO-8601 timestamp that remembers whether the input
// carried an explicit UTC offset.
type ParsedTime struct {
	Time  time.Time
	Zoned bool
}

// ParseISO parses an ISO-8601 timestamp string.
func ParseISO(value string) (ParsedTime, error) {
	for _, candidate := range isoLayouts {
		if parsed, err := time.Parse(candidate.layout, value); err == nil {
			return ParsedTime{Time: parsed, Zoned: candidate.zoned}, nil
		}
	}
	return ParsedTime{}, fmt.Errorf("invalid iso datetime %q", value)
}

// ISOFormat renders the timestamp back out, keeping the offset only when the
// input had one.
func (p ParsedTime) ISOFormat() string {
	if p.Zoned {
		return p.Time.Format("2006-01-02T15:04:05-07:00")
	}
	return p.Time.Format("2006-01-02T15:04:05")
}
