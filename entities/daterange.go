package entities

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	DateLayout = "2006-01-02"
	rangeSep   = " - "
	day        = 24 * time.Hour
)

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange parses "yyyy-MM-dd - yyyy-MM-dd". Single day ranges are
// allowed, reversed ranges are not.
func ParseDateRange(s string) (DateRange, error) {
	parts := strings.Split(strings.TrimSpace(s), rangeSep)
	if len(parts) != 2 {
		return DateRange{}, errors.Errorf("date range %q: expected %q", s, "yyyy-MM-dd - yyyy-MM-dd")
	}
	start, err := time.Parse(DateLayout, strings.TrimSpace(parts[0]))
	if err != nil {
		return DateRange{}, errors.Wrapf(err, "date range %q", s)
	}
	end, err := time.Parse(DateLayout, strings.TrimSpace(parts[1]))
	if err != nil {
		return DateRange{}, errors.Wrapf(err, "date range %q", s)
	}
	if end.Before(start) {
		return DateRange{}, errors.Errorf("date range %q: end before start", s)
	}
	return DateRange{Start: start, End: end}, nil
}

// ParseDateRanges parses a comma separated list of ranges.
func ParseDateRanges(s string) ([]DateRange, error) {
	var out []DateRange
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		r, err := ParseDateRange(part)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, errors.Errorf("no date range in %q", s)
	}
	return out, nil
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + rangeSep + r.End.Format(DateLayout)
}

// Contains reports whether other lies entirely inside r.
func (r DateRange) Contains(other DateRange) bool {
	return !other.Start.Before(r.Start) && !r.End.Before(other.End)
}

// Overlaps reports whether r and other share at least one day.
func (r DateRange) Overlaps(other DateRange) bool {
	return !other.Start.After(r.End) && !r.Start.After(other.End)
}

// Carve removes inner from r and returns what is left, head first. inner
// must be contained in r.
func (r DateRange) Carve(inner DateRange) []DateRange {
	var rest []DateRange
	if inner.Start.After(r.Start) {
		rest = append(rest, DateRange{Start: r.Start, End: inner.Start.Add(-day)})
	}
	if inner.End.Before(r.End) {
		rest = append(rest, DateRange{Start: inner.End.Add(day), End: r.End})
	}
	return rest
}
