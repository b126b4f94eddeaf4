package date

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Range represents a range of dates.
type Range struct{ From, To Date }

// NewRange return a well known period
func NewRange(d Date, period Period) Range {
	return Range{From: d.StartOf(period), To: d.EndOf(period)}
}

// IsZero reports whether r is the zero Range.
func (r Range) IsZero() bool { return r.From.IsZero() && r.To.IsZero() }

// Contains return true date is included in the range (boundaries included)
func (r Range) Contains(date Date) bool { return (!date.Before(r.From) && !date.After(r.To)) }

// return the period of this range if it's a standard one.
func (r Range) Period() (p Period, ok bool) {
	switch {
	case r.From == r.To:
		return Daily, true
	case r.From.Weekday() == time.Monday && r.From.EndOf(Weekly) == r.To:
		return Weekly, true
	case r.From.Day() == 1 && r.From.EndOf(Monthly) == r.To:
		return Monthly, true
	case r.From.StartOf(Quarterly) == r.From && r.From.EndOf(Quarterly) == r.To:
		return Quarterly, true
	case r.From.StartOf(Yearly) == r.From && r.From.EndOf(Yearly) == r.To:
		return Yearly, true
	default:
		return Daily, false
	}
}

// Identifier compute a unique identifier for the Range.
// If the period is defined, use a short insighful name
func (r Range) Identifier() string {
	p, ok := r.Period()
	if !ok {
		return fmt.Sprintf("%s_%s", r.From, r.To)
	}

	switch p {
	case Daily:
		return r.From.String()
	case Weekly:
		year, week := r.From.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	case Monthly:
		return r.From.Format("2006-01")
	case Quarterly:
		return fmt.Sprintf("%d-Q%d", r.From.Year(), (r.From.Month()-1)/3+1)
	case Yearly:
		return r.From.Format("2006")
	default:
		panic("unknown period")
	}
}

// String returns the identifier of the range.
func (r Range) String() string { return r.Identifier() }

var (
	yearRE    = regexp.MustCompile(`^(\d{4})$`)
	quarterRE = regexp.MustCompile(`^(\d{4})-Q([1-4])$`)
	monthRE   = regexp.MustCompile(`^(\d{4})-(\d{1,2})$`)
	weekRE    = regexp.MustCompile(`^(\d{4})-W(\d{1,2})$`)
	customRE  = regexp.MustCompile(`^([0-9-]+)_([0-9-]+)$`)
)

// ParseRange parses a range identifier as produced by Identifier: "2025",
// "2025-Q3", "2025-09", "2025-W37", "2025-09-08" or "2025-09-02_2025-09-10".
func ParseRange(s string) (Range, error) {
	// regexps guarantee digits.
	atoi := func(v string) int {
		n, _ := strconv.Atoi(v)
		return n
	}

	switch {
	case yearRE.MatchString(s):
		m := yearRE.FindStringSubmatch(s)
		return NewRange(New(atoi(m[1]), time.January, 1), Yearly), nil
	case quarterRE.MatchString(s):
		m := quarterRE.FindStringSubmatch(s)
		q := time.Month(atoi(m[2]))
		return NewRange(New(atoi(m[1]), (q-1)*3+1, 1), Quarterly), nil
	case weekRE.MatchString(s):
		m := weekRE.FindStringSubmatch(s)
		year, week := atoi(m[1]), atoi(m[2])
		if week < 1 || week > 53 {
			return Range{}, fmt.Errorf("invalid week in range %q", s)
		}
		// January 4th is always in ISO week 1.
		monday := New(year, time.January, 4).StartOf(Weekly).Add((week - 1) * 7)
		if y, _ := monday.ISOWeek(); y != year {
			return Range{}, fmt.Errorf("year %d has no week %d", year, week)
		}
		return NewRange(monday, Weekly), nil
	case monthRE.MatchString(s):
		m := monthRE.FindStringSubmatch(s)
		month := atoi(m[2])
		if month < 1 || month > 12 {
			return Range{}, fmt.Errorf("invalid month in range %q", s)
		}
		return NewRange(New(atoi(m[1]), time.Month(month), 1), Monthly), nil
	case customRE.MatchString(s):
		m := customRE.FindStringSubmatch(s)
		from, err := Parse(m[1])
		if err != nil {
			return Range{}, fmt.Errorf("invalid range %q: %w", s, err)
		}
		to, err := Parse(m[2])
		if err != nil {
			return Range{}, fmt.Errorf("invalid range %q: %w", s, err)
		}
		if to.Before(from) {
			return Range{}, fmt.Errorf("invalid range %q: end before start", s)
		}
		return Range{From: from, To: to}, nil
	}

	d, err := Parse(s)
	if err != nil {
		return Range{}, fmt.Errorf("invalid range %q", s)
	}
	return NewRange(d, Daily), nil
}

// MarshalJSON encodes the range as its identifier.
func (r Range) MarshalJSON() ([]byte, error) { return json.Marshal(r.Identifier()) }

// UnmarshalJSON decodes a range from its identifier.
func (r *Range) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseRange(s)
	if err != nil {
		return err
	}
	*r = v
	return nil
}
