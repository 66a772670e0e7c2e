package domain

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage layout for calendar dates.
const DateLayout = "2006-01-02"

// MonthLayout is the layout of timeline month keys.
const MonthLayout = "2006-01"

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, Validationf("invalid date %q", s)
	}
	return t, nil
}

// MustDate is ParseDate for literals; it panics on malformed input.
func MustDate(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// FormatDate formats t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// AddMonths adds n calendar months to t. When the day of month does not
// exist in the target month the result is clamped to that month's last day,
// so Jan 31 + 1 month is Feb 28 (or 29).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := daysIn(first.Year(), first.Month())
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first day of t's month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthEnd returns the last day of t's month.
func MonthEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), daysIn(t.Year(), t.Month()), 0, 0, 0, 0, time.UTC)
}

// MonthKey returns the YYYY-MM key of t.
func MonthKey(t time.Time) string {
	return t.Format(MonthLayout)
}

func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Timeframe is an inclusive range of calendar months.
type Timeframe struct {
	From time.Time // first day of the first month
	To   time.Time // first day of the last month
}

// NewTimeframe normalizes from and to to month starts and validates the range.
func NewTimeframe(from, to time.Time) (Timeframe, error) {
	tf := Timeframe{From: MonthStart(from), To: MonthStart(to)}
	if err := tf.Validate(); err != nil {
		return Timeframe{}, err
	}
	return tf, nil
}

// Validate ensures the timeframe is well formed
func (tf Timeframe) Validate() error {
	if tf.From.IsZero() || tf.To.IsZero() {
		return Validationf("timeframe bounds must be set")
	}
	if tf.From.After(tf.To) {
		return Validationf("timeframe start %s is after end %s", MonthKey(tf.From), MonthKey(tf.To))
	}
	return nil
}

// Months returns the month starts covered by the timeframe, in order.
func (tf Timeframe) Months() []time.Time {
	var months []time.Time
	for m := tf.From; !m.After(tf.To); m = AddMonths(m, 1) {
		months = append(months, m)
	}
	return months
}

// End returns the last calendar day covered by the timeframe.
func (tf Timeframe) End() time.Time {
	return MonthEnd(tf.To)
}

func (tf Timeframe) String() string {
	return fmt.Sprintf("%s..%s", MonthKey(tf.From), MonthKey(tf.To))
}
