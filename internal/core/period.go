package core

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidMonth = errors.New("invalid month")
	ErrInvalidYear  = errors.New("invalid year")
)

// Period identifies one calendar month, the engine's unit of time granularity.
type Period struct {
	Month int // 1-12
	Year  int
}

// NewPeriod creates a Period from month and year.
func NewPeriod(month, year int) Period {
	return Period{Month: month, Year: year}
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Month: int(t.Month()), Year: t.Year()}
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidMonth
	}
	if p.Year < 1970 || p.Year > 9999 {
		return ErrInvalidYear
	}
	return nil
}

// index counts months since year zero, so consecutive periods differ by one.
func (p Period) index() int {
	return p.Year*12 + p.Month - 1
}

// Next returns the following calendar month.
func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Month: 1, Year: p.Year + 1}
	}
	return Period{Month: p.Month + 1, Year: p.Year}
}

// AddMonths returns the period n months after p (n may be negative).
func (p Period) AddMonths(n int) Period {
	idx := p.index() + n
	return Period{Month: idx%12 + 1, Year: idx / 12}
}

// Before reports whether p is strictly earlier than other.
func (p Period) Before(other Period) bool {
	return p.index() < other.index()
}

// After reports whether p is strictly later than other.
func (p Period) After(other Period) bool {
	return p.index() > other.index()
}

// MonthsSince returns the number of whole calendar-month steps from other to p.
// Negative when p is earlier than other.
func (p Period) MonthsSince(other Period) int {
	return p.index() - other.index()
}

// Key returns a stable "YYYY-MM" key suitable for maps and occurrence IDs.
func (p Period) Key() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

func (p Period) String() string {
	return p.Key()
}

// Start returns midnight UTC on the first day of the period.
func (p Period) Start() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// End returns midnight UTC on the first day of the next period.
func (p Period) End() time.Time {
	return p.Next().Start()
}

// Days returns the number of days in the period.
func (p Period) Days() int {
	return time.Date(p.Year, time.Month(p.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DateAt returns the given day of the period as a UTC date, clamping day to
// the period's length (day 31 in February becomes the 28th or 29th).
func (p Period) DateAt(day int) time.Time {
	if day < 1 {
		day = 1
	}
	if last := p.Days(); day > last {
		day = last
	}
	return time.Date(p.Year, time.Month(p.Month), day, 0, 0, 0, 0, time.UTC)
}

// ParsePeriodKey parses a "YYYY-MM" key back into a Period. The key must be
// exactly that shape; trailing input ("2024-05-03") is rejected.
func ParsePeriodKey(key string) (Period, error) {
	if len(key) != 7 || key[4] != '-' {
		return Period{}, fmt.Errorf("parse period %q: want YYYY-MM", key)
	}
	var p Period
	if _, err := fmt.Sscanf(key, "%04d-%02d", &p.Year, &p.Month); err != nil {
		return Period{}, fmt.Errorf("parse period %q: %w", key, err)
	}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}
