package model

import (
	"fmt"
	"time"
)

// Date is a calendar date without a time-of-day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a Date and reports false if the combination does not
// exist on the calendar (e.g. 31 April).
func NewDate(year int, month time.Month, day int) (Date, bool) {
	if month < time.January || month > time.December || day < 1 {
		return Date{}, false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || t.Month() != month {
		return Date{}, false
	}
	return Date{Year: year, Month: month, Day: day}, true
}

// In returns the given wall clock time on this date in loc.
func (d Date) In(hour, minute int, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, hour, minute, 0, 0, loc)
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	t := time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Event is a single synthesized roster entry. It is implemented by
// TimedEvent and AllDayEvent only.
type Event interface {
	EventID() string
	EventTitle() string
	EventDate() Date
	isEvent()
}

// TimedEvent spans two absolute instants. End is never before Start.
type TimedEvent struct {
	ID       string
	Title    string
	Location string // station code, may be empty

	// Date is the roster day the event was listed under.
	Date  Date
	Start time.Time
	End   time.Time

	// Zone is the resolved timezone identifier for Location.
	Zone string
}

// AllDayEvent covers a whole calendar day with no time component.
type AllDayEvent struct {
	ID    string
	Title string
	Date  Date
}

func (e TimedEvent) EventID() string    { return e.ID }
func (e TimedEvent) EventTitle() string { return e.Title }
func (e TimedEvent) EventDate() Date    { return e.Date }
func (TimedEvent) isEvent()             {}

func (e AllDayEvent) EventID() string    { return e.ID }
func (e AllDayEvent) EventTitle() string { return e.Title }
func (e AllDayEvent) EventDate() Date    { return e.Date }
func (AllDayEvent) isEvent()             {}
