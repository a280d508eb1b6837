package ics

import (
	"bytes"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	"ewroster/internal/config"
	appLog "ewroster/internal/log"
	"ewroster/internal/model"
)

// PropertyZone carries the resolved timezone identifier of a timed event.
const PropertyZone = ical.ComponentProperty("X-EWROSTER-TZID")

// Calendar accumulates roster events into a single VCALENDAR.
type Calendar struct {
	cal   *ical.Calendar
	now   func() time.Time
	count int
}

// NewCalendar creates an empty calendar with the given PRODID.
func NewCalendar(productID string) *Calendar {
	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetVersion("2.0")
	cal.SetCalscale("GREGORIAN")
	return &Calendar{cal: cal, now: time.Now}
}

// Add appends ev as a VEVENT. Timed events are written in UTC; all-day
// events carry a DATE value.
func (c *Calendar) Add(ev model.Event) {
	ve := c.cal.AddEvent(ev.EventID())
	ve.SetDtStampTime(c.now())
	ve.SetSummary(ev.EventTitle())

	switch e := ev.(type) {
	case model.TimedEvent:
		ve.SetStartAt(e.Start)
		ve.SetEndAt(e.End)
		if e.Location != "" {
			ve.SetLocation(e.Location)
		}
		if e.Zone != "" {
			ve.SetProperty(PropertyZone, e.Zone)
		}
	case model.AllDayEvent:
		ve.SetAllDayStartAt(e.Date.In(0, 0, time.UTC))
	}
	c.count++
}

// Len returns the number of events added so far.
func (c *Calendar) Len() int {
	return c.count
}

// Encode writes the calendar in iCalendar format.
func (c *Calendar) Encode(w io.Writer) error {
	_, err := io.WriteString(w, c.cal.Serialize())
	return err
}

// Save writes the calendar to path, replacing any existing file. The
// file is either fully written or left untouched.
func (c *Calendar) Save(path string) error {
	var buf bytes.Buffer
	if err := c.Encode(&buf); err != nil {
		return err
	}
	if err := config.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return err
	}
	appLog.Info("calendar written", "path", path, "event_count", c.count)
	return nil
}
