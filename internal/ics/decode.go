package ics

import (
	"errors"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "ewroster/internal/log"
	"ewroster/internal/model"
)

// Decode parses an iCalendar document written by Calendar back into
// events. VEVENTs that cannot be read are logged and skipped.
func Decode(r io.Reader) ([]model.Event, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, err
	}

	events := make([]model.Event, 0)
	for _, ve := range cal.Events() {
		ev, perr := decodeVEvent(ve)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Error("ics vevent decode failed", perr)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func decodeVEvent(ve *ical.VEvent) (model.Event, error) {
	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return nil, errors.New("missing UID")
	}

	var summary string
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		summary = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return nil, errors.New("missing DTSTART")
	}

	if isAllDay(dtStart) {
		start, err := ve.GetAllDayStartAt()
		if err != nil {
			return nil, err
		}
		return model.AllDayEvent{
			ID:    uidProp.Value,
			Title: summary,
			Date:  model.Date{Year: start.Year(), Month: start.Month(), Day: start.Day()},
		}, nil
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return nil, err
	}
	end, err := ve.GetEndAt()
	if err != nil {
		return nil, err
	}

	ev := model.TimedEvent{
		ID:    uidProp.Value,
		Title: summary,
		Start: start,
		End:   end,
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		ev.Location = p.Value
	}
	if p := ve.GetProperty(PropertyZone); p != nil {
		ev.Zone = p.Value
		if loc, err := time.LoadLocation(p.Value); err == nil {
			start = start.In(loc)
		}
	}
	ev.Date = model.Date{Year: start.Year(), Month: start.Month(), Day: start.Day()}
	return ev, nil
}

// isAllDay: VALUE=DATE or a value without a time part.
func isAllDay(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}
