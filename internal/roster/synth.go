package roster

import (
	"fmt"
	"time"

	"ewroster/internal/lookup"
	"ewroster/internal/model"
)

// Zones resolves station codes to timezones.
type Zones struct {
	table    lookup.Table
	def      string
	fallback string

	// unknown is called when an identifier is not in the tz database.
	unknown func(id string, err error)
}

func NewZones(table lookup.Table, def, fallback string, unknown func(id string, err error)) *Zones {
	return &Zones{table: table, def: def, fallback: fallback, unknown: unknown}
}

// Resolve returns the location for a station code together with the
// identifier it was loaded from. An empty or unmapped code gives the
// default zone; an identifier the runtime does not know gives the
// fallback zone.
func (z *Zones) Resolve(code string) (*time.Location, string) {
	id := z.def
	if code != "" {
		if v := z.table.Get(code, z.def); v != "" {
			id = v
		}
	}

	loc, err := time.LoadLocation(id)
	if err == nil {
		return loc, id
	}
	if z.unknown != nil {
		z.unknown(id, err)
	}

	loc, err = time.LoadLocation(z.fallback)
	if err != nil {
		return time.UTC, "UTC"
	}
	return loc, z.fallback
}

// Synthesizer turns classified lines into events for a given roster day.
type Synthesizer struct {
	duty    lookup.Table
	zones   *Zones
	carrier string

	dutyDuration time.Duration

	// local, if set, is used for all instants instead of the resolved zone.
	local *time.Location
}

// Build returns the event for c on date along with its dedup key. The
// event has no ID yet. Day markers and unrecognized lines are rejected.
func (s *Synthesizer) Build(c Classification, date model.Date) (model.Event, DedupKey, error) {
	switch c := c.(type) {
	case Flight:
		return s.flight(c, date)
	case Duty:
		return s.dutyEvent(c, date)
	case OffDuty:
		title := s.duty.Get(c.Code, c.Code)
		ev := model.AllDayEvent{Title: title, Date: date}
		return ev, DedupKey{Date: date, Title: title}, nil
	default:
		return nil, DedupKey{}, fmt.Errorf("roster: %T does not produce an event", c)
	}
}

func (s *Synthesizer) flight(f Flight, date model.Date) (model.Event, DedupKey, error) {
	title := s.carrier + " " + f.Number + " " + f.From + "-" + f.To

	sh, sm, err := parseClock(f.Start)
	if err != nil {
		return nil, DedupKey{}, err
	}
	eh, em, err := parseClock(f.End)
	if err != nil {
		return nil, DedupKey{}, err
	}

	loc, zone := s.instantZone(f.From)
	start := date.In(sh, sm, loc)

	// The end is derived from the printed clock difference so that a start
	// inside a DST gap cannot push the end before it. An end clock earlier
	// than the start clock is on the next day.
	delta := ((eh*60+em)-(sh*60+sm) + 24*60) % (24 * 60)

	ev := model.TimedEvent{
		Title:    title,
		Location: f.From,
		Date:     date,
		Start:    start,
		End:      start.Add(time.Duration(delta) * time.Minute),
		Zone:     zone,
	}
	return ev, DedupKey{Date: date, Title: title, Start: f.Start}, nil
}

func (s *Synthesizer) dutyEvent(d Duty, date model.Date) (model.Event, DedupKey, error) {
	title := s.duty.Get(d.Code, d.Code)

	h, m, err := parseClock(d.Time)
	if err != nil {
		return nil, DedupKey{}, err
	}

	loc, zone := s.instantZone(d.Location)
	start := date.In(h, m, loc)
	ev := model.TimedEvent{
		Title:    title,
		Location: d.Location,
		Date:     date,
		Start:    start,
		End:      start.Add(s.dutyDuration),
		Zone:     zone,
	}
	return ev, DedupKey{Date: date, Title: title, Start: d.Time}, nil
}

// instantZone resolves the station zone and picks the location used to
// build instants from it.
func (s *Synthesizer) instantZone(code string) (*time.Location, string) {
	loc, zone := s.zones.Resolve(code)
	if s.local != nil {
		return s.local, zone
	}
	return loc, zone
}

// parseClock parses "HHMM" into hour and minute.
func parseClock(hhmm string) (int, int, error) {
	t, err := time.Parse("1504", hhmm)
	if err != nil {
		return 0, 0, fmt.Errorf("roster: bad clock time %q: %w", hhmm, err)
	}
	return t.Hour(), t.Minute(), nil
}

func withID(ev model.Event, id string) model.Event {
	switch e := ev.(type) {
	case model.TimedEvent:
		e.ID = id
		return e
	case model.AllDayEvent:
		e.ID = id
		return e
	}
	return ev
}
