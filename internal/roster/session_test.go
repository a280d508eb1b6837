package roster

import (
	"errors"
	"fmt"
	"io"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ewroster/internal/config"
	appLog "ewroster/internal/log"
	"ewroster/internal/lookup"
	"ewroster/internal/metrics"
	"ewroster/internal/model"
)

func init() {
	appLog.SetOutput(io.Discard)
}

type sliceSink struct {
	events []model.Event
}

func (s *sliceSink) Add(ev model.Event) { s.events = append(s.events, ev) }

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestSession(t *testing.T, duty, locations map[string]string, opts ...Option) (*Session, *sliceSink) {
	t.Helper()
	sink := &sliceSink{}
	opts = append([]Option{WithIDGenerator(sequentialIDs())}, opts...)
	s := NewSession(config.DefaultConfig(), lookup.New(duty), lookup.New(locations), sink, opts...)
	require.NoError(t, s.Anchor("Period: 01Jan24"))
	return s, sink
}

func TestScenarioFlightAndCheckIn(t *testing.T) {
	s, sink := newTestSession(t, map[string]string{"C/I": "Check-In"}, nil)

	s.ProcessBlock("Mon01\nEW 123 BER 0600 0800 PMI\nC/I BER 0530\n")

	require.Len(t, sink.events, 2)

	flight, ok := sink.events[0].(model.TimedEvent)
	require.True(t, ok)
	assert.Equal(t, "EW 123 BER-PMI", flight.Title)
	assert.Equal(t, "BER", flight.Location)
	assert.Equal(t, date(2024, time.January, 1), flight.Date)
	assert.Equal(t, time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC), flight.Start)
	assert.Equal(t, time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC), flight.End)
	assert.Equal(t, "id-1", flight.ID)

	checkIn, ok := sink.events[1].(model.TimedEvent)
	require.True(t, ok)
	assert.Equal(t, "Check-In", checkIn.Title)
	assert.Equal(t, "BER", checkIn.Location)
	assert.Equal(t, time.Date(2024, 1, 1, 5, 30, 0, 0, time.UTC), checkIn.Start)
	assert.Equal(t, 30*time.Minute, checkIn.End.Sub(checkIn.Start))
	assert.Equal(t, "id-2", checkIn.ID)
}

func TestScenarioOffDay(t *testing.T) {
	s, sink := newTestSession(t, map[string]string{"OFF": "Day Off"}, nil)

	s.ProcessLine("OFF")

	require.Len(t, sink.events, 1)
	ev, ok := sink.events[0].(model.AllDayEvent)
	require.True(t, ok)
	assert.Equal(t, "Day Off", ev.Title)
	assert.Equal(t, date(2024, time.January, 1), ev.Date)
}

func TestOffDutyWithoutTitleKeepsCode(t *testing.T) {
	s, sink := newTestSession(t, nil, nil)

	s.ProcessLine("KCC-FLD")

	require.Len(t, sink.events, 1)
	assert.Equal(t, "KCC-FLD", sink.events[0].EventTitle())
}

func TestDuplicateLinesEmitOnce(t *testing.T) {
	s, sink := newTestSession(t, nil, nil)

	s.ProcessBlock("Wed03\nEW 123 BER 0600 0800 PMI\nOFF")
	// Same day repeated in the right column.
	s.ProcessBlock("Wed03\nEW 123 BER 0600 0800 PMI\nOFF")

	assert.Len(t, sink.events, 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(s.Metrics().Duplicates))
}

func TestSameTitleDifferentStartIsNotDuplicate(t *testing.T) {
	s, sink := newTestSession(t, nil, nil)

	s.ProcessBlock("Mon01\nC/I BER 0530\nC/I PMI 1400")

	assert.Len(t, sink.events, 2)
}

func TestOvernightFlightEndsNextDay(t *testing.T) {
	s, sink := newTestSession(t, nil, nil)

	s.ProcessBlock("Wed31\nEW 700 LPA 2350 0130 CGN")

	require.Len(t, sink.events, 1)
	ev := sink.events[0].(model.TimedEvent)
	assert.Equal(t, time.Date(2024, 1, 31, 23, 50, 0, 0, time.UTC), ev.Start)
	assert.Equal(t, time.Date(2024, 2, 1, 1, 30, 0, 0, time.UTC), ev.End)
	assert.False(t, ev.End.Before(ev.Start))
}

func TestFlightAcrossSpringForwardGap(t *testing.T) {
	s, sink := newTestSession(t, nil, map[string]string{"BER": "Europe/Berlin"})
	require.NoError(t, s.Anchor("Period: 31Mar24"))

	// 02:30 does not exist in Berlin that night.
	s.ProcessLine("EW 12 BER 0230 0300 PMI")

	require.Len(t, sink.events, 1)
	ev := sink.events[0].(model.TimedEvent)
	assert.Equal(t, date(2024, time.March, 31), ev.Date)
	assert.Equal(t, "Europe/Berlin", ev.Zone)
	assert.False(t, ev.End.Before(ev.Start))
	assert.Equal(t, 30*time.Minute, ev.End.Sub(ev.Start))
}

func TestLocationTimezone(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	t.Run("resolved zone builds instants", func(t *testing.T) {
		s, sink := newTestSession(t, nil, map[string]string{"BER": "Europe/Berlin"})
		s.ProcessLine("EW 123 BER 0600 0800 PMI")

		ev := sink.events[0].(model.TimedEvent)
		assert.Equal(t, "Europe/Berlin", ev.Zone)
		assert.True(t, ev.Start.Equal(time.Date(2024, 1, 1, 6, 0, 0, 0, berlin)))
	})

	t.Run("unknown identifier falls back", func(t *testing.T) {
		s, sink := newTestSession(t, nil, map[string]string{"BER": "Mars/Olympus"})
		s.ProcessLine("C/I BER 0530")

		ev := sink.events[0].(model.TimedEvent)
		assert.Equal(t, "Europe/Berlin", ev.Zone)
		assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().UnknownZones))
	})

	t.Run("missing location uses default", func(t *testing.T) {
		s, sink := newTestSession(t, nil, map[string]string{"BER": "Europe/Berlin"})
		s.ProcessLine("C/I 0530")

		ev := sink.events[0].(model.TimedEvent)
		assert.Equal(t, "UTC", ev.Zone)
		assert.Equal(t, "", ev.Location)
	})

	t.Run("local instants keep zone as metadata", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.InstantZone = config.ZoneLocal
		sink := &sliceSink{}
		tokyo := time.FixedZone("JST", 9*3600)
		s := NewSession(cfg, lookup.Table{}, lookup.New(map[string]string{"BER": "Europe/Berlin"}), sink, WithLocalZone(tokyo))
		require.NoError(t, s.Anchor("Period: 01Jan24"))

		s.ProcessLine("EW 123 BER 0600 0800 PMI")

		ev := sink.events[0].(model.TimedEvent)
		assert.Equal(t, "Europe/Berlin", ev.Zone)
		assert.True(t, ev.Start.Equal(time.Date(2024, 1, 1, 6, 0, 0, 0, tokyo)))
	})
}

func TestBadClockSkipsOnlyThatEvent(t *testing.T) {
	s, sink := newTestSession(t, nil, nil)

	s.ProcessBlock("Mon01\nEW 12 BER 2575 0800 PMI\nOFF")

	require.Len(t, sink.events, 1)
	assert.Equal(t, "OFF", sink.events[0].EventTitle())
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().EventErrors))
}

func TestInvalidDayMarkerKeepsDate(t *testing.T) {
	sink := &sliceSink{}
	s := NewSession(config.DefaultConfig(), lookup.Table{}, lookup.Table{}, sink)
	require.NoError(t, s.Anchor("Period: 28Apr24"))

	s.ProcessBlock("Wed31\nOFF")

	require.Len(t, sink.events, 1)
	assert.Equal(t, date(2024, time.April, 28), sink.events[0].EventDate())
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().InvalidDays))
}

func TestStopMarkerExcludesFooter(t *testing.T) {
	s, sink := newTestSession(t, nil, nil)

	s.ProcessBlock("Mon01\nOFF\nHotels\nU\nVAC\n")

	require.Len(t, sink.events, 1)
	assert.Equal(t, "OFF", sink.events[0].EventTitle())
}

func TestLinesBeforeAnchorAreDropped(t *testing.T) {
	sink := &sliceSink{}
	s := NewSession(config.DefaultConfig(), lookup.Table{}, lookup.Table{}, sink)

	s.ProcessBlock("Mon01\nOFF")

	assert.Empty(t, sink.events)
	_, ok := s.Date()
	assert.False(t, ok)
}

// fakeDoc serves region text from a per-page map keyed by rectangle.
type fakeDoc struct {
	pages []map[config.Rect]string
	err   error
}

func (d *fakeDoc) NumPages() int { return len(d.pages) }

func (d *fakeDoc) RegionText(page int, r config.Rect) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	return d.pages[page][r], nil
}

func TestRun(t *testing.T) {
	cfg := config.DefaultConfig()
	reg := cfg.Regions

	doc := &fakeDoc{pages: []map[config.Rect]string{
		{
			reg.Period: "Period: 30Jan24",
			reg.Header: "Crew Roster",
			reg.Left:   "Tue30\nOFF\nWed31\nEW 123 BER 0600 0800 PMI\nVacation Claim\nVAC",
			reg.Right:  "Thu01\nC/I BER 0530\nFri02\nVAC",
		},
		{
			reg.Header: "Standby points",
			reg.Left:   "Sat03\nOFF",
		},
		{
			reg.Header: "Crew Roster",
			reg.Left:   "Fri02\nVAC\nSat03\nDISP",
		},
	}}

	sink := &sliceSink{}
	m := metrics.New()
	s := NewSession(cfg, lookup.New(map[string]string{"VAC": "Vacation"}), lookup.Table{}, sink, WithMetrics(m))
	require.NoError(t, s.Run(doc))

	var got []string
	for _, ev := range sink.events {
		got = append(got, ev.EventDate().String()+" "+ev.EventTitle())
	}
	assert.Equal(t, []string{
		"2024-01-30 OFF",
		"2024-01-31 EW 123 BER-PMI",
		"2024-02-01 C/I",
		"2024-02-02 Vacation",
		"2024-02-03 DISP",
	}, got)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.PagesSkipped))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PagesProcessed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Duplicates))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Events.WithLabelValues(metrics.KindOff)))
}

func TestRunWithoutAnchorFails(t *testing.T) {
	cfg := config.DefaultConfig()
	doc := &fakeDoc{pages: []map[config.Rect]string{{cfg.Regions.Period: "Crew Roster"}}}

	s := NewSession(cfg, lookup.Table{}, lookup.Table{}, &sliceSink{})
	assert.ErrorIs(t, s.Run(doc), ErrNoAnchor)

	empty := &fakeDoc{}
	assert.ErrorIs(t, s.Run(empty), ErrNoAnchor)
}

func TestRunReadErrorIsFatal(t *testing.T) {
	readErr := errors.New("broken page")
	s := NewSession(config.DefaultConfig(), lookup.Table{}, lookup.Table{}, &sliceSink{})

	err := s.Run(&fakeDoc{pages: make([]map[config.Rect]string, 1), err: readErr})
	assert.ErrorIs(t, err, readErr)
}
