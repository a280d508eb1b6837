// Package roster turns the column text of a duty plan into calendar events.
//
// A Session owns all per-document state: the date cursor, the set of
// already emitted events and the lookup tables. Lines are processed
// strictly in order; a day marker moves the cursor and every other
// recognised line becomes at most one event on the cursor date.
package roster

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ewroster/internal/config"
	appLog "ewroster/internal/log"
	"ewroster/internal/lookup"
	"ewroster/internal/metrics"
	"ewroster/internal/model"
)

// Sink receives finished events in emission order.
type Sink interface {
	Add(ev model.Event)
}

// Document gives access to the text inside a rectangle of a page.
// Pages are numbered from 0.
type Document interface {
	NumPages() int
	RegionText(page int, r config.Rect) (string, error)
}

// Session converts one roster document.
type Session struct {
	cfg        *config.Config
	classifier *Classifier
	synth      *Synthesizer
	cursor     *Cursor
	seen       *DedupSet
	sink       Sink
	metrics    *metrics.Run
	newID      func() string
}

type Option func(*Session)

// WithIDGenerator replaces the random UUID generator for event IDs.
func WithIDGenerator(f func() string) Option {
	return func(s *Session) { s.newID = f }
}

// WithMetrics records counters into m instead of a private set.
func WithMetrics(m *metrics.Run) Option {
	return func(s *Session) { s.metrics = m }
}

// WithLocalZone sets the zone used for instants when the config asks for
// process-local instants. Defaults to time.Local.
func WithLocalZone(loc *time.Location) Option {
	return func(s *Session) {
		if s.synth.local != nil {
			s.synth.local = loc
		}
	}
}

// NewSession prepares a session. duty maps codes to titles and locations
// maps station codes to timezone identifiers.
func NewSession(cfg *config.Config, duty, locations lookup.Table, sink Sink, opts ...Option) *Session {
	s := &Session{
		cfg:        cfg,
		classifier: NewClassifier(cfg.Carrier, cfg.DutyMarkers, cfg.OffCodes),
		seen:       NewDedupSet(),
		sink:       sink,
		metrics:    metrics.New(),
		newID:      uuid.NewString,
	}
	s.synth = &Synthesizer{
		duty:         duty,
		carrier:      cfg.Carrier,
		dutyDuration: cfg.DutyDuration,
	}
	if cfg.InstantZone == config.ZoneLocal {
		s.synth.local = time.Local
	}
	s.synth.zones = NewZones(locations, cfg.DefaultTimezone, cfg.FallbackTimezone, func(id string, err error) {
		appLog.Warn("unknown timezone, using fallback", "zone", id, "fallback", cfg.FallbackTimezone, "err", err)
		s.metrics.UnknownZones.Inc()
	})

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Metrics returns the counters of this session.
func (s *Session) Metrics() *metrics.Run {
	return s.metrics
}

// Date returns the cursor date and false if no anchor was set yet.
func (s *Session) Date() (model.Date, bool) {
	if s.cursor == nil {
		return model.Date{}, false
	}
	return s.cursor.Date(), true
}

// Anchor sets the cursor from the period header text.
func (s *Session) Anchor(header string) error {
	d, err := ResolveAnchor(header)
	if err != nil {
		return err
	}
	s.cursor = NewCursor(d)
	appLog.Info("base date set", "date", d)
	return nil
}

// Run anchors on the first page and then parses every page that is not
// marked for skipping, left column before right column. Only anchor and
// document read failures are returned.
func (s *Session) Run(doc Document) error {
	if doc.NumPages() == 0 {
		return fmt.Errorf("%w: document has no pages", ErrNoAnchor)
	}

	period, err := doc.RegionText(0, s.cfg.Regions.Period)
	if err != nil {
		return fmt.Errorf("read period region: %w", err)
	}
	if err := s.Anchor(period); err != nil {
		return err
	}

	for i := 0; i < doc.NumPages(); i++ {
		if err := s.runPage(doc, i); err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *Session) runPage(doc Document, i int) error {
	header, err := doc.RegionText(i, s.cfg.Regions.Header)
	if err != nil {
		return err
	}
	if marker, skip := containsAny(header, s.cfg.SkipMarkers); skip {
		appLog.Info("page skipped", "page", i+1, "marker", marker)
		s.metrics.PagesSkipped.Inc()
		return nil
	}

	left, err := doc.RegionText(i, s.cfg.Regions.Left)
	if err != nil {
		return err
	}
	right, err := doc.RegionText(i, s.cfg.Regions.Right)
	if err != nil {
		return err
	}

	s.ProcessBlock(left)
	s.ProcessBlock(right)

	s.metrics.PagesProcessed.Inc()
	appLog.Info("page processed", "page", i+1)
	return nil
}

// ProcessBlock truncates a column block at the first stop marker and
// processes the remaining lines top to bottom.
func (s *Session) ProcessBlock(text string) {
	text = TruncateAtStop(text, s.cfg.StopMarkers)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s.ProcessLine(line)
	}
}

// ProcessLine classifies one line and updates the cursor or emits an event.
// Lines seen before an anchor is set are dropped.
func (s *Session) ProcessLine(line string) {
	if s.cursor == nil {
		appLog.Warn("line before base date, ignored", "line", line)
		return
	}

	switch c := s.classifier.Classify(line).(type) {
	case DayMarker:
		if err := s.cursor.AdvanceToDay(c.Day); err != nil {
			appLog.Warn("invalid day marker, keeping current date", "day", c.Day, "date", s.cursor.Date(), "err", err)
			s.metrics.InvalidDays.Inc()
		}
	case Unrecognized:
		appLog.Debug("line ignored", "line", line)
		s.metrics.Unrecognized.Inc()
	default:
		s.emit(c, line)
	}
}

func (s *Session) emit(c Classification, line string) {
	date := s.cursor.Date()

	ev, key, err := s.synth.Build(c, date)
	if err != nil {
		appLog.Error("event skipped", err, "line", line, "date", date)
		s.metrics.EventErrors.Inc()
		return
	}
	if !s.seen.Insert(key) {
		appLog.Debug("duplicate event skipped", "title", key.Title, "date", date)
		s.metrics.Duplicates.Inc()
		return
	}

	ev = withID(ev, s.newID())
	s.sink.Add(ev)
	s.metrics.Events.WithLabelValues(kindOf(c)).Inc()

	switch e := ev.(type) {
	case model.TimedEvent:
		appLog.Info("event added", "title", e.Title, "date", date, "start", e.Start.Format("15:04"), "zone", e.Zone)
	default:
		appLog.Info("all-day event added", "title", ev.EventTitle(), "date", date)
	}
}

func kindOf(c Classification) string {
	switch c.(type) {
	case Flight:
		return metrics.KindFlight
	case Duty:
		return metrics.KindDuty
	default:
		return metrics.KindOff
	}
}
