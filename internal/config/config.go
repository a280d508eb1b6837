package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Instant zone policies for timed events.
const (
	// ZoneLocation builds instants in the timezone resolved from the
	// event's station code.
	ZoneLocation = "location"
	// ZoneLocal builds instants in the process-local timezone and only
	// carries the resolved zone as metadata.
	ZoneLocal = "local"
)

// Rect is a page rectangle in points, origin at the top-left corner.
type Rect struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

// Contains reports whether the point (x, y) lies inside r.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x < r.X+r.W && y >= r.Y && y < r.Y+r.H
}

// Regions groups the fixed page rectangles used for extraction.
type Regions struct {
	// Period is read on the first page only and holds "Period: 01Jan24".
	Period Rect `yaml:"period"`
	// Header is checked on every page for skip markers.
	Header Rect `yaml:"header"`
	Left   Rect `yaml:"left"`
	Right  Rect `yaml:"right"`
}

// Config is the top-level application configuration.
type Config struct {
	// Input is the roster PDF, Output the iCalendar file written at the end.
	Input  string `yaml:"input"`
	Output string `yaml:"output"`

	// DutyTable maps duty codes to titles, LocationTable maps station
	// codes to IANA timezones. Both are "key;value" text files.
	DutyTable     string `yaml:"duty_table"`
	LocationTable string `yaml:"location_table"`

	// MetricsFile, if set, receives the run counters in Prometheus text format.
	MetricsFile string `yaml:"metrics_file"`

	LogLevel  string `yaml:"log_level"`
	ProductID string `yaml:"product_id"`

	// Carrier is the flight number prefix, e.g. "EW".
	Carrier     string   `yaml:"carrier"`
	DutyMarkers []string `yaml:"duty_markers"`
	OffCodes    []string `yaml:"off_codes"`

	// StopMarkers truncate a column block; SkipMarkers in the header
	// region cause the whole page to be ignored.
	StopMarkers []string `yaml:"stop_markers"`
	SkipMarkers []string `yaml:"skip_markers"`

	Regions Regions `yaml:"regions"`

	// DutyDuration is the nominal length of single-time duties (C/I etc).
	DutyDuration time.Duration `yaml:"duty_duration"`

	DefaultTimezone  string `yaml:"default_timezone"`
	FallbackTimezone string `yaml:"fallback_timezone"`

	// InstantZone is ZoneLocation or ZoneLocal.
	InstantZone string `yaml:"instant_zone"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Input:         "dutyplan.pdf",
		Output:        "roster.ics",
		DutyTable:     "Dienste.txt",
		LocationTable: "IATA.csv",
		LogLevel:      "info",
		ProductID:     "-//ewroster//Roster Parser 1.0//EN",
		Carrier:       "EW",
		DutyMarkers:   []string{"C/I", "Pick Up", "S/U"},
		OffCodes: []string{
			"OFF", "O_M", "O_U", "F", "VAC", "KCC-VAC", "KCC-FLD",
			"KCC-OFF", "DISP", "DISP_FIX", "U", "MEETING",
		},
		StopMarkers: []string{"Vacation Claim", "Hotels", "Crew Information", "Standby points"},
		SkipMarkers: []string{"Standby points", "Crew Information"},
		Regions: Regions{
			Period: Rect{X: 0, Y: 0, W: 300, H: 100},
			Header: Rect{X: 0, Y: 0, W: 600, H: 150},
			Left:   Rect{X: 20, Y: 120, W: 270, H: 650},
			Right:  Rect{X: 293, Y: 120, W: 270, H: 650},
		},
		DutyDuration:     30 * time.Minute,
		DefaultTimezone:  "UTC",
		FallbackTimezone: "Europe/Berlin",
		InstantZone:      ZoneLocation,
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Input == "" {
		c.Input = d.Input
	}
	if c.Output == "" {
		c.Output = d.Output
	}
	if c.DutyTable == "" {
		c.DutyTable = d.DutyTable
	}
	if c.LocationTable == "" {
		c.LocationTable = d.LocationTable
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.ProductID == "" {
		c.ProductID = d.ProductID
	}
	if c.Carrier == "" {
		c.Carrier = d.Carrier
	}
	if len(c.DutyMarkers) == 0 {
		c.DutyMarkers = d.DutyMarkers
	}
	if len(c.OffCodes) == 0 {
		c.OffCodes = d.OffCodes
	}
	// Empty marker lists are meaningful (no truncation / no skipping),
	// only a missing key falls back.
	if c.StopMarkers == nil {
		c.StopMarkers = d.StopMarkers
	}
	if c.SkipMarkers == nil {
		c.SkipMarkers = d.SkipMarkers
	}
	if c.Regions.Period == (Rect{}) {
		c.Regions.Period = d.Regions.Period
	}
	if c.Regions.Header == (Rect{}) {
		c.Regions.Header = d.Regions.Header
	}
	if c.Regions.Left == (Rect{}) {
		c.Regions.Left = d.Regions.Left
	}
	if c.Regions.Right == (Rect{}) {
		c.Regions.Right = d.Regions.Right
	}
	if c.DutyDuration <= 0 {
		c.DutyDuration = d.DutyDuration
	}
	if c.DefaultTimezone == "" {
		c.DefaultTimezone = d.DefaultTimezone
	}
	if c.FallbackTimezone == "" {
		c.FallbackTimezone = d.FallbackTimezone
	}
	switch c.InstantZone {
	case ZoneLocation, ZoneLocal:
		// ok
	default:
		c.InstantZone = ZoneLocation
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - empty path or missing file: defaults, no error
//   - otherwise: read YAML, unmarshal over defaults, normalize
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return WriteFileAtomic(path, data, 0o600)
}

// WriteFileAtomic writes data to a temp file in the target directory and
// renames it over path, so readers never see a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".ewroster-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
