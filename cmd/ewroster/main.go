package main

import (
	"errors"
	"flag"
	"os"
	_ "time/tzdata"

	"ewroster/internal/config"
	"ewroster/internal/extract"
	"ewroster/internal/ics"
	appLog "ewroster/internal/log"
	"ewroster/internal/lookup"
	"ewroster/internal/roster"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath  string
	writeConfig bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	if flags.writeConfig {
		if err := conf.Save(flags.configPath); err != nil {
			appLog.Error("failed to write config", err, "config_path", flags.configPath)
			os.Exit(1)
		}
		appLog.Info("config written", "config_path", flags.configPath)
		return
	}

	appLog.Info("effective config",
		"input", conf.Input,
		"output", conf.Output,
		"duty_table", conf.DutyTable,
		"location_table", conf.LocationTable,
		"instant_zone", conf.InstantZone,
	)

	if err := run(conf); err != nil {
		appLog.Error("run failed", err)
		os.Exit(1)
	}
}

func run(conf *config.Config) error {
	duty := loadTable(conf.DutyTable)
	locations := loadTable(conf.LocationTable)

	if _, err := os.Stat(conf.Input); err != nil {
		return err
	}

	doc, err := extract.Open(conf.Input)
	if err != nil {
		return err
	}
	defer doc.Close()

	appLog.Info("processing roster", "path", conf.Input, "pages", doc.NumPages())

	cal := ics.NewCalendar(conf.ProductID)
	session := roster.NewSession(conf, duty, locations, cal)
	if err := session.Run(doc); err != nil {
		if errors.Is(err, roster.ErrNoAnchor) {
			appLog.Error("could not find period start date", err)
		}
		return err
	}

	if err := cal.Save(conf.Output); err != nil {
		return err
	}
	verify(conf.Output, cal.Len())

	if conf.MetricsFile != "" {
		if err := session.Metrics().WriteTextfile(conf.MetricsFile); err != nil {
			appLog.Error("failed to write metrics", err, "path", conf.MetricsFile)
		}
	}

	appLog.Info("roster converted", "output", conf.Output, "event_count", cal.Len())
	return nil
}

// loadTable reads a lookup table; a missing or unreadable file only
// produces a warning and an empty table.
func loadTable(path string) lookup.Table {
	t, err := lookup.Load(path)
	if err != nil {
		appLog.Warn("could not load table, using defaults", "path", path, "err", err)
		return t
	}
	appLog.Debug("table loaded", "path", path, "entries", t.Len())
	return t
}

// verify re-reads the written calendar and reports a count mismatch.
func verify(path string, want int) {
	f, err := os.Open(path)
	if err != nil {
		appLog.Error("verify: open output", err, "path", path)
		return
	}
	defer f.Close()

	events, err := ics.Decode(f)
	if err != nil {
		appLog.Error("verify: decode output", err, "path", path)
		return
	}
	if len(events) != want {
		appLog.Error("verify: event count mismatch", errors.New("count mismatch"), "written", want, "read", len(events))
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "ewroster.yaml", "Path to config file (defaults apply if missing)")
	flag.BoolVar(&cfg.writeConfig, "write-config", false, "Write the effective config to -config and exit")

	flag.Parse()

	return cfg
}
