// Package schedule decides when an autonomous check run is due and persists
// the last-run bookkeeping that makes the decision idempotent.
package schedule

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Schedule modes.
const (
	ModeInterval = "interval"
	ModeDailyAt  = "daily_at"
)

const (
	DefaultRunAt        = "17:00"
	DefaultDaysLookback = 30
	DefaultIntervalMin  = 24 * 60
)

// Config is the persisted scheduler state. It is mutated after every due
// decision and read by the orchestrator for its date window.
type Config struct {
	ScheduleMode    string `json:"schedule_mode"`
	IntervalMinutes int    `json:"interval_minutes"`
	RunAtHHMM       string `json:"run_at_hhmm"`

	DaysLookback int    `json:"days_lookback"`
	DateFrom     string `json:"date_from,omitempty"`
	DateTo       string `json:"date_to,omitempty"`

	LastRunEpoch     int64  `json:"last_run_epoch,omitempty"`
	LastRunLocalDate string `json:"last_run_local_date,omitempty"`
}

// Defaults is the config used when no file exists yet.
func Defaults() Config {
	return Config{
		ScheduleMode:    ModeDailyAt,
		IntervalMinutes: DefaultIntervalMin,
		RunAtHHMM:       DefaultRunAt,
		DaysLookback:    DefaultDaysLookback,
	}
}

// Load reads the scheduler config from path. A missing file yields Defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults(), nil
		}
		return Config{}, fmt.Errorf("reading scheduler config: %w", err)
	}
	cfg := Defaults()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing scheduler config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config atomically: a temp file in the same directory is
// renamed over the target so concurrent readers never see a partial write.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Due reports whether an autonomous run should fire at now.
//
// interval mode: due when no run has happened yet, or when at least
// IntervalMinutes have passed since the last one.
//
// daily_at mode: due at most once per local calendar day, once the local
// clock has reached RunAtHHMM in the given timezone.
func (c Config) Due(now time.Time, tz *time.Location) bool {
	switch c.ScheduleMode {
	case ModeDailyAt:
		local := now.In(tz)
		today := local.Format("2006-01-02")
		if c.LastRunLocalDate == today {
			return false
		}
		hh, mm := parseHHMM(c.RunAtHHMM)
		target := time.Date(local.Year(), local.Month(), local.Day(), hh, mm, 0, 0, tz)
		return !local.Before(target)
	default:
		if c.LastRunEpoch == 0 {
			return true
		}
		return now.Unix()-c.LastRunEpoch >= int64(c.IntervalMinutes)*60
	}
}

// MarkRun records the run bookkeeping for now. Callers persist this BEFORE
// executing the run: if the run fails or the process dies mid-run, the next
// tick must not re-trigger it. Skipping a day on crash beats alert-storming
// every minute.
func (c *Config) MarkRun(now time.Time, tz *time.Location) {
	c.LastRunEpoch = now.Unix()
	c.LastRunLocalDate = now.In(tz).Format("2006-01-02")
}

// parseHHMM parses "HH:MM". Anything malformed falls back to the default
// trigger time so a hand-edited config file cannot wedge the daemon.
func parseHHMM(s string) (int, int) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) == 2 {
		hh, err1 := strconv.Atoi(parts[0])
		mm, err2 := strconv.Atoi(parts[1])
		if err1 == nil && err2 == nil && hh >= 0 && hh <= 23 && mm >= 0 && mm <= 59 {
			return hh, mm
		}
	}
	return parseDefaultHHMM()
}

func parseDefaultHHMM() (int, int) {
	parts := strings.SplitN(DefaultRunAt, ":", 2)
	hh, _ := strconv.Atoi(parts[0])
	mm, _ := strconv.Atoi(parts[1])
	return hh, mm
}
