package schedule

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestIntervalDueBoundaries(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	cfg := Config{ScheduleMode: ModeInterval, IntervalMinutes: 60}

	cfg.LastRunEpoch = now.Unix() - 60*60 - 1
	if !cfg.Due(now, time.UTC) {
		t.Fatal("one second past the interval must be due")
	}

	cfg.LastRunEpoch = now.Unix() - 60*60 + 1
	if cfg.Due(now, time.UTC) {
		t.Fatal("one second before the interval must not be due")
	}

	cfg.LastRunEpoch = now.Unix() - 60*60
	if !cfg.Due(now, time.UTC) {
		t.Fatal("exactly the interval must be due")
	}
}

func TestIntervalNeverRanIsDue(t *testing.T) {
	cfg := Config{ScheduleMode: ModeInterval, IntervalMinutes: 60}
	if !cfg.Due(time.Now(), time.UTC) {
		t.Fatal("a scheduler that never ran must be due")
	}
}

func TestDailyAtSameDayNeverDue(t *testing.T) {
	tz, err := time.LoadLocation("Asia/Calcutta")
	if err != nil {
		t.Fatal(err)
	}
	cfg := Config{ScheduleMode: ModeDailyAt, RunAtHHMM: "09:00"}

	now := time.Date(2026, 5, 1, 23, 59, 0, 0, tz)
	cfg.LastRunLocalDate = now.In(tz).Format("2006-01-02")
	if cfg.Due(now, tz) {
		t.Fatal("already ran today, must not be due at any time of day")
	}
}

func TestDailyAtBeforeAndAfterTarget(t *testing.T) {
	cfg := Config{ScheduleMode: ModeDailyAt, RunAtHHMM: "17:00", LastRunLocalDate: "2026-04-30"}

	before := time.Date(2026, 5, 1, 16, 59, 0, 0, time.UTC)
	if cfg.Due(before, time.UTC) {
		t.Fatal("before the trigger time must not be due")
	}

	after := time.Date(2026, 5, 1, 17, 0, 0, 0, time.UTC)
	if !cfg.Due(after, time.UTC) {
		t.Fatal("at the trigger time must be due")
	}
}

func TestDailyAtMalformedTimeFallsBack(t *testing.T) {
	cfg := Config{ScheduleMode: ModeDailyAt, RunAtHHMM: "not-a-time", LastRunLocalDate: "2026-04-30"}

	// Default trigger is 17:00.
	if cfg.Due(time.Date(2026, 5, 1, 16, 0, 0, 0, time.UTC), time.UTC) {
		t.Fatal("malformed run_at must fall back to 17:00, 16:00 is too early")
	}
	if !cfg.Due(time.Date(2026, 5, 1, 17, 30, 0, 0, time.UTC), time.UTC) {
		t.Fatal("malformed run_at must fall back to 17:00, 17:30 is due")
	}
}

func TestMarkRunRecordsEpochAndLocalDate(t *testing.T) {
	tz, err := time.LoadLocation("Asia/Calcutta")
	if err != nil {
		t.Fatal(err)
	}
	// 20:30 UTC is already the next day in Calcutta.
	now := time.Date(2026, 5, 1, 20, 30, 0, 0, time.UTC)

	cfg := Defaults()
	cfg.MarkRun(now, tz)
	if cfg.LastRunEpoch != now.Unix() {
		t.Fatalf("expected epoch %d, got %d", now.Unix(), cfg.LastRunEpoch)
	}
	if cfg.LastRunLocalDate != "2026-05-02" {
		t.Fatalf("expected local date 2026-05-02, got %s", cfg.LastRunLocalDate)
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ScheduleMode != ModeDailyAt || cfg.RunAtHHMM != "17:00" || cfg.DaysLookback != 30 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Defaults()
	cfg.ScheduleMode = ModeInterval
	cfg.IntervalMinutes = 15
	cfg.LastRunEpoch = 123456
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != cfg {
		t.Fatalf("round trip mismatch: %+v vs %+v", got, cfg)
	}

	// No temp file left behind.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temp file must be renamed away")
	}
}

func TestLoadCorruptFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("corrupt config must fail loudly, not silently reset")
	}
}
