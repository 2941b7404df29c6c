package cmd

import (
	"context"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/advertile/campwatch/internal/utils"
	"github.com/advertile/campwatch/pkg/checker"
	"github.com/advertile/campwatch/pkg/history"
	"github.com/advertile/campwatch/pkg/redtrack"
	"github.com/advertile/campwatch/pkg/storage"
	"github.com/advertile/campwatch/pkg/telegram"
)

// jobEnv wires the gateway, checker, stores and notification channel the way
// every command needs them.
type jobEnv struct {
	runner *checker.Runner
	hist   *history.Store
	tg     *telegram.Client
	dbPath string
}

func newJobEnv() *jobEnv {
	gateway := redtrack.NewClient(
		viper.GetString("redtrack.apibase"),
		viper.GetString("redtrack.apikey"),
		viper.GetString("redtrack.timezone"),
	)
	health := checker.NewHealthChecker(
		time.Duration(viper.GetInt("check.timeout"))*time.Second,
		viper.GetInt("check.retries"),
	)
	dataDir := viper.GetString("data.dir")
	return &jobEnv{
		runner: &checker.Runner{Gateway: gateway, Health: health},
		hist:   history.NewStore(filepath.Join(dataDir, "results.json")),
		tg:     telegram.NewClient(viper.GetString("telegram.token"), viper.GetString("telegram.chatid")),
		dbPath: filepath.Join(dataDir, "campwatch.sqlite"),
	}
}

func schedulerConfigPath() string {
	return filepath.Join(viper.GetString("data.dir"), "config.json")
}

// execute runs one full check pass and records it in the history document and
// the sqlite archive. Recording failures are logged, not fatal: the run
// already happened.
func (e *jobEnv) execute(ctx context.Context, kind string, opts checker.RunOptions) (history.Record, error) {
	dateFrom, dateTo := checker.ResolveWindow(opts.DateFrom, opts.DateTo, opts.DaysLookback, time.Now())
	opts.DateFrom, opts.DateTo = dateFrom, dateTo

	results, err := e.runner.Run(ctx, opts)
	if err != nil {
		// Failed runs still leave a trail in the run log.
		rec := history.Summarize(kind, dateFrom, dateTo, opts.DaysLookback, nil)
		rec.Error = err.Error()
		if herr := e.hist.Append(rec); herr != nil {
			utils.Log.WithField("error", herr).Warn("appending run history failed")
		}
		return rec, err
	}

	rec := history.Summarize(kind, dateFrom, dateTo, opts.DaysLookback, results)
	utils.Log.WithFields(logrus.Fields{"total": rec.TotalChecked, "failing": rec.Failing}).Info("check run finished")

	if err := e.hist.Append(rec); err != nil {
		utils.Log.WithField("error", err).Warn("appending run history failed")
	}
	e.archive(ctx, rec)

	return rec, nil
}

func (e *jobEnv) archive(ctx context.Context, rec history.Record) {
	lock, err := utils.NewDBLock(e.dbPath)
	if err != nil {
		utils.Log.WithField("error", err).Warn("check archive lock unavailable")
		return
	}
	if err := lock.Lock(); err != nil {
		utils.Log.WithField("error", err).Warn("check archive lock failed")
		return
	}
	defer lock.Unlock()

	db, err := storage.Open(e.dbPath)
	if err != nil {
		utils.Log.WithField("error", err).Warn("opening check archive failed")
		return
	}
	defer db.Close()

	if err := db.SaveRun(ctx, rec.Results); err != nil {
		utils.Log.WithField("error", err).Warn("archiving check results failed")
	}
}

// notify sends the run outcome to Telegram: failure details when campaigns
// are failing, a single error message when the run itself died, and nothing
// when all is well. Channel errors never fail the run.
func (e *jobEnv) notify(rec history.Record, runErr error) {
	var err error
	switch {
	case runErr != nil:
		err = e.tg.SendMessage("⚠️ Campaign check job failed: " + runErr.Error())
	case rec.Failing > 0:
		err = e.tg.SendMany(telegram.AlertLines(rec.Results), viper.GetInt("telegram.maxmessages"))
	default:
		return
	}
	if err != nil {
		utils.Log.WithField("error", err).Warn("telegram notification failed")
	}
}
