package checker

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/advertile/campwatch/internal/utils"
	"github.com/advertile/campwatch/pkg/campaign"
)

// Gateway is the campaign data source a run needs. *redtrack.Client satisfies
// it; tests plug in fakes.
type Gateway interface {
	ListActiveCampaigns(ctx context.Context) ([]campaign.Campaign, error)
	GetCampaign(ctx context.Context, id string) (campaign.Campaign, error)
	GetDomain(ctx context.Context, id string) (gjson.Result, error)
	GetLanding(ctx context.Context, id string) (gjson.Result, error)
	ReportByCampaign(ctx context.Context, dateFrom, dateTo string) ([]gjson.Result, error)
}

// RunOptions configures a single orchestrator pass.
type RunOptions struct {
	// Fixed window (YYYY-MM-DD). Both must be set to take effect; otherwise
	// the window is [today - DaysLookback, today] in UTC calendar days.
	DateFrom string
	DateTo   string

	DaysLookback int

	// Concurrency bounds the per-campaign check worker pool. <=1 runs checks
	// sequentially. Result ordering is preserved either way.
	Concurrency int
}

// Runner composes the gateway, the activity filter, the URL extractor and the
// health checker into one end-to-end pass.
type Runner struct {
	Gateway Gateway
	Health  *HealthChecker
}

// ResolveWindow returns the effective date window for a run.
func ResolveWindow(dateFrom, dateTo string, daysLookback int, now time.Time) (string, string) {
	if dateFrom != "" && dateTo != "" {
		return dateFrom, dateTo
	}
	today := now.UTC()
	from := today.AddDate(0, 0, -daysLookback)
	return from.Format("2006-01-02"), today.Format("2006-01-02")
}

// Run executes one full check pass. Gateway errors on the mandatory calls
// (campaign list, report, per-campaign detail) are fatal to the run; failed
// domain/landing lookups degrade to "unresolved" for the rest of the run.
// Per-URL failures are data on the result, never errors.
func (r *Runner) Run(ctx context.Context, opts RunOptions) ([]campaign.Result, error) {
	dateFrom, dateTo := ResolveWindow(opts.DateFrom, opts.DateTo, opts.DaysLookback, time.Now())
	utils.Log.WithFields(logrus.Fields{"date_from": dateFrom, "date_to": dateTo}).Info("check window resolved")

	campaigns, err := r.Gateway.ListActiveCampaigns(ctx)
	if err != nil {
		return nil, err
	}
	utils.Log.WithField("count", len(campaigns)).Info("campaigns fetched")

	rows, err := r.Gateway.ReportByCampaign(ctx, dateFrom, dateTo)
	if err != nil {
		return nil, err
	}
	utils.Log.WithField("rows", len(rows)).Info("report fetched")

	active := FilterActivity(campaigns, rows)
	utils.Log.WithField("count", len(active)).Info("campaigns with activity")

	// Per-run lookup caches. Each domain/landing id is resolved at most once
	// per run; a failed lookup stays unresolved until the next run.
	domainCache := make(map[string]gjson.Result)
	landingCache := make(map[string]gjson.Result)

	var results []campaign.Result
	for _, c := range campaigns {
		stats, ok := active[c.ID]
		if !ok {
			continue
		}
		utils.Log.WithFields(logrus.Fields{"campaign_id": c.ID, "title": c.Title}).Debug("checking campaign")

		full, err := r.Gateway.GetCampaign(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		cand := ExtractCandidates(full.Raw)

		domainName := ""
		if cand.DomainID != "" {
			rec, cached := domainCache[cand.DomainID]
			if !cached {
				var lerr error
				rec, lerr = r.Gateway.GetDomain(ctx, cand.DomainID)
				if lerr != nil {
					utils.Log.WithFields(logrus.Fields{"domain_id": cand.DomainID, "error": lerr}).Warn("domain lookup failed")
					rec = gjson.Result{}
				}
				domainCache[cand.DomainID] = rec
			}
			domainName = NormalizeDomainName(utils.FirstString(rec, "name", "domain", "title", "hostname"))
		}

		var landingURLs []string
		for _, lid := range cand.LandingIDs {
			rec, cached := landingCache[lid]
			if !cached {
				var lerr error
				rec, lerr = r.Gateway.GetLanding(ctx, lid)
				if lerr != nil {
					utils.Log.WithFields(logrus.Fields{"landing_id": lid, "error": lerr}).Warn("landing lookup failed")
					rec = gjson.Result{}
				}
				landingCache[lid] = rec
			}
			if u := utils.FirstString(rec, "url"); u != "" {
				landingURLs = append(landingURLs, u)
			}
		}

		targets := BuildTargets(cand.TrackingURL, domainName, landingURLs)
		checks := r.runChecks(ctx, targets, opts.Concurrency)

		results = append(results, campaign.Result{
			Campaign: campaign.Info{
				ID:          c.ID,
				Title:       full.Title,
				Status:      full.Status,
				DomainID:    cand.DomainID,
				DomainName:  domainName,
				TrackingURL: cand.TrackingURL,
			},
			Stats:  stats,
			Checks: checks,
		})
	}

	return results, nil
}

// runChecks checks every target, optionally on a bounded worker pool. Results
// land in their target's slot so output order never depends on scheduling.
func (r *Runner) runChecks(ctx context.Context, targets []campaign.Target, concurrency int) []campaign.Check {
	if len(targets) == 0 {
		return nil
	}
	checks := make([]campaign.Check, len(targets))

	if concurrency <= 1 {
		for i, t := range targets {
			checks[i] = campaign.Check{Kind: t.Kind, URLCheck: r.Health.Check(ctx, t.URL)}
		}
		return checks
	}

	idx := make(chan int, len(targets))
	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				t := targets[i]
				checks[i] = campaign.Check{Kind: t.Kind, URLCheck: r.Health.Check(ctx, t.URL)}
			}
		}()
	}
	for i := range targets {
		idx <- i
	}
	close(idx)
	wg.Wait()

	return checks
}
