// Package redtrack is the client for the campaign data API. Responses are
// free-form JSON whose schema varies by account configuration, so everything
// beyond the request plumbing is gjson plucking with candidate key lists.
package redtrack

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"github.com/advertile/campwatch/internal/utils"
	"github.com/advertile/campwatch/pkg/campaign"
)

const (
	DefaultAPIBase = "https://api.redtrack.io"

	campaignsPerPage = 200
	reportPerPage    = 5000
)

// ErrMissingAPIKey is returned when a request is attempted without credentials.
var ErrMissingAPIKey = errors.New("redtrack api key is not set")

// activeStatuses is the normalized notion of "active". The upstream status
// filter is unreliable, so listings are re-filtered locally against this set.
var activeStatuses = map[string]bool{
	"active":  true,
	"enabled": true,
	"1":       true,
	"true":    true,
}

// Client talks to the RedTrack API. Upstream 5xx responses are retried with
// linear backoff; 4xx responses fail immediately.
type Client struct {
	BaseURL  string
	APIKey   string
	Timezone string

	http *retryablehttp.Client
}

func NewClient(baseURL, apiKey, timezone string) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIBase
	}
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = stdlog.New(io.Discard, "", 0)
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Backoff = retryablehttp.LinearJitterBackoff
	retryClient.HTTPClient.Timeout = 30 * time.Second

	return &Client{
		BaseURL:  strings.TrimSuffix(baseURL, "/"),
		APIKey:   apiKey,
		Timezone: timezone,
		http:     retryClient,
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (string, error) {
	if c.APIKey == "" {
		return "", ErrMissingAPIKey
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.APIKey)

	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", c.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "campwatch/1.0")

	res, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("redtrack GET %s failed: %w", path, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("redtrack GET %s: reading body: %w", path, err)
	}
	if res.StatusCode >= 400 {
		snippet := string(body)
		if len(snippet) > 500 {
			snippet = snippet[:500]
		}
		return "", fmt.Errorf("redtrack GET %s failed: %d %s", path, res.StatusCode, snippet)
	}
	return string(body), nil
}

// unwrapList tolerates both a bare JSON array and the enveloped variants the
// API returns depending on endpoint version: {data|items|result: [...]}.
func unwrapList(body string) (gjson.Result, bool) {
	root := gjson.Parse(body)
	if root.IsArray() {
		return root, true
	}
	for _, k := range []string{"data", "items", "result"} {
		if v := root.Get(k); v.IsArray() {
			return v, true
		}
	}
	return gjson.Result{}, false
}

func parseCampaign(item gjson.Result) campaign.Campaign {
	return campaign.Campaign{
		ID:     utils.FirstID(item, "id", "_id"),
		Title:  utils.FirstString(item, "title", "name"),
		Status: utils.FirstString(item, "status"),
		Raw:    item.Raw,
	}
}

// ListActiveCampaigns walks the paginated campaign listing and returns the
// campaigns whose status normalizes to active.
func (c *Client) ListActiveCampaigns(ctx context.Context) ([]campaign.Campaign, error) {
	var out []campaign.Campaign
	for page := 1; ; page++ {
		body, err := c.get(ctx, "/campaigns/v2", url.Values{
			"status": {"active"},
			"page":   {strconv.Itoa(page)},
			"per":    {strconv.Itoa(campaignsPerPage)},
		})
		if err != nil {
			return nil, err
		}
		items, ok := unwrapList(body)
		if !ok {
			return nil, fmt.Errorf("redtrack campaigns: unexpected response shape on page %d", page)
		}

		count := 0
		items.ForEach(func(_, item gjson.Result) bool {
			count++
			cmp := parseCampaign(item)
			if cmp.ID == "" || !activeStatuses[strings.ToLower(cmp.Status)] {
				return true
			}
			out = append(out, cmp)
			return true
		})

		if count < campaignsPerPage {
			break
		}
	}
	return out, nil
}

// GetCampaign fetches one campaign with its full detail (streams, landings).
func (c *Client) GetCampaign(ctx context.Context, id string) (campaign.Campaign, error) {
	body, err := c.get(ctx, "/campaigns/"+url.PathEscape(id), nil)
	if err != nil {
		return campaign.Campaign{}, err
	}
	cmp := parseCampaign(gjson.Parse(body))
	if cmp.ID == "" {
		cmp.ID = id
	}
	return cmp, nil
}

// GetDomain fetches a domain record by id.
func (c *Client) GetDomain(ctx context.Context, id string) (gjson.Result, error) {
	body, err := c.get(ctx, "/domains/"+url.PathEscape(id), nil)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.Parse(body), nil
}

// GetLanding fetches a landing page record by id.
func (c *Client) GetLanding(ctx context.Context, id string) (gjson.Result, error) {
	body, err := c.get(ctx, "/landings/"+url.PathEscape(id), nil)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.Parse(body), nil
}

// ReportByCampaign fetches the per-campaign cost/revenue report for the given
// date window (YYYY-MM-DD, inclusive). Rows are free-form objects.
func (c *Client) ReportByCampaign(ctx context.Context, dateFrom, dateTo string) ([]gjson.Result, error) {
	body, err := c.get(ctx, "/report", url.Values{
		"group":     {"campaign"},
		"date_from": {dateFrom},
		"date_to":   {dateTo},
		"timezone":  {c.Timezone},
		"per":       {strconv.Itoa(reportPerPage)},
		"page":      {"1"},
		"total":     {"1"},
	})
	if err != nil {
		return nil, err
	}
	items, ok := unwrapList(body)
	if !ok {
		return nil, errors.New("redtrack report: unexpected response shape")
	}
	return items.Array(), nil
}
