// Package campaign holds the shared domain model: campaigns as consumed from
// the tracking platform, URL checks, and per-run results.
package campaign

// Check target kinds, in the order they are checked.
const (
	KindTracking    = "tracking"
	KindDomainHTTPS = "domain_https"
	KindDomainHTTP  = "domain_http"
	KindLanding     = "landing"
)

// URL check failure types.
const (
	FailDNS     = "dns"
	FailTimeout = "timeout"
	FailHTTP    = "http"
	FailSSL     = "ssl"
	FailOther   = "other"
)

// Campaign is a snapshot of a campaign as returned by the platform API.
// Raw carries the full JSON document; the platform schema varies by account
// configuration, so anything beyond the identity fields is plucked from Raw
// on demand.
type Campaign struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
	Raw    string `json:"-"`
}

// Stats holds a campaign's spend and revenue over the lookback window.
type Stats struct {
	Cost    float64 `json:"cost"`
	Revenue float64 `json:"revenue"`
}

// Target is a single URL to check, tagged with its role.
type Target struct {
	Kind string `json:"kind"`
	URL  string `json:"url"`
}

// URLCheck is the outcome of checking one URL. OK=true implies an empty
// FailureType.
type URLCheck struct {
	OK          bool   `json:"ok"`
	FailureType string `json:"failure_type,omitempty"`
	Message     string `json:"message,omitempty"`
	TestedURL   string `json:"tested_url,omitempty"`
	FinalURL    string `json:"final_url,omitempty"`
	HTTPStatus  int    `json:"http_status,omitempty"`
	ElapsedMs   int64  `json:"elapsed_ms"`
	PageTitle   string `json:"page_title,omitempty"`
}

// Check pairs a target kind with its check outcome.
type Check struct {
	Kind string `json:"kind"`
	URLCheck
}

// Info is the campaign metadata carried into a run result.
type Info struct {
	ID          string `json:"id"`
	Title       string `json:"title,omitempty"`
	Status      string `json:"status,omitempty"`
	DomainID    string `json:"domain_id,omitempty"`
	DomainName  string `json:"domain_name,omitempty"`
	TrackingURL string `json:"trackback_url,omitempty"`
}

// Result aggregates one campaign's checks for a single run.
type Result struct {
	Campaign Info    `json:"campaign"`
	Stats    Stats   `json:"stats"`
	Checks   []Check `json:"checks"`
}

// OK reports whether the campaign came out of the run healthy. A campaign
// with no check targets at all is not OK: nothing was proven reachable.
func (r Result) OK() bool {
	if len(r.Checks) == 0 {
		return false
	}
	for _, c := range r.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

// FailedChecks returns the checks that did not pass, in check order.
func (r Result) FailedChecks() []Check {
	var out []Check
	for _, c := range r.Checks {
		if !c.OK {
			out = append(out, c)
		}
	}
	return out
}

// Candidates is what the URL extractor derives from a campaign document.
type Candidates struct {
	TrackingURL string
	DomainID    string
	LandingIDs  []string
}
