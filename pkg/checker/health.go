package checker

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/advertile/campwatch/pkg/campaign"
)

const (
	DefaultTimeout = 15 * time.Second
	DefaultRetries = 2

	userAgent = "campwatch/1.0"

	// An HTML page that "loads" with less body than this is treated as broken.
	minHTMLBodyChars = 200
)

// HealthChecker performs the layered DNS + HTTP check for a single URL.
// Failures come back as data, never as errors, so a run can keep going.
type HealthChecker struct {
	Timeout time.Duration
	Retries int

	// LookupHost overrides DNS resolution (used by tests).
	LookupHost func(ctx context.Context, host string) ([]string, error)

	client *http.Client
}

func NewHealthChecker(timeout time.Duration, retries int) *HealthChecker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if retries < 0 {
		retries = DefaultRetries
	}
	return &HealthChecker{
		Timeout: timeout,
		Retries: retries,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Check runs the full layered check: DNS precheck first, then the HTTP fetch
// with up to Retries+1 attempts, stopping at the first success. A DNS failure
// short-circuits before any HTTP attempt and is not retried; retrying a name
// that does not resolve only delays the run.
func (h *HealthChecker) Check(ctx context.Context, rawURL string) campaign.URLCheck {
	if host := hostOf(rawURL); host != "" {
		start := time.Now()
		if err := h.dnsCheck(ctx, host); err != nil {
			return campaign.URLCheck{
				FailureType: campaign.FailDNS,
				Message:     err.Error(),
				TestedURL:   rawURL,
				ElapsedMs:   time.Since(start).Milliseconds(),
			}
		}
	}

	var last campaign.URLCheck
	for attempt := 0; attempt <= h.Retries; attempt++ {
		last = h.HTTPCheck(ctx, rawURL)
		if last.OK {
			break
		}
	}
	return last
}

func (h *HealthChecker) dnsCheck(ctx context.Context, host string) error {
	lookup := h.LookupHost
	if lookup == nil {
		lookup = net.DefaultResolver.LookupHost
	}
	ctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()
	_, err := lookup(ctx, host)
	return err
}

// HTTPCheck issues a single GET (redirects followed) and classifies the
// outcome. Elapsed wall-clock time is recorded regardless of result.
func (h *HealthChecker) HTTPCheck(ctx context.Context, rawURL string) campaign.URLCheck {
	start := time.Now()
	out := campaign.URLCheck{TestedURL: rawURL}

	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		out.FailureType = campaign.FailOther
		out.Message = err.Error()
		out.ElapsedMs = time.Since(start).Milliseconds()
		return out
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en")

	res, err := h.client.Do(req)
	if err != nil {
		out.ElapsedMs = time.Since(start).Milliseconds()
		out.FailureType, out.Message = classifyTransportError(err)
		return out
	}
	defer res.Body.Close()

	body, readErr := io.ReadAll(res.Body)
	out.ElapsedMs = time.Since(start).Milliseconds()
	out.FinalURL = res.Request.URL.String()
	out.HTTPStatus = res.StatusCode
	if readErr != nil {
		out.FailureType = campaign.FailHTTP
		out.Message = fmt.Sprintf("reading body: %v", readErr)
		return out
	}

	statusOK := res.StatusCode >= 200 && res.StatusCode < 400

	// Basic "loaded" heuristic: an HTML page should have some body. Other
	// content types (JSON endpoints, images, tracking pixels) are exempt.
	contentOK := true
	ctype := strings.ToLower(res.Header.Get("Content-Type"))
	if strings.Contains(ctype, "text/html") {
		if title, ok := htmlTitle(string(body)); ok {
			out.PageTitle = strings.TrimSpace(title)
		}
		if len(strings.TrimSpace(string(body))) < minHTMLBodyChars {
			contentOK = false
		}
	}

	if statusOK && contentOK {
		out.OK = true
		return out
	}

	msg := fmt.Sprintf("HTTP %d", res.StatusCode)
	if statusOK && !contentOK {
		msg += "; content too small"
	}
	out.FailureType = campaign.FailHTTP
	out.Message = msg
	return out
}

func classifyTransportError(err error) (failureType, message string) {
	var certErr *tls.CertificateVerificationError
	var netErr net.Error
	switch {
	case errors.As(err, &certErr):
		return campaign.FailSSL, err.Error()
	case errors.As(err, &netErr) && netErr.Timeout(),
		errors.Is(err, context.DeadlineExceeded):
		return campaign.FailTimeout, "timeout"
	default:
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return campaign.FailHTTP, err.Error()
		}
		return campaign.FailOther, err.Error()
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func isTitleElement(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "title"
}

func traverse(n *html.Node) (string, bool) {
	if isTitleElement(n) {
		if n.FirstChild != nil {
			return n.FirstChild.Data, true
		}
		return "", true
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		result, ok := traverse(c)
		if ok {
			return result, ok
		}
	}

	return "", false
}

func htmlTitle(body string) (string, bool) {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return "", false
	}
	return traverse(doc)
}
