package checker

import (
	"net/url"
	"strings"

	"github.com/weppos/publicsuffix-go/publicsuffix"

	"github.com/advertile/campwatch/pkg/campaign"
)

// NormalizeDomainName cleans up a domain record value from the gateway so it
// can become a check target. Records sometimes carry a full URL, trailing
// dots, or plain garbage; anything without a registrable public-suffix domain
// yields "" and produces no targets instead of a guaranteed-failing check.
func NormalizeDomainName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}

	host := name
	if strings.Contains(name, "://") {
		if u, err := url.Parse(name); err == nil && u.Hostname() != "" {
			host = u.Hostname()
		}
	} else {
		host = strings.Split(host, "/")[0]
		host = strings.Split(host, ":")[0]
	}
	host = strings.TrimSuffix(host, ".")

	if !strings.Contains(host, ".") || strings.Contains(host, "*") {
		return ""
	}
	if _, err := publicsuffix.Domain(host); err != nil {
		return ""
	}
	return host
}

// BuildTargets assembles the ordered check-target list for one campaign:
// tracking URL first, then both scheme variants of the custom domain, then
// each resolved landing URL. Ordering is for readable output only.
func BuildTargets(trackingURL, domainName string, landingURLs []string) []campaign.Target {
	var targets []campaign.Target
	if trackingURL != "" {
		targets = append(targets, campaign.Target{Kind: campaign.KindTracking, URL: trackingURL})
	}
	if domainName != "" {
		targets = append(targets,
			campaign.Target{Kind: campaign.KindDomainHTTPS, URL: "https://" + domainName},
			campaign.Target{Kind: campaign.KindDomainHTTP, URL: "http://" + domainName},
		)
	}
	for _, u := range landingURLs {
		targets = append(targets, campaign.Target{Kind: campaign.KindLanding, URL: u})
	}
	return targets
}
