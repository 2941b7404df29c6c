package checker

import (
	"sort"

	"github.com/tidwall/gjson"

	"github.com/advertile/campwatch/internal/utils"
	"github.com/advertile/campwatch/pkg/campaign"
)

// Candidate key lists for fields whose spelling varies by account
// configuration. First present non-empty value wins.
var trackingURLKeys = []string{"trackback_url", "impression_url", "campaign_url", "url", "tracking_url"}

// ExtractCandidates pulls the checkable URLs out of a full campaign document.
// The nested stream/landing structure is walked best-effort: absent or
// malformed pieces contribute nothing rather than failing the campaign.
func ExtractCandidates(doc string) campaign.Candidates {
	root := gjson.Parse(doc)

	cand := campaign.Candidates{
		TrackingURL: utils.FirstString(root, trackingURLKeys...),
		DomainID:    utils.FirstID(root, "domain_id"),
	}

	seen := make(map[string]bool)
	root.Get("streams").ForEach(func(_, cs gjson.Result) bool {
		stream := cs.Get("stream")
		for _, key := range []string{"landings", "prelandings"} {
			stream.Get(key).ForEach(func(_, l gjson.Result) bool {
				if id := utils.FirstID(l, "id", "_id"); id != "" {
					seen[id] = true
				}
				return true
			})
		}
		return true
	})

	for id := range seen {
		cand.LandingIDs = append(cand.LandingIDs, id)
	}
	sort.Strings(cand.LandingIDs)
	return cand
}
