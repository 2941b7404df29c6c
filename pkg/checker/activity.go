package checker

import (
	"github.com/tidwall/gjson"

	"github.com/advertile/campwatch/internal/utils"
	"github.com/advertile/campwatch/pkg/campaign"
)

// Report rows spell the campaign id and the money columns differently
// depending on the grouping the API applied.
var (
	reportCampaignIDKeys = []string{"campaign_id", "id", "campaign", "campaignId"}
	reportCostKeys       = []string{"cost", "spend", "total_cost", "totalCost"}
	reportRevenueKeys    = []string{"revenue", "rev", "total_revenue", "totalRevenue"}
)

// FilterActivity reduces the report to campaign_id -> stats for campaigns
// with cost>0 or revenue>0 in the window. Rows whose id is unknown (deleted
// or filtered campaigns) are discarded. Campaigns absent from the returned
// map are excluded from all downstream checking.
func FilterActivity(campaigns []campaign.Campaign, rows []gjson.Result) map[string]campaign.Stats {
	known := make(map[string]bool, len(campaigns))
	for _, c := range campaigns {
		if c.ID != "" {
			known[c.ID] = true
		}
	}

	out := make(map[string]campaign.Stats)
	for _, row := range rows {
		cid := utils.FirstID(row, reportCampaignIDKeys...)
		if cid == "" || !known[cid] {
			continue
		}
		cost := utils.FirstNumber(row, reportCostKeys...)
		revenue := utils.FirstNumber(row, reportRevenueKeys...)
		if cost > 0 || revenue > 0 {
			out[cid] = campaign.Stats{Cost: cost, Revenue: revenue}
		}
	}
	return out
}
