package checker

import (
	"testing"

	"github.com/tidwall/gjson"

	"github.com/advertile/campwatch/pkg/campaign"
)

func rows(docs ...string) []gjson.Result {
	var out []gjson.Result
	for _, d := range docs {
		out = append(out, gjson.Parse(d))
	}
	return out
}

func campaigns(ids ...string) []campaign.Campaign {
	var out []campaign.Campaign
	for _, id := range ids {
		out = append(out, campaign.Campaign{ID: id, Status: "active"})
	}
	return out
}

func TestFilterActivityDropsZeroRows(t *testing.T) {
	got := FilterActivity(campaigns("1", "2"), rows(
		`{"campaign_id": "1", "cost": 0, "revenue": 0}`,
		`{"campaign_id": "2", "cost": 12.5}`,
	))
	if _, ok := got["1"]; ok {
		t.Fatal("campaign with zero cost and revenue must not qualify")
	}
	if got["2"].Cost != 12.5 {
		t.Fatalf("expected cost 12.5, got %v", got["2"].Cost)
	}
}

func TestFilterActivityRevenueAloneQualifies(t *testing.T) {
	got := FilterActivity(campaigns("1"), rows(`{"campaign_id": "1", "revenue": 3}`))
	if got["1"].Revenue != 3 {
		t.Fatalf("expected revenue 3, got %v", got["1"].Revenue)
	}
}

func TestFilterActivityUnknownIDDiscarded(t *testing.T) {
	got := FilterActivity(campaigns("1"), rows(`{"campaign_id": "deleted", "cost": 100}`))
	if len(got) != 0 {
		t.Fatalf("row for unknown campaign must be discarded, got %v", got)
	}
}

func TestFilterActivityAlternateKeys(t *testing.T) {
	got := FilterActivity(campaigns("9"), rows(`{"campaignId": 9, "totalCost": "4.5", "rev": "0"}`))
	stats, ok := got["9"]
	if !ok {
		t.Fatal("expected alternate key spellings to resolve")
	}
	if stats.Cost != 4.5 {
		t.Fatalf("expected string-encoded cost parsed, got %v", stats.Cost)
	}
}

func TestFilterActivityFirstKeyWins(t *testing.T) {
	// "cost" present and zero must shadow "spend".
	got := FilterActivity(campaigns("1"), rows(`{"campaign_id": "1", "cost": 0, "spend": 50, "revenue": 0}`))
	if len(got) != 0 {
		t.Fatalf("expected first matching cost key to win, got %v", got)
	}
}
