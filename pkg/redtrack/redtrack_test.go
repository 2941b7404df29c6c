package redtrack

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(baseURL string) *Client {
	c := NewClient(baseURL, "test-key", "UTC")
	c.http.RetryWaitMin = time.Millisecond
	c.http.RetryWaitMax = 5 * time.Millisecond
	return c
}

func TestMissingAPIKey(t *testing.T) {
	c := NewClient("http://localhost:1", "", "UTC")
	_, err := c.ListActiveCampaigns(context.Background())
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestListActiveCampaignsBareList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "test-key" {
			t.Errorf("api_key not sent")
		}
		fmt.Fprint(w, `[
			{"id": "1", "title": "A", "status": "active"},
			{"id": "2", "title": "B", "status": "paused"},
			{"id": "3", "title": "C", "status": "ENABLED"},
			{"id": "4", "title": "D", "status": "1"},
			{"title": "no id", "status": "active"}
		]`)
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).ListActiveCampaigns(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 active campaigns, got %d: %+v", len(got), got)
	}
	if got[0].ID != "1" || got[1].ID != "3" || got[2].ID != "4" {
		t.Fatalf("unexpected campaigns: %+v", got)
	}
}

func TestListActiveCampaignsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": [{"id": "7", "title": "Enveloped", "status": "true"}]}`)
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).ListActiveCampaigns(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "7" {
		t.Fatalf("expected enveloped list unwrapped, got %+v", got)
	}
}

func TestListActiveCampaignsPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		if page == "1" {
			items := make([]string, campaignsPerPage)
			for i := range items {
				items[i] = fmt.Sprintf(`{"id": "p1-%d", "status": "active"}`, i)
			}
			fmt.Fprint(w, "["+strings.Join(items, ",")+"]")
			return
		}
		fmt.Fprint(w, `[{"id": "p2-0", "status": "active"}]`)
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).ListActiveCampaigns(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != campaignsPerPage+1 {
		t.Fatalf("expected %d campaigns across pages, got %d", campaignsPerPage+1, len(got))
	}
	if got[len(got)-1].ID != "p2-0" {
		t.Fatalf("expected last campaign from page 2, got %+v", got[len(got)-1])
	}
}

func TestClientErrorNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).ListActiveCampaigns(context.Background())
	if err == nil {
		t.Fatal("expected error on 400")
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Fatalf("4xx must not be retried, server saw %d requests", n)
	}
}

func TestServerErrorRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `[{"id": "1", "status": "active"}]`)
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).ListActiveCampaigns(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected recovery after retries, got %+v", got)
	}
	if n := atomic.LoadInt32(&hits); n != 3 {
		t.Fatalf("expected 3 attempts, server saw %d", n)
	}
}

func TestGetDomainAndLanding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/domains/"):
			fmt.Fprint(w, `{"id": "d1", "name": "lp.example.com"}`)
		case strings.HasPrefix(r.URL.Path, "/landings/"):
			fmt.Fprint(w, `{"id": "l1", "url": "https://lp.example.com/offer"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	dom, err := c.GetDomain(context.Background(), "d1")
	if err != nil {
		t.Fatal(err)
	}
	if dom.Get("name").String() != "lp.example.com" {
		t.Fatalf("unexpected domain record: %s", dom.Raw)
	}

	lnd, err := c.GetLanding(context.Background(), "l1")
	if err != nil {
		t.Fatal(err)
	}
	if lnd.Get("url").String() != "https://lp.example.com/offer" {
		t.Fatalf("unexpected landing record: %s", lnd.Raw)
	}
}

func TestReportByCampaign(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("group") != "campaign" || q.Get("date_from") != "2026-01-01" || q.Get("date_to") != "2026-01-31" {
			t.Errorf("unexpected report query: %v", q)
		}
		fmt.Fprint(w, `[{"campaign_id": "1", "cost": 10}, {"campaign_id": "2", "cost": 0}]`)
	}))
	defer srv.Close()

	rows, err := newTestClient(srv.URL).ReportByCampaign(context.Background(), "2026-01-01", "2026-01-31")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Get("cost").Float() != 10 {
		t.Fatalf("unexpected first row: %s", rows[0].Raw)
	}
}
