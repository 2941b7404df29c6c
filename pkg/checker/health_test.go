package checker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/advertile/campwatch/pkg/campaign"
)

func newTestChecker() *HealthChecker {
	h := NewHealthChecker(5*time.Second, 0)
	h.LookupHost = func(ctx context.Context, host string) ([]string, error) {
		return []string{"127.0.0.1"}, nil
	}
	return h
}

func TestCheckSmallHTMLBodyFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>tiny</body></html>"))
	}))
	defer srv.Close()

	res := newTestChecker().Check(context.Background(), srv.URL)
	if res.OK {
		t.Fatal("expected small HTML body to fail")
	}
	if res.FailureType != campaign.FailHTTP {
		t.Fatalf("expected failure_type http, got %q", res.FailureType)
	}
	if !strings.Contains(res.Message, "content too small") {
		t.Fatalf("expected message to mention content size, got %q", res.Message)
	}
	if res.HTTPStatus != 200 {
		t.Fatalf("expected status 200 recorded, got %d", res.HTTPStatus)
	}
}

func TestCheckSmallJSONBodyPasses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	res := newTestChecker().Check(context.Background(), srv.URL)
	if !res.OK {
		t.Fatalf("expected JSON response to pass, got %q %q", res.FailureType, res.Message)
	}
	if res.FailureType != "" {
		t.Fatalf("ok result must have empty failure_type, got %q", res.FailureType)
	}
}

func TestCheckBigHTMLBodyPasses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><head><title>Landing</title></head><body>" + strings.Repeat("x", 500) + "</body></html>"))
	}))
	defer srv.Close()

	res := newTestChecker().Check(context.Background(), srv.URL)
	if !res.OK {
		t.Fatalf("expected big HTML body to pass, got %q %q", res.FailureType, res.Message)
	}
	if res.PageTitle != "Landing" {
		t.Fatalf("expected page title captured, got %q", res.PageTitle)
	}
}

func TestCheckBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	res := newTestChecker().Check(context.Background(), srv.URL)
	if res.OK {
		t.Fatal("expected 410 to fail")
	}
	if res.FailureType != campaign.FailHTTP {
		t.Fatalf("expected failure_type http, got %q", res.FailureType)
	}
	if res.HTTPStatus != http.StatusGone {
		t.Fatalf("expected status 410, got %d", res.HTTPStatus)
	}
}

func TestCheckDNSFailureShortCircuits(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	h := NewHealthChecker(5*time.Second, 2)
	h.LookupHost = func(ctx context.Context, host string) ([]string, error) {
		return nil, errors.New("no such host")
	}

	res := h.Check(context.Background(), srv.URL)
	if res.OK {
		t.Fatal("expected DNS failure")
	}
	if res.FailureType != campaign.FailDNS {
		t.Fatalf("expected failure_type dns, got %q", res.FailureType)
	}
	if res.HTTPStatus != 0 || res.FinalURL != "" {
		t.Fatal("DNS failure must not record an HTTP attempt")
	}
	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Fatalf("expected no HTTP request after DNS failure, server saw %d", n)
	}
}

func TestCheckTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	h := NewHealthChecker(50*time.Millisecond, 0)
	h.LookupHost = func(ctx context.Context, host string) ([]string, error) {
		return []string{"127.0.0.1"}, nil
	}

	res := h.Check(context.Background(), srv.URL)
	if res.OK {
		t.Fatal("expected timeout failure")
	}
	if res.FailureType != campaign.FailTimeout {
		t.Fatalf("expected failure_type timeout, got %q", res.FailureType)
	}
}

func TestCheckRetriesUntilSuccess(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	h := NewHealthChecker(5*time.Second, 2)
	h.LookupHost = func(ctx context.Context, host string) ([]string, error) {
		return []string{"127.0.0.1"}, nil
	}

	res := h.Check(context.Background(), srv.URL)
	if !res.OK {
		t.Fatalf("expected third attempt to succeed, got %q %q", res.FailureType, res.Message)
	}
	if n := atomic.LoadInt32(&hits); n != 3 {
		t.Fatalf("expected 3 attempts, server saw %d", n)
	}
}

func TestCheckKeepsLastFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	h := NewHealthChecker(5*time.Second, 1)
	h.LookupHost = func(ctx context.Context, host string) ([]string, error) {
		return []string{"127.0.0.1"}, nil
	}

	res := h.Check(context.Background(), srv.URL)
	if res.OK || res.HTTPStatus != http.StatusBadGateway {
		t.Fatalf("expected last attempt's failure kept, got ok=%t status=%d", res.OK, res.HTTPStatus)
	}
	if res.ElapsedMs < 0 {
		t.Fatal("elapsed must be recorded")
	}
}
