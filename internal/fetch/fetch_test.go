package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/splitview/content-service/internal/content"
)

func testClient(max int) *Client {
	return &Client{
		HTTPClient:  &http.Client{Timeout: 5 * time.Second},
		MaxAttempts: max,
		RetryDelay:  time.Millisecond,
	}
}

func TestGetSucceedsOnThirdAttempt(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	resp, err := testClient(3).Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Fatalf("got body %q", body)
	}
	if calls.Load() != 3 {
		t.Fatalf("server saw %d calls, want 3", calls.Load())
	}
}

func TestGetExhaustsRetriesAndNamesStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := testClient(3).Get(context.Background(), srv.URL)
	if err == nil {
		t.Fatalf("expected terminal error")
	}
	var fe *content.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %T: %v", err, err)
	}
	if fe.Status != http.StatusForbidden {
		t.Fatalf("error status = %d, want 403", fe.Status)
	}
	if calls.Load() != 3 {
		t.Fatalf("server saw %d calls, want 3", calls.Load())
	}
}

func TestGetRetriesNetworkFailure(t *testing.T) {
	t.Parallel()

	// Closed server: every attempt is a network-level failure.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := testClient(2).Get(context.Background(), url)
	var fe *content.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %T: %v", err, err)
	}
	if fe.Status != 0 || fe.Err == nil {
		t.Fatalf("network failure should carry a cause, got %+v", fe)
	}
}

func TestBrowserHeadersSentOnEveryAttempt(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Referer") != "https://patents.google.com/" {
			t.Errorf("attempt %d missing referer", calls.Load()+1)
		}
		if r.Header.Get("User-Agent") == "" || r.Header.Get("User-Agent") == "Go-http-client/1.1" {
			t.Errorf("attempt %d has non-browser user agent", calls.Load()+1)
		}
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	c := testClient(3)
	c.UserAgent = defaultUserAgent
	c.Referer = defaultReferer
	resp, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
}

func TestHeadFollowsRedirects(t *testing.T) {
	t.Parallel()

	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer final.Close()
	hop := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL+"/target.pdf", http.StatusFound)
	}))
	defer hop.Close()

	resp, err := testClient(1).Head(context.Background(), hop.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if got := resp.Request.URL.String(); got != final.URL+"/target.pdf" {
		t.Fatalf("final URL = %q, want redirect target", got)
	}
}
