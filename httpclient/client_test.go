package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDoBasicGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	c := New(Config{})
	resp, err := c.Do(context.Background(), &Request{Method: "GET", URL: srv.URL + "/hi"})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != 200 || string(resp.Body) != "hello" {
		t.Errorf("got status=%d body=%q", resp.StatusCode, resp.Body)
	}
}

func TestDoChunkedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write([]byte("part1-"))
		flusher.Flush()
		w.Write([]byte("part2"))
	}))
	defer srv.Close()

	c := New(Config{})
	resp, err := c.Do(context.Background(), &Request{Method: "GET", URL: srv.URL + "/chunked"})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if string(resp.Body) != "part1-part2" {
		t.Errorf("got body %q", resp.Body)
	}
}

func TestDoFollowsRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/end", http.StatusFound)
			return
		}
		w.Write([]byte("landed"))
	}))
	defer srv.Close()

	c := New(Config{})
	resp, err := c.Do(context.Background(), &Request{Method: "GET", URL: srv.URL + "/start"})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != 200 || string(resp.Body) != "landed" {
		t.Errorf("got status=%d body=%q", resp.StatusCode, resp.Body)
	}
}

func TestDoRedirectLimitStopsFollowing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	}))
	defer srv.Close()

	c := New(Config{MaxRedirects: 2})
	resp, err := c.Do(context.Background(), &Request{Method: "GET", URL: srv.URL + "/loop"})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if !isRedirect(resp.StatusCode) {
		t.Errorf("expected final response to still be a redirect after hitting the limit, got %d", resp.StatusCode)
	}
}

func TestDoHeadHasNoBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "5")
		if r.Method != "HEAD" {
			w.Write([]byte("hello"))
		}
	}))
	defer srv.Close()

	c := New(Config{})
	resp, err := c.Do(context.Background(), &Request{Method: "HEAD", URL: srv.URL + "/h"})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if len(resp.Body) != 0 {
		t.Errorf("expected empty body for HEAD, got %q", resp.Body)
	}
}
