package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPFetchGet(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		fmt.Fprint(w, "pong")
	}))
	defer srv.Close()

	fetch := &HTTPFetch{client: srv.Client(), allowLocal: true}
	input, _ := json.Marshal(map[string]any{"url": srv.URL})
	out, err := fetch.Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var resp fetchResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if resp.Status != http.StatusOK {
		t.Fatalf("Status = %d", resp.Status)
	}
	if resp.Body != "pong" {
		t.Fatalf("Body = %q", resp.Body)
	}
	if resp.Headers["X-Test"] != "yes" {
		t.Fatalf("Headers = %v", resp.Headers)
	}
}

func TestHTTPFetchPostBodyAndHeaders(t *testing.T) {
	t.Parallel()

	var gotBody string
	var gotHeader string
	var gotHost string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		gotHeader = r.Header.Get("X-Custom")
		gotHost = r.Host
	}))
	defer srv.Close()

	fetch := &HTTPFetch{client: srv.Client(), allowLocal: true}
	input, _ := json.Marshal(map[string]any{
		"url":    srv.URL,
		"method": "POST",
		"body":   `{"k":"v"}`,
		"headers": map[string]string{
			"X-Custom": "abc",
			"Host":     "evil.example.com",
		},
	})
	if _, err := fetch.Execute(context.Background(), input); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if gotBody != `{"k":"v"}` {
		t.Fatalf("body = %q", gotBody)
	}
	if gotHeader != "abc" {
		t.Fatalf("X-Custom = %q", gotHeader)
	}
	if gotHost == "evil.example.com" {
		t.Fatal("Host header override was forwarded")
	}
}

func TestHTTPFetchRejectsLocalAddresses(t *testing.T) {
	t.Parallel()

	fetch := &HTTPFetch{client: http.DefaultClient}
	for _, target := range []string{
		"http://localhost/",
		"http://127.0.0.1/",
		"http://10.0.0.5/",
		"http://192.168.1.1/",
		"http://[::1]/",
	} {
		input, _ := json.Marshal(map[string]any{"url": target})
		_, err := fetch.Execute(context.Background(), input)
		if err == nil || !strings.Contains(err.Error(), "local addresses") {
			t.Fatalf("Execute(%s) error = %v, want local address rejection", target, err)
		}
	}
}

func TestHTTPFetchRejectsBadMethodAndScheme(t *testing.T) {
	t.Parallel()

	fetch := &HTTPFetch{client: http.DefaultClient, allowLocal: true}

	input, _ := json.Marshal(map[string]any{"url": "http://example.com", "method": "TRACE"})
	if _, err := fetch.Execute(context.Background(), input); err == nil {
		t.Fatal("TRACE accepted")
	}

	input, _ = json.Marshal(map[string]any{"url": "ftp://example.com/file"})
	if _, err := fetch.Execute(context.Background(), input); err == nil {
		t.Fatal("ftp scheme accepted")
	}
}

func TestCheckPublicHost(t *testing.T) {
	t.Parallel()

	for _, hostname := range []string{"localhost", "127.0.0.1", "0.0.0.0", "169.254.1.1", "172.16.0.1"} {
		if err := checkPublicHost(hostname); err == nil {
			t.Fatalf("checkPublicHost(%q) allowed", hostname)
		}
	}
	if err := checkPublicHost("93.184.216.34"); err != nil {
		t.Fatalf("checkPublicHost(public ip): %v", err)
	}
}
