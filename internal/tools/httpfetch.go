package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SamuelSchlesinger/generalist/internal/tool"
)

const (
	maxFetchBody    = 10 << 20
	maxFetchTimeout = 300 * time.Second
)

// HTTPFetch performs an HTTP request against a public host and returns the
// status, headers, and body as JSON. Requests to loopback, private, and
// link-local addresses are refused to keep the model off the local network.
type HTTPFetch struct {
	client *http.Client

	// allowLocal disables the private-address check in tests.
	allowLocal bool
}

var _ tool.Tool = (*HTTPFetch)(nil)

func (h *HTTPFetch) Name() string { return "http_fetch" }

func (h *HTTPFetch) Description() string {
	return "Performs an HTTP request and returns the status code, response " +
		"headers, and body. Only public hosts are reachable."
}

func (h *HTTPFetch) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"url": {
				"type": "string",
				"description": "The URL to request, http or https"
			},
			"method": {
				"type": "string",
				"enum": ["GET", "POST", "PUT", "DELETE", "HEAD", "PATCH"],
				"description": "HTTP method, defaults to GET"
			},
			"headers": {
				"type": "object",
				"description": "Additional request headers"
			},
			"body": {
				"type": "string",
				"description": "Request body for POST, PUT, and PATCH"
			},
			"timeout_seconds": {
				"type": "number",
				"description": "Request timeout in seconds, capped at 300"
			}
		},
		"required": ["url"]
	}`)
}

type fetchResponse struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
}

func (h *HTTPFetch) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var args struct {
		URL            string            `json:"url"`
		Method         string            `json:"method"`
		Headers        map[string]string `json:"headers"`
		Body           string            `json:"body"`
		TimeoutSeconds float64           `json:"timeout_seconds"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}

	target, err := url.Parse(args.URL)
	if err != nil || target.Host == "" {
		return "", fmt.Errorf("invalid url %q", args.URL)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q: only http and https are allowed", target.Scheme)
	}
	if !h.allowLocal {
		if err := checkPublicHost(target.Hostname()); err != nil {
			return "", err
		}
	}

	method := strings.ToUpper(args.Method)
	if method == "" {
		method = http.MethodGet
	}
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodHead, http.MethodPatch:
	default:
		return "", fmt.Errorf("unsupported method %q", args.Method)
	}

	if args.TimeoutSeconds > 0 {
		timeout := time.Duration(args.TimeoutSeconds * float64(time.Second))
		if timeout > maxFetchTimeout {
			timeout = maxFetchTimeout
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var body io.Reader
	if args.Body != "" {
		body = strings.NewReader(args.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, args.URL, body)
	if err != nil {
		return "", fmt.Errorf("cannot build request: %w", err)
	}
	for name, value := range args.Headers {
		// The transport owns these; letting the model set them corrupts
		// the request.
		lower := strings.ToLower(name)
		if lower == "host" || lower == "content-length" {
			continue
		}
		req.Header.Set(name, value)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBody+1))
	if err != nil {
		return "", fmt.Errorf("cannot read response body: %w", err)
	}
	truncated := false
	if len(data) > maxFetchBody {
		data = data[:maxFetchBody]
		truncated = true
	}

	headers := make(map[string]string, len(resp.Header))
	for name := range resp.Header {
		headers[name] = resp.Header.Get(name)
	}
	out := fetchResponse{
		Status:  resp.StatusCode,
		Headers: headers,
		Body:    string(data),
	}
	if truncated {
		out.Body += "\n... (body truncated)"
	}

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("cannot encode response: %w", err)
	}
	return string(encoded), nil
}

// checkPublicHost rejects hostnames that resolve to loopback, private,
// link-local, or unspecified addresses.
func checkPublicHost(hostname string) error {
	if strings.EqualFold(hostname, "localhost") {
		return errors.New("requests to local addresses are not allowed")
	}

	var addrs []net.IP
	if ip := net.ParseIP(hostname); ip != nil {
		addrs = []net.IP{ip}
	} else {
		resolved, err := net.LookupIP(hostname)
		if err != nil {
			return fmt.Errorf("cannot resolve %s: %w", hostname, err)
		}
		addrs = resolved
	}

	for _, ip := range addrs {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
			return errors.New("requests to local addresses are not allowed")
		}
	}
	return nil
}
