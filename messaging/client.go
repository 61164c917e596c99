// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bureau-foundation/synapse-admin/lib/clock"
	"github.com/bureau-foundation/synapse-admin/lib/credcache"
	"github.com/bureau-foundation/synapse-admin/lib/netutil"
	"github.com/bureau-foundation/synapse-admin/lib/ref"
	"github.com/bureau-foundation/synapse-admin/lib/txnid"
	"github.com/bureau-foundation/synapse-admin/lib/version"
)

// DefaultTimeout bounds every request when ClientConfig.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// DefaultDeviceDisplayName labels the device created by each login.
const DefaultDeviceDisplayName = "synapse-admin"

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// HomeserverURL is the base URL of the homeserver
	// (e.g., "https://matrix.example.org").
	HomeserverURL string

	// ServerName qualifies bare room aliases. Derived from the host of
	// HomeserverURL when zero.
	ServerName ref.ServerName

	// HTTPClient is used for all requests. If nil, a client is built
	// from Timeout and SkipCertificateVerification. A supplied client
	// without a timeout gets Timeout.
	HTTPClient *http.Client

	// Timeout bounds each HTTP request. Defaults to DefaultTimeout.
	Timeout time.Duration

	// SkipCertificateVerification disables TLS verification. Only
	// honored when HTTPClient is nil.
	SkipCertificateVerification bool

	// Cache stores tokens between invocations. Nil disables caching.
	Cache *credcache.Store

	// DeviceDisplayName labels devices created by Login.
	DeviceDisplayName string

	// Transactions generates event transaction IDs. If nil, a generator
	// with the default prefix is created.
	Transactions *txnid.Generator

	// Clock stamps event envelopes. Defaults to clock.Real().
	Clock clock.Clock

	// UserAgent is sent with every request. Defaults to
	// version.UserAgent().
	UserAgent string

	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Client sends requests to one homeserver. It holds no credentials and
// is safe for concurrent use.
type Client struct {
	baseURL           string
	serverName        ref.ServerName
	httpClient        *http.Client
	cache             *credcache.Store
	deviceDisplayName string
	transactions      *txnid.Generator
	clock             clock.Clock
	userAgent         string
	logger            *slog.Logger
}

// NewClient creates a new Client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.HomeserverURL == "" {
		return nil, fmt.Errorf("messaging: HomeserverURL is required")
	}

	// Request URLs are built by concatenating the trimmed base with
	// already-escaped paths, so the parsed form is only validated.
	parsed, err := url.Parse(config.HomeserverURL)
	if err != nil {
		return nil, fmt.Errorf("messaging: invalid HomeserverURL %q: %w", config.HomeserverURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("messaging: HomeserverURL %q must use http or https", config.HomeserverURL)
	}

	serverName := config.ServerName
	if serverName.IsZero() {
		serverName, err = ref.ServerNameFromURL(config.HomeserverURL)
		if err != nil {
			return nil, fmt.Errorf("messaging: %w", err)
		}
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var httpClient *http.Client
	if config.HTTPClient != nil {
		copied := *config.HTTPClient
		if copied.Timeout == 0 {
			copied.Timeout = timeout
		}
		httpClient = &copied
	} else {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if config.SkipCertificateVerification {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // operator opt-in for self-signed homeservers
		}
		httpClient = &http.Client{Transport: transport, Timeout: timeout}
	}

	deviceDisplayName := config.DeviceDisplayName
	if deviceDisplayName == "" {
		deviceDisplayName = DefaultDeviceDisplayName
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	transactions := config.Transactions
	if transactions == nil {
		transactions, err = txnid.New(txnid.Config{Clock: clk})
		if err != nil {
			return nil, fmt.Errorf("messaging: %w", err)
		}
	}

	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = version.UserAgent()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:           strings.TrimRight(config.HomeserverURL, "/"),
		serverName:        serverName,
		httpClient:        httpClient,
		cache:             config.Cache,
		deviceDisplayName: deviceDisplayName,
		transactions:      transactions,
		clock:             clk,
		userAgent:         userAgent,
		logger:            logger,
	}, nil
}

// ServerName returns the server name used to qualify bare aliases.
func (c *Client) ServerName() ref.ServerName { return c.serverName }

// CloseIdleConnections closes idle connections in the transport pool.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// Request is one API call.
type Request struct {
	Method  string
	Surface Surface

	// Endpoint is relative to the surface, with path segments already
	// escaped (e.g., "users/%40alice%3Aexample.org").
	Endpoint string

	// Query is appended as the URL query string when non-empty.
	Query url.Values

	// Body is JSON-encoded when non-nil.
	Body any
}

// URL returns the full request URL against baseURL.
func (r Request) URL(baseURL string) string {
	requestURL := strings.TrimRight(baseURL, "/") + r.Surface.Path(r.Endpoint)
	if len(r.Query) > 0 {
		requestURL += "?" + r.Query.Encode()
	}
	return requestURL
}

// attempt performs exactly one HTTP exchange. An empty accessToken sends
// no Authorization header.
func (c *Client) attempt(ctx context.Context, accessToken string, request Request) Result {
	requestURL := request.URL(c.baseURL)

	var bodyReader io.Reader
	if request.Body != nil {
		encoded, err := json.Marshal(request.Body)
		if err != nil {
			// An unencodable body is a programming error in the caller,
			// reported through the same channel as a transport failure.
			return transportFailure(requestURL, fmt.Errorf("encoding request body: %w", err))
		}
		bodyReader = bytes.NewReader(encoded)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, request.Method, requestURL, bodyReader)
	if err != nil {
		return transportFailure(requestURL, err)
	}
	httpRequest.Header.Set("User-Agent", c.userAgent)
	if request.Body != nil {
		httpRequest.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		httpRequest.Header.Set("Authorization", "Bearer "+accessToken)
	}

	c.logger.Debug("matrix request", "method", request.Method, "path", request.Surface.Path(request.Endpoint))

	response, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return transportFailure(requestURL, err)
	}
	defer response.Body.Close()

	result := Result{StatusCode: response.StatusCode, URL: requestURL}
	data, err := netutil.ReadResponse(response.Body)
	if err != nil {
		// The status arrived; keep it and report the partial read.
		result.Body = netutil.RawText(fmt.Sprintf("reading response body: %v", err))
		return result
	}
	result.Body = netutil.NormalizeJSON(data, result.OK())
	return result
}

func transportFailure(requestURL string, err error) Result {
	return Result{
		StatusCode: StatusTransportFailure,
		Body:       netutil.RawText(err.Error()),
		URL:        requestURL,
	}
}
