package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	DarwinEndpoint = "https://lite.realtime.nationalrail.co.uk/OpenLDBWS/ldb12.asmx"
	DefaultTimeout = 30 * time.Second
)

//----------------------------------------------
// Creating a Client and HTTP Request to fetch data
//----------------------------------------------

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// SharedHTTPClient reuses one pooled client across calls so keep-alive connections to Darwin
// are kept between polls.
type SharedHTTPClient struct {
	Client *http.Client
}

func NewSharedHTTPClient() *SharedHTTPClient {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 4
	return &SharedHTTPClient{
		Client: &http.Client{Transport: transport},
	}
}

func (c *SharedHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return c.Client.Do(req)
}

// StandardHTTPClient builds a fresh client for every request.
type StandardHTTPClient struct{}

func (c *StandardHTTPClient) Do(req *http.Request) (*http.Response, error) {
	client := &http.Client{
		Transport: http.DefaultTransport.(*http.Transport).Clone(),
	}
	defer client.CloseIdleConnections()
	return client.Do(req)
}

// Requester abstracts the Post request made to fetch the API Data
type Requester interface {
	Post(ctx context.Context, url string, payload []byte) ([]byte, error)
}

// ClientRequester wraps the HTTPClient interface and maps failures onto the error taxonomy.
// It never retries.
type ClientRequester struct {
	Client  HTTPClient
	Timeout time.Duration
	logger  zerolog.Logger
}

func NewClientRequester(client HTTPClient, logger zerolog.Logger) *ClientRequester {
	return &ClientRequester{
		Client:  client,
		Timeout: DefaultTimeout,
		logger:  logger,
	}
}

func (cr *ClientRequester) Post(ctx context.Context, url string, payload []byte) ([]byte, error) {
	timeout := cr.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", SOAPAction)

	start := time.Now()
	resp, err := cr.Client.Do(req)
	if err != nil {
		cr.logger.Error().Err(err).Str("url", url).Msg("Request error")
		return nil, &TransportError{Cause: err}
	}
	defer resp.Body.Close()

	cr.logger.Debug().
		Int("status", resp.StatusCode).
		Str("latency", time.Since(start).String()).
		Msg("Darwin response")

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &AuthenticationError{StatusCode: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Cause: fmt.Errorf("error reading response body: %w", err)}
	}
	return body, nil
}
