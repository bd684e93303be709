package instagram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	errs "igfetch/pkg/errors"
	"igfetch/pkg/logger"
)

// maxPageSize caps metadata responses read into memory
const maxPageSize = 16 << 20

// Client performs the HTTP requests the strategies need. Every call takes
// its own headers and timeout; the client itself holds no identity.
type Client struct {
	httpClient *http.Client
	logger     logger.Logger
}

// NewClient creates a new Instagram HTTP client. A nil httpClient uses a
// fresh client without a global timeout; deadlines are set per call.
func NewClient(httpClient *http.Client, log logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Client{httpClient: httpClient, logger: log}
}

// doRequest performs a GET with the given headers
func (c *Client) doRequest(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeInternal, "failed to create request", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"url": url,
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"url":      url,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Wrap(errs.ErrorTypeNetwork, "request failed", err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      url,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// checkResponseStatus turns any non-200 status into a typed error
func (c *Client) checkResponseStatus(resp *http.Response, url string) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	err := errs.FromStatus(resp.StatusCode, url)
	c.logger.WarnWithFields("unexpected response status", map[string]interface{}{
		"url":    url,
		"status": resp.StatusCode,
		"kind":   string(err.Type),
	})
	return err
}

// Fetch GETs url and returns the whole body. The call is bounded by timeout
// when it is positive.
func (c *Client) Fetch(ctx context.Context, url string, headers map[string]string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := c.doRequest(ctx, url, headers)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp, url); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNetwork, "failed to read response body", err)
	}
	return body, nil
}

// Stream is an open response body. Closing it releases the connection and
// the per-call deadline.
type Stream struct {
	io.ReadCloser
	// Size is the advertised Content-Length, or -1 when unknown
	Size int64
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// OpenStream GETs url and hands back the body for incremental reading.
// timeout bounds the whole transfer, not just the headers.
func (c *Client) OpenStream(ctx context.Context, url string, headers map[string]string, timeout time.Duration) (*Stream, error) {
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	}

	resp, err := c.doRequest(ctx, url, headers)
	if err != nil {
		cancel()
		return nil, err
	}

	if err := c.checkResponseStatus(resp, url); err != nil {
		resp.Body.Close()
		cancel()
		return nil, err
	}

	return &Stream{
		ReadCloser: &cancelOnClose{ReadCloser: resp.Body, cancel: cancel},
		Size:       resp.ContentLength,
	}, nil
}

// FetchPayload GETs a JSON endpoint and parses it into a PostPayload
func (c *Client) FetchPayload(ctx context.Context, url string, headers map[string]string, timeout time.Duration) (PostPayload, error) {
	body, err := c.Fetch(ctx, url, headers, timeout)
	if err != nil {
		return PostPayload{}, err
	}

	payload, err := ParsePostPayload(body)
	if err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.WarnWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return PostPayload{}, errs.Wrap(errs.ErrorTypeParsing, fmt.Sprintf("invalid JSON from %s", url), err)
	}
	return payload, nil
}
