//  Copyright 2015 by Leipzig University Library, http://ub.uni-leipzig.de
//                    The Finc Authors, http://finc.info
//                    Martin Czygan, <martin.czygan@uni-leipzig.de>
//
// This file is part of some open source application.
//
// Some open source application is free software: you can redistribute
// it and/or modify it under the terms of the GNU General Public
// License as published by the Free Software Foundation, either
// version 3 of the License, or (at your option) any later version.
//
// Some open source application is distributed in the hope that it will
// be useful, but WITHOUT ANY WARRANTY; without even the implied warranty
// of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Foobar.  If not, see <http://www.gnu.org/licenses/>.
//
// @license GPL-3.0+ <http://spdx.org/licenses/GPL-3.0+>
//
package sichel

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Version
const Version = "0.2.0"

// UserAgent to use for requests.
var UserAgent = fmt.Sprintf("sichel/%s (https://github.com/miku/sichel)", Version)

// Doer lets us use pester, http.DefaultClient or other HTTP client
// implementations interchangably.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// MetadataDecoder turns the verbatim metadata subtree of a record into a
// typed payload. Implementations are supplied by the caller, keyed by
// metadataPrefix, this package never interprets metadata content.
type MetadataDecoder interface {
	DecodeMetadata(raw []byte) (any, error)
}

// Client turns OAI requests against a single endpoint into OAI responses.
// A client is not safe for concurrent harvests without external
// synchronization.
type Client struct {
	// Endpoint is the base URL of the OAI interface.
	Endpoint string
	// Method is the HTTP method to use, GET or POST.
	Method string
	// MaxRetries limits resends after a retryable status. Zero means a
	// single attempt.
	MaxRetries int
	// RetryStatusCodes lists the statuses worth a resend.
	RetryStatusCodes []int
	// DefaultRetryAfter is the wait between attempts, when the server does
	// not send a Retry-After header.
	DefaultRetryAfter time.Duration
	// Username and Password carry basic auth material. It is attached to
	// every attempt, retries included.
	Username string
	Password string
	// Decoders maps a metadataPrefix to a decoder for its payload. The
	// decoder for a harvest is resolved once, when the iterator is created.
	Decoders map[string]MetadataDecoder
	// Logger defaults to a no-op logger.
	Logger zerolog.Logger

	// doer is a delegate for HTTP requests.
	doer Doer
}

// NewClient creates a client with defaults that match most repositories:
// GET, no retries, 503 retryable, 60s wait fallback, 60s timeout.
func NewClient(endpoint string) *Client {
	return &Client{
		Endpoint:          endpoint,
		Method:            "GET",
		RetryStatusCodes:  []int{503},
		DefaultRetryAfter: 60 * time.Second,
		Logger:            zerolog.Nop(),
		doer:              &http.Client{Timeout: 60 * time.Second},
	}
}

// NewClientDoer creates a client with a user supplied http client, e.g.
// pester.Client or http.DefaultClient.
func NewClientDoer(endpoint string, doer Doer) *Client {
	c := NewClient(endpoint)
	c.doer = doer
	return c
}

func (c *Client) httpDoer() Doer {
	if c.doer != nil {
		return c.doer
	}
	return http.DefaultClient
}

// Close releases idle connections held by the underlying HTTP client, if it
// exposes such control.
func (c *Client) Close() {
	if d, ok := c.httpDoer().(interface{ CloseIdleConnections() }); ok {
		d.CloseIdleConnections()
	}
}

// Harvest executes a single protocol request and decodes the response. It is
// the building block under all iterators.
func (c *Client) Harvest(ctx context.Context, req Request) (*Response, error) {
	b, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	return Decode(b)
}

// send performs one protocol request, resending on retryable statuses, and
// returns the raw body. Transport failures without a status, like timeouts,
// count against the same retry budget.
func (c *Client) send(ctx context.Context, req Request) ([]byte, error) {
	if c.Endpoint == "" {
		return nil, ErrNoEndpoint
	}
	values, err := req.Values()
	if err != nil {
		return nil, err
	}
	for attempt := 0; ; attempt++ {
		status, retryAfter, body, err := c.roundtrip(ctx, values)
		switch {
		case err == nil && status >= 200 && status < 300:
			return body, nil
		case err == nil && !c.retryable(status):
			return nil, &FatalHTTPError{StatusCode: status}
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == c.MaxRetries {
			return nil, &TransientHTTPError{StatusCode: status, Attempts: attempt + 1, Err: err}
		}
		wait := c.waitTime(retryAfter)
		c.Logger.Warn().Int("status", status).Dur("wait", wait).
			Str("verb", req.Verb).Msg("retrying")
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// roundtrip issues exactly one HTTP request and drains the body.
func (c *Client) roundtrip(ctx context.Context, values url.Values) (status int, retryAfter string, body []byte, err error) {
	var hreq *http.Request
	if c.Method == "POST" {
		hreq, err = http.NewRequestWithContext(ctx, "POST", c.Endpoint, strings.NewReader(values.Encode()))
		if err == nil {
			hreq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		hreq, err = http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s?%s", c.Endpoint, values.Encode()), nil)
	}
	if err != nil {
		return 0, "", nil, err
	}
	hreq.Header.Set("User-Agent", UserAgent)
	if c.Username != "" || c.Password != "" {
		hreq.SetBasicAuth(c.Username, c.Password)
	}
	c.Logger.Debug().Str("url", hreq.URL.String()).Msg("request")
	resp, err := c.httpDoer().Do(hreq)
	if err != nil {
		return 0, "", nil, err
	}
	defer resp.Body.Close()
	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", nil, err
	}
	return resp.StatusCode, resp.Header.Get("Retry-After"), body, nil
}

func (c *Client) retryable(status int) bool {
	for _, s := range c.RetryStatusCodes {
		if s == status {
			return true
		}
	}
	return false
}

// waitTime prefers the Retry-After hint of the server over the configured
// fallback. Only the delay-seconds form is understood.
func (c *Client) waitTime(retryAfter string) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	return c.DefaultRetryAfter
}
