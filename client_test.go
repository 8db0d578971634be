package sichel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const identifyBody = `<OAI-PMH xmlns="http://www.openarchives.org/OAI/2.0/">
  <responseDate>2015-10-31T12:00:00Z</responseDate>
  <request verb="Identify">http://example.com/oai</request>
  <Identify>
    <repositoryName>Test Repository</repositoryName>
    <protocolVersion>2.0</protocolVersion>
  </Identify>
</OAI-PMH>`

// testClient returns a client against srv with waits short enough for tests.
func testClient(srv *httptest.Server) *Client {
	c := NewClient(srv.URL)
	c.DefaultRetryAfter = time.Millisecond
	return c
}

func TestRetrySucceedsAfterExactlyNPlusOneAttempts(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests <= 2 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, identifyBody)
	}))
	defer srv.Close()

	c := testClient(srv)
	c.MaxRetries = 2

	resp, err := c.Harvest(context.Background(), Request{Verb: "Identify"})
	require.NoError(t, err)
	assert.Equal(t, "Test Repository", resp.Identify.Name)
	assert.Equal(t, 3, requests)
}

func TestRetryExhaustionSurfacesTransientError(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Header().Set("Retry-After", "0")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := testClient(srv)
	c.MaxRetries = 1

	_, err := c.Harvest(context.Background(), Request{Verb: "Identify"})
	var transient *TransientHTTPError
	require.True(t, errors.As(err, &transient))
	assert.Equal(t, 503, transient.StatusCode)
	assert.Equal(t, 2, transient.Attempts)
	assert.Equal(t, 2, requests)
}

func TestFatalStatusFailsImmediately(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient(srv)
	c.MaxRetries = 5

	_, err := c.Harvest(context.Background(), Request{Verb: "Identify"})
	var fatal *FatalHTTPError
	require.True(t, errors.As(err, &fatal))
	assert.Equal(t, 404, fatal.StatusCode)
	assert.Equal(t, 1, requests)
}

func TestCustomRetryStatusCodes(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, identifyBody)
	}))
	defer srv.Close()

	c := testClient(srv)
	c.MaxRetries = 1
	c.RetryStatusCodes = []int{429, 503}

	_, err := c.Harvest(context.Background(), Request{Verb: "Identify"})
	require.NoError(t, err)
	assert.Equal(t, 2, requests)
}

func TestBasicAuthAttachedToEveryAttempt(t *testing.T) {
	var authed int
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if user, pass, ok := r.BasicAuth(); ok && user == "alice" && pass == "secret" {
			authed++
		}
		if requests == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, identifyBody)
	}))
	defer srv.Close()

	c := testClient(srv)
	c.MaxRetries = 1
	c.Username = "alice"
	c.Password = "secret"

	_, err := c.Harvest(context.Background(), Request{Verb: "Identify"})
	require.NoError(t, err)
	assert.Equal(t, 2, requests)
	assert.Equal(t, 2, authed)
}

func TestPostMethod(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "Identify", r.PostForm.Get("verb"))
		fmt.Fprint(w, identifyBody)
	}))
	defer srv.Close()

	c := testClient(srv)
	c.Method = "POST"

	resp, err := c.Harvest(context.Background(), Request{Verb: "Identify"})
	require.NoError(t, err)
	assert.Equal(t, "Test Repository", resp.Identify.Name)
}

func TestBadRequestNotSent(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer srv.Close()

	c := testClient(srv)
	_, err := c.Harvest(context.Background(), Request{Verb: "MakeCoffee"})
	assert.Equal(t, ErrBadVerb, err)
	assert.Equal(t, 0, requests)
}

func TestWaitTime(t *testing.T) {
	c := NewClient("http://example.com/oai")
	c.DefaultRetryAfter = 30 * time.Second

	var tests = []struct {
		header string
		want   time.Duration
	}{
		{"7", 7 * time.Second},
		{"0", 0},
		{" 5 ", 5 * time.Second},
		{"", 30 * time.Second},
		{"soonish", 30 * time.Second},
		{"-1", 30 * time.Second},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, c.waitTime(test.header), "header %q", test.header)
	}
}

func TestCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := testClient(srv)
	c.MaxRetries = 3

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := c.Harvest(ctx, Request{Verb: "Identify"})
	assert.ErrorIs(t, err, context.Canceled)
}
