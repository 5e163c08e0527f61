package songapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/altzarra/songsmith/pkg/ratelimit"
)

const defaultHost = "https://api.versegen.ai"

// DurationResolver obtains the playable duration of an audio URL. The remote
// service doesn't report durations reliably, so results are measured from the
// audio itself.
type DurationResolver interface {
	Resolve(ctx context.Context, url string) (time.Duration, error)
}

type Client struct {
	client       *http.Client
	host         string
	key          string
	debug        bool
	ratelimit    ratelimit.Lock
	resolver     DurationResolver
	recorder     Recorder
	pollInterval time.Duration
	maxWait      time.Duration
	maxDuration  time.Duration
}

type Config struct {
	Key          string
	Host         string
	Wait         time.Duration
	PollInterval time.Duration
	MaxWait      time.Duration
	MaxDuration  time.Duration
	Debug        bool
	Dummy        bool
	Client       *http.Client
	Resolver     DurationResolver
	Recorder     Recorder
}

func New(cfg *Config) (*Client, error) {
	if cfg.Key == "" && !cfg.Dummy {
		return nil, errors.New("songapi: missing api key")
	}
	wait := cfg.Wait
	if wait == 0 {
		wait = 1 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout: 2 * time.Minute,
		}
	}
	host := strings.TrimSuffix(cfg.Host, "/")
	if host == "" {
		host = defaultHost
	}
	pollInterval := cfg.PollInterval
	if pollInterval == 0 {
		pollInterval = 5 * time.Second
	}
	resolver := cfg.Resolver
	if cfg.Dummy {
		// Dummy mode swaps the transport and the resolver in a single place
		// so the rest of the client stays untouched.
		client = &http.Client{
			Transport: newDummyTransport(),
			Timeout:   2 * time.Minute,
		}
		if resolver == nil {
			resolver = fixedResolver(3 * time.Minute)
		}
	}
	return &Client{
		client:       client,
		host:         host,
		key:          cfg.Key,
		debug:        cfg.Debug,
		ratelimit:    ratelimit.New(wait),
		resolver:     resolver,
		recorder:     cfg.Recorder,
		pollInterval: pollInterval,
		maxWait:      cfg.MaxWait,
		maxDuration:  cfg.MaxDuration,
	}, nil
}

func (c *Client) log(format string, args ...interface{}) {
	if c.debug {
		format += "\n"
		log.Printf(format, args...)
	}
}

var backoff = []time.Duration{
	30 * time.Second,
	1 * time.Minute,
	2 * time.Minute,
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) ([]byte, error) {
	maxAttempts := 3
	attempts := 0
	var err error
	var body []byte
	for {
		if err != nil {
			log.Println("retrying...", err)
		}
		body, err = c.doAttempt(ctx, method, path, in, out)
		if err == nil {
			return body, nil
		}
		// Increase attempts and check if we should stop
		attempts++
		if attempts >= maxAttempts {
			return body, err
		}
		// If the error is temporary retry
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			continue
		}

		// Check if we should retry after waiting
		var retry bool
		var wait bool

		// Check status code
		var errStatus errStatusCode
		if errors.As(err, &errStatus) {
			switch int(errStatus) {
			case http.StatusBadGateway, http.StatusGatewayTimeout, http.StatusTooManyRequests, 520:
				// Retry on these status codes
				retry = true
				wait = true
			default:
				return body, err
			}
		}
		if !retry {
			return body, err
		}

		// Wait before retrying
		if wait {
			idx := attempts - 1
			if idx >= len(backoff) {
				idx = len(backoff) - 1
			}
			waitTime := backoff[idx]
			c.log("songapi: server seems to be down, waiting %s before retrying", waitTime)
			t := time.NewTimer(waitTime)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-t.C:
			}
		}
	}
}

type errStatusCode int

func (e errStatusCode) Error() string {
	return fmt.Sprintf("%d", e)
}

func (c *Client) doAttempt(ctx context.Context, method, path string, in, out any) ([]byte, error) {
	var body []byte
	var reqBody io.Reader
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("songapi: couldn't marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(body)
	}
	c.log("songapi: do %s %s %s", method, path, string(body))

	u := fmt.Sprintf("%s/%s", c.host, path)
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("songapi: couldn't create request: %w", err)
	}
	c.addHeaders(req)

	unlock := c.ratelimit.Lock(ctx)
	defer unlock()

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		err = fmt.Errorf("songapi: couldn't %s %s: %w", method, u, err)
		c.record(ctx, &Event{
			Method:  method,
			URL:     u,
			Request: body,
			Elapsed: time.Since(start),
			Err:     err,
		})
		return nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("songapi: couldn't read response body: %w", err)
	}
	c.log("songapi: response %s %s %d %s", method, path, resp.StatusCode, string(respBody))
	c.record(ctx, &Event{
		Method:   method,
		URL:      u,
		Status:   resp.StatusCode,
		Request:  body,
		Response: respBody,
		Elapsed:  time.Since(start),
	})
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errMessage := string(respBody)
		if len(errMessage) > 100 {
			errMessage = errMessage[:100] + "..."
		}
		return respBody, fmt.Errorf("songapi: %s %s returned (%s): %w", method, u, errMessage, errStatusCode(resp.StatusCode))
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return respBody, fmt.Errorf("songapi: couldn't unmarshal response body (%T): %w", out, err)
		}
	}
	return respBody, nil
}

func (c *Client) addHeaders(req *http.Request) {
	req.Header.Set("accept", "application/json")
	if c.key != "" {
		req.Header.Set("authorization", fmt.Sprintf("Bearer %s", c.key))
	}
	req.Header.Set("content-type", "application/json")
}
