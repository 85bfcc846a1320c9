/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package request is the small JSON-over-HTTP client shared by the gate's
// outbound collaborators (prover service, ledger, webhooks, Slack).
package request

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// ToJsonReq converts a value to a JSON request body.
func ToJsonReq(payload interface{}) (*bytes.Buffer, error) {
	c, e := json.Marshal(payload)
	if e != nil {
		return nil, e
	}
	return bytes.NewBuffer(c), nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Client sends JSON requests through a circuit breaker, so a failing
// collaborator is short-circuited instead of stalling every request.
type Client struct {
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	headers map[string]string
}

type Option func(*Client)

// WithHeaders adds static headers to every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

// WithHTTPClient replaces the underlying http client. It is used by tests to
// install a mock transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient builds a Client named name. The breaker opens after five
// consecutive failures and half-opens again after thirty seconds.
func NewClient(name string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: timeout},
		headers: map[string]string{},
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HTTPClient exposes the underlying http client.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// State reports the circuit breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// PostJSON sends payload as JSON and decodes the response into response when
// it is non-nil.
func (c *Client) PostJSON(ctx context.Context, url string, payload, response interface{}) error {
	body, err := ToJsonReq(payload)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, url, body, response)
}

// GetJSON fetches url and decodes the JSON response into response.
func (c *Client) GetJSON(ctx context.Context, url string, response interface{}) error {
	return c.do(ctx, http.MethodGet, url, nil, response)
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader, response interface{}) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
		}
		if response == nil {
			return nil, nil
		}
		return nil, json.NewDecoder(resp.Body).Decode(response)
	})
	return err
}
