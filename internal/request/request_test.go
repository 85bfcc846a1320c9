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

package request_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Radrdotfun/radr-http-434-private-payment-proof/internal/request"
)

func newMockedClient(t *testing.T, opts ...request.Option) *request.Client {
	hc := &http.Client{}
	httpmock.ActivateNonDefault(hc)
	t.Cleanup(httpmock.DeactivateAndReset)
	return request.NewClient("test", time.Second, append(opts, request.WithHTTPClient(hc))...)
}

func TestToJsonReq_Success(t *testing.T) {
	reqBuffer, err := request.ToJsonReq(map[string]string{"key": "value"})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"key":"value"}`, reqBuffer.String())
}

func TestToJsonReq_Fail(t *testing.T) {
	_, err := request.ToJsonReq(map[string]interface{}{"key": make(chan int)})
	assert.Error(t, err)
}

func TestPostJSON(t *testing.T) {
	client := newMockedClient(t, request.WithHeaders(map[string]string{"X-Api-Key": "secret"}))

	httpmock.RegisterResponder("POST", "http://prover.local/verify",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
			assert.Equal(t, "secret", req.Header.Get("X-Api-Key"))
			return httpmock.NewJsonResponse(200, map[string]bool{"valid": true})
		})

	var out struct {
		Valid bool `json:"valid"`
	}
	require.NoError(t, client.PostJSON(context.Background(), "http://prover.local/verify", map[string]string{"a": "b"}, &out))
	assert.True(t, out.Valid)
}

func TestGetJSON_StatusError(t *testing.T) {
	client := newMockedClient(t)

	httpmock.RegisterResponder("GET", "http://ledger.local/escrow/acct",
		httpmock.NewStringResponder(503, "unavailable"))

	err := client.GetJSON(context.Background(), "http://ledger.local/escrow/acct", &struct{}{})
	var statusErr *request.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, 503, statusErr.StatusCode)
	assert.Equal(t, "unavailable", statusErr.Body)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	client := newMockedClient(t)

	httpmock.RegisterResponder("GET", "http://ledger.local/down",
		httpmock.NewErrorResponder(errors.New("connection refused")))

	for i := 0; i < 5; i++ {
		assert.Error(t, client.GetJSON(context.Background(), "http://ledger.local/down", nil))
	}
	assert.Equal(t, gobreaker.StateOpen, client.State())

	err := client.GetJSON(context.Background(), "http://ledger.local/down", nil)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 5, httpmock.GetTotalCallCount())
}
