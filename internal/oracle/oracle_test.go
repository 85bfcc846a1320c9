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

package oracle

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Radrdotfun/radr-http-434-private-payment-proof/internal/request"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/model"
)

const ledgerURL = "http://ledger.local"

func newTestHTTP(t *testing.T) *HTTP {
	hc := &http.Client{}
	httpmock.ActivateNonDefault(hc)
	t.Cleanup(httpmock.DeactivateAndReset)
	return NewHTTP(ledgerURL, time.Second, request.WithHTTPClient(hc))
}

func TestHTTP_CheckEscrow(t *testing.T) {
	o := newTestHTTP(t)

	for _, status := range []model.EscrowStatus{model.EscrowUnlocked, model.EscrowLocked, model.EscrowNotApplicable} {
		httpmock.RegisterResponder("GET", ledgerURL+"/escrow/acct_1",
			httpmock.NewJsonResponderOrPanic(200, statusResponse{Status: string(status)}))

		got, err := o.CheckEscrow(context.Background(), "acct_1")
		require.NoError(t, err)
		assert.Equal(t, status, got)
	}
}

func TestHTTP_CheckEscrow_UnknownStatus(t *testing.T) {
	o := newTestHTTP(t)
	httpmock.RegisterResponder("GET", ledgerURL+"/escrow/acct_1",
		httpmock.NewJsonResponderOrPanic(200, statusResponse{Status: "frozen"}))

	_, err := o.CheckEscrow(context.Background(), "acct_1")
	assert.EqualError(t, err, `ledger returned unknown escrow status "frozen"`)
}

func TestHTTP_CheckTiming(t *testing.T) {
	o := newTestHTTP(t)
	httpmock.RegisterResponder("GET", ledgerURL+"/invoices/inv_demo_1/timing",
		httpmock.NewJsonResponderOrPanic(200, statusResponse{Status: "too_early"}))

	got, err := o.CheckTiming(context.Background(), "inv_demo_1")
	require.NoError(t, err)
	assert.Equal(t, model.TimingTooEarly, got)
}

func TestHTTP_CheckTiming_Failure(t *testing.T) {
	o := newTestHTTP(t)
	httpmock.RegisterResponder("GET", ledgerURL+"/invoices/inv_demo_1/timing",
		httpmock.NewStringResponder(502, "bad gateway"))

	_, err := o.CheckTiming(context.Background(), "inv_demo_1")
	assert.Error(t, err)
}

func TestStatic(t *testing.T) {
	o := NewStatic("LOCKED_ESCROW_FOR_DEMO")

	status, err := o.CheckEscrow(context.Background(), "LOCKED_ESCROW_FOR_DEMO")
	require.NoError(t, err)
	assert.Equal(t, model.EscrowLocked, status)

	status, err = o.CheckEscrow(context.Background(), "acct_open")
	require.NoError(t, err)
	assert.Equal(t, model.EscrowUnlocked, status)

	timing, err := o.CheckTiming(context.Background(), "inv_demo_1")
	require.NoError(t, err)
	assert.Equal(t, model.TimingNotApplicable, timing)
}
