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

// Package oracle answers escrow and settlement timing questions for
// escrow-backed payments.
package oracle

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Radrdotfun/radr-http-434-private-payment-proof/internal/request"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/model"
)

type statusResponse struct {
	Status string `json:"status"`
}

// HTTP queries a ledger service:
//
//	GET {base}/escrow/{account}         -> {"status": "unlocked|locked|not_applicable"}
//	GET {base}/invoices/{id}/timing     -> {"status": "ready|too_early|not_applicable|precondition_missing"}
//
// Unknown statuses are returned as errors.
type HTTP struct {
	baseURL string
	client  *request.Client
}

func NewHTTP(baseURL string, timeout time.Duration, opts ...request.Option) *HTTP {
	return &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  request.NewClient("ledger", timeout, opts...),
	}
}

func (h *HTTP) CheckEscrow(ctx context.Context, escrowAccount string) (model.EscrowStatus, error) {
	var resp statusResponse
	if err := h.client.GetJSON(ctx, h.baseURL+"/escrow/"+url.PathEscape(escrowAccount), &resp); err != nil {
		return "", err
	}
	status := model.EscrowStatus(resp.Status)
	switch status {
	case model.EscrowUnlocked, model.EscrowLocked, model.EscrowNotApplicable:
		return status, nil
	}
	return "", fmt.Errorf("ledger returned unknown escrow status %q", resp.Status)
}

func (h *HTTP) CheckTiming(ctx context.Context, invoiceID string) (model.TimingStatus, error) {
	var resp statusResponse
	if err := h.client.GetJSON(ctx, h.baseURL+"/invoices/"+url.PathEscape(invoiceID)+"/timing", &resp); err != nil {
		return "", err
	}
	status := model.TimingStatus(resp.Status)
	switch status {
	case model.TimingReady, model.TimingTooEarly, model.TimingNotApplicable, model.TimingPreconditionMissing:
		return status, nil
	}
	return "", fmt.Errorf("ledger returned unknown timing status %q", resp.Status)
}

// Static reports the listed accounts as locked and every other account as
// unlocked. Timing is never constrained.
type Static struct {
	locked map[string]struct{}
}

func NewStatic(lockedAccounts ...string) *Static {
	s := &Static{locked: make(map[string]struct{}, len(lockedAccounts))}
	for _, acct := range lockedAccounts {
		s.locked[acct] = struct{}{}
	}
	return s
}

func (s *Static) CheckEscrow(_ context.Context, escrowAccount string) (model.EscrowStatus, error) {
	if _, ok := s.locked[escrowAccount]; ok {
		return model.EscrowLocked, nil
	}
	return model.EscrowUnlocked, nil
}

func (s *Static) CheckTiming(context.Context, string) (model.TimingStatus, error) {
	return model.TimingNotApplicable, nil
}
