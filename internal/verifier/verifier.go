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

// Package verifier provides proof verification backends.
package verifier

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/Radrdotfun/radr-http-434-private-payment-proof/internal/request"
	"github.com/Radrdotfun/radr-http-434-private-payment-proof/model"
)

var ErrEmptyProof = errors.New("proof is empty")

type verifyRequest struct {
	Proof      string `json:"proof"`
	MerkleRoot string `json:"merkle_root"`
	Scheme     string `json:"scheme"`
	InvoiceID  string `json:"invoice_id"`
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

// Remote delegates verification to a prover service exposing POST /verify.
type Remote struct {
	endpoint string
	client   *request.Client
}

func NewRemote(baseURL string, timeout time.Duration, opts ...request.Option) *Remote {
	return &Remote{
		endpoint: strings.TrimRight(baseURL, "/") + "/verify",
		client:   request.NewClient("verifier", timeout, opts...),
	}
}

func (r *Remote) Verify(ctx context.Context, proof []byte, merkleRoot, scheme string, pc model.PaymentContext) (bool, error) {
	if len(proof) == 0 {
		return false, ErrEmptyProof
	}
	var resp verifyResponse
	err := r.client.PostJSON(ctx, r.endpoint, verifyRequest{
		Proof:      base64.StdEncoding.EncodeToString(proof),
		MerkleRoot: merkleRoot,
		Scheme:     scheme,
		InvoiceID:  pc.InvoiceID,
	}, &resp)
	if err != nil {
		return false, err
	}
	return resp.Valid, nil
}

// Structural accepts any non-empty proof whose root and scheme are set. It
// performs no cryptography and exists for demos and local development.
type Structural struct{}

func (Structural) Verify(_ context.Context, proof []byte, merkleRoot, scheme string, _ model.PaymentContext) (bool, error) {
	if len(proof) == 0 {
		return false, ErrEmptyProof
	}
	return merkleRoot != "" && scheme != "", nil
}
